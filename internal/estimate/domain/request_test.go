package domain

import (
	"errors"
	"testing"

	referencedomain "github.com/mirzaik-wcc/contractorlens/internal/reference/domain"
	"github.com/mirzaik-wcc/contractorlens/internal/takeoff"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() CalculateRequest {
	return CalculateRequest{
		Takeoff:      &takeoff.Takeoff{Floors: []takeoff.Measurement{{Area: 100}}},
		JobType:      "Flooring",
		FinishLevel:  " BETTER ",
		ZipCode:      "94103-1234",
		UserSettings: &UserSettings{},
	}
}

func TestZip5(t *testing.T) {
	cases := map[string]struct {
		want string
		ok   bool
	}{
		"94103":      {want: "94103", ok: true},
		" 94103 ":    {want: "94103", ok: true},
		"94103-1234": {want: "94103", ok: true},
		"941031234":  {want: "94103", ok: true},
		"9410":       {},
		"94103-12":   {},
		"abcde":      {},
		"":           {},
	}
	for input, tc := range cases {
		got, ok := Zip5(input)
		assert.Equal(t, tc.ok, ok, input)
		assert.Equal(t, tc.want, got, input)
	}
}

func TestValidateNormalizesFields(t *testing.T) {
	v, err := validRequest().Validate()
	require.NoError(t, err)

	assert.Equal(t, JobTypeFlooring, v.JobType)
	assert.Equal(t, referencedomain.QualityBetter, v.FinishLevel)
	assert.Equal(t, "94103", v.Zip5)
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CalculateRequest)
		field  string
		target error
	}{
		{"nil takeoff", func(r *CalculateRequest) { r.Takeoff = nil }, "takeoff", ErrInvalidTakeoff},
		{"negative area", func(r *CalculateRequest) {
			r.Takeoff = &takeoff.Takeoff{Walls: []takeoff.Measurement{{Area: -1}}}
		}, "takeoff", takeoff.ErrInvalidArea},
		{"job type", func(r *CalculateRequest) { r.JobType = "roofing" }, "job_type", ErrInvalidJobType},
		{"finish level", func(r *CalculateRequest) { r.FinishLevel = "premium" }, "finish_level", ErrInvalidFinishLevel},
		{"zip", func(r *CalculateRequest) { r.ZipCode = "941" }, "zip_code", ErrInvalidZipCode},
		{"missing settings", func(r *CalculateRequest) { r.UserSettings = nil }, "user_settings", ErrMissingUserSettings},
		{"zero hourly rate", func(r *CalculateRequest) {
			r.UserSettings = &UserSettings{HourlyRate: lo.ToPtr(0.0)}
		}, "user_settings", ErrInvalidUserSettings},
		{"negative markup", func(r *CalculateRequest) {
			r.UserSettings = &UserSettings{MarkupPercentage: lo.ToPtr(-5.0)}
		}, "user_settings", ErrInvalidUserSettings},
		{"tax above one", func(r *CalculateRequest) {
			r.UserSettings = &UserSettings{TaxRate: lo.ToPtr(1.5)}
		}, "user_settings", ErrInvalidUserSettings},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)

			_, err := req.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			assert.ErrorIs(t, err, tc.target)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestEffectiveSettings(t *testing.T) {
	defaults := Settings{
		HourlyRate:       decimal.NewFromInt(75),
		MarkupPercentage: decimal.NewFromInt(25),
		TaxRate:          decimal.RequireFromString("0.08"),
	}

	assert.Equal(t, defaults, (*UserSettings)(nil).Effective(defaults))

	got := (&UserSettings{HourlyRate: lo.ToPtr(90.0), TaxRate: lo.ToPtr(0.0)}).Effective(defaults)
	assert.True(t, got.HourlyRate.Equal(decimal.NewFromInt(90)))
	assert.True(t, got.MarkupPercentage.Equal(decimal.NewFromInt(25)))
	assert.True(t, got.TaxRate.IsZero(), "an explicit zero tax rate overrides the default")
}

func TestCalculationErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &CalculationError{Stage: StageComponentsPriced, Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrCalculationFailed)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "components_priced")
}
