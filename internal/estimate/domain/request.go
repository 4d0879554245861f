package domain

import (
	"fmt"
	"regexp"
	"strings"

	referencedomain "github.com/mirzaik-wcc/contractorlens/internal/reference/domain"
	"github.com/mirzaik-wcc/contractorlens/internal/takeoff"
	"github.com/shopspring/decimal"
)

type JobType string

const (
	JobTypeKitchen  JobType = "kitchen"
	JobTypeBathroom JobType = "bathroom"
	JobTypeRoom     JobType = "room"
	JobTypeExterior JobType = "exterior"
	JobTypeFlooring JobType = "flooring"
	JobTypeWall     JobType = "wall"
	JobTypeCeiling  JobType = "ceiling"
)

var jobTypes = map[JobType]struct{}{
	JobTypeKitchen:  {},
	JobTypeBathroom: {},
	JobTypeRoom:     {},
	JobTypeExterior: {},
	JobTypeFlooring: {},
	JobTypeWall:     {},
	JobTypeCeiling:  {},
}

func ParseJobType(value string) (JobType, bool) {
	jt := JobType(strings.ToLower(strings.TrimSpace(value)))
	_, ok := jobTypes[jt]
	return jt, ok
}

var zipPattern = regexp.MustCompile(`^\d{5}(-?\d{4})?$`)

// Zip5 returns the five digit form of a 5 or 9 digit ZIP.
func Zip5(zip string) (string, bool) {
	zip = strings.TrimSpace(zip)
	if !zipPattern.MatchString(zip) {
		return "", false
	}
	return zip[:5], true
}

// UserSettings are the caller's optional overrides; nil fields take the configured defaults.
type UserSettings struct {
	HourlyRate       *float64 `json:"hourly_rate,omitempty"`
	MarkupPercentage *float64 `json:"markup_percentage,omitempty"`
	TaxRate          *float64 `json:"tax_rate,omitempty"`
}

// Settings are the values a calculation actually uses.
type Settings struct {
	HourlyRate       decimal.Decimal `json:"hourly_rate"`
	MarkupPercentage decimal.Decimal `json:"markup_percentage"`
	TaxRate          decimal.Decimal `json:"tax_rate"`
}

func (u *UserSettings) Validate() error {
	if u == nil {
		return ErrMissingUserSettings
	}
	if u.HourlyRate != nil && *u.HourlyRate <= 0 {
		return fmt.Errorf("hourly_rate must be positive: %w", ErrInvalidUserSettings)
	}
	if u.MarkupPercentage != nil && *u.MarkupPercentage < 0 {
		return fmt.Errorf("markup_percentage cannot be negative: %w", ErrInvalidUserSettings)
	}
	if u.TaxRate != nil && (*u.TaxRate < 0 || *u.TaxRate > 1) {
		return fmt.Errorf("tax_rate must be between 0 and 1: %w", ErrInvalidUserSettings)
	}
	return nil
}

// Effective fills unset fields from defaults.
func (u *UserSettings) Effective(defaults Settings) Settings {
	out := defaults
	if u == nil {
		return out
	}
	if u.HourlyRate != nil {
		out.HourlyRate = decimal.NewFromFloat(*u.HourlyRate)
	}
	if u.MarkupPercentage != nil {
		out.MarkupPercentage = decimal.NewFromFloat(*u.MarkupPercentage)
	}
	if u.TaxRate != nil {
		out.TaxRate = decimal.NewFromFloat(*u.TaxRate)
	}
	return out
}

type CalculateRequest struct {
	Takeoff      *takeoff.Takeoff `json:"takeoff"`
	JobType      string           `json:"job_type"`
	FinishLevel  string           `json:"finish_level"`
	ZipCode      string           `json:"zip_code"`
	UserSettings *UserSettings    `json:"user_settings"`
}

// ValidatedRequest is a request that passed Validate, with its fields parsed.
type ValidatedRequest struct {
	Takeoff      *takeoff.Takeoff
	JobType      JobType
	FinishLevel  referencedomain.QualityTier
	Zip5         string
	UserSettings *UserSettings
}

// Validate checks the request shape without touching any store.
func (r CalculateRequest) Validate() (ValidatedRequest, error) {
	if r.Takeoff == nil {
		return ValidatedRequest{}, newValidationError("takeoff", ErrInvalidTakeoff)
	}
	if err := r.Takeoff.Validate(); err != nil {
		return ValidatedRequest{}, newValidationError("takeoff", fmt.Errorf("%w: %w", ErrInvalidTakeoff, err))
	}
	jobType, ok := ParseJobType(r.JobType)
	if !ok {
		return ValidatedRequest{}, newValidationError("job_type", fmt.Errorf("%q: %w", r.JobType, ErrInvalidJobType))
	}
	level, ok := referencedomain.ParseQualityTier(r.FinishLevel)
	if !ok {
		return ValidatedRequest{}, newValidationError("finish_level", fmt.Errorf("%q: %w", r.FinishLevel, ErrInvalidFinishLevel))
	}
	zip, ok := Zip5(r.ZipCode)
	if !ok {
		return ValidatedRequest{}, newValidationError("zip_code", fmt.Errorf("%q: %w", r.ZipCode, ErrInvalidZipCode))
	}
	if err := r.UserSettings.Validate(); err != nil {
		return ValidatedRequest{}, newValidationError("user_settings", err)
	}
	return ValidatedRequest{
		Takeoff:      r.Takeoff,
		JobType:      jobType,
		FinishLevel:  level,
		Zip5:         zip,
		UserSettings: r.UserSettings,
	}, nil
}
