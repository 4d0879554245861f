package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mirzaik-wcc/contractorlens/internal/cache"
	"github.com/mirzaik-wcc/contractorlens/internal/clock"
	"github.com/mirzaik-wcc/contractorlens/internal/config"
	"github.com/mirzaik-wcc/contractorlens/internal/costing"
	costingdomain "github.com/mirzaik-wcc/contractorlens/internal/costing/domain"
	estimatedomain "github.com/mirzaik-wcc/contractorlens/internal/estimate/domain"
	"github.com/mirzaik-wcc/contractorlens/internal/reference"
	referencedomain "github.com/mirzaik-wcc/contractorlens/internal/reference/domain"
	"github.com/mirzaik-wcc/contractorlens/internal/seed"
	"github.com/mirzaik-wcc/contractorlens/internal/takeoff"
	"github.com/mirzaik-wcc/contractorlens/internal/testutil"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var seededAt = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

func testConfig() config.Config {
	tier := config.TierConfig{TTL: time.Hour, MaxKeys: 100}
	return config.Config{
		Estimator: config.EstimatorConfig{
			EngineVersion:            "2.0",
			DefaultHourlyRate:        50,
			DefaultMarkupPercentage:  25,
			DefaultTaxRate:           0.08,
			RetailPriceFreshnessDays: 7,
			Workers:                  4,
			Timeout:                  5 * time.Second,
			CacheEstimates:           true,
		},
		Cache: config.CacheConfig{
			Location: tier, Assembly: tier, ItemCost: tier, RetailPrice: tier, Estimate: tier,
		},
	}
}

type fixture struct {
	svc   estimatedomain.Service
	cache *cache.CostCache
	db    *gorm.DB
}

func newFixture(t *testing.T, cfg config.Config, wrap func(referencedomain.Repository) referencedomain.Repository) fixture {
	t.Helper()
	db := testutil.NewSeededCatalogDB(t, seededAt)
	repo := reference.NewRepository(db)
	if wrap != nil {
		repo = wrap(repo)
	}
	clk := clock.NewFakeClock(seededAt)

	costCache := cache.NewCostCache(cache.CostCacheParams{
		Repo:      repo,
		Config:    cfg,
		Clock:     clk,
		Log:       zap.NewNop(),
		Estimates: cache.NewMemoryEstimateStore(clk, 10, nil),
	})
	resolver := costing.NewResolver(costing.ServiceParam{Cache: costCache, Clock: clk, Config: cfg, Log: zap.NewNop()})
	svc := NewService(ServiceParam{
		Cache:    costCache,
		Resolver: resolver,
		Rules:    config.NewStaticPricingRules(config.DefaultPricingRules()),
		Config:   cfg,
		Clock:    clk,
		Log:      zap.NewNop(),
	})
	return fixture{svc: svc, cache: costCache, db: db}
}

func flooringRequest(level, zip string) estimatedomain.CalculateRequest {
	return estimatedomain.CalculateRequest{
		Takeoff:      &takeoff.Takeoff{Floors: []takeoff.Measurement{{Name: "living room", Area: 120}}},
		JobType:      "flooring",
		FinishLevel:  level,
		ZipCode:      zip,
		UserSettings: &estimatedomain.UserSettings{},
	}
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Equal(t, want, got.StringFixed(2), msgAndArgs...)
}

func lineByDescription(t *testing.T, est *estimatedomain.Estimate, description string) estimatedomain.LineItem {
	t.Helper()
	for _, li := range est.LineItems() {
		if li.Description == description {
			return li
		}
	}
	t.Fatalf("line item %q not found", description)
	return estimatedomain.LineItem{}
}

func TestCalculateEstimateFlooringInSanFrancisco(t *testing.T) {
	f := newFixture(t, testConfig(), nil)

	est, err := f.svc.CalculateEstimate(context.Background(), flooringRequest("good", "94105"))
	require.NoError(t, err)

	laminate := lineByDescription(t, est, "Laminate plank flooring")
	assert.Equal(t, "128", laminate.Quantity.String())
	assert.Equal(t, "3.245", laminate.UnitCost.String())
	assert.Equal(t, costingdomain.SourceNationalAverage, laminate.CostSource, "stale retail price is ignored")
	assertMoney(t, "415.36", laminate.TotalCost)
	require.NotNil(t, laminate.Quantities)
	assert.Equal(t, "120", laminate.Quantities.BaseQuantity.String())

	underlayment := lineByDescription(t, est, "Foam flooring underlayment")
	assert.Equal(t, "132", underlayment.Quantity.String())
	assert.True(t, underlayment.Quantities.AppliedDefault)
	assertMoney(t, "70.09", underlayment.TotalCost)

	labor := lineByDescription(t, est, "Flooring installation labor")
	assert.Equal(t, "7.1", labor.LaborHours.String())
	assert.Equal(t, "106.5", labor.UnitCost.String())
	assert.Equal(t, costingdomain.SourceLaborRate, labor.CostSource)
	assertMoney(t, "756.15", labor.TotalCost)

	sander := lineByDescription(t, est, "Floor sander rental")
	assert.Equal(t, "0.24", sander.Quantity.String())
	assertMoney(t, "18.41", sander.TotalCost)

	finishes := lineByDescription(t, est, "Standard hardware and trim finishes (good level)")
	assertMoney(t, "177.00", finishes.TotalCost)

	assertMoney(t, "680.86", est.MaterialTotal)
	assertMoney(t, "756.15", est.LaborTotal)
	assertMoney(t, "1437.01", est.Subtotal)
	assertMoney(t, "359.25", est.MarkupAmount)
	assertMoney(t, "1796.26", est.AfterMarkup)
	assertMoney(t, "851.08", est.TaxableAmount)
	assertMoney(t, "68.09", est.TaxAmount)
	assertMoney(t, "1864.35", est.GrandTotal)

	assert.Equal(t, 5, est.Summary.LineItemCount)
	assert.Equal(t, "120", est.Summary.TotalArea.String())
	assertMoney(t, "5.67", est.Summary.MaterialCostPerSqFt)
	assertMoney(t, "6.30", est.Summary.LaborCostPerSqFt)

	meta := est.Metadata
	assert.Equal(t, "San Francisco-Oakland", meta.Location.MetroName)
	assert.Equal(t, "94105", meta.Location.ZipCode)
	assert.Equal(t, "7.1", meta.TotalLaborHours.String())
	assert.Equal(t, seededAt, meta.CalculatedAt)
	assert.Equal(t, "2.0", meta.EngineVersion)
	assert.Equal(t, estimatedomain.JobTypeFlooring, meta.JobType)
	assert.Equal(t, "good", meta.FinishLevel)
	assert.Len(t, meta.Fingerprint, 64)
	assert.Equal(t, EstimateID(meta.Fingerprint), meta.EstimateID)
}

func TestCalculateEstimateDivisionsAreSortedAndConsistent(t *testing.T) {
	f := newFixture(t, testConfig(), nil)

	est, err := f.svc.CalculateEstimate(context.Background(), flooringRequest("good", "94105"))
	require.NoError(t, err)

	codes := lo.Map(est.Divisions, func(d estimatedomain.CSIDivision, _ int) string { return d.Code })
	assert.Equal(t, []string{"01", "09"}, codes)
	assert.Equal(t, "General Requirements", est.Divisions[0].Name)
	assert.Equal(t, "Finishes", est.Divisions[1].Name)

	divisionSum := sumBy(est.Divisions, func(d estimatedomain.CSIDivision) decimal.Decimal { return d.TotalCost })
	itemSum := sumBy(est.LineItems(), func(li estimatedomain.LineItem) decimal.Decimal { return li.TotalCost })
	assert.True(t, divisionSum.Equal(itemSum))
	assert.True(t, est.Subtotal.Equal(itemSum))
}

func TestCalculateEstimateFiltersByFinishLevel(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	ctx := context.Background()

	descriptions := func(est *estimatedomain.Estimate) []string {
		return lo.Map(est.LineItems(), func(li estimatedomain.LineItem, _ int) string { return li.Description })
	}

	good, err := f.svc.CalculateEstimate(ctx, flooringRequest("good", "99950"))
	require.NoError(t, err)
	assert.Contains(t, descriptions(good), "Laminate plank flooring")
	assert.NotContains(t, descriptions(good), "Wide plank walnut flooring")
	assert.NotContains(t, descriptions(good), "Engineered oak flooring")

	best, err := f.svc.CalculateEstimate(ctx, flooringRequest("best", "99950"))
	require.NoError(t, err)
	assert.Contains(t, descriptions(best), "Wide plank walnut flooring")
	assert.Contains(t, descriptions(best), "Luxury hardware and trim finishes (best level)")
	assert.NotContains(t, descriptions(best), "Laminate plank flooring")
	assert.Contains(t, descriptions(best), "Foam flooring underlayment", "untiered items apply at every level")
}

func TestCalculateEstimatePrefersFreshRetailPrice(t *testing.T) {
	f := newFixture(t, testConfig(), nil)

	est, err := f.svc.CalculateEstimate(context.Background(), flooringRequest("better", "94105"))
	require.NoError(t, err)

	oak := lineByDescription(t, est, "Engineered oak flooring")
	assert.Equal(t, costingdomain.SourceRetail, oak.CostSource)
	assert.Equal(t, "7.25", oak.UnitCost.String())
	// 120 sqft plus 10% waste.
	assert.Equal(t, "132", oak.Quantity.String())
	assertMoney(t, "957.00", oak.TotalCost)
}

func TestCalculateEstimateFallsBackToNationalAverage(t *testing.T) {
	f := newFixture(t, testConfig(), nil)

	est, err := f.svc.CalculateEstimate(context.Background(), flooringRequest("good", "99950"))
	require.NoError(t, err)

	loc := est.Metadata.Location
	assert.Equal(t, "National Average", loc.MetroName)
	assert.Equal(t, "US", loc.StateCode)
	assert.Empty(t, loc.LocationID)
	assert.Equal(t, "1", loc.MaterialModifier.String())
	assert.Equal(t, "1", loc.LaborModifier.String())

	laminate := lineByDescription(t, est, "Laminate plank flooring")
	assert.Equal(t, "2.75", laminate.UnitCost.String())
	labor := lineByDescription(t, est, "Flooring installation labor")
	assert.Equal(t, "75", labor.UnitCost.String())
}

func TestCalculateEstimateAppliesUserSettings(t *testing.T) {
	f := newFixture(t, testConfig(), nil)

	hourly, markup, tax := 80.0, 10.0, 0.0
	req := flooringRequest("good", "99950")
	req.UserSettings = &estimatedomain.UserSettings{HourlyRate: &hourly, MarkupPercentage: &markup, TaxRate: &tax}

	est, err := f.svc.CalculateEstimate(context.Background(), req)
	require.NoError(t, err)

	labor := lineByDescription(t, est, "Flooring installation labor")
	assert.Equal(t, "120", labor.UnitCost.String(), "journeyman at 80/h")
	assert.True(t, est.TaxAmount.IsZero())
	assert.True(t, est.MarkupAmount.Equal(est.Subtotal.Mul(decimal.RequireFromString("0.1")).Round(2)))
	assert.Equal(t, "80", est.Metadata.Settings.HourlyRate.String())
}

func TestCalculateEstimateSkipsAssembliesWithUnknownCategory(t *testing.T) {
	f := newFixture(t, testConfig(), nil)

	patio := referencedomain.Assembly{ID: seed.ID("assembly", "Paver Patio"), Name: "Paver Patio", Category: "exterior", BaseUnit: "sqft"}
	pavers := referencedomain.Item{
		ID: seed.ID("item", "Concrete pavers"), CSICode: "32 14 13", Description: "Concrete pavers", Unit: "sqft",
		ItemType: referencedomain.ItemTypeMaterial, NationalAverageCost: decimal.RequireFromString("4.10"),
	}
	require.NoError(t, f.db.Create(&patio).Error)
	require.NoError(t, f.db.Create(&pavers).Error)
	require.NoError(t, f.db.Create(&referencedomain.AssemblyItem{
		AssemblyID: patio.ID, ItemID: pavers.ID, Quantity: decimal.NewFromInt(1),
	}).Error)

	req := estimatedomain.CalculateRequest{
		Takeoff:      &takeoff.Takeoff{Walls: []takeoff.Measurement{{Area: 200}}},
		JobType:      "exterior",
		FinishLevel:  "good",
		ZipCode:      "99950",
		UserSettings: &estimatedomain.UserSettings{},
	}
	est, err := f.svc.CalculateEstimate(context.Background(), req)
	require.NoError(t, err)

	for _, li := range est.LineItems() {
		assert.NotEqual(t, patio.ID, li.AssemblyID)
	}
	// Only the finish-level package priced by area remains.
	require.Len(t, est.LineItems(), 1)
	assertMoney(t, "250.00", est.LineItems()[0].TotalCost)
}

func TestCalculateEstimateDropsZeroQuantityAssemblies(t *testing.T) {
	f := newFixture(t, testConfig(), nil)

	req := estimatedomain.CalculateRequest{
		Takeoff:      &takeoff.Takeoff{Walls: []takeoff.Measurement{{Area: 300}}},
		JobType:      "flooring",
		FinishLevel:  "good",
		ZipCode:      "99950",
		UserSettings: &estimatedomain.UserSettings{},
	}
	est, err := f.svc.CalculateEstimate(context.Background(), req)
	require.NoError(t, err)

	for _, li := range est.LineItems() {
		assert.Empty(t, li.AssemblyID, "no floors, so the flooring assembly contributes nothing")
	}
}

func TestCalculateEstimateAddsFinishItemsPerRoom(t *testing.T) {
	f := newFixture(t, testConfig(), nil)

	req := estimatedomain.CalculateRequest{
		Takeoff:      &takeoff.Takeoff{Kitchens: []takeoff.Measurement{{Name: "kitchen", Area: 150}}},
		JobType:      "kitchen",
		FinishLevel:  "good",
		ZipCode:      "99950",
		UserSettings: &estimatedomain.UserSettings{},
	}
	est, err := f.svc.CalculateEstimate(context.Background(), req)
	require.NoError(t, err)

	fixtures := lineByDescription(t, est, "Builder grade fixture set (good level)")
	assert.Equal(t, "1", fixtures.Quantity.String())
	assertMoney(t, "185.00", fixtures.TotalCost)

	appliances := lineByDescription(t, est, "Standard appliance package (good level)")
	assert.Equal(t, "1", appliances.Quantity.String())
	assertMoney(t, "2400.00", appliances.TotalCost)

	cabinets := lineByDescription(t, est, "Stock kitchen cabinets")
	// 150 x 0.15 lf plus 1% breakage, rounded up.
	assert.Equal(t, "23", cabinets.Quantity.String())

	for _, li := range est.LineItems() {
		assert.NotContains(t, li.Description, "hardware and trim finishes", "no surface area was measured")
	}
}

func TestCalculateEstimateIsDeterministic(t *testing.T) {
	cfg := testConfig()
	cfg.Estimator.CacheEstimates = false
	f := newFixture(t, cfg, nil)
	ctx := context.Background()

	req := flooringRequest("better", "94105")
	req.Takeoff.Walls = []takeoff.Measurement{{Area: 320}}
	req.Takeoff.Ceilings = []takeoff.Measurement{{Area: 120}}

	first, err := f.svc.CalculateEstimate(ctx, req)
	require.NoError(t, err)
	second, err := f.svc.CalculateEstimate(ctx, req)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestCalculateEstimateServesCopiesFromCache(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	ctx := context.Background()

	first, err := f.svc.CalculateEstimate(ctx, flooringRequest("good", "94105"))
	require.NoError(t, err)
	want, err := json.Marshal(first)
	require.NoError(t, err)

	first.GrandTotal = decimal.Zero
	first.Divisions[0].LineItems[0].Description = "changed by caller"

	second, err := f.svc.CalculateEstimate(ctx, flooringRequest("good", "94105-0001"))
	require.NoError(t, err)
	got, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))

	stats := f.cache.Stats()[cache.TierEstimates]
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, 1, stats.Keys)
}

func TestCalculateEstimateEnhancedTakeoffMatchesRaw(t *testing.T) {
	cfg := testConfig()
	cfg.Estimator.CacheEstimates = false
	f := newFixture(t, cfg, nil)
	ctx := context.Background()

	enhanced := &takeoff.EnhancedTakeoff{
		Version: takeoff.EnhancementVersionV1,
		Floors:  []takeoff.EnhancedMeasurement{{Name: "living room", Area: 100, AreaAdjustmentPercent: 20}},
	}
	merged, err := enhanced.Merge()
	require.NoError(t, err)

	req := flooringRequest("good", "94105")
	req.Takeoff = merged
	fromEnhanced, err := f.svc.CalculateEstimate(ctx, req)
	require.NoError(t, err)

	fromRaw, err := f.svc.CalculateEstimate(ctx, flooringRequest("good", "94105"))
	require.NoError(t, err)

	assert.True(t, fromRaw.GrandTotal.Equal(fromEnhanced.GrandTotal))
	assert.Equal(t, fromRaw.Summary.LineItemCount, fromEnhanced.Summary.LineItemCount)
}

func TestCalculateEstimateIncludesSpecifications(t *testing.T) {
	cfg := testConfig()
	cfg.Estimator.IncludeSpecifications = true
	f := newFixture(t, cfg, nil)

	est, err := f.svc.CalculateEstimate(context.Background(), flooringRequest("better", "94105"))
	require.NoError(t, err)

	oak := lineByDescription(t, est, "Engineered oak flooring")
	require.NotNil(t, oak.Specification)
	assert.Equal(t, "Bruce", oak.Specification.Manufacturer)
	assert.Equal(t, "EAK33LG", oak.Specification.ModelNumber)
	assert.Equal(t, 25, oak.Specification.WarrantyYears)
	assert.Equal(t, "white oak", oak.Specification.Details["species"])

	labor := lineByDescription(t, est, "Flooring installation labor")
	assert.Nil(t, labor.Specification)
}

type countingRepository struct {
	referencedomain.Repository
	calls atomic.Int64
}

func (r *countingRepository) GetLocationModifiers(ctx context.Context, zip string) (*referencedomain.LocationCostModifier, error) {
	r.calls.Add(1)
	return r.Repository.GetLocationModifiers(ctx, zip)
}

func (r *countingRepository) GetAssembliesForCategory(ctx context.Context, category string) ([]referencedomain.Assembly, error) {
	r.calls.Add(1)
	return r.Repository.GetAssembliesForCategory(ctx, category)
}

func TestCalculateEstimateValidationFailsBeforeAnyLookup(t *testing.T) {
	counting := &countingRepository{}
	f := newFixture(t, testConfig(), func(repo referencedomain.Repository) referencedomain.Repository {
		counting.Repository = repo
		return counting
	})

	cases := []struct {
		name   string
		mutate func(*estimatedomain.CalculateRequest)
		want   error
	}{
		{"missing takeoff", func(r *estimatedomain.CalculateRequest) { r.Takeoff = nil }, estimatedomain.ErrInvalidTakeoff},
		{"negative area", func(r *estimatedomain.CalculateRequest) { r.Takeoff.Floors[0].Area = -1 }, takeoff.ErrInvalidArea},
		{"unknown job type", func(r *estimatedomain.CalculateRequest) { r.JobType = "pool" }, estimatedomain.ErrInvalidJobType},
		{"unknown finish level", func(r *estimatedomain.CalculateRequest) { r.FinishLevel = "premium" }, estimatedomain.ErrInvalidFinishLevel},
		{"short zip", func(r *estimatedomain.CalculateRequest) { r.ZipCode = "9410" }, estimatedomain.ErrInvalidZipCode},
		{"missing settings", func(r *estimatedomain.CalculateRequest) { r.UserSettings = nil }, estimatedomain.ErrMissingUserSettings},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := flooringRequest("good", "94105")
			tc.mutate(&req)

			est, err := f.svc.CalculateEstimate(context.Background(), req)
			require.Error(t, err)
			assert.Nil(t, est)
			assert.ErrorIs(t, err, estimatedomain.ErrValidation)
			assert.ErrorIs(t, err, tc.want)
			assert.NotErrorIs(t, err, estimatedomain.ErrCalculationFailed)
		})
	}
	assert.Zero(t, counting.calls.Load())
}

func TestCalculateEstimateCancelledContext(t *testing.T) {
	f := newFixture(t, testConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	est, err := f.svc.CalculateEstimate(ctx, flooringRequest("good", "94105"))
	require.Error(t, err)
	assert.Nil(t, est)
	assert.ErrorIs(t, err, estimatedomain.ErrCalculationFailed)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.cache.Stats()[cache.TierEstimates].Keys, "nothing partial is cached")
}

type failingRepository struct {
	referencedomain.Repository
}

var errStoreDown = errors.New("connection reset by peer")

func (failingRepository) GetAssemblyComponents(context.Context, string) ([]referencedomain.Component, error) {
	return nil, errStoreDown
}

func TestCalculateEstimateWrapsStoreFailures(t *testing.T) {
	f := newFixture(t, testConfig(), func(repo referencedomain.Repository) referencedomain.Repository {
		return failingRepository{Repository: repo}
	})

	est, err := f.svc.CalculateEstimate(context.Background(), flooringRequest("good", "94105"))
	require.Error(t, err)
	assert.Nil(t, est)
	assert.ErrorIs(t, err, errStoreDown)
	assert.ErrorIs(t, err, estimatedomain.ErrCalculationFailed)

	var calcErr *estimatedomain.CalculationError
	require.ErrorAs(t, err, &calcErr)
	assert.Equal(t, estimatedomain.StageComponentsPriced, calcErr.Stage)
	assert.Contains(t, err.Error(), "estimate calculation failed at components_priced")
	assert.Zero(t, f.cache.Stats()[cache.TierEstimates].Keys)
}
