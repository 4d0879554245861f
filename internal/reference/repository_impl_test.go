package reference

import (
	"context"
	"testing"
	"time"

	"github.com/mirzaik-wcc/contractorlens/internal/reference/domain"
	"github.com/mirzaik-wcc/contractorlens/internal/seed"
	"github.com/mirzaik-wcc/contractorlens/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seededAt = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

const freshness = 7 * 24 * time.Hour

func newSeededRepository(t *testing.T) domain.Repository {
	t.Helper()
	return NewRepository(testutil.NewSeededCatalogDB(t, seededAt))
}

func TestGetLocationModifiersPrecedence(t *testing.T) {
	repo := newSeededRepository(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		zip   string
		metro string
	}{
		{name: "exact", zip: "94105", metro: "San Francisco-Oakland"},
		{name: "zip plus four uses the first five digits", zip: "94105-1804", metro: "San Francisco-Oakland"},
		{name: "range", zip: "10150", metro: "New York City"},
		{name: "three digit prefix", zip: "60614", metro: "Chicago"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			loc, err := repo.GetLocationModifiers(ctx, tc.zip)
			require.NoError(t, err)
			require.NotNil(t, loc)
			assert.Equal(t, tc.metro, loc.MetroName)
		})
	}

	t.Run("no match", func(t *testing.T) {
		loc, err := repo.GetLocationModifiers(ctx, "99950")
		require.NoError(t, err)
		assert.Nil(t, loc)
	})

	t.Run("malformed zip", func(t *testing.T) {
		_, err := repo.GetLocationModifiers(ctx, "9x105")
		assert.ErrorIs(t, err, domain.ErrInvalidZipCode)
	})
}

func TestGetLocationModifiersExactBeatsRange(t *testing.T) {
	db := testutil.NewCatalogDB(t)
	require.NoError(t, db.Create(&[]domain.LocationCostModifier{
		{LocationID: "wide", ZipCodeRange: "94000-94999", MetroName: "Bay Area", StateCode: "CA",
			MaterialModifier: decimal.RequireFromString("1.1"), LaborModifier: decimal.RequireFromString("1.2")},
		{LocationID: "narrow", ZipCodeRange: "94100-94199", MetroName: "San Francisco", StateCode: "CA",
			MaterialModifier: decimal.RequireFromString("1.2"), LaborModifier: decimal.RequireFromString("1.3")},
		{LocationID: "exact", ZipCodeRange: "94107", MetroName: "SoMa", StateCode: "CA",
			MaterialModifier: decimal.RequireFromString("1.3"), LaborModifier: decimal.RequireFromString("1.4")},
	}).Error)
	repo := NewRepository(db)

	loc, err := repo.GetLocationModifiers(context.Background(), "94107")
	require.NoError(t, err)
	assert.Equal(t, "exact", loc.LocationID)

	loc, err = repo.GetLocationModifiers(context.Background(), "94110")
	require.NoError(t, err)
	assert.Equal(t, "narrow", loc.LocationID)

	loc, err = repo.GetLocationModifiers(context.Background(), "94610")
	require.NoError(t, err)
	assert.Equal(t, "wide", loc.LocationID)
}

func TestGetLocationModifiersRegionIgnoresNeighbouringZip(t *testing.T) {
	db := testutil.NewCatalogDB(t)
	require.NoError(t, db.Create(&[]domain.LocationCostModifier{
		{LocationID: "back-bay", ZipCodeRange: "02199", MetroName: "Back Bay", StateCode: "MA",
			MaterialModifier: decimal.RequireFromString("1.3"), LaborModifier: decimal.RequireFromString("1.5")},
	}).Error)
	repo := NewRepository(db)

	loc, err := repo.GetLocationModifiers(context.Background(), "02139")
	require.NoError(t, err)
	assert.Nil(t, loc, "a 5-digit row only serves its own ZIP")

	require.NoError(t, db.Create(&[]domain.LocationCostModifier{
		{LocationID: "boston", ZipCodeRange: "021", MetroName: "Boston", StateCode: "MA",
			MaterialModifier: decimal.RequireFromString("1.2"), LaborModifier: decimal.RequireFromString("1.4")},
		{LocationID: "cambridge", ZipCodeRange: "02139%", MetroName: "Cambridge", StateCode: "MA",
			MaterialModifier: decimal.RequireFromString("1.25"), LaborModifier: decimal.RequireFromString("1.45")},
	}).Error)

	loc, err = repo.GetLocationModifiers(context.Background(), "02139")
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, "cambridge", loc.LocationID, "the 5-digit prefix outranks the region")

	loc, err = repo.GetLocationModifiers(context.Background(), "02134")
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, "boston", loc.LocationID)
}

func TestGetAssemblyComponentsResolvesKinds(t *testing.T) {
	repo := newSeededRepository(t)
	ctx := context.Background()

	assemblies, err := repo.GetAssembliesForCategory(ctx, "flooring")
	require.NoError(t, err)
	require.Len(t, assemblies, 1)

	components, err := repo.GetAssemblyComponents(ctx, assemblies[0].ID)
	require.NoError(t, err)
	require.Len(t, components, 6)

	byDescription := map[string]domain.Component{}
	for i, c := range components {
		byDescription[c.Item.Description] = c
		if i > 0 {
			assert.LessOrEqual(t, components[i-1].Item.CSICode, c.Item.CSICode)
		}
	}

	labor, ok := byDescription["Flooring installation labor"].Kind.(domain.Labor)
	require.True(t, ok)
	require.NotNil(t, labor.Task)
	assert.True(t, labor.Task.BaseProductionRate.Equal(decimal.RequireFromString("0.05")))

	underlayment, ok := byDescription["Foam flooring underlayment"].Kind.(domain.Material)
	require.True(t, ok)
	assert.Nil(t, underlayment.Waste)

	oak := byDescription["Engineered oak flooring"]
	material, ok := oak.Kind.(domain.Material)
	require.True(t, ok)
	require.NotNil(t, material.Waste)
	assert.True(t, material.Waste.Total().Equal(decimal.NewFromInt(10)))
	require.NotNil(t, oak.Trade)
	assert.Equal(t, "09", oak.Trade.CSIDivision)

	_, ok = byDescription["Floor sander rental"].Kind.(domain.Equipment)
	assert.True(t, ok)
	assert.True(t, byDescription["Floor sander rental"].Quantity.Equal(decimal.RequireFromString("0.002")))
}

func TestGetAssembliesForUnknownCategory(t *testing.T) {
	repo := newSeededRepository(t)

	assemblies, err := repo.GetAssembliesForCategory(context.Background(), "roofing")
	require.NoError(t, err)
	assert.Empty(t, assemblies)

	assemblies, err = repo.GetAssembliesForCategory(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, assemblies)
}

func TestGetRetailPriceFreshness(t *testing.T) {
	repo := newSeededRepository(t)
	ctx := context.Background()

	sf, err := repo.GetLocationModifiers(ctx, "94105")
	require.NoError(t, err)

	price, err := repo.GetRetailPrice(ctx, seed.ID("item", "Engineered oak flooring"), sf.LocationID, seededAt, freshness)
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.True(t, price.Price.Equal(decimal.RequireFromString("7.25")))

	stale, err := repo.GetRetailPrice(ctx, seed.ID("item", "Laminate plank flooring"), sf.LocationID, seededAt, freshness)
	require.NoError(t, err)
	assert.Nil(t, stale)

	national, err := repo.GetRetailPrice(ctx, seed.ID("item", "Engineered oak flooring"), "", seededAt, freshness)
	require.NoError(t, err)
	assert.Nil(t, national)
}

func TestGetRetailPriceMostRecentScrapeWins(t *testing.T) {
	db := testutil.NewCatalogDB(t)
	asOf := seededAt
	day := 24 * time.Hour
	expired := asOf.Add(-time.Hour)
	require.NoError(t, db.Create(&[]domain.RetailPrice{
		{ID: "older", ItemID: "item", LocationID: "loc", Price: decimal.NewFromInt(10),
			EffectiveDate: asOf.Add(-10 * day), LastScraped: asOf.Add(-3 * day)},
		{ID: "newer", ItemID: "item", LocationID: "loc", Price: decimal.NewFromInt(11),
			EffectiveDate: asOf.Add(-10 * day), LastScraped: asOf.Add(-1 * day)},
		{ID: "expired", ItemID: "item", LocationID: "loc", Price: decimal.NewFromInt(12),
			EffectiveDate: asOf.Add(-10 * day), ExpiryDate: &expired, LastScraped: asOf.Add(-2 * time.Hour)},
		{ID: "future", ItemID: "item", LocationID: "loc", Price: decimal.NewFromInt(13),
			EffectiveDate: asOf.Add(day), LastScraped: asOf.Add(-time.Hour)},
	}).Error)

	price, err := NewRepository(db).GetRetailPrice(context.Background(), "item", "loc", asOf, freshness)
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.Equal(t, "newer", price.ID)
}

func TestGetLaborTaskAndWasteFactorsMissing(t *testing.T) {
	repo := newSeededRepository(t)
	ctx := context.Background()

	task, err := repo.GetLaborTask(ctx, seed.ID("item", "Trim carpentry labor"))
	require.NoError(t, err)
	assert.Nil(t, task)

	waste, err := repo.GetWasteFactors(ctx, seed.ID("item", "All purpose joint compound"))
	require.NoError(t, err)
	assert.Nil(t, waste)

	waste, err = repo.GetWasteFactors(ctx, seed.ID("item", "1/2 in gypsum board sheet"))
	require.NoError(t, err)
	require.NotNil(t, waste)
	assert.True(t, waste.CutWastePercentage.Equal(decimal.NewFromInt(10)))
}

func TestGetMaterialSpecs(t *testing.T) {
	repo := newSeededRepository(t)

	spec, err := repo.GetMaterialSpecs(context.Background(), seed.ID("item", "Engineered oak flooring"))
	require.NoError(t, err)
	require.NotNil(t, spec)
	assert.Equal(t, "Bruce", spec.Manufacturer)
	assert.Equal(t, "white oak", spec.Specifications["species"])
}

func TestListFinishItemsFiltersTierAndCategory(t *testing.T) {
	repo := newSeededRepository(t)

	components, err := repo.ListFinishItems(context.Background(), domain.QualityBetter, []string{"fixtures", "appliances"})
	require.NoError(t, err)
	require.Len(t, components, 2)
	for _, c := range components {
		require.NotNil(t, c.Item.QualityTier)
		assert.Equal(t, domain.QualityBetter, *c.Item.QualityTier)
		assert.True(t, c.Quantity.IsZero())
		assert.IsType(t, domain.Material{}, c.Kind)
	}

	none, err := repo.ListFinishItems(context.Background(), domain.QualityBest, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}
