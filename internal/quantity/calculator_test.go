package quantity

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/mirzaik-wcc/contractorlens/internal/config"
	"github.com/mirzaik-wcc/contractorlens/internal/reference/domain"
	"github.com/mirzaik-wcc/contractorlens/internal/takeoff"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func material(waste *domain.WasteFactor) domain.Component {
	return domain.Component{
		Item: domain.Item{ID: "item-1", ItemType: domain.ItemTypeMaterial, Unit: "SF"},
		Kind: domain.Material{Waste: waste},
	}
}

func wasteFactor(cut, breakage, pattern string) *domain.WasteFactor {
	return &domain.WasteFactor{
		ItemID:                 "item-1",
		CutWastePercentage:     decimal.RequireFromString(cut),
		BreakagePercentage:     decimal.RequireFromString(breakage),
		PatternMatchPercentage: decimal.RequireFromString(pattern),
	}
}

func TestCalculateWithWasteFactor(t *testing.T) {
	calc := NewCalculator(config.DefaultPricingRules())

	res := calc.Calculate(material(wasteFactor("5", "2", "3")), decimal.NewFromInt(120), takeoff.SiteConditions{})

	assert.Equal(t, "132", res.TotalQuantity.String())
	assert.Equal(t, "120", res.BaseQuantity.String())
	assert.Equal(t, "6", res.Waste.CutWaste.String())
	assert.Equal(t, "2.4", res.Waste.BreakageWaste.String())
	assert.Equal(t, "3.6", res.Waste.PatternMatchWaste.String())
	assert.Equal(t, "10", res.Waste.TotalWastePercentage.String())
	assert.True(t, res.ConditionMultiplier.Equal(one))
	assert.True(t, res.ConditionAdjustment.IsZero())
	assert.False(t, res.AppliedDefault)
}

func TestCalculateDefaultWaste(t *testing.T) {
	calc := NewCalculator(config.DefaultPricingRules())

	res := calc.Calculate(material(nil), decimal.NewFromInt(95), takeoff.SiteConditions{})

	assert.True(t, res.AppliedDefault)
	assert.Equal(t, "9.5", res.Waste.DefaultWaste.String())
	assert.Equal(t, "105", res.TotalQuantity.String(), "104.5 rounds up")
}

func TestCalculateDefaultWasteFollowsRules(t *testing.T) {
	rules := config.DefaultPricingRules()
	rules.DefaultWastePercentage = 20
	calc := NewCalculator(rules)

	res := calc.Calculate(material(nil), decimal.NewFromInt(100), takeoff.SiteConditions{})
	assert.Equal(t, "120", res.TotalQuantity.String())
}

func TestCalculateConditions(t *testing.T) {
	calc := NewCalculator(config.DefaultPricingRules())
	conditions := takeoff.SiteConditions{Moisture: true, WasteHintPercent: 10}

	res := calc.Calculate(material(wasteFactor("0", "0", "0")), decimal.NewFromInt(100), conditions)

	// 100 * 1.05 * 1.10 = 115.5
	assert.Equal(t, "1.155", res.ConditionMultiplier.String())
	assert.Equal(t, "15.5", res.ConditionAdjustment.String())
	assert.Equal(t, "116", res.TotalQuantity.String())
}

func TestCalculateZeroBase(t *testing.T) {
	calc := NewCalculator(config.DefaultPricingRules())

	res := calc.Calculate(material(wasteFactor("5", "2", "3")), decimal.Zero, takeoff.SiteConditions{})
	assert.True(t, res.TotalQuantity.IsZero())
	assert.True(t, res.Waste.TotalWastePercentage.IsZero())

	res = calc.Calculate(material(nil), decimal.NewFromInt(-4), takeoff.SiteConditions{})
	assert.True(t, res.TotalQuantity.IsZero())
}

func TestCalculateExactDecimalCeiling(t *testing.T) {
	calc := NewCalculator(config.DefaultPricingRules())

	// 30 * 1.1 is 33.000000000000004 in float64.
	res := calc.Calculate(material(wasteFactor("10", "0", "0")), decimal.NewFromInt(30), takeoff.SiteConditions{})
	assert.Equal(t, "33", res.TotalQuantity.String())
}

func TestCalculateCeilingInvariant(t *testing.T) {
	faker := gofakeit.New(42)
	calc := NewCalculator(config.DefaultPricingRules())

	for i := 0; i < 500; i++ {
		base := decimal.NewFromFloat(faker.Float64Range(0, 5000)).Round(3)
		waste := &domain.WasteFactor{
			CutWastePercentage:     decimal.NewFromFloat(faker.Float64Range(0, 25)).Round(2),
			BreakagePercentage:     decimal.NewFromFloat(faker.Float64Range(0, 10)).Round(2),
			PatternMatchPercentage: decimal.NewFromFloat(faker.Float64Range(0, 15)).Round(2),
		}
		conditions := takeoff.SiteConditions{
			Moisture:         faker.Bool(),
			Scaffolding:      faker.Bool(),
			WasteHintPercent: faker.Float64Range(0, 20),
		}
		if faker.Bool() {
			waste = nil
		}

		res := calc.Calculate(material(waste), base, conditions)

		require.True(t, res.TotalQuantity.GreaterThanOrEqual(base), "total %s below base %s", res.TotalQuantity, base)
		require.True(t, res.TotalQuantity.Equal(res.TotalQuantity.Ceil()), "fractional total %s", res.TotalQuantity)
	}
}

func TestCalculateNeverOrdersBelowBase(t *testing.T) {
	// Rules built in code bypass Validate, so the calculator holds the floor on its own.
	rules := config.DefaultPricingRules()
	rules.WasteConditions.Moisture = 0.5
	calc := NewCalculator(rules)

	res := calc.Calculate(material(wasteFactor("5", "2", "3")), decimal.NewFromInt(120), takeoff.SiteConditions{Moisture: true})

	assert.Equal(t, "120", res.TotalQuantity.String())
	assert.True(t, res.TotalQuantity.GreaterThanOrEqual(res.BaseQuantity))
}

func TestCalculateClampsNegativeWastePercentages(t *testing.T) {
	calc := NewCalculator(config.DefaultPricingRules())

	res := calc.Calculate(material(wasteFactor("-50", "2", "-10")), decimal.NewFromInt(100), takeoff.SiteConditions{})

	assert.True(t, res.Waste.CutWaste.IsZero())
	assert.True(t, res.Waste.PatternMatchWaste.IsZero())
	assert.Equal(t, "2", res.Waste.BreakageWaste.String())
	assert.Equal(t, "102", res.TotalQuantity.String())
}
