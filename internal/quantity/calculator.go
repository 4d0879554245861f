// Package quantity turns a matched measurement into an orderable material quantity.
package quantity

import (
	"github.com/mirzaik-wcc/contractorlens/internal/config"
	"github.com/mirzaik-wcc/contractorlens/internal/reference/domain"
	"github.com/mirzaik-wcc/contractorlens/internal/takeoff"
	"github.com/shopspring/decimal"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// WasteBreakdown splits the overage by cause, in material units.
type WasteBreakdown struct {
	CutWaste          decimal.Decimal `json:"cut_waste"`
	BreakageWaste     decimal.Decimal `json:"breakage_waste"`
	PatternMatchWaste decimal.Decimal `json:"pattern_match_waste"`
	// DefaultWaste is set instead of the three above when no waste factor is on file.
	DefaultWaste         decimal.Decimal `json:"default_waste"`
	TotalWastePercentage decimal.Decimal `json:"total_waste_percentage"`
}

type Result struct {
	BaseQuantity        decimal.Decimal `json:"base_quantity"`
	TotalQuantity       decimal.Decimal `json:"total_quantity"`
	Waste               WasteBreakdown  `json:"waste"`
	ConditionMultiplier decimal.Decimal `json:"condition_multiplier"`
	ConditionAdjustment decimal.Decimal `json:"condition_adjustment"`
	AppliedDefault      bool            `json:"applied_default,omitempty"`
}

// Calculator holds one snapshot of the pricing rules; build one per estimate.
type Calculator struct {
	rules config.PricingRules
}

func NewCalculator(rules config.PricingRules) Calculator {
	return Calculator{rules: rules}
}

// Calculate applies waste and site conditions to base and rounds up to whole units.
// Components that are not materials, or materials without a waste factor, get the
// default waste percentage.
func (c Calculator) Calculate(component domain.Component, base decimal.Decimal, conditions takeoff.SiteConditions) Result {
	if base.IsNegative() {
		base = decimal.Zero
	}

	var waste *domain.WasteFactor
	if m, ok := component.Kind.(domain.Material); ok {
		waste = m.Waste
	}

	multiplier := c.ConditionMultiplier(conditions)
	res := Result{
		BaseQuantity:        base,
		ConditionMultiplier: multiplier,
		ConditionAdjustment: multiplier.Sub(one).Mul(base),
	}

	var gross decimal.Decimal
	if waste == nil {
		res.AppliedDefault = true
		res.Waste.DefaultWaste = percentOf(base, nonNegative(decimal.NewFromFloat(c.rules.DefaultWastePercentage)))
		gross = base.Add(res.Waste.DefaultWaste)
	} else {
		res.Waste.CutWaste = percentOf(base, nonNegative(waste.CutWastePercentage))
		res.Waste.BreakageWaste = percentOf(base, nonNegative(waste.BreakagePercentage))
		res.Waste.PatternMatchWaste = percentOf(base, nonNegative(waste.PatternMatchPercentage))
		gross = base.Add(res.Waste.CutWaste).Add(res.Waste.BreakageWaste).Add(res.Waste.PatternMatchWaste)
	}

	// Never order less than was measured.
	res.TotalQuantity = decimal.Max(gross.Mul(multiplier).Ceil(), base.Ceil())
	if !base.IsZero() {
		res.Waste.TotalWastePercentage = res.TotalQuantity.Sub(base).Div(base).Mul(hundred).Round(2)
	}
	return res
}

// ConditionMultiplier combines the configured waste multipliers with the waste hint.
func (c Calculator) ConditionMultiplier(conditions takeoff.SiteConditions) decimal.Decimal {
	m := conditions.Multiplier(c.rules.WasteConditions)
	if conditions.WasteHintPercent > 0 {
		m = m.Mul(one.Add(decimal.NewFromFloat(conditions.WasteHintPercent).Div(hundred)))
	}
	return m
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func percentOf(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(pct).Div(hundred)
}
