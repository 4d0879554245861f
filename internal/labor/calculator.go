// Package labor computes billable hours and cost for labor components.
package labor

import (
	"github.com/mirzaik-wcc/contractorlens/internal/config"
	"github.com/mirzaik-wcc/contractorlens/internal/reference/domain"
	"github.com/mirzaik-wcc/contractorlens/internal/takeoff"
	"github.com/shopspring/decimal"
)

// Conditions are the job-level inputs that inflate difficulty.
type Conditions struct {
	Site takeoff.SiteConditions
	// Complexity is the measurement complexity modifier; zero means 1.0.
	Complexity float64
}

// Rate is the unscaled hourly rate and the location labor modifier it is adjusted by.
type Rate struct {
	BaseHourly       decimal.Decimal
	LocationModifier decimal.Decimal
}

type Result struct {
	BaseHours            decimal.Decimal `json:"base_hours"`
	DifficultyMultiplier decimal.Decimal `json:"difficulty_multiplier"`
	DifficultyCapped     bool            `json:"difficulty_capped,omitempty"`
	SetupCleanupHours    decimal.Decimal `json:"setup_cleanup_hours"`
	TotalHours           decimal.Decimal `json:"total_hours"`
	SkillLevel           string          `json:"skill_level,omitempty"`
	SkillMultiplier      decimal.Decimal `json:"skill_multiplier"`
	HourlyRate           decimal.Decimal `json:"hourly_rate"`
	TotalLaborCost       decimal.Decimal `json:"total_labor_cost"`
	AppliedDefault       bool            `json:"applied_default,omitempty"`
}

// Calculator holds one snapshot of the pricing rules; build one per estimate.
type Calculator struct {
	rules config.PricingRules
}

func NewCalculator(rules config.PricingRules) Calculator {
	return Calculator{rules: rules}
}

// Calculate prices the labor needed for base units of work. A component without a
// labor task falls back to the legacy per-unit estimate.
func (c Calculator) Calculate(component domain.Component, base decimal.Decimal, conditions Conditions, rate Rate) Result {
	if base.IsNegative() {
		base = decimal.Zero
	}

	var task *domain.LaborTask
	if l, ok := component.Kind.(domain.Labor); ok {
		task = l.Task
	}
	if task == nil {
		return c.legacy(component.Item, base, rate)
	}

	baseHours := base.Mul(task.BaseProductionRate)
	difficulty, capped := c.Difficulty(task.DifficultyMultiplier, conditions)
	setupCleanup := task.SetupTimeHours.Add(task.CleanupTimeHours)
	totalHours := baseHours.Mul(difficulty).Add(setupCleanup).Round(2)

	skill := decimal.NewFromFloat(c.rules.SkillMultiplier(task.SkillLevel))
	hourly := c.hourlyRate(rate, skill)

	return Result{
		BaseHours:            baseHours,
		DifficultyMultiplier: difficulty,
		DifficultyCapped:     capped,
		SetupCleanupHours:    setupCleanup,
		TotalHours:           totalHours,
		SkillLevel:           task.SkillLevel,
		SkillMultiplier:      skill,
		HourlyRate:           hourly,
		TotalLaborCost:       totalHours.Mul(hourly).Round(2),
	}
}

// Difficulty inflates the stored multiplier by site conditions and complexity, bounded
// by the configured ceiling. A stored multiplier above the ceiling is kept as is.
func (c Calculator) Difficulty(stored decimal.Decimal, conditions Conditions) (decimal.Decimal, bool) {
	if !stored.IsPositive() {
		stored = decimal.NewFromInt(1)
	}
	m := stored.Mul(conditions.Site.Multiplier(c.rules.LaborConditions))
	if conditions.Complexity > 0 {
		m = m.Mul(decimal.NewFromFloat(conditions.Complexity))
	}

	limit := decimal.Max(stored, decimal.NewFromFloat(c.rules.DifficultyCeiling))
	if m.GreaterThan(limit) {
		return limit, true
	}
	return m, false
}

func (c Calculator) legacy(item domain.Item, base decimal.Decimal, rate Rate) Result {
	perUnit := decimal.NewFromFloat(c.rules.LegacyLaborHoursPerUnit)
	if item.QuantityPerUnit.Valid && item.QuantityPerUnit.Decimal.IsPositive() {
		perUnit = item.QuantityPerUnit.Decimal
	}

	baseHours := base.Mul(perUnit)
	multiplier := decimal.NewFromFloat(c.rules.LegacyLaborMultiplier)
	totalHours := baseHours.Mul(multiplier).Round(2)
	skill := decimal.NewFromInt(1)
	hourly := c.hourlyRate(rate, skill)

	return Result{
		BaseHours:            baseHours,
		DifficultyMultiplier: multiplier,
		SetupCleanupHours:    decimal.Zero,
		TotalHours:           totalHours,
		SkillMultiplier:      skill,
		HourlyRate:           hourly,
		TotalLaborCost:       totalHours.Mul(hourly).Round(2),
		AppliedDefault:       true,
	}
}

func (c Calculator) hourlyRate(rate Rate, skill decimal.Decimal) decimal.Decimal {
	modifier := rate.LocationModifier
	if !modifier.IsPositive() {
		modifier = decimal.NewFromInt(1)
	}
	return rate.BaseHourly.Mul(modifier).Mul(skill).Round(2)
}
