package takeoff

import (
	"fmt"

	"github.com/mirzaik-wcc/contractorlens/internal/config"
	"github.com/shopspring/decimal"
)

// Accessibility grades how hard the site is to work in.
type Accessibility string

const (
	AccessNormal        Accessibility = "normal"
	AccessChallenging   Accessibility = "challenging"
	AccessVeryDifficult Accessibility = "very_difficult"
)

// SiteConditions adjust waste and labor for the whole job.
type SiteConditions struct {
	Accessibility Accessibility `json:"accessibility,omitempty"`
	Scaffolding   bool          `json:"scaffolding,omitempty"`
	Moisture      bool          `json:"moisture,omitempty"`
	// WasteHintPercent is an extra waste allowance suggested upstream, e.g. for damaged substrates.
	WasteHintPercent float64 `json:"waste_hint_percent,omitempty"`
}

// IsZero reports whether no condition is set.
func (c SiteConditions) IsZero() bool {
	return (c.Accessibility == "" || c.Accessibility == AccessNormal) &&
		!c.Scaffolding && !c.Moisture && c.WasteHintPercent == 0
}

func (c SiteConditions) Validate() error {
	switch c.Accessibility {
	case "", AccessNormal, AccessChallenging, AccessVeryDifficult:
	default:
		return fmt.Errorf("%q: %w", c.Accessibility, ErrInvalidAccessibility)
	}
	if !finite(c.WasteHintPercent) || c.WasteHintPercent < 0 || c.WasteHintPercent > 100 {
		return fmt.Errorf("site_conditions.waste_hint_percent: %w", ErrInvalidModifier)
	}
	return nil
}

// Multiplier is the product of the configured multipliers for every condition present, 1.0 when none is.
func (c SiteConditions) Multiplier(m config.ConditionMultipliers) decimal.Decimal {
	out := decimal.NewFromInt(1)
	switch c.Accessibility {
	case AccessChallenging:
		out = out.Mul(decimal.NewFromFloat(m.ChallengingAccess))
	case AccessVeryDifficult:
		out = out.Mul(decimal.NewFromFloat(m.VeryDifficultAccess))
	}
	if c.Scaffolding {
		out = out.Mul(decimal.NewFromFloat(m.Scaffolding))
	}
	if c.Moisture {
		out = out.Mul(decimal.NewFromFloat(m.Moisture))
	}
	return out
}
