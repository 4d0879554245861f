package takeoff

import (
	"fmt"
	"math"
)

const (
	EnhancementVersionV1 = "v1"

	// MaxComplexityModifier bounds the per-surface complexity an enhancement may claim.
	MaxComplexityModifier = 1.5
	// Area adjustments outside this band are treated as bad analyzer output.
	minAreaAdjustmentPercent = -50
	maxAreaAdjustmentPercent = 100
)

// EnhancedMeasurement is a measurement annotated by an upstream analyzer.
type EnhancedMeasurement struct {
	Name      string  `json:"name,omitempty"`
	Area      float64 `json:"area"`
	Material  string  `json:"material,omitempty"`
	Condition string  `json:"condition,omitempty"`

	CurrentMaterial       string  `json:"current_material,omitempty"`
	ComplexityModifier    float64 `json:"complexity_modifier,omitempty"`
	AreaAdjustmentPercent float64 `json:"area_adjustment_percent,omitempty"`
}

// EnhancedTakeoff is the versioned input accepted from measurement analyzers.
// It is validated and merged into a plain Takeoff before pricing.
type EnhancedTakeoff struct {
	Version string `json:"version"`

	Walls     []EnhancedMeasurement `json:"walls,omitempty"`
	Floors    []EnhancedMeasurement `json:"floors,omitempty"`
	Ceilings  []EnhancedMeasurement `json:"ceilings,omitempty"`
	Kitchens  []EnhancedMeasurement `json:"kitchens,omitempty"`
	Bathrooms []EnhancedMeasurement `json:"bathrooms,omitempty"`

	SiteConditions SiteConditions `json:"site_conditions,omitzero"`
}

func (e *EnhancedTakeoff) Validate() error {
	if e == nil {
		return ErrNilTakeoff
	}
	if e.Version != EnhancementVersionV1 {
		return fmt.Errorf("%q: %w", e.Version, ErrUnsupportedVersion)
	}

	surfaces := []struct {
		name         string
		measurements []EnhancedMeasurement
	}{
		{"walls", e.Walls},
		{"floors", e.Floors},
		{"ceilings", e.Ceilings},
		{"kitchens", e.Kitchens},
		{"bathrooms", e.Bathrooms},
	}
	for _, s := range surfaces {
		for i, m := range s.measurements {
			if !finite(m.Area) || m.Area < 0 {
				return fmt.Errorf("%s[%d].area: %w", s.name, i, ErrInvalidArea)
			}
			if !finite(m.ComplexityModifier) || m.ComplexityModifier < 0 {
				return fmt.Errorf("%s[%d].complexity_modifier: %w", s.name, i, ErrInvalidModifier)
			}
			if !finite(m.AreaAdjustmentPercent) || m.AreaAdjustmentPercent < minAreaAdjustmentPercent || m.AreaAdjustmentPercent > maxAreaAdjustmentPercent {
				return fmt.Errorf("%s[%d].area_adjustment_percent: %w", s.name, i, ErrInvalidAdjustment)
			}
		}
	}

	return e.SiteConditions.Validate()
}

// Merge folds the enhancements into a plain Takeoff. Areas are scaled by their
// adjustment, complexity is capped and the analyzer's current material fills
// in a missing material tag.
func (e *EnhancedTakeoff) Merge() (*Takeoff, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &Takeoff{
		Walls:      mergeAll(e.Walls),
		Floors:     mergeAll(e.Floors),
		Ceilings:   mergeAll(e.Ceilings),
		Kitchens:   mergeAll(e.Kitchens),
		Bathrooms:  mergeAll(e.Bathrooms),
		Conditions: e.SiteConditions,
	}, nil
}

func mergeAll(in []EnhancedMeasurement) []Measurement {
	if len(in) == 0 {
		return nil
	}
	out := make([]Measurement, len(in))
	for i, m := range in {
		out[i] = m.merge()
	}
	return out
}

func (m EnhancedMeasurement) merge() Measurement {
	material := m.Material
	if material == "" {
		material = m.CurrentMaterial
	}
	return Measurement{
		Name:               m.Name,
		Area:               m.Area * (1 + m.AreaAdjustmentPercent/100),
		Material:           material,
		Condition:          m.Condition,
		ComplexityModifier: math.Min(m.ComplexityModifier, MaxComplexityModifier),
	}
}
