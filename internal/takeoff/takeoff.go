// Package takeoff models the measured surfaces of a job and maps them to assembly quantities.
package takeoff

import (
	"fmt"
	"math"

	"github.com/samber/lo"
)

// Measurement is one measured surface or room.
type Measurement struct {
	Name      string  `json:"name,omitempty"`
	Area      float64 `json:"area"`
	Material  string  `json:"material,omitempty"`
	Condition string  `json:"condition,omitempty"`
	// ComplexityModifier scales labor difficulty; zero means 1.0.
	ComplexityModifier float64 `json:"complexity_modifier,omitempty"`
}

// Takeoff is the structured measurement set an estimate is priced from.
type Takeoff struct {
	Walls     []Measurement `json:"walls,omitempty"`
	Floors    []Measurement `json:"floors,omitempty"`
	Ceilings  []Measurement `json:"ceilings,omitempty"`
	Kitchens  []Measurement `json:"kitchens,omitempty"`
	Bathrooms []Measurement `json:"bathrooms,omitempty"`

	Conditions SiteConditions `json:"site_conditions,omitzero"`
}

const (
	CategoryKitchen  = "kitchen"
	CategoryBathroom = "bathroom"
	CategoryRoom     = "room"
	CategoryWall     = "wall"
	CategoryFlooring = "flooring"
	CategoryCeiling  = "ceiling"
)

// IsKnownCategory reports whether Match has a rule for the assembly category.
func IsKnownCategory(category string) bool {
	switch category {
	case CategoryKitchen, CategoryBathroom, CategoryRoom, CategoryWall, CategoryFlooring, CategoryCeiling:
		return true
	default:
		return false
	}
}

// Match returns the takeoff quantity consumed by an assembly of the given category.
// Kitchens and bathrooms use the first room's area; the other categories sum their surfaces.
// Unknown categories and missing measurements yield 0.
func Match(t *Takeoff, category string) float64 {
	measurements, first := surfaces(t, category)
	if first {
		if len(measurements) == 0 {
			return 0
		}
		return positive(measurements[0].Area)
	}
	return sumArea(measurements)
}

// Complexity is the area-weighted complexity modifier of the surfaces a category consumes, 1.0 when none is set.
func Complexity(t *Takeoff, category string) float64 {
	measurements, first := surfaces(t, category)
	if first && len(measurements) > 0 {
		measurements = measurements[:1]
	}

	var weighted, area float64
	for _, m := range measurements {
		a := positive(m.Area)
		weighted += a * modifier(m.ComplexityModifier)
		area += a
	}
	if area == 0 {
		return 1
	}
	return weighted / area
}

// TotalArea sums walls, floors and ceilings.
func TotalArea(t *Takeoff) float64 {
	if t == nil {
		return 0
	}
	return sumArea(t.Walls) + sumArea(t.Floors) + sumArea(t.Ceilings)
}

// Validate rejects negative areas and non-finite values. Surfaces are checked in a fixed
// order so the first reported error is stable.
func (t *Takeoff) Validate() error {
	if t == nil {
		return ErrNilTakeoff
	}
	for _, s := range t.bySurface() {
		for i, m := range s.measurements {
			if !finite(m.Area) || m.Area < 0 {
				return fmt.Errorf("%s[%d].area: %w", s.name, i, ErrInvalidArea)
			}
			if !finite(m.ComplexityModifier) || m.ComplexityModifier < 0 {
				return fmt.Errorf("%s[%d].complexity_modifier: %w", s.name, i, ErrInvalidModifier)
			}
		}
	}
	return t.Conditions.Validate()
}

type surface struct {
	name         string
	measurements []Measurement
}

func (t *Takeoff) bySurface() []surface {
	return []surface{
		{"walls", t.Walls},
		{"floors", t.Floors},
		{"ceilings", t.Ceilings},
		{"kitchens", t.Kitchens},
		{"bathrooms", t.Bathrooms},
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// surfaces returns the measurements a category draws from and whether only the first one counts.
func surfaces(t *Takeoff, category string) ([]Measurement, bool) {
	if t == nil {
		return nil, false
	}
	switch category {
	case CategoryKitchen:
		return t.Kitchens, true
	case CategoryBathroom:
		return t.Bathrooms, true
	case CategoryRoom, CategoryWall:
		return t.Walls, false
	case CategoryFlooring:
		return t.Floors, false
	case CategoryCeiling:
		return t.Ceilings, false
	default:
		return nil, false
	}
}

func sumArea(measurements []Measurement) float64 {
	return lo.SumBy(measurements, func(m Measurement) float64 { return positive(m.Area) })
}

func positive(v float64) float64 {
	if v > 0 {
		return v
	}
	return 0
}

func modifier(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return math.Min(v, MaxComplexityModifier)
}
