package domain

import (
	"context"

	referencedomain "github.com/mirzaik-wcc/contractorlens/internal/reference/domain"
	"github.com/shopspring/decimal"
)

// CostSource records which rung of the pricing hierarchy produced a unit cost.
type CostSource string

const (
	SourceRetail          CostSource = "retail"
	SourceNationalAverage CostSource = "national_average"
	// SourceLaborRate marks labor priced from an hourly rate rather than a catalog cost.
	SourceLaborRate CostSource = "labor_rate"
)

type UnitCost struct {
	Amount   decimal.Decimal `json:"amount"`
	Source   CostSource      `json:"source"`
	Modifier decimal.Decimal `json:"modifier"`
	Retailer string          `json:"retailer,omitempty"`
}

// Resolver prices items for a location.
type Resolver interface {
	// ResolveLocation never fails for a well-formed ZIP: unmatched ZIPs resolve to the national average.
	ResolveLocation(ctx context.Context, zip string) (referencedomain.LocationCostModifier, error)
	ResolveUnitCost(ctx context.Context, item referencedomain.Item, location referencedomain.LocationCostModifier) (UnitCost, error)
}
