package domain

import (
	"context"
	"time"

	costingdomain "github.com/mirzaik-wcc/contractorlens/internal/costing/domain"
	"github.com/mirzaik-wcc/contractorlens/internal/labor"
	"github.com/mirzaik-wcc/contractorlens/internal/quantity"
	referencedomain "github.com/mirzaik-wcc/contractorlens/internal/reference/domain"
	"github.com/shopspring/decimal"
)

// Service prices a takeoff.
type Service interface {
	CalculateEstimate(ctx context.Context, req CalculateRequest) (*Estimate, error)
}

// Specification is catalog detail attached to material line items on request.
type Specification struct {
	Manufacturer  string         `json:"manufacturer,omitempty"`
	ModelNumber   string         `json:"model_number,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
	WarrantyYears int            `json:"warranty_years,omitempty"`
}

type LineItem struct {
	ItemID      string                   `json:"item_id"`
	AssemblyID  string                   `json:"assembly_id,omitempty"`
	CSICode     string                   `json:"csi_code"`
	Description string                   `json:"description"`
	Unit        string                   `json:"unit"`
	ItemType    referencedomain.ItemType `json:"item_type"`
	Quantity    decimal.Decimal          `json:"quantity"`
	UnitCost    decimal.Decimal          `json:"unit_cost"`
	TotalCost   decimal.Decimal          `json:"total_cost"`
	LaborHours  decimal.Decimal          `json:"labor_hours"`
	CostSource  costingdomain.CostSource `json:"cost_source"`

	Quantities    *quantity.Result `json:"quantity_detail,omitempty"`
	Labor         *labor.Result    `json:"labor_detail,omitempty"`
	Specification *Specification   `json:"specification,omitempty"`
}

type CSIDivision struct {
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	LineItems  []LineItem      `json:"line_items"`
	TotalCost  decimal.Decimal `json:"total_cost"`
	LaborHours decimal.Decimal `json:"labor_hours"`
}

type Location struct {
	LocationID       string          `json:"location_id,omitempty"`
	ZipCode          string          `json:"zip_code"`
	MetroName        string          `json:"metro_name"`
	StateCode        string          `json:"state_code"`
	MaterialModifier decimal.Decimal `json:"material_modifier"`
	LaborModifier    decimal.Decimal `json:"labor_modifier"`
}

func NewLocation(zip string, l referencedomain.LocationCostModifier) Location {
	return Location{
		LocationID:       l.LocationID,
		ZipCode:          zip,
		MetroName:        l.MetroName,
		StateCode:        l.StateCode,
		MaterialModifier: l.MaterialModifier,
		LaborModifier:    l.LaborModifier,
	}
}

type Summary struct {
	LineItemCount       int             `json:"line_item_count"`
	TotalArea           decimal.Decimal `json:"total_area"`
	MaterialCostPerSqFt decimal.Decimal `json:"material_cost_per_sqft"`
	LaborCostPerSqFt    decimal.Decimal `json:"labor_cost_per_sqft"`
}

type Metadata struct {
	EstimateID      string          `json:"estimate_id"`
	CalculatedAt    time.Time       `json:"calculated_at"`
	EngineVersion   string          `json:"engine_version"`
	JobType         JobType         `json:"job_type"`
	FinishLevel     string          `json:"finish_level"`
	Location        Location        `json:"location"`
	Settings        Settings        `json:"settings"`
	TotalLaborHours decimal.Decimal `json:"total_labor_hours"`
	Fingerprint     string          `json:"fingerprint"`
}

// Estimate is the priced result, grouped by CSI division in ascending code order.
type Estimate struct {
	Divisions []CSIDivision `json:"divisions"`

	Subtotal      decimal.Decimal `json:"subtotal"`
	MaterialTotal decimal.Decimal `json:"material_total"`
	LaborTotal    decimal.Decimal `json:"labor_total"`
	MarkupAmount  decimal.Decimal `json:"markup_amount"`
	AfterMarkup   decimal.Decimal `json:"after_markup"`
	TaxableAmount decimal.Decimal `json:"taxable_amount"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	GrandTotal    decimal.Decimal `json:"grand_total"`

	Summary  Summary  `json:"summary"`
	Metadata Metadata `json:"metadata"`
}

// LineItems flattens the divisions in division order.
func (e *Estimate) LineItems() []LineItem {
	if e == nil {
		return nil
	}
	var out []LineItem
	for _, d := range e.Divisions {
		out = append(out, d.LineItems...)
	}
	return out
}

// Clone returns a copy that shares no mutable state with e.
func (e *Estimate) Clone() *Estimate {
	if e == nil {
		return nil
	}
	out := *e
	out.Divisions = make([]CSIDivision, len(e.Divisions))
	for i, d := range e.Divisions {
		out.Divisions[i] = d
		out.Divisions[i].LineItems = make([]LineItem, len(d.LineItems))
		for j, li := range d.LineItems {
			out.Divisions[i].LineItems[j] = li.clone()
		}
	}
	return &out
}

func (li LineItem) clone() LineItem {
	if li.Quantities != nil {
		q := *li.Quantities
		li.Quantities = &q
	}
	if li.Labor != nil {
		l := *li.Labor
		li.Labor = &l
	}
	if li.Specification != nil {
		s := *li.Specification
		s.Details = cloneMap(s.Details)
		li.Specification = &s
	}
	return li
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = cloneValue(x)
		}
		return out
	default:
		return v
	}
}
