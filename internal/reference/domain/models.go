package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type ItemType string

const (
	ItemTypeMaterial  ItemType = "material"
	ItemTypeLabor     ItemType = "labor"
	ItemTypeEquipment ItemType = "equipment"
)

type QualityTier string

const (
	QualityGood   QualityTier = "good"
	QualityBetter QualityTier = "better"
	QualityBest   QualityTier = "best"
)

// ParseQualityTier accepts good, better or best in any case.
func ParseQualityTier(value string) (QualityTier, bool) {
	switch tier := QualityTier(strings.ToLower(strings.TrimSpace(value))); tier {
	case QualityGood, QualityBetter, QualityBest:
		return tier, true
	default:
		return "", false
	}
}

// Assembly is a catalog bundle priced per unit of its category's matched quantity.
type Assembly struct {
	ID          string `json:"assembly_id" gorm:"type:varchar(36);primaryKey;column:assembly_id"`
	Name        string `json:"name" gorm:"type:text;not null"`
	Description string `json:"description,omitempty" gorm:"type:text"`
	Category    string `json:"category" gorm:"type:varchar(32);not null;index"`
	BaseUnit    string `json:"base_unit" gorm:"type:varchar(16);not null"`
}

func (Assembly) TableName() string { return "assemblies" }

type Trade struct {
	ID          string `json:"trade_id" gorm:"type:varchar(36);primaryKey;column:trade_id"`
	Name        string `json:"name" gorm:"type:text;not null"`
	CSIDivision string `json:"csi_division" gorm:"type:varchar(2);not null"`
}

func (Trade) TableName() string { return "trades" }

type Item struct {
	ID                  string              `json:"item_id" gorm:"type:varchar(36);primaryKey;column:item_id"`
	CSICode             string              `json:"csi_code" gorm:"type:varchar(16);not null"`
	Description         string              `json:"description" gorm:"type:text;not null"`
	Unit                string              `json:"unit" gorm:"type:varchar(16);not null"`
	Category            string              `json:"category" gorm:"type:varchar(32);index"`
	ItemType            ItemType            `json:"item_type" gorm:"type:varchar(16);not null"`
	QualityTier         *QualityTier        `json:"quality_tier,omitempty" gorm:"type:varchar(8)"`
	QuantityPerUnit     decimal.NullDecimal `json:"quantity_per_unit" gorm:"type:decimal(10,4)"`
	NationalAverageCost decimal.Decimal     `json:"national_average_cost" gorm:"type:decimal(12,4);not null"`
	TradeID             *string             `json:"trade_id,omitempty" gorm:"type:varchar(36)"`
	Manufacturer        *string             `json:"manufacturer,omitempty" gorm:"type:text"`
	ModelNumber         *string             `json:"model_number,omitempty" gorm:"type:text"`
}

func (Item) TableName() string { return "items" }

// AppliesTo reports whether the item belongs in an estimate at the given finish level.
// Items without a tier apply to every level.
func (i Item) AppliesTo(level QualityTier) bool {
	return i.QualityTier == nil || *i.QualityTier == level
}

type AssemblyItem struct {
	AssemblyID string          `gorm:"type:varchar(36);primaryKey;column:assembly_id"`
	ItemID     string          `gorm:"type:varchar(36);primaryKey;column:item_id"`
	Quantity   decimal.Decimal `gorm:"type:decimal(12,4);not null"`
}

func (AssemblyItem) TableName() string { return "assembly_items" }

// LaborTask holds the production data of a labor item.
type LaborTask struct {
	ItemID               string          `json:"item_id" gorm:"type:varchar(36);primaryKey;column:item_id"`
	BaseProductionRate   decimal.Decimal `json:"base_production_rate" gorm:"type:decimal(10,4);not null"`
	DifficultyMultiplier decimal.Decimal `json:"difficulty_multiplier" gorm:"type:decimal(6,3);not null"`
	SetupTimeHours       decimal.Decimal `json:"setup_time_hours" gorm:"type:decimal(6,2);not null"`
	CleanupTimeHours     decimal.Decimal `json:"cleanup_time_hours" gorm:"type:decimal(6,2);not null"`
	SkillLevel           string          `json:"skill_level" gorm:"type:varchar(16);not null"`
}

func (LaborTask) TableName() string { return "labor_tasks" }

type WasteFactor struct {
	ItemID                 string          `json:"item_id" gorm:"type:varchar(36);primaryKey;column:item_id"`
	CutWastePercentage     decimal.Decimal `json:"cut_waste_percentage" gorm:"type:decimal(6,2);not null"`
	BreakagePercentage     decimal.Decimal `json:"breakage_percentage" gorm:"type:decimal(6,2);not null"`
	PatternMatchPercentage decimal.Decimal `json:"pattern_match_percentage" gorm:"type:decimal(6,2);not null"`
}

func (WasteFactor) TableName() string { return "waste_factors" }

// Total is the combined waste percentage.
func (w WasteFactor) Total() decimal.Decimal {
	return w.CutWastePercentage.Add(w.BreakagePercentage).Add(w.PatternMatchPercentage)
}

type MaterialSpecification struct {
	ItemID         string            `json:"item_id" gorm:"type:varchar(36);primaryKey;column:item_id"`
	Manufacturer   string            `json:"manufacturer" gorm:"type:text"`
	ModelNumber    string            `json:"model_number" gorm:"type:text"`
	Specifications datatypes.JSONMap `json:"specifications,omitempty"`
	WarrantyYears  int               `json:"warranty_years,omitempty"`
}

func (MaterialSpecification) TableName() string { return "material_specifications" }

// LocationCostModifier scales national costs to a region. ZipCodeRange holds either an
// exact ZIP ("94105"), an inclusive range ("94100-94199") or a prefix ("941").
type LocationCostModifier struct {
	LocationID       string          `json:"location_id,omitempty" gorm:"type:varchar(36);primaryKey;column:location_id"`
	ZipCodeRange     string          `json:"zip_code_range,omitempty" gorm:"type:varchar(16);not null;index"`
	MetroName        string          `json:"metro_name" gorm:"type:text;not null"`
	StateCode        string          `json:"state_code" gorm:"type:char(2);not null"`
	MaterialModifier decimal.Decimal `json:"material_modifier" gorm:"type:decimal(6,3);not null"`
	LaborModifier    decimal.Decimal `json:"labor_modifier" gorm:"type:decimal(6,3);not null"`
}

func (LocationCostModifier) TableName() string { return "location_cost_modifiers" }

// NationalAverage is the location used when no region matches a ZIP.
func NationalAverage() LocationCostModifier {
	return LocationCostModifier{
		MetroName:        "National Average",
		StateCode:        "US",
		MaterialModifier: decimal.NewFromInt(1),
		LaborModifier:    decimal.NewFromInt(1),
	}
}

// IsNationalAverage reports whether the location is the fallback rather than a stored region.
func (l LocationCostModifier) IsNationalAverage() bool {
	return l.LocationID == ""
}

type RetailPrice struct {
	ID            string          `json:"retail_price_id" gorm:"type:varchar(36);primaryKey;column:retail_price_id"`
	ItemID        string          `json:"item_id" gorm:"type:varchar(36);not null;index:idx_retail_item_location"`
	LocationID    string          `json:"location_id" gorm:"type:varchar(36);not null;index:idx_retail_item_location"`
	Retailer      string          `json:"retailer" gorm:"type:text"`
	Price         decimal.Decimal `json:"price" gorm:"type:decimal(12,4);not null"`
	EffectiveDate time.Time       `json:"effective_date" gorm:"not null"`
	ExpiryDate    *time.Time      `json:"expiry_date,omitempty"`
	LastScraped   time.Time       `json:"last_scraped" gorm:"not null"`
}

func (RetailPrice) TableName() string { return "retail_prices" }

// ValidAt reports whether the price is in effect at asOf and was scraped within the freshness window.
func (p RetailPrice) ValidAt(asOf time.Time, freshness time.Duration) bool {
	if p.EffectiveDate.After(asOf) {
		return false
	}
	if p.ExpiryDate != nil && !p.ExpiryDate.After(asOf) {
		return false
	}
	return !p.LastScraped.Before(asOf.Add(-freshness))
}
