package seed

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	referencedomain "github.com/mirzaik-wcc/contractorlens/internal/reference/domain"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// catalogNamespace scopes the name-based ids so reseeding yields identical keys.
var catalogNamespace = uuid.MustParse("5b0c3c8e-6f1e-4d0a-9f59-7d1c2f0a9e41")

// ID returns the deterministic catalog id for a seed name.
func ID(kind, name string) string {
	return uuid.NewSHA1(catalogNamespace, []byte(kind+":"+name)).String()
}

// EnsureDemoCatalog seeds a small catalog covering every job category.
func EnsureDemoCatalog(ctx context.Context, db *gorm.DB) error {
	return EnsureDemoCatalogAt(ctx, db, time.Now().UTC())
}

// EnsureDemoCatalogAt seeds the demo catalog with retail prices scraped relative to now.
// Existing rows are left untouched.
func EnsureDemoCatalogAt(ctx context.Context, db *gorm.DB, now time.Time) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	c := buildCatalog(now.UTC())

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rows := range []any{
			&c.trades, &c.assemblies, &c.items, &c.assemblyItems, &c.laborTasks,
			&c.wasteFactors, &c.specs, &c.locations, &c.retailPrices,
		} {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(rows).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

type catalog struct {
	trades        []referencedomain.Trade
	assemblies    []referencedomain.Assembly
	items         []referencedomain.Item
	assemblyItems []referencedomain.AssemblyItem
	laborTasks    []referencedomain.LaborTask
	wasteFactors  []referencedomain.WasteFactor
	specs         []referencedomain.MaterialSpecification
	locations     []referencedomain.LocationCostModifier
	retailPrices  []referencedomain.RetailPrice
}

func dec(value string) decimal.Decimal { return decimal.RequireFromString(value) }

func tier(t referencedomain.QualityTier) *referencedomain.QualityTier { return &t }

func strPtr(s string) *string { return &s }

func (c *catalog) trade(name, division string) string {
	id := ID("trade", name)
	c.trades = append(c.trades, referencedomain.Trade{ID: id, Name: name, CSIDivision: division})
	return id
}

func (c *catalog) assembly(name, category, description string) string {
	id := ID("assembly", name)
	c.assemblies = append(c.assemblies, referencedomain.Assembly{
		ID:          id,
		Name:        name,
		Description: description,
		Category:    category,
		BaseUnit:    "sqft",
	})
	return id
}

func (c *catalog) item(item referencedomain.Item) string {
	item.ID = ID("item", item.Description)
	c.items = append(c.items, item)
	return item.ID
}

func (c *catalog) link(assemblyID, itemID, quantity string) {
	c.assemblyItems = append(c.assemblyItems, referencedomain.AssemblyItem{
		AssemblyID: assemblyID,
		ItemID:     itemID,
		Quantity:   dec(quantity),
	})
}

func (c *catalog) waste(itemID, cut, breakage, pattern string) {
	c.wasteFactors = append(c.wasteFactors, referencedomain.WasteFactor{
		ItemID:                 itemID,
		CutWastePercentage:     dec(cut),
		BreakagePercentage:     dec(breakage),
		PatternMatchPercentage: dec(pattern),
	})
}

func (c *catalog) labor(itemID, rate, difficulty, setup, cleanup, skill string) {
	c.laborTasks = append(c.laborTasks, referencedomain.LaborTask{
		ItemID:               itemID,
		BaseProductionRate:   dec(rate),
		DifficultyMultiplier: dec(difficulty),
		SetupTimeHours:       dec(setup),
		CleanupTimeHours:     dec(cleanup),
		SkillLevel:           skill,
	})
}

func (c *catalog) location(zipRange, metro, state, material, labor string) string {
	id := ID("location", zipRange)
	c.locations = append(c.locations, referencedomain.LocationCostModifier{
		LocationID:       id,
		ZipCodeRange:     zipRange,
		MetroName:        metro,
		StateCode:        state,
		MaterialModifier: dec(material),
		LaborModifier:    dec(labor),
	})
	return id
}

func buildCatalog(now time.Time) *catalog {
	c := &catalog{}

	general := c.trade("General Conditions", "01")
	carpentry := c.trade("Finish Carpentry", "06")
	finishes := c.trade("Finishes", "09")
	equipment := c.trade("Appliances and Equipment", "11")
	plumbing := c.trade("Plumbing", "22")
	electrical := c.trade("Electrical", "26")

	// Flooring
	floor := c.assembly("Hardwood Flooring Installation", "flooring", "Prefinished flooring over underlayment")
	laminate := c.item(referencedomain.Item{CSICode: "09 62 19", Description: "Laminate plank flooring", Unit: "sqft",
		ItemType: referencedomain.ItemTypeMaterial, QualityTier: tier(referencedomain.QualityGood),
		NationalAverageCost: dec("2.75"), TradeID: &finishes})
	oak := c.item(referencedomain.Item{CSICode: "09 64 29", Description: "Engineered oak flooring", Unit: "sqft",
		ItemType: referencedomain.ItemTypeMaterial, QualityTier: tier(referencedomain.QualityBetter),
		NationalAverageCost: dec("6.50"), TradeID: &finishes,
		Manufacturer: strPtr("Bruce"), ModelNumber: strPtr("EAK33LG")})
	walnut := c.item(referencedomain.Item{CSICode: "09 64 29", Description: "Wide plank walnut flooring", Unit: "sqft",
		ItemType: referencedomain.ItemTypeMaterial, QualityTier: tier(referencedomain.QualityBest),
		NationalAverageCost: dec("11.25"), TradeID: &finishes})
	underlayment := c.item(referencedomain.Item{CSICode: "09 60 13", Description: "Foam flooring underlayment", Unit: "sqft",
		ItemType: referencedomain.ItemTypeMaterial, NationalAverageCost: dec("0.45"), TradeID: &finishes})
	floorLabor := c.item(referencedomain.Item{CSICode: "09 64 00", Description: "Flooring installation labor", Unit: "hr",
		ItemType: referencedomain.ItemTypeLabor, NationalAverageCost: dec("0"), TradeID: &finishes})
	sander := c.item(referencedomain.Item{CSICode: "01 54 00", Description: "Floor sander rental", Unit: "day",
		ItemType: referencedomain.ItemTypeEquipment, NationalAverageCost: dec("65.00"), TradeID: &general})
	c.link(floor, laminate, "1")
	c.link(floor, oak, "1")
	c.link(floor, walnut, "1")
	c.link(floor, underlayment, "1")
	c.link(floor, floorLabor, "1")
	c.link(floor, sander, "0.002")
	c.waste(laminate, "5", "1", "0")
	c.waste(oak, "5", "2", "3")
	c.waste(walnut, "7", "2", "5")
	c.labor(floorLabor, "0.05", "1.1", "0.25", "0.25", "journeyman")

	// Walls
	walls := c.assembly("Drywall Finish and Paint", "wall", "Hang, tape and paint gypsum board")
	drywall := c.item(referencedomain.Item{CSICode: "09 29 00", Description: "1/2 in gypsum board sheet", Unit: "sheet",
		ItemType: referencedomain.ItemTypeMaterial, NationalAverageCost: dec("14.50"), TradeID: &finishes})
	compound := c.item(referencedomain.Item{CSICode: "09 29 00", Description: "All purpose joint compound", Unit: "gal",
		ItemType: referencedomain.ItemTypeMaterial, NationalAverageCost: dec("18.00"), TradeID: &finishes})
	paintGood := c.item(referencedomain.Item{CSICode: "09 91 23", Description: "Interior latex paint", Unit: "gal",
		ItemType: referencedomain.ItemTypeMaterial, QualityTier: tier(referencedomain.QualityGood),
		NationalAverageCost: dec("28.00"), TradeID: &finishes})
	paintBetter := c.item(referencedomain.Item{CSICode: "09 91 23", Description: "Premium interior paint", Unit: "gal",
		ItemType: referencedomain.ItemTypeMaterial, QualityTier: tier(referencedomain.QualityBetter),
		NationalAverageCost: dec("42.00"), TradeID: &finishes})
	paintBest := c.item(referencedomain.Item{CSICode: "09 91 23", Description: "Designer interior paint", Unit: "gal",
		ItemType: referencedomain.ItemTypeMaterial, QualityTier: tier(referencedomain.QualityBest),
		NationalAverageCost: dec("68.00"), TradeID: &finishes})
	hangLabor := c.item(referencedomain.Item{CSICode: "09 29 00", Description: "Drywall hang and finish labor", Unit: "hr",
		ItemType: referencedomain.ItemTypeLabor, NationalAverageCost: dec("0"), TradeID: &finishes})
	paintLabor := c.item(referencedomain.Item{CSICode: "09 91 00", Description: "Painting labor", Unit: "hr",
		ItemType: referencedomain.ItemTypeLabor, NationalAverageCost: dec("0"), TradeID: &finishes})
	for _, id := range []string{paintGood, paintBetter, paintBest} {
		c.link(walls, id, "0.0029")
		c.waste(id, "0", "0", "5")
	}
	c.link(walls, drywall, "0.0313")
	c.link(walls, compound, "0.01")
	c.link(walls, hangLabor, "1")
	c.link(walls, paintLabor, "1")
	c.waste(drywall, "10", "3", "0")
	c.labor(hangLabor, "0.017", "1.0", "0.5", "0.5", "journeyman")
	c.labor(paintLabor, "0.012", "1.0", "0.25", "0.25", "apprentice")

	// Ceilings
	ceiling := c.assembly("Ceiling Drywall and Paint", "ceiling", "Overhead gypsum board with flat paint")
	ceilingLabor := c.item(referencedomain.Item{CSICode: "09 29 00", Description: "Ceiling drywall labor", Unit: "hr",
		ItemType: referencedomain.ItemTypeLabor, NationalAverageCost: dec("0"), TradeID: &finishes})
	c.link(ceiling, drywall, "0.0313")
	c.link(ceiling, paintGood, "0.0029")
	c.link(ceiling, ceilingLabor, "1")
	c.labor(ceilingLabor, "0.022", "1.2", "0.5", "0.5", "journeyman")

	// Room refresh
	room := c.assembly("Interior Room Refresh", "room", "Repaint walls and replace baseboard")
	baseboard := c.item(referencedomain.Item{CSICode: "06 22 00", Description: "MDF baseboard trim", Unit: "lf",
		ItemType: referencedomain.ItemTypeMaterial, NationalAverageCost: dec("1.85"), TradeID: &carpentry})
	trimLabor := c.item(referencedomain.Item{CSICode: "06 22 00", Description: "Trim carpentry labor", Unit: "hr",
		ItemType: referencedomain.ItemTypeLabor, NationalAverageCost: dec("0"), TradeID: &carpentry,
		QuantityPerUnit: decimal.NewNullDecimal(dec("0.02"))})
	c.link(room, paintGood, "0.0029")
	c.link(room, paintLabor, "1")
	c.link(room, baseboard, "0.12")
	c.link(room, trimLabor, "0.12")
	c.waste(baseboard, "8", "2", "0")

	// Kitchen
	kitchen := c.assembly("Kitchen Remodel Base", "kitchen", "Demolition, rough-in and installation for a standard kitchen")
	demo := c.item(referencedomain.Item{CSICode: "02 41 19", Description: "Selective demolition labor", Unit: "hr",
		ItemType: referencedomain.ItemTypeLabor, NationalAverageCost: dec("0"), TradeID: &general})
	dumpster := c.item(referencedomain.Item{CSICode: "01 74 19", Description: "Dumpster rental 20 yd", Unit: "ea",
		ItemType: referencedomain.ItemTypeEquipment, NationalAverageCost: dec("450.00"), TradeID: &general})
	cabinetsGood := c.item(referencedomain.Item{CSICode: "06 41 00", Description: "Stock kitchen cabinets", Unit: "lf",
		ItemType: referencedomain.ItemTypeMaterial, QualityTier: tier(referencedomain.QualityGood),
		NationalAverageCost: dec("185.00"), TradeID: &carpentry})
	cabinetsBest := c.item(referencedomain.Item{CSICode: "06 41 00", Description: "Custom kitchen cabinets", Unit: "lf",
		ItemType: referencedomain.ItemTypeMaterial, QualityTier: tier(referencedomain.QualityBest),
		NationalAverageCost: dec("640.00"), TradeID: &carpentry})
	plumbRough := c.item(referencedomain.Item{CSICode: "22 11 16", Description: "Kitchen plumbing rough-in labor", Unit: "hr",
		ItemType: referencedomain.ItemTypeLabor, NationalAverageCost: dec("0"), TradeID: &plumbing})
	wiring := c.item(referencedomain.Item{CSICode: "26 05 19", Description: "Kitchen circuit wiring labor", Unit: "hr",
		ItemType: referencedomain.ItemTypeLabor, NationalAverageCost: dec("0"), TradeID: &electrical})
	c.link(kitchen, demo, "1")
	c.link(kitchen, dumpster, "0.005")
	c.link(kitchen, cabinetsGood, "0.15")
	c.link(kitchen, cabinetsBest, "0.15")
	c.link(kitchen, plumbRough, "1")
	c.link(kitchen, wiring, "1")
	c.waste(cabinetsGood, "0", "1", "0")
	c.waste(cabinetsBest, "0", "1", "0")
	c.labor(demo, "0.03", "1.0", "1.0", "2.0", "apprentice")
	c.labor(plumbRough, "0.04", "1.2", "1.0", "0.5", "master")
	c.labor(wiring, "0.035", "1.1", "1.0", "0.5", "master")

	// Bathroom
	bath := c.assembly("Bathroom Remodel Base", "bathroom", "Waterproofing, tile and plumbing for a full bath")
	membrane := c.item(referencedomain.Item{CSICode: "09 30 13", Description: "Waterproofing membrane", Unit: "sqft",
		ItemType: referencedomain.ItemTypeMaterial, NationalAverageCost: dec("1.40"), TradeID: &finishes})
	tileGood := c.item(referencedomain.Item{CSICode: "09 30 13", Description: "Ceramic wall tile", Unit: "sqft",
		ItemType: referencedomain.ItemTypeMaterial, QualityTier: tier(referencedomain.QualityGood),
		NationalAverageCost: dec("3.20"), TradeID: &finishes})
	tileBetter := c.item(referencedomain.Item{CSICode: "09 30 13", Description: "Porcelain wall tile", Unit: "sqft",
		ItemType: referencedomain.ItemTypeMaterial, QualityTier: tier(referencedomain.QualityBetter),
		NationalAverageCost: dec("6.80"), TradeID: &finishes})
	tileLabor := c.item(referencedomain.Item{CSICode: "09 30 00", Description: "Tile setting labor", Unit: "hr",
		ItemType: referencedomain.ItemTypeLabor, NationalAverageCost: dec("0"), TradeID: &finishes})
	bathPlumbing := c.item(referencedomain.Item{CSICode: "22 40 00", Description: "Bathroom plumbing labor", Unit: "hr",
		ItemType: referencedomain.ItemTypeLabor, NationalAverageCost: dec("0"), TradeID: &plumbing})
	c.link(bath, membrane, "1")
	c.link(bath, tileGood, "1")
	c.link(bath, tileBetter, "1")
	c.link(bath, tileLabor, "1")
	c.link(bath, bathPlumbing, "1")
	c.waste(tileGood, "8", "3", "2")
	c.waste(tileBetter, "8", "3", "4")
	c.labor(tileLabor, "0.11", "1.15", "0.5", "0.75", "journeyman")
	c.labor(bathPlumbing, "0.06", "1.25", "1.0", "0.5", "master")

	// Finish-level packages priced by room count or total area.
	for _, pkg := range []struct {
		category string
		tier     referencedomain.QualityTier
		desc     string
		unit     string
		csi      string
		trade    string
		cost     string
	}{
		{"fixtures", referencedomain.QualityGood, "Builder grade fixture set", "ea", "22 41 00", plumbing, "185.00"},
		{"fixtures", referencedomain.QualityBetter, "Mid-range fixture set", "ea", "22 41 00", plumbing, "420.00"},
		{"fixtures", referencedomain.QualityBest, "Designer fixture set", "ea", "22 41 00", plumbing, "960.00"},
		{"appliances", referencedomain.QualityGood, "Standard appliance package", "ea", "11 31 00", equipment, "2400.00"},
		{"appliances", referencedomain.QualityBetter, "Stainless appliance package", "ea", "11 31 00", equipment, "5200.00"},
		{"appliances", referencedomain.QualityBest, "Professional appliance package", "ea", "11 31 00", equipment, "11800.00"},
		{"finishes", referencedomain.QualityGood, "Standard hardware and trim finishes", "sqft", "09 00 00", finishes, "1.25"},
		{"finishes", referencedomain.QualityBetter, "Upgraded hardware and trim finishes", "sqft", "09 00 00", finishes, "2.40"},
		{"finishes", referencedomain.QualityBest, "Luxury hardware and trim finishes", "sqft", "09 00 00", finishes, "4.10"},
	} {
		tradeID := pkg.trade
		c.item(referencedomain.Item{CSICode: pkg.csi, Description: pkg.desc, Unit: pkg.unit, Category: pkg.category,
			ItemType: referencedomain.ItemTypeMaterial, QualityTier: tier(pkg.tier),
			NationalAverageCost: dec(pkg.cost), TradeID: &tradeID})
	}

	c.specs = append(c.specs, referencedomain.MaterialSpecification{
		ItemID:       oak,
		Manufacturer: "Bruce",
		ModelNumber:  "EAK33LG",
		Specifications: datatypes.JSONMap{
			"thickness_in": 0.375,
			"finish":       "aluminum oxide",
			"species":      "white oak",
		},
		WarrantyYears: 25,
	})

	sf := c.location("94105", "San Francisco-Oakland", "CA", "1.18", "1.42")
	c.location("10001-10299", "New York City", "NY", "1.15", "1.38")
	c.location("606", "Chicago", "IL", "1.04", "1.12")
	c.location("78701", "Austin", "TX", "0.97", "0.92")

	day := 24 * time.Hour
	c.retailPrices = append(c.retailPrices,
		referencedomain.RetailPrice{
			ID: ID("retail", "oak-sf"), ItemID: oak, LocationID: sf, Retailer: "Home Depot",
			Price: dec("7.25"), EffectiveDate: now.Add(-30 * day), LastScraped: now.Add(-2 * day),
		},
		referencedomain.RetailPrice{
			ID: ID("retail", "laminate-sf-stale"), ItemID: laminate, LocationID: sf, Retailer: "Lowe's",
			Price: dec("2.10"), EffectiveDate: now.Add(-60 * day), LastScraped: now.Add(-10 * day),
		},
	)

	return c
}
