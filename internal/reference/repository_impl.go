package reference

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mirzaik-wcc/contractorlens/internal/reference/domain"
	"github.com/mirzaik-wcc/contractorlens/pkg/db/option"
	"github.com/mirzaik-wcc/contractorlens/pkg/repository"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type store struct {
	db *gorm.DB

	assemblies    repository.Repository[domain.Assembly]
	assemblyItems repository.Repository[domain.AssemblyItem]
	items         repository.Repository[domain.Item]
	trades        repository.Repository[domain.Trade]
	laborTasks    repository.Repository[domain.LaborTask]
	wasteFactors  repository.Repository[domain.WasteFactor]
	specs         repository.Repository[domain.MaterialSpecification]
	locations     repository.Repository[domain.LocationCostModifier]
	retailPrices  repository.Repository[domain.RetailPrice]
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &store{
		db:            db,
		assemblies:    repository.ProvideStore[domain.Assembly](db),
		assemblyItems: repository.ProvideStore[domain.AssemblyItem](db),
		items:         repository.ProvideStore[domain.Item](db),
		trades:        repository.ProvideStore[domain.Trade](db),
		laborTasks:    repository.ProvideStore[domain.LaborTask](db),
		wasteFactors:  repository.ProvideStore[domain.WasteFactor](db),
		specs:         repository.ProvideStore[domain.MaterialSpecification](db),
		locations:     repository.ProvideStore[domain.LocationCostModifier](db),
		retailPrices:  repository.ProvideStore[domain.RetailPrice](db),
	}
}

func (s *store) GetLocationModifiers(ctx context.Context, zip string) (*domain.LocationCostModifier, error) {
	zip = strings.TrimSpace(zip)
	if len(zip) > 5 {
		zip = zip[:5]
	}
	if !isDigits(zip, 5) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidZipCode, zip)
	}

	exact, err := s.locations.FindOne(ctx, &domain.LocationCostModifier{ZipCodeRange: zip})
	if err != nil || exact != nil {
		return exact, err
	}

	ranges, err := s.locations.Find(ctx, nil,
		option.WithWhere("zip_code_range LIKE ?", "%-%"),
		option.ApplyOrderBy("location_id", "ASC"),
	)
	if err != nil {
		return nil, err
	}
	if match := narrowestRange(ranges, zip); match != nil {
		return match, nil
	}

	// Prefix rows rank the 5-digit prefix ahead of the 3-digit region. A region row is
	// stored as exactly three digits, optionally with a trailing %, so a neighbouring
	// 5-digit row never stands in for it.
	region := zip[:3]
	return s.locations.FindOne(ctx, nil,
		option.WithWhere("zip_code_range NOT LIKE ?", "%-%"),
		option.WithWhere("(zip_code_range LIKE ? OR zip_code_range IN ?)", zip+"%", []string{region, region + "%"}),
		option.WithOrderExpr("CASE WHEN zip_code_range LIKE ? THEN 1 ELSE 2 END", zip+"%"),
		option.ApplyOrderBy("location_id", "ASC"),
	)
}

func narrowestRange(rows []*domain.LocationCostModifier, zip string) *domain.LocationCostModifier {
	var (
		best     *domain.LocationCostModifier
		bestSpan = -1
	)
	for _, row := range rows {
		low, high, ok := strings.Cut(row.ZipCodeRange, "-")
		low, high = strings.TrimSpace(low), strings.TrimSpace(high)
		if !ok || !isDigits(low, 5) || !isDigits(high, 5) {
			continue
		}
		if zip < low || zip > high {
			continue
		}
		lowN, _ := strconv.Atoi(low)
		highN, _ := strconv.Atoi(high)
		if span := highN - lowN; best == nil || span < bestSpan {
			best, bestSpan = row, span
		}
	}
	return best
}

func (s *store) GetAssembliesForCategory(ctx context.Context, category string) ([]domain.Assembly, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return nil, nil
	}
	rows, err := s.assemblies.Find(ctx, &domain.Assembly{Category: category}, option.ApplyOrderBy("assembly_id", "ASC"))
	if err != nil {
		return nil, err
	}
	return derefAll(rows), nil
}

func (s *store) GetAssemblyComponents(ctx context.Context, assemblyID string) ([]domain.Component, error) {
	links, err := s.assemblyItems.Find(ctx, &domain.AssemblyItem{AssemblyID: assemblyID})
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, nil
	}

	quantities := make(map[string]decimal.Decimal, len(links))
	for _, link := range links {
		quantities[link.ItemID] = link.Quantity
	}

	items, err := s.items.Find(ctx, nil, option.WithWhere("item_id IN ?", lo.Keys(quantities)))
	if err != nil {
		return nil, err
	}
	return s.buildComponents(ctx, derefAll(items), quantities)
}

func (s *store) ListFinishItems(ctx context.Context, tier domain.QualityTier, categories []string) ([]domain.Component, error) {
	if len(categories) == 0 {
		return nil, nil
	}
	items, err := s.items.Find(ctx, nil,
		option.WithWhere("quality_tier = ?", string(tier)),
		option.WithWhere("category IN ?", categories),
	)
	if err != nil {
		return nil, err
	}
	return s.buildComponents(ctx, derefAll(items), nil)
}

// buildComponents joins items with their trade, labor and waste rows and resolves each kind.
// Output is ordered by CSI code then item id.
func (s *store) buildComponents(ctx context.Context, items []domain.Item, quantities map[string]decimal.Decimal) ([]domain.Component, error) {
	if len(items) == 0 {
		return nil, nil
	}
	itemIDs := lo.Map(items, func(item domain.Item, _ int) string { return item.ID })

	tradeIDs := lo.Uniq(lo.FilterMap(items, func(item domain.Item, _ int) (string, bool) {
		if item.TradeID == nil {
			return "", false
		}
		return *item.TradeID, true
	}))
	trades := map[string]*domain.Trade{}
	if len(tradeIDs) > 0 {
		rows, err := s.trades.Find(ctx, nil, option.WithWhere("trade_id IN ?", tradeIDs))
		if err != nil {
			return nil, err
		}
		trades = lo.KeyBy(rows, func(t *domain.Trade) string { return t.ID })
	}

	taskRows, err := s.laborTasks.Find(ctx, nil, option.WithWhere("item_id IN ?", itemIDs))
	if err != nil {
		return nil, err
	}
	tasks := lo.KeyBy(taskRows, func(t *domain.LaborTask) string { return t.ItemID })

	wasteRows, err := s.wasteFactors.Find(ctx, nil, option.WithWhere("item_id IN ?", itemIDs))
	if err != nil {
		return nil, err
	}
	wastes := lo.KeyBy(wasteRows, func(w *domain.WasteFactor) string { return w.ItemID })

	components := make([]domain.Component, 0, len(items))
	for _, item := range items {
		kind, err := domain.ResolveKind(item, tasks[item.ID], wastes[item.ID])
		if err != nil {
			return nil, err
		}
		component := domain.Component{
			Item:     item,
			Quantity: quantities[item.ID],
			Kind:     kind,
		}
		if item.TradeID != nil {
			component.Trade = trades[*item.TradeID]
		}
		components = append(components, component)
	}

	sort.SliceStable(components, func(i, j int) bool {
		a, b := components[i].Item, components[j].Item
		if a.CSICode != b.CSICode {
			return a.CSICode < b.CSICode
		}
		return a.ID < b.ID
	})
	return components, nil
}

// GetRetailPrice filters validity in Go so the date rules behave the same on every dialect.
func (s *store) GetRetailPrice(ctx context.Context, itemID, locationID string, asOf time.Time, freshness time.Duration) (*domain.RetailPrice, error) {
	if itemID == "" || locationID == "" {
		return nil, nil
	}
	rows, err := s.retailPrices.Find(ctx,
		&domain.RetailPrice{ItemID: itemID, LocationID: locationID},
		option.ApplyOrderBy("last_scraped", "DESC"),
		option.ApplyOrderBy("retail_price_id", "ASC"),
	)
	if err != nil {
		return nil, err
	}

	var best *domain.RetailPrice
	for _, row := range rows {
		if !row.ValidAt(asOf, freshness) {
			continue
		}
		if best == nil || row.LastScraped.After(best.LastScraped) {
			best = row
		}
	}
	return best, nil
}

func (s *store) GetLaborTask(ctx context.Context, itemID string) (*domain.LaborTask, error) {
	if itemID == "" {
		return nil, nil
	}
	return s.laborTasks.FindOne(ctx, &domain.LaborTask{ItemID: itemID})
}

func (s *store) GetWasteFactors(ctx context.Context, itemID string) (*domain.WasteFactor, error) {
	if itemID == "" {
		return nil, nil
	}
	return s.wasteFactors.FindOne(ctx, &domain.WasteFactor{ItemID: itemID})
}

func (s *store) GetMaterialSpecs(ctx context.Context, itemID string) (*domain.MaterialSpecification, error) {
	if itemID == "" {
		return nil, nil
	}
	return s.specs.FindOne(ctx, &domain.MaterialSpecification{ItemID: itemID})
}

func derefAll[T any](rows []*T) []T {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	return out
}

func isDigits(value string, length int) bool {
	if len(value) != length {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
