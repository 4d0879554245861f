package service

import (
	"cmp"
	"slices"

	estimatedomain "github.com/mirzaik-wcc/contractorlens/internal/estimate/domain"
	referencedomain "github.com/mirzaik-wcc/contractorlens/internal/reference/domain"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type pricedLine struct {
	division string
	item     estimatedomain.LineItem
}

// aggregate groups line items by CSI division. Divisions are ordered by code and
// items within a division by CSI code, item and assembly, so the result does not
// depend on the order in which components finished pricing.
func aggregate(lines []pricedLine) []estimatedomain.CSIDivision {
	grouped := lo.GroupBy(lines, func(l pricedLine) string { return l.division })
	codes := lo.Keys(grouped)
	slices.Sort(codes)

	divisions := make([]estimatedomain.CSIDivision, 0, len(codes))
	for _, code := range codes {
		items := lo.Map(grouped[code], func(l pricedLine, _ int) estimatedomain.LineItem { return l.item })
		slices.SortFunc(items, compareLineItems)

		divisions = append(divisions, estimatedomain.CSIDivision{
			Code:       code,
			Name:       estimatedomain.DivisionName(code),
			LineItems:  items,
			TotalCost:  sumBy(items, func(li estimatedomain.LineItem) decimal.Decimal { return li.TotalCost }),
			LaborHours: sumBy(items, func(li estimatedomain.LineItem) decimal.Decimal { return li.LaborHours }),
		})
	}
	return divisions
}

func compareLineItems(a, b estimatedomain.LineItem) int {
	return cmp.Or(
		cmp.Compare(a.CSICode, b.CSICode),
		cmp.Compare(a.ItemID, b.ItemID),
		cmp.Compare(a.AssemblyID, b.AssemblyID),
	)
}

// splitTotals sums material (equipment included) and labor costs.
func splitTotals(items []estimatedomain.LineItem) (material, labor decimal.Decimal) {
	material, labor = decimal.Zero, decimal.Zero
	for _, li := range items {
		if li.ItemType == referencedomain.ItemTypeLabor {
			labor = labor.Add(li.TotalCost)
		} else {
			material = material.Add(li.TotalCost)
		}
	}
	return material, labor
}

func sumBy[T any](items []T, f func(T) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(f(item))
	}
	return total
}
