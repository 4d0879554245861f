package service

import (
	estimatedomain "github.com/mirzaik-wcc/contractorlens/internal/estimate/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Totals is the money summary of an estimate after markup and tax.
type Totals struct {
	Subtotal      decimal.Decimal
	MaterialTotal decimal.Decimal
	LaborTotal    decimal.Decimal
	MarkupAmount  decimal.Decimal
	AfterMarkup   decimal.Decimal
	TaxableAmount decimal.Decimal
	TaxAmount     decimal.Decimal
	GrandTotal    decimal.Decimal
}

// ApplyMarkup marks up the whole subtotal and taxes only the material share,
// including its part of the markup. Amounts are rounded to cents.
func ApplyMarkup(materialTotal, laborTotal decimal.Decimal, settings estimatedomain.Settings) Totals {
	subtotal := materialTotal.Add(laborTotal)
	rate := settings.MarkupPercentage.Div(hundred)

	markup := subtotal.Mul(rate).Round(2)
	afterMarkup := subtotal.Add(markup)
	taxable := materialTotal.Mul(decimal.NewFromInt(1).Add(rate)).Round(2)
	tax := taxable.Mul(settings.TaxRate).Round(2)

	return Totals{
		Subtotal:      subtotal,
		MaterialTotal: materialTotal,
		LaborTotal:    laborTotal,
		MarkupAmount:  markup,
		AfterMarkup:   afterMarkup,
		TaxableAmount: taxable,
		TaxAmount:     tax,
		GrandTotal:    afterMarkup.Add(tax),
	}
}
