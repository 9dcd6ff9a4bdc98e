// Package pricing computes order subtotals, discount/surcharge resolution and totals.
//
// All arithmetic keeps full decimal precision; values are rounded to currency minor units
// (two decimals) only by the presentation helpers.
package pricing

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/adoniasgoesw/filazero/pkg/errors"
	"github.com/adoniasgoesw/filazero/pkg/types"
)

// CurrencyPlaces is the number of decimals used when presenting money.
const CurrencyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Totals is the priced view of an order.
type Totals struct {
	Subtotal  decimal.Decimal
	Discount  decimal.Decimal
	Surcharge decimal.Decimal
	Total     decimal.Decimal
}

// Adjustment is raw operator input for a discount or surcharge.
type Adjustment struct {
	Value        decimal.Decimal
	IsPercentage bool
}

// ResolveAdjustment converts a raw discount/surcharge into an amount. Percentages are taken
// from base; absolute values are returned unchanged.
func ResolveAdjustment(rawValue decimal.Decimal, isPercentage bool, base decimal.Decimal) (decimal.Decimal, error) {
	if rawValue.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeInvalidAdjustment, "adjustment must not be negative").
			WithDetails(map[string]any{"value": rawValue.String()})
	}
	if !isPercentage {
		return rawValue, nil
	}
	return base.Mul(rawValue).Div(hundred), nil
}

// Resolve is ResolveAdjustment for an Adjustment value.
func (a Adjustment) Resolve(base decimal.Decimal) (decimal.Decimal, error) {
	return ResolveAdjustment(a.Value, a.IsPercentage, base)
}

// Subtotal sums every line's amount including complements.
func Subtotal(items []types.OrderItem) decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineAmount())
	}
	return subtotal
}

// ComputeTotals prices items with already-resolved discount and surcharge amounts. The total
// never drops below zero.
func ComputeTotals(items []types.OrderItem, discountAmount, surchargeAmount decimal.Decimal) Totals {
	subtotal := Subtotal(items)
	total := subtotal.Add(surchargeAmount).Sub(discountAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return Totals{
		Subtotal:  subtotal,
		Discount:  discountAmount,
		Surcharge: surchargeAmount,
		Total:     total,
	}
}

// Round rounds to currency minor units for presentation.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(CurrencyPlaces)
}

// Format renders an amount with exactly two decimals.
func Format(amount decimal.Decimal) string {
	return amount.StringFixed(CurrencyPlaces)
}
