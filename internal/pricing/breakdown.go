package pricing

import "github.com/shopspring/decimal"

// BreakdownKind labels one presentation line.
type BreakdownKind string

const (
	BreakdownSubtotal  BreakdownKind = "subtotal"
	BreakdownDiscount  BreakdownKind = "discount"
	BreakdownSurcharge BreakdownKind = "surcharge"
	BreakdownTotal     BreakdownKind = "total"
)

// BreakdownLine is a rounded presentation line.
type BreakdownLine struct {
	Kind   BreakdownKind
	Amount decimal.Decimal
	Label  string
}

// Breakdown lists the presentation lines for totals. A zero discount or surcharge counts as
// not applied and is left out.
func (t Totals) Breakdown() []BreakdownLine {
	lines := []BreakdownLine{{Kind: BreakdownSubtotal, Amount: Round(t.Subtotal), Label: Format(t.Subtotal)}}
	if !t.Discount.IsZero() {
		lines = append(lines, BreakdownLine{Kind: BreakdownDiscount, Amount: Round(t.Discount), Label: "-" + Format(t.Discount)})
	}
	if !t.Surcharge.IsZero() {
		lines = append(lines, BreakdownLine{Kind: BreakdownSurcharge, Amount: Round(t.Surcharge), Label: "+" + Format(t.Surcharge)})
	}
	return append(lines, BreakdownLine{Kind: BreakdownTotal, Amount: Round(t.Total), Label: Format(t.Total)})
}
