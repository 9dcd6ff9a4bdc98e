package pricing

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/adoniasgoesw/filazero/pkg/errors"
	"github.com/adoniasgoesw/filazero/pkg/types"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestResolveAdjustmentPercentage(t *testing.T) {
	t.Parallel()

	amount, err := ResolveAdjustment(dec("10"), true, dec("100.00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !amount.Equal(dec("10.00")) {
		t.Fatalf("expected 10.00, got %s", amount)
	}

	totals := ComputeTotals([]types.OrderItem{{Quantity: 1, UnitPrice: dec("100.00")}}, amount, decimal.Zero)
	if !totals.Total.Equal(dec("90.00")) {
		t.Fatalf("expected total 90.00, got %s", totals.Total)
	}
}

func TestResolveAdjustmentAbsoluteUnchanged(t *testing.T) {
	t.Parallel()

	amount, err := ResolveAdjustment(dec("7.35"), false, dec("100.00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !amount.Equal(dec("7.35")) {
		t.Fatalf("expected 7.35, got %s", amount)
	}
}

func TestResolveAdjustmentRejectsNegative(t *testing.T) {
	t.Parallel()

	for _, pct := range []bool{true, false} {
		_, err := ResolveAdjustment(dec("-1"), pct, dec("50"))
		if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidAdjustment) {
			t.Fatalf("expected invalid adjustment, got %v", err)
		}
	}
}

func TestComputeTotalsKeepsFullPrecision(t *testing.T) {
	t.Parallel()

	// 3 × 0.333... accumulates without intermediate rounding
	items := []types.OrderItem{{Quantity: 3, UnitPrice: dec("10").Div(dec("3"))}}
	totals := ComputeTotals(items, decimal.Zero, decimal.Zero)
	if Format(totals.Total) != "10.00" {
		t.Fatalf("expected 10.00 after presentation rounding, got %s", Format(totals.Total))
	}
}

func TestComputeTotalsClampsAtZero(t *testing.T) {
	t.Parallel()

	items := []types.OrderItem{{Quantity: 1, UnitPrice: dec("20.00")}}
	totals := ComputeTotals(items, dec("25.00"), dec("1.00"))
	if !totals.Total.IsZero() {
		t.Fatalf("expected zero total, got %s", totals.Total)
	}
}

func TestComputeTotalsIncludesComplements(t *testing.T) {
	t.Parallel()

	pizza := uuid.New()
	items := []types.OrderItem{
		{ProductID: pizza, Quantity: 2, UnitPrice: dec("32.90")},
		{ProductID: pizza, Quantity: 1, UnitPrice: dec("32.90"), Complements: []types.ComplementSelection{
			{ComplementID: uuid.New(), Quantity: 1, UnitPrice: dec("5.00")},
		}},
	}
	totals := ComputeTotals(items, decimal.Zero, decimal.Zero)
	if !totals.Subtotal.Equal(dec("103.70")) {
		t.Fatalf("expected subtotal 103.70, got %s", totals.Subtotal)
	}
}

func TestComputeTotalsEmpty(t *testing.T) {
	t.Parallel()

	totals := ComputeTotals(nil, decimal.Zero, decimal.Zero)
	if !totals.Subtotal.IsZero() || !totals.Total.IsZero() {
		t.Fatalf("expected zero totals, got %+v", totals)
	}
}

// total = subtotal + surcharge - discount whenever 0 <= discount <= subtotal + surcharge.
func TestTotalMonotonicityProperty(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		unit := decimal.New(rng.Int63n(100000), -2)
		qty := rng.Intn(5) + 1
		surcharge := decimal.New(rng.Int63n(5000), -2)
		items := []types.OrderItem{{Quantity: qty, UnitPrice: unit}}
		subtotal := Subtotal(items)
		ceiling := subtotal.Add(surcharge)
		discount := decimal.Zero
		if ceiling.IsPositive() {
			discount = ceiling.Mul(decimal.NewFromFloat(rng.Float64())).Round(2)
			if discount.GreaterThan(ceiling) {
				discount = ceiling
			}
		}

		totals := ComputeTotals(items, discount, surcharge)
		want := subtotal.Add(surcharge).Sub(discount)
		if !totals.Total.Equal(want) {
			t.Fatalf("iteration %d: expected %s got %s", i, want, totals.Total)
		}
		if totals.Total.IsNegative() {
			t.Fatalf("iteration %d: negative total %s", i, totals.Total)
		}
	}
}

func TestBreakdownHidesZeroAdjustments(t *testing.T) {
	t.Parallel()

	totals := Totals{Subtotal: dec("50"), Discount: decimal.Zero, Surcharge: decimal.Zero, Total: dec("50")}
	lines := totals.Breakdown()
	if len(lines) != 2 {
		t.Fatalf("expected subtotal and total only, got %+v", lines)
	}
	if lines[0].Kind != BreakdownSubtotal || lines[1].Kind != BreakdownTotal {
		t.Fatalf("unexpected kinds %+v", lines)
	}

	totals.Discount = dec("5.005")
	totals.Surcharge = dec("2")
	totals.Total = dec("46.995")
	lines = totals.Breakdown()
	if len(lines) != 4 {
		t.Fatalf("expected four lines, got %+v", lines)
	}
	if lines[1].Label != "-5.01" || lines[2].Label != "+2.00" || lines[3].Label != "47.00" {
		t.Fatalf("unexpected labels %+v", lines)
	}
}
