package types

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestOrderItemAmounts(t *testing.T) {
	t.Parallel()

	item := OrderItem{
		ProductID: uuid.New(),
		Quantity:  2,
		UnitPrice: decimal.RequireFromString("32.90"),
		Complements: []ComplementSelection{
			{ComplementID: uuid.New(), UnitPrice: decimal.RequireFromString("5.00"), Quantity: 1},
			{ComplementID: uuid.New(), UnitPrice: decimal.RequireFromString("1.50"), Quantity: 2},
		},
	}

	if got := item.UnitAmount(); !got.Equal(decimal.RequireFromString("40.90")) {
		t.Fatalf("expected unit amount 40.90, got %s", got)
	}
	if got := item.LineAmount(); !got.Equal(decimal.RequireFromString("81.80")) {
		t.Fatalf("expected line amount 81.80, got %s", got)
	}
}

func TestOrderItemCloneDoesNotAliasComplements(t *testing.T) {
	t.Parallel()

	item := OrderItem{
		Quantity:    1,
		Complements: []ComplementSelection{{Name: "bacon", Quantity: 1}},
	}
	clone := item.Clone()
	clone.Complements[0].Quantity = 3

	if item.Complements[0].Quantity != 1 {
		t.Fatalf("clone mutated the original complements")
	}
}
