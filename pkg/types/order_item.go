package types

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ComplementSelection snapshots one chosen complement on an order line. Quantity and price are
// per unit of the owning line.
type ComplementSelection struct {
	ComplementID uuid.UUID       `json:"complement_id" validate:"required"`
	CategoryID   uuid.UUID       `json:"category_id,omitempty"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unit_price" validate:"money"`
	Quantity     int             `json:"quantity" validate:"min=1"`
}

// Amount is quantity × unit price for a single unit of the owning line.
func (c ComplementSelection) Amount() decimal.Decimal {
	return c.UnitPrice.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

// OrderItem is a priced order line. UnitPrice is captured when the product is added and never
// follows later catalog changes.
type OrderItem struct {
	ProductID   uuid.UUID             `json:"product_id" validate:"required"`
	Name        string                `json:"name"`
	Quantity    int                   `json:"quantity" validate:"min=1"`
	UnitPrice   decimal.Decimal       `json:"unit_price" validate:"money"`
	Complements []ComplementSelection `json:"complements,omitempty" validate:"dive"`
}

// UnitAmount is the price of one unit including its complements.
func (i OrderItem) UnitAmount() decimal.Decimal {
	amount := i.UnitPrice
	for _, c := range i.Complements {
		amount = amount.Add(c.Amount())
	}
	return amount
}

// LineAmount is quantity × UnitAmount. Complement quantities are per unit, so a line of
// quantity 2 charges its complements twice; with quantity 1 it is the unit price plus the
// complement totals.
func (i OrderItem) LineAmount() decimal.Decimal {
	return i.UnitAmount().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Clone returns a deep copy so callers can mutate quantities without aliasing complements.
func (i OrderItem) Clone() OrderItem {
	out := i
	if i.Complements != nil {
		out.Complements = make([]ComplementSelection, len(i.Complements))
		copy(out.Complements, i.Complements)
	}
	return out
}

// CloneItems deep-copies a slice of items.
func CloneItems(items []OrderItem) []OrderItem {
	if items == nil {
		return nil
	}
	out := make([]OrderItem, len(items))
	for idx, item := range items {
		out[idx] = item.Clone()
	}
	return out
}
