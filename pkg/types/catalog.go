package types

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a sellable catalog entry.
type Product struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	CategoryID uuid.UUID       `json:"category_id"`
	Active     bool            `json:"active"`
}

// ComplementCategory groups complements offered with a product and carries the cardinality
// rules for that group. MaxSelectable <= 0 means unbounded; 1 means exclusive choice.
type ComplementCategory struct {
	ID            uuid.UUID        `json:"id"`
	ProductID     uuid.UUID        `json:"product_id"`
	Name          string           `json:"name"`
	Required      bool             `json:"required"`
	MaxSelectable int              `json:"max_selectable"`
	Items         []ComplementItem `json:"items"`
}

// Unbounded reports whether the category has no selection ceiling.
func (c ComplementCategory) Unbounded() bool {
	return c.MaxSelectable <= 0
}

// Exclusive reports radio-style categories.
func (c ComplementCategory) Exclusive() bool {
	return c.MaxSelectable == 1
}

// Item finds a complement of this category by id.
func (c ComplementCategory) Item(id uuid.UUID) (ComplementItem, bool) {
	for _, item := range c.Items {
		if item.ID == id {
			return item, true
		}
	}
	return ComplementItem{}, false
}

// ComplementItem is one selectable complement.
type ComplementItem struct {
	ID         uuid.UUID       `json:"id"`
	CategoryID uuid.UUID       `json:"category_id"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Active     bool            `json:"active"`
}

// PaymentMethod is a registered tender (cash, card, pix...).
type PaymentMethod struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Active    bool        `json:"active"`
	Composite bool        `json:"composite"`
	Members   []uuid.UUID `json:"members,omitempty"`
}
