package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/adoniasgoesw/filazero/pkg/enums"
)

// Order is the persisted order of a slot. At most one open order exists per slot; finalized
// orders stay for history and free the slot.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Slot            string            `gorm:"column:slot;not null;uniqueIndex:idx_orders_open_slot,where:status = 'open'"`
	Status          enums.OrderStatus `gorm:"column:status;type:text;not null;default:'open'"`
	DisplayName     string            `gorm:"column:display_name;not null;default:''"`
	ClientID        *uuid.UUID        `gorm:"column:client_id;type:uuid"`
	Discount        decimal.Decimal   `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	Surcharge       decimal.Decimal   `gorm:"column:surcharge;type:numeric(12,2);not null;default:0"`
	PaidAmount      decimal.Decimal   `gorm:"column:paid_amount;type:numeric(12,2);not null;default:0"`
	ChangeAmount    decimal.Decimal   `gorm:"column:change_amount;type:numeric(12,2);not null;default:0"`
	RemainingAmount decimal.Decimal   `gorm:"column:remaining_amount;type:numeric(12,2);not null;default:0"`
	PaymentMethodID *uuid.UUID        `gorm:"column:payment_method_id;type:uuid"`
	FinalizedAt     *time.Time        `gorm:"column:finalized_at"`
	Items           []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payments        []Payment         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

// OrderItem is one priced line. Position keeps the terminal's line order.
type OrderItem struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	Position    int                   `gorm:"column:position;not null"`
	ProductID   uuid.UUID             `gorm:"column:product_id;type:uuid;not null"`
	Name        string                `gorm:"column:name;not null"`
	Quantity    int                   `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal       `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Complements []OrderItemComplement `gorm:"foreignKey:OrderItemID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}

// OrderItemComplement snapshots a complement chosen for a line, per unit of the line.
type OrderItemComplement struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderItemID  uuid.UUID       `gorm:"column:order_item_id;type:uuid;not null;index"`
	ComplementID uuid.UUID       `gorm:"column:complement_id;type:uuid;not null"`
	CategoryID   uuid.UUID       `gorm:"column:category_id;type:uuid"`
	Name         string          `gorm:"column:name;not null"`
	UnitPrice    decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity     int             `gorm:"column:quantity;not null"`
}

func (c *OrderItemComplement) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// Payment is one recorded allocation. ClientRef is the terminal's allocation id; recording
// the same ref twice updates the row instead of adding one.
type Payment struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID       `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_payments_order_client_ref"`
	PaymentMethodID uuid.UUID       `gorm:"column:payment_method_id;type:uuid;not null"`
	Amount          decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	ClientRef       uuid.UUID       `gorm:"column:client_ref;type:uuid;not null;uniqueIndex:idx_payments_order_client_ref"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// All lists every model, in dependency order, for tests that build the schema with AutoMigrate.
func All() []any {
	return []any{
		&Product{},
		&ComplementCategory{},
		&ComplementItem{},
		&PaymentMethod{},
		&Order{},
		&OrderItem{},
		&OrderItemComplement{},
		&Payment{},
	}
}
