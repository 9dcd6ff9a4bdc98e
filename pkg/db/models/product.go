package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a sellable menu entry.
type Product struct {
	ID         uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	Name       string               `gorm:"column:name;not null"`
	UnitPrice  decimal.Decimal      `gorm:"column:unit_price;type:numeric(12,2);not null"`
	CategoryID *uuid.UUID           `gorm:"column:category_id;type:uuid"`
	IsActive   bool                 `gorm:"column:is_active;not null"`
	Categories []ComplementCategory `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// ComplementCategory groups the complements offered with a product. MaxSelectable of zero
// means no ceiling.
type ComplementCategory struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	ProductID     uuid.UUID        `gorm:"column:product_id;type:uuid;not null;index"`
	Name          string           `gorm:"column:name;not null"`
	Required      bool             `gorm:"column:required;not null"`
	MaxSelectable int              `gorm:"column:max_selectable;not null;default:0"`
	Position      int              `gorm:"column:position;not null;default:0"`
	Items         []ComplementItem `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
}

func (c *ComplementCategory) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

type ComplementItem struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CategoryID uuid.UUID       `gorm:"column:category_id;type:uuid;not null;index"`
	Name       string          `gorm:"column:name;not null"`
	UnitPrice  decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null;default:0"`
	IsActive   bool            `gorm:"column:is_active;not null"`
	Position   int             `gorm:"column:position;not null;default:0"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (c *ComplementItem) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}
