package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbtypes "github.com/adoniasgoesw/filazero/pkg/db/types"
)

// PaymentMethod is a tender accepted at the register. Composite methods stand for a payment
// split across their member methods; MemberKey is the canonical member list used to reuse an
// existing composite.
type PaymentMethod struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Name        string            `gorm:"column:name;not null"`
	IsActive    bool              `gorm:"column:is_active;not null"`
	IsComposite bool              `gorm:"column:is_composite;not null"`
	Members     dbtypes.UUIDArray `gorm:"column:members;type:text;not null;default:'{}'"`
	MemberKey   *string           `gorm:"column:member_key;uniqueIndex:idx_payment_methods_member_key"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (m *PaymentMethod) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	return nil
}
