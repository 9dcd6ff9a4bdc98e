package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adoniasgoesw/filazero/pkg/db/models"
)

// Repository defines persistence operations for the order tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOpenOrder(ctx context.Context, slot string) (*models.Order, error)
	FindOpenOrderWithItems(ctx context.Context, slot string) (*models.Order, error)
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	DeleteOrder(ctx context.Context, orderID uuid.UUID) error
	ReplaceOrderItems(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) error
	ListPayments(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error)
	FindPayment(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error)
	FindPaymentByClientRef(ctx context.Context, orderID, clientRef uuid.UUID) (*models.Payment, error)
	CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	UpdatePayment(ctx context.Context, paymentID uuid.UUID, updates map[string]any) error
	DeletePaymentsByMethod(ctx context.Context, orderID, methodID uuid.UUID) (int64, error)
}
