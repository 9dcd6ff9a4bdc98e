package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adoniasgoesw/filazero/pkg/db/models"
	"github.com/adoniasgoesw/filazero/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOpenOrder(ctx context.Context, slot string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("slot = ? AND status = ?", slot, enums.OrderStatusOpen).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOpenOrderWithItems(ctx context.Context, slot string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Preload("Items.Complements", func(tx *gorm.DB) *gorm.DB { return tx.Order("name ASC") }).
		Where("slot = ? AND status = ?", slot, enums.OrderStatusOpen).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

// DeleteOrder removes the order and everything hanging off it. Children are deleted explicitly
// because sqlite does not enforce the cascades unless foreign keys are switched on.
func (r *repository) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	conn := r.db.WithContext(ctx)
	if err := r.deleteItems(ctx, orderID); err != nil {
		return err
	}
	if err := conn.Where("order_id = ?", orderID).Delete(&models.Payment{}).Error; err != nil {
		return err
	}
	return conn.Where("id = ?", orderID).Delete(&models.Order{}).Error
}

func (r *repository) ReplaceOrderItems(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) error {
	if err := r.deleteItems(ctx, orderID); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for idx := range items {
		items[idx].OrderID = orderID
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) deleteItems(ctx context.Context, orderID uuid.UUID) error {
	conn := r.db.WithContext(ctx)
	itemIDs := conn.Model(&models.OrderItem{}).Select("id").Where("order_id = ?", orderID)
	if err := conn.Where("order_item_id IN (?)", itemIDs).Delete(&models.OrderItemComplement{}).Error; err != nil {
		return err
	}
	return conn.Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error
}

func (r *repository) ListPayments(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repository) FindPayment(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", paymentID).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindPaymentByClientRef(ctx context.Context, orderID, clientRef uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND client_ref = ?", orderID, clientRef).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *repository) UpdatePayment(ctx context.Context, paymentID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", paymentID).
		Updates(updates).Error
}

func (r *repository) DeletePaymentsByMethod(ctx context.Context, orderID, methodID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("order_id = ? AND payment_method_id = ?", orderID, methodID).
		Delete(&models.Payment{})
	return res.RowsAffected, res.Error
}
