// Package orders is the reference order persistence backend: it stores one open order per
// slot, its items, adjustments and payment allocations, and finalizes or deletes it.
package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/adoniasgoesw/filazero/internal/pricing"
	"github.com/adoniasgoesw/filazero/pkg/db"
	"github.com/adoniasgoesw/filazero/pkg/db/models"
	"github.com/adoniasgoesw/filazero/pkg/enums"
	pkgerrors "github.com/adoniasgoesw/filazero/pkg/errors"
	"github.com/adoniasgoesw/filazero/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CompositeResolver finds or creates the composite payment method standing for members.
type CompositeResolver interface {
	CompositePaymentMethod(ctx context.Context, members []uuid.UUID) (*types.PaymentMethod, error)
}

// Service defines the order operations exposed to terminals. Every write describes the desired
// end state so a terminal may repeat it after a failure.
type Service interface {
	EnsureOrder(ctx context.Context, slot string) (*types.OrderHandle, error)
	GetOrder(ctx context.Context, slot string) (*types.OrderSnapshot, error)
	ReplaceItems(ctx context.Context, slot string, req types.ReplaceItemsRequest) error
	SetDiscount(ctx context.Context, slot string, amount decimal.Decimal) error
	SetSurcharge(ctx context.Context, slot string, amount decimal.Decimal) error
	SetClient(ctx context.Context, slot string, clientID *uuid.UUID) error
	ListPayments(ctx context.Context, orderID uuid.UUID) ([]types.PaymentRow, error)
	CreateCompositePaymentMethod(ctx context.Context, methodIDs []uuid.UUID) (uuid.UUID, error)
	RecordPayment(ctx context.Context, slot string, req types.RecordPaymentRequest) ([]types.PaymentRow, error)
	UpdatePayment(ctx context.Context, paymentID uuid.UUID, amount decimal.Decimal) error
	DeletePayment(ctx context.Context, orderID, methodID uuid.UUID) error
	FinalizeOrder(ctx context.Context, slot string) error
	DeleteOrder(ctx context.Context, slot string) error
}

type service struct {
	repo       Repository
	tx         txRunner
	composites CompositeResolver
	now        func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, tx txRunner, composites CompositeResolver) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if composites == nil {
		return nil, fmt.Errorf("composite payment method resolver required")
	}
	return &service{
		repo:       repo,
		tx:         tx,
		composites: composites,
		now:        time.Now,
	}, nil
}

func (s *service) EnsureOrder(ctx context.Context, slot string) (*types.OrderHandle, error) {
	slot, err := canonicalSlot(slot)
	if err != nil {
		return nil, err
	}
	order, err := s.repo.FindOpenOrder(ctx, slot)
	if err == nil {
		return toHandle(order), nil
	}
	if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load open order")
	}

	created, err := s.repo.CreateOrder(ctx, &models.Order{
		Slot:   slot,
		Status: enums.OrderStatusOpen,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			// Another terminal opened the slot first.
			order, findErr := s.repo.FindOpenOrder(ctx, slot)
			if findErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, findErr, "load open order")
			}
			return toHandle(order), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create order")
	}
	return toHandle(created), nil
}

func (s *service) GetOrder(ctx context.Context, slot string) (*types.OrderSnapshot, error) {
	slot, err := canonicalSlot(slot)
	if err != nil {
		return nil, err
	}
	order, err := s.repo.FindOpenOrderWithItems(ctx, slot)
	if err != nil {
		return nil, orderLoadError(err, slot)
	}
	return toSnapshot(order), nil
}

func (s *service) ReplaceItems(ctx context.Context, slot string, req types.ReplaceItemsRequest) error {
	slot, err := canonicalSlot(slot)
	if err != nil {
		return err
	}
	if err := validateItems(req.Items); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOpenOrder(ctx, slot)
		if err != nil {
			return orderLoadError(err, slot)
		}
		if err := repo.ReplaceOrderItems(ctx, order.ID, toItemModels(req.Items)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "replace order items")
		}
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{"display_name": req.DisplayName}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update display name")
		}
		return nil
	})
}

func (s *service) SetDiscount(ctx context.Context, slot string, amount decimal.Decimal) error {
	return s.setAdjustment(ctx, slot, "discount", amount)
}

func (s *service) SetSurcharge(ctx context.Context, slot string, amount decimal.Decimal) error {
	return s.setAdjustment(ctx, slot, "surcharge", amount)
}

func (s *service) setAdjustment(ctx context.Context, slot, column string, amount decimal.Decimal) error {
	slot, err := canonicalSlot(slot)
	if err != nil {
		return err
	}
	if amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeInvalidAdjustment, column+" must not be negative").
			WithDetails(map[string]any{"value": amount.String()})
	}
	return s.updateOpenOrder(ctx, slot, map[string]any{column: amount})
}

func (s *service) SetClient(ctx context.Context, slot string, clientID *uuid.UUID) error {
	slot, err := canonicalSlot(slot)
	if err != nil {
		return err
	}
	var value any
	if clientID != nil && *clientID != uuid.Nil {
		value = *clientID
	}
	return s.updateOpenOrder(ctx, slot, map[string]any{"client_id": value})
}

func (s *service) updateOpenOrder(ctx context.Context, slot string, updates map[string]any) error {
	order, err := s.repo.FindOpenOrder(ctx, slot)
	if err != nil {
		return orderLoadError(err, slot)
	}
	if err := s.repo.UpdateOrder(ctx, order.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update order")
	}
	return nil
}

func (s *service) ListPayments(ctx context.Context, orderID uuid.UUID) ([]types.PaymentRow, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if _, err := s.repo.FindOrder(ctx, orderID); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load order")
	}
	rows, err := s.repo.ListPayments(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list payments")
	}
	return toPaymentRows(rows), nil
}

func (s *service) CreateCompositePaymentMethod(ctx context.Context, methodIDs []uuid.UUID) (uuid.UUID, error) {
	method, err := s.composites.CompositePaymentMethod(ctx, methodIDs)
	if err != nil {
		return uuid.Nil, err
	}
	return method.ID, nil
}

// RecordPayment stores the order-level payment figures and upserts each allocation by its
// client reference, then returns every allocation of the order.
func (s *service) RecordPayment(ctx context.Context, slot string, req types.RecordPaymentRequest) ([]types.PaymentRow, error) {
	slot, err := canonicalSlot(slot)
	if err != nil {
		return nil, err
	}
	if err := validatePaymentRequest(req); err != nil {
		return nil, err
	}

	var rows []models.Payment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOpenOrder(ctx, slot)
		if err != nil {
			return orderLoadError(err, slot)
		}

		for _, alloc := range req.Allocations {
			existing, err := repo.FindPaymentByClientRef(ctx, order.ID, alloc.ClientRef)
			switch {
			case err == nil:
				if err := repo.UpdatePayment(ctx, existing.ID, map[string]any{
					"payment_method_id": alloc.MethodID,
					"amount":            alloc.Amount,
				}); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update payment")
				}
			case db.IsNotFound(err):
				if _, err := repo.CreatePayment(ctx, &models.Payment{
					OrderID:         order.ID,
					PaymentMethodID: alloc.MethodID,
					Amount:          alloc.Amount,
					ClientRef:       alloc.ClientRef,
				}); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "create payment")
				}
			default:
				return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load payment")
			}
		}

		updates := map[string]any{
			"paid_amount":      req.PaidAmount,
			"change_amount":    req.ChangeAmount,
			"remaining_amount": req.RemainingAmount,
		}
		if req.PaymentMethodID != uuid.Nil {
			updates["payment_method_id"] = req.PaymentMethodID
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update payment figures")
		}

		rows, err = repo.ListPayments(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list payments")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toPaymentRows(rows), nil
}

// UpdatePayment sets the amount of one recorded allocation. Zero is a valid amount: a tender
// cleared at the terminal keeps its row until the method is deleted.
func (s *service) UpdatePayment(ctx context.Context, paymentID uuid.UUID, amount decimal.Decimal) error {
	if paymentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	if amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment amount must not be negative").
			WithDetails(map[string]any{"amount": amount.String()})
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.FindPayment(ctx, paymentID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load payment")
		}
		order, err := repo.FindOrder(ctx, payment.OrderID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load order")
		}
		if order.Status != enums.OrderStatusOpen {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already finalized")
		}
		if payment.Amount.Equal(amount) {
			return nil
		}
		if err := repo.UpdatePayment(ctx, payment.ID, map[string]any{"amount": amount}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "update payment")
		}
		return nil
	})
}

// DeletePayment removes every allocation of methodID from the order. Deleting what is already
// gone succeeds.
func (s *service) DeletePayment(ctx context.Context, orderID, methodID uuid.UUID) error {
	if orderID == uuid.Nil || methodID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id and payment method id required")
	}
	if _, err := s.repo.DeletePaymentsByMethod(ctx, orderID, methodID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "delete payments")
	}
	return nil
}

// FinalizeOrder closes the open order of the slot once its payments cover the total. The slot
// is free for a new order afterwards.
func (s *service) FinalizeOrder(ctx context.Context, slot string) error {
	slot, err := canonicalSlot(slot)
	if err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOpenOrderWithItems(ctx, slot)
		if err != nil {
			return orderLoadError(err, slot)
		}
		payments, err := repo.ListPayments(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "list payments")
		}

		totals := pricing.ComputeTotals(toItems(order.Items), order.Discount, order.Surcharge)
		paid := decimal.Zero
		for _, payment := range payments {
			paid = paid.Add(payment.Amount)
		}
		if pricing.Round(paid).LessThan(pricing.Round(totals.Total)) {
			return pkgerrors.New(pkgerrors.CodeUnsettledBalance, "payments do not cover the order total").
				WithDetails(map[string]any{
					"total": pricing.Format(totals.Total),
					"paid":  pricing.Format(paid),
				})
		}

		finalizedAt := s.now().UTC()
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":       enums.OrderStatusFinalized,
			"finalized_at": finalizedAt,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "finalize order")
		}
		return nil
	})
}

// DeleteOrder discards the open order of the slot with its items and payments.
func (s *service) DeleteOrder(ctx context.Context, slot string) error {
	slot, err := canonicalSlot(slot)
	if err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOpenOrder(ctx, slot)
		if err != nil {
			return orderLoadError(err, slot)
		}
		if err := repo.DeleteOrder(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "delete order")
		}
		return nil
	})
}

// canonicalSlot validates a slot code and returns its canonical spelling, the order key.
func canonicalSlot(raw string) (string, error) {
	slot, err := types.ParseSlot(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid slot").
			WithDetails(map[string]any{"slot": raw})
	}
	return slot.Code(), nil
}

func validateItems(items []types.OrderItem) error {
	for idx, item := range items {
		switch {
		case item.ProductID == uuid.Nil:
			return itemError(idx, "product id required")
		case item.Quantity <= 0:
			return itemError(idx, "quantity must be positive")
		case item.UnitPrice.IsNegative():
			return itemError(idx, "unit price must not be negative")
		}
		for _, c := range item.Complements {
			if c.ComplementID == uuid.Nil || c.Quantity <= 0 || c.UnitPrice.IsNegative() {
				return itemError(idx, "invalid complement selection")
			}
		}
	}
	return nil
}

func itemError(idx int, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(map[string]any{"item_index": idx})
}

func validatePaymentRequest(req types.RecordPaymentRequest) error {
	if req.PaidAmount.IsNegative() || req.ChangeAmount.IsNegative() || req.RemainingAmount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment figures must not be negative")
	}
	for idx, alloc := range req.Allocations {
		if alloc.ClientRef == uuid.Nil || alloc.MethodID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "allocation requires client_ref and method_id").
				WithDetails(map[string]any{"allocation_index": idx})
		}
		if !alloc.Amount.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "allocation amount must be positive").
				WithDetails(map[string]any{"allocation_index": idx})
		}
	}
	return nil
}

func orderLoadError(err error, slot string) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no open order for slot").
			WithDetails(map[string]any{"slot": slot})
	}
	return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load order")
}
