package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adoniasgoesw/filazero/internal/payments"
	"github.com/adoniasgoesw/filazero/internal/pricing"
	"github.com/adoniasgoesw/filazero/pkg/types"
)

// OrderAPI is the order persistence backend. Writes describe desired end state, so repeating
// a call after a failure is safe.
type OrderAPI interface {
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

// Metrics records commit step outcomes.
type Metrics interface {
	ObserveDuration(step string, duration time.Duration)
	IncSuccess(step string)
	IncFailure(step string)
}

// Receipt is what a printer receives after an order is finalized.
type Receipt struct {
	Slot        string
	OrderID     uuid.UUID
	DisplayName string
	Items       []types.OrderItem
	Totals      pricing.Totals
	Payments    payments.Summary
	FinalizedAt time.Time
}

// ReceiptPrinter renders receipts. Rendering itself lives outside this package.
type ReceiptPrinter interface {
	Print(ctx context.Context, receipt Receipt) error
}

// timeoutDeleter bounds each queued payment deletion like any other backend call.
type timeoutDeleter struct {
	api     OrderAPI
	timeout time.Duration
}

func (d timeoutDeleter) DeletePayment(ctx context.Context, orderID, methodID uuid.UUID) error {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.api.DeletePayment(callCtx, orderID, methodID)
}
