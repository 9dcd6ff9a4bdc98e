package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adoniasgoesw/filazero/pkg/enums"
)

// OrderHandle identifies the open order of a slot.
type OrderHandle struct {
	ID        uuid.UUID         `json:"id"`
	Slot      string            `json:"slot"`
	Status    enums.OrderStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

// OrderSnapshot is the backend's view of an order. Discount and surcharge are resolved amounts;
// the percentage an operator may have typed is not stored.
type OrderSnapshot struct {
	ID              uuid.UUID         `json:"id"`
	Slot            string            `json:"slot"`
	Status          enums.OrderStatus `json:"status"`
	DisplayName     string            `json:"display_name,omitempty"`
	ClientID        *uuid.UUID        `json:"client_id,omitempty"`
	Items           []OrderItem       `json:"items"`
	Discount        decimal.Decimal   `json:"discount"`
	Surcharge       decimal.Decimal   `json:"surcharge"`
	PaidAmount      decimal.Decimal   `json:"paid_amount"`
	ChangeAmount    decimal.Decimal   `json:"change_amount"`
	RemainingAmount decimal.Decimal   `json:"remaining_amount"`
	PaymentMethodID *uuid.UUID        `json:"payment_method_id,omitempty"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// ReplaceItemsRequest is the full desired item list of an order.
type ReplaceItemsRequest struct {
	DisplayName string      `json:"display_name"`
	Items       []OrderItem `json:"items" validate:"dive"`
}

// PaymentRow is one persisted payment allocation. ClientRef is the id the terminal assigned
// to the allocation and makes recording idempotent.
type PaymentRow struct {
	ID        uuid.UUID       `json:"id"`
	OrderID   uuid.UUID       `json:"order_id"`
	MethodID  uuid.UUID       `json:"method_id"`
	Amount    decimal.Decimal `json:"amount"`
	ClientRef uuid.UUID       `json:"client_ref"`
	CreatedAt time.Time       `json:"created_at"`
}

// PaymentAllocationInput is a new allocation sent with RecordPaymentRequest.
type PaymentAllocationInput struct {
	ClientRef uuid.UUID       `json:"client_ref" validate:"required"`
	MethodID  uuid.UUID       `json:"method_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount" validate:"money"`
}

// RecordPaymentRequest carries the order-level payment figures and the allocations added
// since the last commit.
type RecordPaymentRequest struct {
	PaidAmount      decimal.Decimal          `json:"paid_amount" validate:"money"`
	ChangeAmount    decimal.Decimal          `json:"change_amount" validate:"money"`
	RemainingAmount decimal.Decimal          `json:"remaining_amount" validate:"money"`
	PaymentMethodID uuid.UUID                `json:"payment_method_id"`
	Allocations     []PaymentAllocationInput `json:"allocations" validate:"dive"`
}

// AmountRequest carries a single resolved amount (discount, surcharge, payment amount).
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// ClientRequest links or unlinks (nil) a client.
type ClientRequest struct {
	ClientID *uuid.UUID `json:"client_id"`
}

// CompositeMethodRequest lists the methods a composite payment method stands for.
type CompositeMethodRequest struct {
	MethodIDs []uuid.UUID `json:"method_ids" validate:"required,min=2,dive,required"`
}
