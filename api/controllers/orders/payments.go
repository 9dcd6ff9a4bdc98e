package orders

import (
	"net/http"

	"github.com/adoniasgoesw/filazero/api/responses"
	"github.com/adoniasgoesw/filazero/api/validators"
	internalorders "github.com/adoniasgoesw/filazero/internal/orders"
	"github.com/adoniasgoesw/filazero/pkg/logger"
	"github.com/adoniasgoesw/filazero/pkg/types"
)

func ListPayments(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !serviceReady(svc, logg, w, r) {
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListPayments(r.Context(), orderID)
		if err != nil {
			responses.WriteError(logg.WithOrderID(r.Context(), orderID.String()), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// RecordPayment upserts the allocations of the request and returns every allocation of the
// order.
func RecordPayment(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !serviceReady(svc, logg, w, r) {
			return
		}
		slot, err := validators.ParseSlotParam(r, "slotId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload types.RecordPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithSlotID(r.Context(), slot)
		rows, err := svc.RecordPayment(ctx, slot, payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func UpdatePayment(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !serviceReady(svc, logg, w, r) {
			return
		}
		paymentID, err := validators.ParseUUIDParam(r, "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload types.AmountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.UpdatePayment(r.Context(), paymentID, payload.Amount); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

// DeletePaymentMethod removes every allocation of one method from an order.
func DeletePaymentMethod(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !serviceReady(svc, logg, w, r) {
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		methodID, err := validators.ParseUUIDParam(r, "methodId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeletePayment(r.Context(), orderID, methodID); err != nil {
			responses.WriteError(logg.WithOrderID(r.Context(), orderID.String()), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}
