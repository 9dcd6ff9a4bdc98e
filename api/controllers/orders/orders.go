package orders

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/adoniasgoesw/filazero/api/responses"
	"github.com/adoniasgoesw/filazero/api/validators"
	internalorders "github.com/adoniasgoesw/filazero/internal/orders"
	pkgerrors "github.com/adoniasgoesw/filazero/pkg/errors"
	"github.com/adoniasgoesw/filazero/pkg/logger"
	"github.com/adoniasgoesw/filazero/pkg/types"
)

// Ensure returns the open order of the slot, creating it when the slot is free.
func Ensure(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !serviceReady(svc, logg, w, r) {
			return
		}
		slot, err := validators.ParseSlotParam(r, "slotId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithSlotID(r.Context(), slot)

		handle, err := svc.EnsureOrder(ctx, slot)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, handle)
	}
}

func Get(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !serviceReady(svc, logg, w, r) {
			return
		}
		slot, err := validators.ParseSlotParam(r, "slotId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		snapshot, err := svc.GetOrder(r.Context(), slot)
		if err != nil {
			responses.WriteError(logg.WithSlotID(r.Context(), slot), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

// Delete discards the open order of the slot.
func Delete(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return slotAction(svc, logg, "order deleted", func(ctx context.Context, slot string) error {
		return svc.DeleteOrder(ctx, slot)
	})
}

// Finalize closes the open order once its payments cover the total.
func Finalize(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return slotAction(svc, logg, "order finalized", func(ctx context.Context, slot string) error {
		return svc.FinalizeOrder(ctx, slot)
	})
}

func ReplaceItems(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !serviceReady(svc, logg, w, r) {
			return
		}
		slot, err := validators.ParseSlotParam(r, "slotId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload types.ReplaceItemsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithSlotID(r.Context(), slot)
		if err := svc.ReplaceItems(ctx, slot, payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

func SetDiscount(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return amountAction(svc, logg, func(ctx context.Context, slot string, amount decimal.Decimal) error {
		return svc.SetDiscount(ctx, slot, amount)
	})
}

func SetSurcharge(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return amountAction(svc, logg, func(ctx context.Context, slot string, amount decimal.Decimal) error {
		return svc.SetSurcharge(ctx, slot, amount)
	})
}

func SetClient(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !serviceReady(svc, logg, w, r) {
			return
		}
		slot, err := validators.ParseSlotParam(r, "slotId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload types.ClientRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.SetClient(r.Context(), slot, payload.ClientID); err != nil {
			responses.WriteError(logg.WithSlotID(r.Context(), slot), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

func slotAction(svc internalorders.Service, logg *logger.Logger, done string, action func(ctx context.Context, slot string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !serviceReady(svc, logg, w, r) {
			return
		}
		slot, err := validators.ParseSlotParam(r, "slotId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithSlotID(r.Context(), slot)
		if err := action(ctx, slot); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		logg.Info(ctx, done)
		responses.WriteSuccess(w, nil)
	}
}

func amountAction(svc internalorders.Service, logg *logger.Logger, action func(ctx context.Context, slot string, amount decimal.Decimal) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !serviceReady(svc, logg, w, r) {
			return
		}
		slot, err := validators.ParseSlotParam(r, "slotId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload types.AmountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := action(r.Context(), slot, payload.Amount); err != nil {
			responses.WriteError(logg.WithSlotID(r.Context(), slot), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

func serviceReady(svc internalorders.Service, logg *logger.Logger, w http.ResponseWriter, r *http.Request) bool {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
		return false
	}
	return true
}
