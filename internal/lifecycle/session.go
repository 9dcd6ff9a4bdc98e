package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adoniasgoesw/filazero/internal/complements"
	"github.com/adoniasgoesw/filazero/internal/draft"
	"github.com/adoniasgoesw/filazero/internal/notify"
	"github.com/adoniasgoesw/filazero/internal/payments"
	"github.com/adoniasgoesw/filazero/internal/pricing"
	"github.com/adoniasgoesw/filazero/pkg/enums"
	pkgerrors "github.com/adoniasgoesw/filazero/pkg/errors"
	"github.com/adoniasgoesw/filazero/pkg/types"
)

// FinalizeOptions tune Finalize.
type FinalizeOptions struct {
	Print bool
}

// Session is one terminal editing one slot's order. Local edits never wait for an in-flight
// commit; commits of the same slot run one at a time.
type Session struct {
	c         *Controller
	slot      types.Slot
	orderID   uuid.UUID
	bus       *notify.Bus
	deletions *payments.DeletionQueue

	mu                 sync.Mutex
	draft              *draft.Store
	splitter           *payments.Splitter
	discount           pricing.Adjustment
	surcharge          pricing.Adjustment
	committedDiscount  decimal.Decimal
	committedSurcharge decimal.Decimal
	displayName        string
	committedName      string
	clientID           *uuid.UUID
	terminal           enums.OrderState
	gone               bool
}

func (s *Session) Slot() types.Slot    { return s.slot }
func (s *Session) OrderID() uuid.UUID  { return s.orderID }
func (s *Session) Events() *notify.Bus { return s.bus }

// Subscribe registers a handler on the session's notifications.
func (s *Session) Subscribe(handler notify.Handler, events ...enums.OrderEventType) func() {
	return s.bus.Subscribe(handler, events...)
}

// State derives the lifecycle state from local and committed data.
func (s *Session) State() enums.OrderState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Totals prices the merged persisted and pending lines.
func (s *Session) Totals() pricing.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalsLocked()
}

// MergedView is the display list, one row per product.
func (s *Session) MergedView() []draft.DisplayItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.MergedView()
}

// PendingCount is the badge counter for a product.
func (s *Session) PendingCount(productID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.PendingCount(productID)
}

// PaymentSummary reports paid, settled, remaining and change against the current total.
func (s *Session) PaymentSummary() payments.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalsLocked()
	return s.splitter.Summary()
}

// Allocations lists the payment allocations in entry order.
func (s *Session) Allocations() []payments.Allocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.splitter.Allocations()
}

func (s *Session) DisplayName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayName
}

func (s *Session) ClientID() *uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clientID == nil {
		return nil
	}
	id := *s.clientID
	return &id
}

// PendingDeletions is the number of payment deletions still waiting for the backend.
func (s *Session) PendingDeletions() int {
	return s.deletions.Len()
}

// ComplementForm starts complement selection for a product.
func (s *Session) ComplementForm(ctx context.Context, productID uuid.UUID) (*complements.Form, error) {
	var categories []types.ComplementCategory
	err := s.c.call(ctx, "load complements", func(callCtx context.Context) error {
		var err error
		categories, err = s.c.catalog.ComplementCategories(callCtx, productID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return complements.NewForm(categories), nil
}

// AddProduct validates complement choices and adds one pending line. Nothing is sent to the
// backend until the order is saved.
func (s *Session) AddProduct(ctx context.Context, productID uuid.UUID, selections map[uuid.UUID]complements.Selection, quantity int) Result {
	if res, blocked := s.guard(); blocked {
		return res
	}

	var (
		product    *types.Product
		categories []types.ComplementCategory
	)
	err := s.c.call(ctx, "load product", func(callCtx context.Context) error {
		var err error
		if product, err = s.c.catalog.Product(callCtx, productID); err != nil {
			return err
		}
		categories, err = s.c.catalog.ComplementCategories(callCtx, productID)
		return err
	})
	if err != nil {
		return failed(s.State(), "", err)
	}

	lines, err := complements.Build(categories, selections)
	if err != nil {
		return failed(s.State(), "", err)
	}

	s.mu.Lock()
	if err := s.guardLocked(); err != nil {
		s.mu.Unlock()
		return failed(s.State(), "", err)
	}
	err = s.draft.AddPending(*product, lines, quantity)
	state := s.stateLocked()
	s.mu.Unlock()
	if err != nil {
		return failed(state, "", err)
	}

	s.publish(ctx, enums.OrderEventItemsChanged)
	return ok(state)
}

// RemoveLast undoes the latest add of a product.
func (s *Session) RemoveLast(ctx context.Context, productID uuid.UUID) Result {
	return s.mutateItems(ctx, func() error { return s.draft.RemoveLast(productID) })
}

// RemoveLine takes one unit off the line with the given complement combination.
func (s *Session) RemoveLine(ctx context.Context, productID uuid.UUID, sig draft.Signature) Result {
	return s.mutateItems(ctx, func() error { return s.draft.RemoveOrDecrement(productID, sig) })
}

func (s *Session) mutateItems(ctx context.Context, fn func() error) Result {
	s.mu.Lock()
	if err := s.guardLocked(); err != nil {
		state := s.stateLocked()
		s.mu.Unlock()
		return failed(state, "", err)
	}
	err := fn()
	state := s.stateLocked()
	s.mu.Unlock()
	if err != nil {
		return failed(state, "", err)
	}
	s.publish(ctx, enums.OrderEventItemsChanged)
	return ok(state)
}

// SetDiscount records the operator's discount. Percentages follow the current subtotal.
func (s *Session) SetDiscount(value decimal.Decimal, isPercentage bool) Result {
	return s.setAdjustment(&s.discount, value, isPercentage)
}

// SetSurcharge records the operator's surcharge. Percentages follow the current subtotal.
func (s *Session) SetSurcharge(value decimal.Decimal, isPercentage bool) Result {
	return s.setAdjustment(&s.surcharge, value, isPercentage)
}

func (s *Session) setAdjustment(target *pricing.Adjustment, value decimal.Decimal, isPercentage bool) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(); err != nil {
		return failed(s.stateLocked(), "", err)
	}
	if _, err := pricing.ResolveAdjustment(value, isPercentage, decimal.Zero); err != nil {
		return failed(s.stateLocked(), "", err)
	}
	*target = pricing.Adjustment{Value: value, IsPercentage: isPercentage}
	return ok(s.stateLocked())
}

// SetDisplayName names the order locally; it is saved with the items.
func (s *Session) SetDisplayName(name string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(); err != nil {
		return failed(s.stateLocked(), "", err)
	}
	s.displayName = name
	return ok(s.stateLocked())
}

// SetClient links or unlinks a client and persists it right away.
func (s *Session) SetClient(ctx context.Context, clientID *uuid.UUID) Result {
	ctx = s.logContext(ctx)
	return s.withCommit(ctx, func(ctx context.Context) Result {
		err := s.runStep(ctx, StepClient, func(ctx context.Context) error {
			return s.c.call(ctx, "set client", func(callCtx context.Context) error {
				return s.c.orders.SetClient(callCtx, s.slot.Code(), clientID)
			})
		})
		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.markGoneLocked(err)
			return failed(s.stateLocked(), StepClient, err)
		}
		if clientID == nil {
			s.clientID = nil
		} else {
			id := *clientID
			s.clientID = &id
		}
		return ok(s.stateLocked())
	})
}

// AddAllocation adds a zero-amount allocation for an active payment method.
func (s *Session) AddAllocation(ctx context.Context, methodID uuid.UUID) (payments.Allocation, Result) {
	if res, blocked := s.guard(); blocked {
		return payments.Allocation{}, res
	}
	var methods []types.PaymentMethod
	err := s.c.call(ctx, "load payment methods", func(callCtx context.Context) error {
		var err error
		methods, err = s.c.catalog.PaymentMethods(callCtx)
		return err
	})
	if err != nil {
		return payments.Allocation{}, failed(s.State(), "", err)
	}
	if !activeMethod(methods, methodID) {
		err := pkgerrors.New(pkgerrors.CodeValidation, "payment method is not available").
			WithDetails(map[string]any{"payment_method_id": methodID.String()})
		return payments.Allocation{}, failed(s.State(), "", err)
	}

	s.mu.Lock()
	alloc, err := s.splitter.AddAllocation(methodID)
	state := s.stateLocked()
	s.mu.Unlock()
	if err != nil {
		return payments.Allocation{}, failed(state, "", err)
	}
	s.publish(ctx, enums.OrderEventPaymentsChanged)
	return alloc, ok(state)
}

// UpdateAllocation sets an allocation's amount locally.
func (s *Session) UpdateAllocation(ctx context.Context, localID uuid.UUID, amount decimal.Decimal) Result {
	s.mu.Lock()
	if err := s.guardLocked(); err != nil {
		state := s.stateLocked()
		s.mu.Unlock()
		return failed(state, "", err)
	}
	err := s.splitter.UpdateAmount(localID, amount)
	state := s.stateLocked()
	s.mu.Unlock()
	if err != nil {
		return failed(state, "", err)
	}
	s.publish(ctx, enums.OrderEventPaymentsChanged)
	return ok(state)
}

// RemoveAllocation drops an allocation immediately. When it mirrors a backend row the
// deletion is queued and attempted right away unless a commit holds the slot; a backend
// failure is logged and retried later, never reported as a failed removal.
func (s *Session) RemoveAllocation(ctx context.Context, localID uuid.UUID) Result {
	ctx = s.logContext(ctx)
	s.mu.Lock()
	if err := s.guardLocked(); err != nil {
		state := s.stateLocked()
		s.mu.Unlock()
		return failed(state, "", err)
	}
	removed, err := s.splitter.RemoveAllocation(localID)
	state := s.stateLocked()
	s.mu.Unlock()
	if err != nil {
		return failed(state, "", err)
	}

	if removed.Existing {
		s.deletions.Enqueue(ctx, s.orderID, removed.MethodID)
		s.tryFlushDeletions(ctx)
	}
	s.publish(ctx, enums.OrderEventPaymentsChanged)
	return ok(s.State())
}

// Refresh rereads the order. Local edits win over the backend copy until they are saved.
func (s *Session) Refresh(ctx context.Context) Result {
	if res, blocked := s.guard(); blocked {
		return res
	}
	if err := s.load(s.logContext(ctx)); err != nil {
		return failed(s.State(), StepLoad, err)
	}
	return ok(s.State())
}

// Save materializes pending lines and persists changed adjustments. On failure pending lines
// stay pending and the order stays a draft.
func (s *Session) Save(ctx context.Context) Result {
	ctx = s.logContext(ctx)
	return s.withCommit(ctx, func(ctx context.Context) Result {
		if err := s.materialize(ctx); err != nil {
			return failed(s.State(), StepMaterialize, err)
		}
		if err := s.persistAdjustments(ctx); err != nil {
			return failed(s.State(), StepAdjustments, err)
		}
		return ok(s.State())
	})
}

// OpenPayment saves outstanding work and loads the payments already recorded for the order.
func (s *Session) OpenPayment(ctx context.Context) Result {
	ctx = s.logContext(ctx)
	return s.withCommit(ctx, func(ctx context.Context) Result {
		if err := s.materialize(ctx); err != nil {
			return failed(s.State(), StepMaterialize, err)
		}
		if err := s.persistAdjustments(ctx); err != nil {
			return failed(s.State(), StepAdjustments, err)
		}
		if err := s.loadPayments(ctx); err != nil {
			return failed(s.State(), StepLoad, err)
		}
		return ok(s.State())
	})
}

// CommitPayments records the allocations. Pending lines and adjustments are saved first so a
// payment never lands on a stale item list.
func (s *Session) CommitPayments(ctx context.Context) Result {
	ctx = s.logContext(ctx)
	return s.withCommit(ctx, func(ctx context.Context) Result {
		s.flushDeletions(ctx)
		if err := s.materialize(ctx); err != nil {
			return failed(s.State(), StepMaterialize, err)
		}
		if err := s.persistAdjustments(ctx); err != nil {
			return failed(s.State(), StepAdjustments, err)
		}
		if err := s.persistPayments(ctx); err != nil {
			return failed(s.State(), StepPayments, err)
		}
		return ok(s.State())
	})
}

// Finalize closes a settled order: items, adjustments and payments are committed in that
// order before the order is marked finalized. An unpaid balance redirects to payment
// collection instead.
func (s *Session) Finalize(ctx context.Context, opts FinalizeOptions) Result {
	ctx = s.logContext(ctx)
	res := s.withCommit(ctx, func(ctx context.Context) Result {
		s.mu.Lock()
		s.totalsLocked()
		summary := s.splitter.Summary()
		state := s.stateLocked()
		s.mu.Unlock()
		// Settlement is judged at cents, as the backend does.
		remaining := payments.Remaining(pricing.Round(summary.Total), pricing.Round(summary.PaidTotal))
		if remaining.IsPositive() {
			err := pkgerrors.New(pkgerrors.CodeUnsettledBalance,
				fmt.Sprintf("%s still to be paid", pricing.Format(remaining))).
				WithDetails(map[string]any{"remaining": pricing.Format(remaining)})
			res := failed(state, StepFinalize, err)
			res.RedirectToPayment = true
			return res
		}

		s.flushDeletions(ctx)
		if err := s.materialize(ctx); err != nil {
			return failed(s.State(), StepMaterialize, err)
		}
		if err := s.persistAdjustments(ctx); err != nil {
			return failed(s.State(), StepAdjustments, err)
		}
		if err := s.persistPayments(ctx); err != nil {
			return failed(s.State(), StepPayments, err)
		}
		err := s.runStep(ctx, StepFinalize, func(ctx context.Context) error {
			return s.c.call(ctx, "finalize order", func(callCtx context.Context) error {
				return s.c.orders.FinalizeOrder(callCtx, s.slot.Code())
			})
		})
		if err != nil {
			s.mu.Lock()
			s.markGoneLocked(err)
			s.mu.Unlock()
			return failed(s.State(), StepFinalize, err)
		}
		return ok(enums.OrderStateFinalized)
	})
	if !res.OK {
		return res
	}

	s.mu.Lock()
	receipt := s.receiptLocked()
	s.terminal = enums.OrderStateFinalized
	s.draft.Clear()
	s.mu.Unlock()
	s.publish(ctx, enums.OrderEventFinalized)
	s.c.logg.Info(ctx, "order finalized")

	if opts.Print && s.c.printer != nil {
		if err := s.c.printer.Print(ctx, receipt); err != nil {
			s.c.logg.Error(ctx, "receipt print failed", err)
			res.PrintErr = err
		}
	}
	return res
}

// Cancel deletes the order and its items unconditionally.
func (s *Session) Cancel(ctx context.Context) Result {
	ctx = s.logContext(ctx)
	s.mu.Lock()
	if s.terminal != "" {
		state := s.terminal
		s.mu.Unlock()
		if state == enums.OrderStateCancelled {
			return ok(state)
		}
		return failed(state, StepCancel, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already finalized"))
	}
	s.mu.Unlock()

	res := s.withCommitUnguarded(ctx, func(ctx context.Context) Result {
		err := s.runStep(ctx, StepCancel, func(ctx context.Context) error {
			return s.c.call(ctx, "delete order", func(callCtx context.Context) error {
				return s.c.orders.DeleteOrder(callCtx, s.slot.Code())
			})
		})
		if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return failed(s.State(), StepCancel, err)
		}
		return ok(enums.OrderStateCancelled)
	})
	if !res.OK {
		return res
	}

	s.mu.Lock()
	s.terminal = enums.OrderStateCancelled
	s.draft.Clear()
	s.mu.Unlock()
	s.publish(ctx, enums.OrderEventDeleted)
	s.c.logg.Info(ctx, "order cancelled")
	return res
}

func (s *Session) materialize(ctx context.Context) error {
	s.mu.Lock()
	if !s.draft.HasUncommitted() && s.displayName == s.committedName {
		s.mu.Unlock()
		return nil
	}
	snap := s.draft.Begin()
	name := s.displayName
	s.mu.Unlock()

	err := s.runStep(ctx, StepMaterialize, func(ctx context.Context) error {
		return s.c.call(ctx, "save order items", func(callCtx context.Context) error {
			return s.c.orders.ReplaceItems(callCtx, s.slot.Code(), types.ReplaceItemsRequest{
				DisplayName: name,
				Items:       snap.Items,
			})
		})
	})

	s.mu.Lock()
	if err != nil {
		s.draft.Abort(snap)
		s.markGoneLocked(err)
		s.mu.Unlock()
		return err
	}
	s.draft.Commit(snap)
	s.committedName = name
	s.mu.Unlock()

	s.publish(ctx, enums.OrderEventItemsChanged)
	return nil
}

func (s *Session) persistAdjustments(ctx context.Context) error {
	s.mu.Lock()
	totals := s.totalsLocked()
	discount, surcharge := totals.Discount, totals.Surcharge
	discountChanged := !discount.Equal(s.committedDiscount)
	surchargeChanged := !surcharge.Equal(s.committedSurcharge)
	s.mu.Unlock()
	if !discountChanged && !surchargeChanged {
		return nil
	}

	err := s.runStep(ctx, StepAdjustments, func(ctx context.Context) error {
		if discountChanged {
			err := s.c.call(ctx, "save discount", func(callCtx context.Context) error {
				return s.c.orders.SetDiscount(callCtx, s.slot.Code(), discount)
			})
			if err != nil {
				return err
			}
			s.mu.Lock()
			s.committedDiscount = discount
			s.mu.Unlock()
		}
		if surchargeChanged {
			err := s.c.call(ctx, "save surcharge", func(callCtx context.Context) error {
				return s.c.orders.SetSurcharge(callCtx, s.slot.Code(), surcharge)
			})
			if err != nil {
				return err
			}
			s.mu.Lock()
			s.committedSurcharge = surcharge
			s.mu.Unlock()
		}
		return nil
	})
	if err != nil {
		s.mu.Lock()
		s.markGoneLocked(err)
		s.mu.Unlock()
	}
	return err
}

func (s *Session) persistPayments(ctx context.Context) error {
	s.mu.Lock()
	s.totalsLocked()
	unrecorded := s.splitter.Unrecorded()
	edited := s.splitter.Edited()
	methods := s.splitter.MethodIDs()
	summary := s.splitter.Summary()
	s.mu.Unlock()
	if len(unrecorded) == 0 && len(edited) == 0 {
		return nil
	}

	err := s.runStep(ctx, StepPayments, func(ctx context.Context) error {
		for _, alloc := range edited {
			amount := alloc.Amount
			err := s.c.call(ctx, "update payment", func(callCtx context.Context) error {
				return s.c.orders.UpdatePayment(callCtx, alloc.RowID, amount)
			})
			if err != nil {
				return err
			}
			s.mu.Lock()
			s.splitter.MarkCommitted(alloc.LocalID, alloc.RowID, amount)
			s.mu.Unlock()
		}
		if len(unrecorded) == 0 {
			return nil
		}

		methodID := methods[0]
		if len(methods) > 1 {
			err := s.c.call(ctx, "create composite payment method", func(callCtx context.Context) error {
				var err error
				methodID, err = s.c.orders.CreateCompositePaymentMethod(callCtx, methods)
				return err
			})
			if err != nil {
				return err
			}
		}

		req := types.RecordPaymentRequest{
			PaidAmount:      summary.SettledAmount,
			ChangeAmount:    summary.Change,
			RemainingAmount: summary.Remaining,
			PaymentMethodID: methodID,
			Allocations:     make([]types.PaymentAllocationInput, 0, len(unrecorded)),
		}
		for _, alloc := range unrecorded {
			req.Allocations = append(req.Allocations, types.PaymentAllocationInput{
				ClientRef: alloc.LocalID,
				MethodID:  alloc.MethodID,
				Amount:    alloc.Amount,
			})
		}

		var rows []types.PaymentRow
		err := s.c.call(ctx, "record payment", func(callCtx context.Context) error {
			var err error
			rows, err = s.c.orders.RecordPayment(callCtx, s.slot.Code(), req)
			return err
		})
		if err != nil {
			return err
		}
		s.mu.Lock()
		for _, row := range rows {
			s.splitter.MarkCommitted(row.ClientRef, row.ID, row.Amount)
		}
		s.mu.Unlock()
		return nil
	})
	if err != nil {
		s.mu.Lock()
		s.markGoneLocked(err)
		s.mu.Unlock()
		return err
	}
	s.publish(ctx, enums.OrderEventPaymentsChanged)
	return nil
}

func (s *Session) flushDeletions(ctx context.Context) {
	if s.deletions.Len() == 0 {
		return
	}
	if err := s.deletions.Flush(ctx); err != nil {
		s.c.logg.Warn(s.c.logg.WithField(ctx, "error", err.Error()), "payment deletions still pending")
	}
}

// tryFlushDeletions flushes only when the slot is free. A busy slot leaves the queue for the
// next payment commit.
func (s *Session) tryFlushDeletions(ctx context.Context) {
	release, acquired, err := s.c.lock.TryAcquire(ctx, s.slot.Code())
	if err != nil {
		s.c.logg.Warn(s.c.logg.WithField(ctx, "error", err.Error()), "commit lock unavailable; payment deletion stays queued")
		return
	}
	if !acquired {
		s.c.logg.Debug(ctx, "commit in flight; payment deletion stays queued")
		return
	}
	defer func() {
		if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
			s.c.logg.Error(ctx, "failed to release commit lock", relErr)
		}
	}()
	s.flushDeletions(ctx)
}

// paymentRowsDeleted runs when the backend dropped every row of a method; allocations of that
// method recorded meanwhile must be recorded again.
func (s *Session) paymentRowsDeleted(orderID, methodID uuid.UUID) {
	if orderID != s.orderID {
		return
	}
	s.mu.Lock()
	s.splitter.ForgetMethod(methodID)
	s.mu.Unlock()
}

func (s *Session) load(ctx context.Context) error {
	var snap *types.OrderSnapshot
	err := s.c.call(ctx, "load order", func(callCtx context.Context) error {
		var err error
		snap, err = s.c.orders.GetOrder(callCtx, s.slot.Code())
		return err
	})
	if err != nil {
		s.mu.Lock()
		s.markGoneLocked(err)
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	if !s.draft.PersistedDirty() {
		s.draft.LoadPersisted(snap.Items)
	}
	s.totalsLocked()
	if !s.adjustmentDirtyLocked(s.discount, s.committedDiscount) {
		s.discount = pricing.Adjustment{Value: snap.Discount}
	}
	if !s.adjustmentDirtyLocked(s.surcharge, s.committedSurcharge) {
		s.surcharge = pricing.Adjustment{Value: snap.Surcharge}
	}
	s.committedDiscount = snap.Discount
	s.committedSurcharge = snap.Surcharge
	if s.displayName == s.committedName {
		s.displayName = snap.DisplayName
	}
	s.committedName = snap.DisplayName
	s.clientID = snap.ClientID
	s.mu.Unlock()

	return s.loadPayments(ctx)
}

func (s *Session) loadPayments(ctx context.Context) error {
	var rows []types.PaymentRow
	err := s.c.call(ctx, "list payments", func(callCtx context.Context) error {
		var err error
		rows, err = s.c.orders.ListPayments(callCtx, s.orderID)
		return err
	})
	if err != nil {
		return err
	}
	// A removed tender whose delete is still queued must not come back from the backend copy.
	kept := make([]types.PaymentRow, 0, len(rows))
	for _, row := range rows {
		if !s.deletions.Queued(s.orderID, row.MethodID) {
			kept = append(kept, row)
		}
	}
	s.mu.Lock()
	if !s.splitter.HasUncommitted() {
		s.splitter.PreloadExisting(kept)
	}
	s.mu.Unlock()
	return nil
}

// withCommit waits for the slot's commit lock and runs fn while holding it.
func (s *Session) withCommit(ctx context.Context, fn func(context.Context) Result) Result {
	if res, blocked := s.guard(); blocked {
		return res
	}
	return s.withCommitUnguarded(ctx, func(ctx context.Context) Result {
		if res, blocked := s.guard(); blocked {
			return res
		}
		return fn(ctx)
	})
}

func (s *Session) withCommitUnguarded(ctx context.Context, fn func(context.Context) Result) Result {
	waitCtx, cancel := context.WithTimeout(ctx, s.c.lockWait)
	release, err := s.c.lock.Acquire(waitCtx, s.slot.Code())
	cancel()
	if err != nil {
		s.c.logg.Error(ctx, "commit lock unavailable", err)
		return failed(s.State(), "", pkgerrors.Wrap(pkgerrors.CodeConflict, err, "another save for this slot is still running"))
	}
	defer func() {
		if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
			s.c.logg.Error(ctx, "failed to release commit lock", relErr)
		}
	}()
	return fn(ctx)
}

func (s *Session) runStep(ctx context.Context, step Step, fn func(context.Context) error) error {
	stepCtx := s.c.logg.WithField(ctx, "step", string(step))
	s.c.logg.Debug(stepCtx, "commit step start")
	start := time.Now()
	err := fn(stepCtx)
	duration := time.Since(start)
	s.c.observe(step, duration, err)
	stepCtx = s.c.logg.WithField(stepCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.c.logg.Error(stepCtx, "commit step failed", err)
		return err
	}
	s.c.logg.Info(stepCtx, "commit step completed")
	return nil
}

func (s *Session) guard() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(); err != nil {
		return failed(s.stateLocked(), "", err), true
	}
	return Result{}, false
}

func (s *Session) guardLocked() error {
	if s.terminal != "" {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order is %s", s.terminal))
	}
	if s.gone {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order no longer exists")
	}
	return nil
}

func (s *Session) markGoneLocked(err error) {
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		s.gone = true
	}
}

// totalsLocked prices the draft and keeps the splitter's total in step with it.
func (s *Session) totalsLocked() pricing.Totals {
	items := s.draft.Items()
	subtotal := pricing.Subtotal(items)
	discount, _ := s.discount.Resolve(subtotal)
	surcharge, _ := s.surcharge.Resolve(subtotal)
	totals := pricing.ComputeTotals(items, discount, surcharge)
	s.splitter.SetTotal(totals.Total)
	return totals
}

func (s *Session) adjustmentDirtyLocked(adj pricing.Adjustment, committed decimal.Decimal) bool {
	amount, _ := adj.Resolve(pricing.Subtotal(s.draft.Items()))
	return !amount.Equal(committed)
}

func (s *Session) uncommittedLocked() bool {
	if s.draft.HasUncommitted() || s.displayName != s.committedName {
		return true
	}
	totals := s.totalsLocked()
	return !totals.Discount.Equal(s.committedDiscount) || !totals.Surcharge.Equal(s.committedSurcharge)
}

// stateLocked derives the state: terminal states stick; without a committed payment the order
// is a draft until its composition is saved; after that committed payments decide.
func (s *Session) stateLocked() enums.OrderState {
	if s.terminal != "" {
		return s.terminal
	}
	totals := s.totalsLocked()
	committed := s.splitter.CommittedTotal()
	if !committed.IsPositive() {
		if s.uncommittedLocked() || len(s.draft.Persisted()) == 0 {
			return enums.OrderStateDraft
		}
		return enums.OrderStateSaved
	}
	if pricing.Round(committed).GreaterThanOrEqual(pricing.Round(totals.Total)) {
		return enums.OrderStateSettled
	}
	return enums.OrderStatePartiallyPaid
}

func (s *Session) receiptLocked() Receipt {
	totals := s.totalsLocked()
	return Receipt{
		Slot:        s.slot.Code(),
		OrderID:     s.orderID,
		DisplayName: s.displayName,
		Items:       s.draft.Items(),
		Totals:      totals,
		Payments:    s.splitter.Summary(),
		FinalizedAt: time.Now().UTC(),
	}
}

func (s *Session) publish(ctx context.Context, event enums.OrderEventType) {
	s.bus.Publish(ctx, notify.Event{Type: event, Slot: s.slot.Code(), OrderID: s.orderID})
}

func (s *Session) logContext(ctx context.Context) context.Context {
	ctx = s.c.logg.WithSlotID(ctx, s.slot.Code())
	return s.c.logg.WithOrderID(ctx, s.orderID.String())
}

func activeMethod(methods []types.PaymentMethod, id uuid.UUID) bool {
	for _, method := range methods {
		if method.ID == id {
			return method.Active
		}
	}
	return false
}
