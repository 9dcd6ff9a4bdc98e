// Package lifecycle drives an order from composition through payment to finalization or
// cancellation, and commits local work to the persistence backend in a fixed order.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/adoniasgoesw/filazero/internal/catalog"
	"github.com/adoniasgoesw/filazero/internal/draft"
	"github.com/adoniasgoesw/filazero/internal/notify"
	"github.com/adoniasgoesw/filazero/internal/payments"
	"github.com/adoniasgoesw/filazero/pkg/enums"
	pkgerrors "github.com/adoniasgoesw/filazero/pkg/errors"
	"github.com/adoniasgoesw/filazero/pkg/logger"
	"github.com/adoniasgoesw/filazero/pkg/types"
)

const (
	defaultTimeout  = 20 * time.Second
	defaultLockWait = 30 * time.Second
)

// Params configure a Controller.
type Params struct {
	Orders     OrderAPI
	Catalog    catalog.Lookup
	Lock       CommitLock
	Logger     *logger.Logger
	Metrics    Metrics
	Printer    ReceiptPrinter
	TerminalID string

	// Timeout bounds every backend call.
	Timeout  time.Duration
	LockWait time.Duration

	DeleteAttempts      int
	DeleteQueueCapacity int
}

// Controller opens order sessions for slots. Sessions opened by one controller share its
// commit lock.
type Controller struct {
	orders     OrderAPI
	catalog    catalog.Lookup
	lock       CommitLock
	logg       *logger.Logger
	metrics    Metrics
	printer    ReceiptPrinter
	terminalID string
	timeout    time.Duration
	lockWait   time.Duration

	deleteAttempts int
	deleteCapacity int
}

// NewController validates dependencies and applies defaults.
func NewController(params Params) (*Controller, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("order api required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog lookup required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	lock := params.Lock
	if lock == nil {
		lock = NewLocalCommitLock()
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	lockWait := params.LockWait
	if lockWait <= 0 {
		lockWait = defaultLockWait
	}
	return &Controller{
		orders:         params.Orders,
		catalog:        params.Catalog,
		lock:           lock,
		logg:           params.Logger,
		metrics:        params.Metrics,
		printer:        params.Printer,
		terminalID:     params.TerminalID,
		timeout:        timeout,
		lockWait:       lockWait,
		deleteAttempts: params.DeleteAttempts,
		deleteCapacity: params.DeleteQueueCapacity,
	}, nil
}

// Open ensures the slot has an order and loads it into a new session.
func (c *Controller) Open(ctx context.Context, slot types.Slot) (*Session, Result) {
	if _, err := types.ParseSlot(slot.Code()); err != nil {
		return nil, failed(enums.OrderStateDraft, StepLoad, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid slot"))
	}
	ctx = c.logg.WithSlotID(ctx, slot.Code())
	if c.terminalID != "" {
		ctx = c.logg.WithTerminalID(ctx, c.terminalID)
	}

	var handle *types.OrderHandle
	err := c.call(ctx, "ensure order", func(callCtx context.Context) error {
		var err error
		handle, err = c.orders.EnsureOrder(callCtx, slot.Code())
		return err
	})
	if err != nil {
		c.logg.Error(ctx, "open order failed", err)
		return nil, failed(enums.OrderStateDraft, StepLoad, err)
	}

	s := &Session{
		c:        c,
		slot:     slot,
		orderID:  handle.ID,
		bus:      notify.NewBus(c.logg),
		draft:    draft.NewStore(nil),
		splitter: payments.NewSplitter(decimal.Zero),
	}
	queue, err := payments.NewDeletionQueue(payments.QueueParams{
		Deleter:     timeoutDeleter{api: c.orders, timeout: c.timeout},
		Logger:      c.logg,
		MaxAttempts: c.deleteAttempts,
		Capacity:    c.deleteCapacity,
		OnDeleted:   s.paymentRowsDeleted,
	})
	if err != nil {
		return nil, failed(enums.OrderStateDraft, StepLoad, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build deletion queue"))
	}
	s.deletions = queue

	if err := s.load(s.logContext(ctx)); err != nil {
		return nil, failed(enums.OrderStateDraft, StepLoad, err)
	}
	c.logg.Info(s.logContext(ctx), "order session opened")
	return s, ok(s.State())
}

// call runs one backend call under the configured timeout and classifies its failure.
func (c *Controller) call(ctx context.Context, what string, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := fn(callCtx); err != nil {
		return backendError(err, what)
	}
	return nil
}

func (c *Controller) observe(step Step, duration time.Duration, err error) {
	if c.metrics == nil {
		return
	}
	c.metrics.ObserveDuration(string(step), duration)
	if err != nil {
		c.metrics.IncFailure(string(step))
		return
	}
	c.metrics.IncSuccess(string(step))
}

// backendError maps any backend failure to PersistenceFailure, except a vanished order which
// stays NotFound.
func backendError(err error, what string) error {
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, what+": order no longer exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodePersistence, err, what+" failed")
}
