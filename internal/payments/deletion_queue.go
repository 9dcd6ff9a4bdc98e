package payments

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/adoniasgoesw/filazero/pkg/logger"
)

const (
	defaultDeleteAttempts = 5
	defaultQueueCapacity  = 32
)

// Deleter removes every payment row of a method from an order.
type Deleter interface {
	DeletePayment(ctx context.Context, orderID, methodID uuid.UUID) error
}

// Deletion is a queued backend delete.
type Deletion struct {
	OrderID  uuid.UUID
	MethodID uuid.UUID
	Attempts int
	LastErr  error
}

// QueueParams configure a DeletionQueue.
type QueueParams struct {
	Deleter     Deleter
	Logger      *logger.Logger
	MaxAttempts int
	Capacity    int
	// OnDeleted runs after a delete is applied by the backend.
	OnDeleted func(orderID, methodID uuid.UUID)
}

// DeletionQueue retries backend payment deletions without blocking the operator. Entries are
// dropped, with an error log, after MaxAttempts failures or when the queue overflows.
type DeletionQueue struct {
	deleter     Deleter
	logg        *logger.Logger
	maxAttempts int
	capacity    int
	onDeleted   func(orderID, methodID uuid.UUID)

	flushMu  sync.Mutex
	mu       sync.Mutex
	items    []Deletion
	flushing []Deletion
}

// NewDeletionQueue builds a queue.
func NewDeletionQueue(params QueueParams) (*DeletionQueue, error) {
	if params.Deleter == nil {
		return nil, fmt.Errorf("deleter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	attempts := params.MaxAttempts
	if attempts <= 0 {
		attempts = defaultDeleteAttempts
	}
	capacity := params.Capacity
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}
	return &DeletionQueue{
		deleter:     params.Deleter,
		logg:        params.Logger,
		maxAttempts: attempts,
		capacity:    capacity,
		onDeleted:   params.OnDeleted,
	}, nil
}

// Enqueue schedules a delete. A delete already queued for the same order and method is kept
// once.
func (q *DeletionQueue) Enqueue(ctx context.Context, orderID, methodID uuid.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, item := range q.items {
		if item.OrderID == orderID && item.MethodID == methodID {
			return
		}
	}
	q.items = append(q.items, Deletion{OrderID: orderID, MethodID: methodID})
	q.trimLocked(ctx)
}

// Flush attempts every queued delete once. Failed entries stay queued until they run out of
// attempts. The returned error aggregates this round's failures and is meant for logging.
func (q *DeletionQueue) Flush(ctx context.Context) error {
	q.flushMu.Lock()
	defer q.flushMu.Unlock()

	q.mu.Lock()
	batch := q.items
	q.items = nil
	q.flushing = batch
	q.mu.Unlock()

	var errs error
	var retained []Deletion
	for _, item := range batch {
		itemCtx := q.logg.WithOrderID(ctx, item.OrderID.String())
		itemCtx = q.logg.WithField(itemCtx, "payment_method_id", item.MethodID.String())

		err := q.deleter.DeletePayment(ctx, item.OrderID, item.MethodID)
		if err == nil {
			q.logg.Info(itemCtx, "payment deletion applied")
			q.settle(item)
			if q.onDeleted != nil {
				q.onDeleted(item.OrderID, item.MethodID)
			}
			continue
		}

		item.Attempts++
		item.LastErr = err
		errs = multierr.Append(errs, fmt.Errorf("delete payment method %s on order %s: %w", item.MethodID, item.OrderID, err))
		itemCtx = q.logg.WithField(itemCtx, "attempts", item.Attempts)
		if item.Attempts >= q.maxAttempts {
			q.logg.Error(itemCtx, "payment deletion abandoned", err)
			continue
		}
		itemCtx = q.logg.WithField(itemCtx, "error", err.Error())
		q.logg.Warn(itemCtx, "payment deletion failed; will retry")
		retained = append(retained, item)
	}

	q.mu.Lock()
	q.items = append(retained, q.items...)
	q.flushing = nil
	q.trimLocked(ctx)
	q.mu.Unlock()

	return errs
}

// Len is the number of queued deletes.
func (q *DeletionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Queued reports whether a delete of methodID on orderID is still waiting, including one
// being attempted by a running Flush.
func (q *DeletionQueue) Queued(orderID, methodID uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, item := range q.items {
		if item.OrderID == orderID && item.MethodID == methodID {
			return true
		}
	}
	for _, item := range q.flushing {
		if item.OrderID == orderID && item.MethodID == methodID {
			return true
		}
	}
	return false
}

// Pending returns a copy of the queued deletes, oldest first.
func (q *DeletionQueue) Pending() []Deletion {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Deletion, len(q.items))
	copy(out, q.items)
	return out
}

// settle takes an applied delete out of the in-flight batch.
func (q *DeletionQueue) settle(done Deletion) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, item := range q.flushing {
		if item.OrderID == done.OrderID && item.MethodID == done.MethodID {
			q.flushing = append(q.flushing[:i:i], q.flushing[i+1:]...)
			return
		}
	}
}

func (q *DeletionQueue) trimLocked(ctx context.Context) {
	for len(q.items) > q.capacity {
		dropped := q.items[0]
		q.items = q.items[1:]
		dropCtx := q.logg.WithOrderID(ctx, dropped.OrderID.String())
		dropCtx = q.logg.WithField(dropCtx, "payment_method_id", dropped.MethodID.String())
		q.logg.Error(dropCtx, "payment deletion queue full; dropping oldest entry", dropped.LastErr)
	}
}
