// Package notify delivers order session notifications to views that need to refresh.
package notify

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adoniasgoesw/filazero/pkg/enums"
	"github.com/adoniasgoesw/filazero/pkg/logger"
)

// Event describes one change to an order.
type Event struct {
	Type    enums.OrderEventType
	Slot    string
	OrderID uuid.UUID
	At      time.Time
}

// Handler receives events. Handlers run on the publisher's goroutine and must not block.
type Handler func(ctx context.Context, event Event)

type subscription struct {
	handler Handler
	types   map[enums.OrderEventType]struct{}
}

func (s subscription) wants(t enums.OrderEventType) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// Bus fans events out to subscribers. One bus belongs to one order session.
type Bus struct {
	logg *logger.Logger

	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]subscription
}

// NewBus builds a bus. A nil logger discards handler panics silently.
func NewBus(logg *logger.Logger) *Bus {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Bus{logg: logg, subs: map[uint64]subscription{}}
}

// Subscribe registers handler for the listed event types, or for every type when none are
// given. The returned func unsubscribes and is safe to call more than once.
func (b *Bus) Subscribe(handler Handler, types ...enums.OrderEventType) func() {
	if handler == nil {
		return func() {}
	}
	sub := subscription{handler: handler}
	if len(types) > 0 {
		sub.types = make(map[enums.OrderEventType]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers event to every matching subscriber in subscription order. A panicking
// handler is logged and does not stop delivery to the others.
func (b *Bus) Publish(ctx context.Context, event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	b.mu.RLock()
	ids := make([]uint64, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	subs := make(map[uint64]subscription, len(b.subs))
	for id, sub := range b.subs {
		subs[id] = sub
	}
	b.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		sub := subs[id]
		if !sub.wants(event.Type) {
			continue
		}
		b.deliver(ctx, sub.handler, event)
	}
}

// Len is the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) deliver(ctx context.Context, handler Handler, event Event) {
	defer func() {
		if rec := recover(); rec != nil {
			eventCtx := b.logg.WithField(ctx, "event_type", event.Type.String())
			b.logg.Error(eventCtx, "notification handler panicked", fmt.Errorf("panic: %v", rec))
		}
	}()
	handler(ctx, event)
}
