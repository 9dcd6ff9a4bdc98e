package notify

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/adoniasgoesw/filazero/pkg/enums"
	"github.com/adoniasgoesw/filazero/pkg/logger"
)

func TestBusDeliversMatchingEvents(t *testing.T) {
	t.Parallel()

	bus := NewBus(logger.Nop())
	var all, payments []enums.OrderEventType
	bus.Subscribe(func(_ context.Context, e Event) { all = append(all, e.Type) })
	bus.Subscribe(func(_ context.Context, e Event) { payments = append(payments, e.Type) }, enums.OrderEventPaymentsChanged)

	order := uuid.New()
	bus.Publish(context.Background(), Event{Type: enums.OrderEventItemsChanged, Slot: "table-05", OrderID: order})
	bus.Publish(context.Background(), Event{Type: enums.OrderEventPaymentsChanged, Slot: "table-05", OrderID: order})

	if len(all) != 2 {
		t.Fatalf("expected both events for the catch-all subscriber, got %v", all)
	}
	if len(payments) != 1 || payments[0] != enums.OrderEventPaymentsChanged {
		t.Fatalf("expected only the payment event, got %v", payments)
	}
}

func TestBusUnsubscribe(t *testing.T) {
	t.Parallel()

	bus := NewBus(nil)
	calls := 0
	unsubscribe := bus.Subscribe(func(context.Context, Event) { calls++ })
	unsubscribe()
	unsubscribe()
	bus.Publish(context.Background(), Event{Type: enums.OrderEventDeleted})
	if calls != 0 || bus.Len() != 0 {
		t.Fatalf("unsubscribed handler was called %d times", calls)
	}
}

func TestBusRecoversFromPanickingHandler(t *testing.T) {
	t.Parallel()

	bus := NewBus(logger.Nop())
	delivered := false
	bus.Subscribe(func(context.Context, Event) { panic("boom") })
	bus.Subscribe(func(_ context.Context, e Event) {
		delivered = true
		if e.At.IsZero() {
			t.Errorf("publish should stamp the event time")
		}
	})

	bus.Publish(context.Background(), Event{Type: enums.OrderEventFinalized})
	if !delivered {
		t.Fatal("a panicking handler must not stop delivery")
	}
}
