package enums

import "fmt"

// OrderEventType names the notifications emitted while an order session evolves.
type OrderEventType string

const (
	OrderEventItemsChanged    OrderEventType = "order_items_changed"
	OrderEventPaymentsChanged OrderEventType = "order_payments_changed"
	OrderEventFinalized       OrderEventType = "order_finalized"
	OrderEventDeleted         OrderEventType = "order_deleted"
)

var validOrderEventTypes = []OrderEventType{
	OrderEventItemsChanged,
	OrderEventPaymentsChanged,
	OrderEventFinalized,
	OrderEventDeleted,
}

// String implements fmt.Stringer.
func (e OrderEventType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known OrderEventType.
func (e OrderEventType) IsValid() bool {
	for _, candidate := range validOrderEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOrderEventType converts raw input into an OrderEventType.
func ParseOrderEventType(value string) (OrderEventType, error) {
	for _, candidate := range validOrderEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order event type %q", value)
}
