package enums

import "fmt"

// OrderState tracks where an order sits in the composition/payment lifecycle.
type OrderState string

const (
	OrderStateDraft         OrderState = "draft"
	OrderStateSaved         OrderState = "saved"
	OrderStatePartiallyPaid OrderState = "partially_paid"
	OrderStateSettled       OrderState = "settled"
	OrderStateFinalized     OrderState = "finalized"
	OrderStateCancelled     OrderState = "cancelled"
)

var validOrderStates = []OrderState{
	OrderStateDraft,
	OrderStateSaved,
	OrderStatePartiallyPaid,
	OrderStateSettled,
	OrderStateFinalized,
	OrderStateCancelled,
}

// String implements fmt.Stringer.
func (s OrderState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderState.
func (s OrderState) IsValid() bool {
	for _, candidate := range validOrderStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s OrderState) IsTerminal() bool {
	return s == OrderStateFinalized || s == OrderStateCancelled
}

// ParseOrderState converts raw input into an OrderState.
func ParseOrderState(value string) (OrderState, error) {
	for _, candidate := range validOrderStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order state %q", value)
}
