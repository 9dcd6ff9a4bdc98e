package enums

import "fmt"

// SlotKind identifies the kind of service point an order is attached to.
type SlotKind string

const (
	SlotKindTable   SlotKind = "table"
	SlotKindCounter SlotKind = "counter"
	SlotKindTab     SlotKind = "tab"
)

var validSlotKinds = []SlotKind{
	SlotKindTable,
	SlotKindCounter,
	SlotKindTab,
}

// String implements fmt.Stringer.
func (k SlotKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known SlotKind.
func (k SlotKind) IsValid() bool {
	for _, candidate := range validSlotKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseSlotKind converts raw input into a SlotKind.
func ParseSlotKind(value string) (SlotKind, error) {
	for _, candidate := range validSlotKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid slot kind %q", value)
}
