package types

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/adoniasgoesw/filazero/pkg/enums"
)

// Slot is a physical or logical service point (table, counter, tab).
type Slot struct {
	Kind   enums.SlotKind
	Number int
}

// ParseSlot accepts codes such as "table-05", "counter-2" or "TAB-17".
func ParseSlot(raw string) (Slot, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	idx := strings.LastIndex(value, "-")
	if idx <= 0 || idx == len(value)-1 {
		return Slot{}, fmt.Errorf("invalid slot %q: expected <kind>-<number>", raw)
	}
	kind, err := enums.ParseSlotKind(value[:idx])
	if err != nil {
		return Slot{}, fmt.Errorf("invalid slot %q: %w", raw, err)
	}
	number, err := strconv.Atoi(value[idx+1:])
	if err != nil || number <= 0 {
		return Slot{}, fmt.Errorf("invalid slot %q: number must be a positive integer", raw)
	}
	return Slot{Kind: kind, Number: number}, nil
}

// Code is the canonical slot identifier used as the order key.
func (s Slot) Code() string {
	return fmt.Sprintf("%s-%02d", s.Kind, s.Number)
}

func (s Slot) String() string {
	return s.Code()
}
