// Package complements enforces per-category cardinality rules over complement choices.
package complements

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	pkgerrors "github.com/adoniasgoesw/filazero/pkg/errors"
	"github.com/adoniasgoesw/filazero/pkg/types"
)

// Selection maps complement id to chosen quantity within one category. Only positive entries
// are kept.
type Selection map[uuid.UUID]int

// Total is the selected quantity across every complement in the category.
func (s Selection) Total() int {
	total := 0
	for _, qty := range s {
		total += qty
	}
	return total
}

// Clone copies the selection.
func (s Selection) Clone() Selection {
	out := make(Selection, len(s))
	for id, qty := range s {
		if qty > 0 {
			out[id] = qty
		}
	}
	return out
}

// IDs returns the selected complement ids in a stable order.
func (s Selection) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s))
	for id, qty := range s {
		if qty > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// ToggleOrIncrement applies a tap on complementID. Exclusive categories switch the choice;
// others add one unit unless that would pass MaxSelectable.
func ToggleOrIncrement(rules types.ComplementCategory, current Selection, complementID uuid.UUID) (Selection, error) {
	if rules.Exclusive() {
		return Selection{complementID: 1}, nil
	}

	next := current.Clone()
	if !rules.Unbounded() && next.Total()+1 > rules.MaxSelectable {
		return current.Clone(), quantityExceeded(rules, next.Total()+1)
	}
	next[complementID]++
	return next, nil
}

// Decrement removes one unit of complementID, dropping the entry at zero. Zero is always a
// valid intermediate state.
func Decrement(_ types.ComplementCategory, current Selection, complementID uuid.UUID) Selection {
	next := current.Clone()
	if qty, ok := next[complementID]; ok {
		if qty <= 1 {
			delete(next, complementID)
		} else {
			next[complementID] = qty - 1
		}
	}
	return next
}

func quantityExceeded(rules types.ComplementCategory, attempted int) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeQuantityExceeded,
		fmt.Sprintf("%s allows at most %d selection(s)", rules.Name, rules.MaxSelectable)).
		WithDetails(map[string]any{
			"category_id": rules.ID.String(),
			"max":         rules.MaxSelectable,
			"attempted":   attempted,
		})
}
