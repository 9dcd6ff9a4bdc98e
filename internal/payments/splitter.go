// Package payments splits an order total across payment methods and tracks what is paid,
// what remains and the change owed.
package payments

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/adoniasgoesw/filazero/pkg/errors"
	"github.com/adoniasgoesw/filazero/pkg/types"
)

// Allocation is one (method, amount) pair. LocalID addresses it on the terminal and doubles as
// the client reference the backend upserts on. Existing allocations mirror a backend row;
// Committed is the amount that row currently holds.
type Allocation struct {
	LocalID   uuid.UUID
	MethodID  uuid.UUID
	Amount    decimal.Decimal
	Existing  bool
	RowID     uuid.UUID
	Committed decimal.Decimal
}

// Dirty reports an existing allocation whose amount was edited locally.
func (a Allocation) Dirty() bool {
	return a.Existing && !a.Amount.Equal(a.Committed)
}

// Summary exposes both paid figures under distinct names: PaidTotal counts every tendered
// amount, change included, while SettledAmount is capped at the order total.
type Summary struct {
	Total         decimal.Decimal
	PaidTotal     decimal.Decimal
	SettledAmount decimal.Decimal
	Remaining     decimal.Decimal
	Change        decimal.Decimal
}

// Splitter holds the allocations of one payment session in insertion order.
type Splitter struct {
	total       decimal.Decimal
	allocations []Allocation
}

// NewSplitter starts an empty split for the given order total.
func NewSplitter(total decimal.Decimal) *Splitter {
	return &Splitter{total: clampZero(total)}
}

// SetTotal follows order total changes (discounts, new items).
func (s *Splitter) SetTotal(total decimal.Decimal) {
	s.total = clampZero(total)
}

func (s *Splitter) Total() decimal.Decimal {
	return s.total
}

// AddAllocation appends a zero-amount allocation for methodID.
func (s *Splitter) AddAllocation(methodID uuid.UUID) (Allocation, error) {
	if methodID == uuid.Nil {
		return Allocation{}, pkgerrors.New(pkgerrors.CodeValidation, "payment method is required")
	}
	alloc := Allocation{
		LocalID:   uuid.New(),
		MethodID:  methodID,
		Amount:    decimal.Zero,
		Committed: decimal.Zero,
	}
	s.allocations = append(s.allocations, alloc)
	return alloc, nil
}

// UpdateAmount sets an allocation's amount. Overpayment is allowed and shows up as change.
func (s *Splitter) UpdateAmount(localID uuid.UUID, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment amount must not be negative").
			WithDetails(map[string]any{"amount": amount.String()})
	}
	idx := s.index(localID)
	if idx < 0 {
		return allocationNotFound(localID)
	}
	s.allocations[idx].Amount = amount
	return nil
}

// RemoveAllocation drops an allocation and returns it. Backend rows are deleted per method, so
// other existing allocations of the same method lose their row and are recorded again on the
// next commit.
func (s *Splitter) RemoveAllocation(localID uuid.UUID) (Allocation, error) {
	idx := s.index(localID)
	if idx < 0 {
		return Allocation{}, allocationNotFound(localID)
	}
	removed := s.allocations[idx]
	s.allocations = append(s.allocations[:idx], s.allocations[idx+1:]...)

	if removed.Existing {
		for i := range s.allocations {
			if s.allocations[i].Existing && s.allocations[i].MethodID == removed.MethodID {
				s.allocations[i].Existing = false
				s.allocations[i].RowID = uuid.Nil
				s.allocations[i].Committed = decimal.Zero
			}
		}
	}
	return removed, nil
}

// PreloadExisting mirrors backend rows as existing allocations, replacing any previously
// preloaded ones. Allocations added in this session are kept after them.
func (s *Splitter) PreloadExisting(rows []types.PaymentRow) {
	loaded := make([]Allocation, 0, len(rows)+len(s.allocations))
	seen := make(map[uuid.UUID]struct{}, len(rows))
	for _, row := range rows {
		localID := row.ClientRef
		if localID == uuid.Nil {
			localID = row.ID
		}
		seen[localID] = struct{}{}
		loaded = append(loaded, Allocation{
			LocalID:   localID,
			MethodID:  row.MethodID,
			Amount:    row.Amount,
			Existing:  true,
			RowID:     row.ID,
			Committed: row.Amount,
		})
	}
	for _, alloc := range s.allocations {
		if alloc.Existing {
			continue
		}
		if _, ok := seen[alloc.LocalID]; ok {
			continue
		}
		loaded = append(loaded, alloc)
	}
	s.allocations = loaded
}

// MarkCommitted records that the backend now stores the allocation under rowID.
func (s *Splitter) MarkCommitted(localID, rowID uuid.UUID, amount decimal.Decimal) {
	idx := s.index(localID)
	if idx < 0 {
		return
	}
	s.allocations[idx].Existing = true
	s.allocations[idx].RowID = rowID
	s.allocations[idx].Committed = amount
}

// ForgetMethod marks every allocation of methodID as unrecorded after the backend dropped the
// method's rows. The next commit records them again.
func (s *Splitter) ForgetMethod(methodID uuid.UUID) {
	for i := range s.allocations {
		if s.allocations[i].MethodID == methodID {
			s.allocations[i].Existing = false
			s.allocations[i].RowID = uuid.Nil
			s.allocations[i].Committed = decimal.Zero
		}
	}
}

// Allocations returns a copy in insertion order.
func (s *Splitter) Allocations() []Allocation {
	out := make([]Allocation, len(s.allocations))
	copy(out, s.allocations)
	return out
}

// Get returns one allocation by local id.
func (s *Splitter) Get(localID uuid.UUID) (Allocation, bool) {
	idx := s.index(localID)
	if idx < 0 {
		return Allocation{}, false
	}
	return s.allocations[idx], true
}

// Unrecorded lists allocations with a positive amount that have no backend row yet.
func (s *Splitter) Unrecorded() []Allocation {
	var out []Allocation
	for _, alloc := range s.allocations {
		if !alloc.Existing && alloc.Amount.IsPositive() {
			out = append(out, alloc)
		}
	}
	return out
}

// Edited lists existing allocations whose amount differs from the backend row.
func (s *Splitter) Edited() []Allocation {
	var out []Allocation
	for _, alloc := range s.allocations {
		if alloc.Dirty() {
			out = append(out, alloc)
		}
	}
	return out
}

// HasUncommitted reports allocations the backend does not reflect yet.
func (s *Splitter) HasUncommitted() bool {
	return len(s.Unrecorded()) > 0 || len(s.Edited()) > 0
}

// MethodIDs lists the distinct methods carrying a positive amount, in first-use order.
func (s *Splitter) MethodIDs() []uuid.UUID {
	var out []uuid.UUID
	seen := map[uuid.UUID]struct{}{}
	for _, alloc := range s.allocations {
		if !alloc.Amount.IsPositive() {
			continue
		}
		if _, ok := seen[alloc.MethodID]; ok {
			continue
		}
		seen[alloc.MethodID] = struct{}{}
		out = append(out, alloc.MethodID)
	}
	return out
}

// PaidTotal is the sum of every allocation held.
func (s *Splitter) PaidTotal() decimal.Decimal {
	paid := decimal.Zero
	for _, alloc := range s.allocations {
		paid = paid.Add(alloc.Amount)
	}
	return paid
}

// CommittedTotal is the sum the backend holds for existing allocations.
func (s *Splitter) CommittedTotal() decimal.Decimal {
	paid := decimal.Zero
	for _, alloc := range s.allocations {
		if alloc.Existing {
			paid = paid.Add(alloc.Committed)
		}
	}
	return paid
}

// Remaining is max(0, total - paid).
func (s *Splitter) Remaining() decimal.Decimal {
	return Remaining(s.total, s.PaidTotal())
}

// Change is max(0, paid - total).
func (s *Splitter) Change() decimal.Decimal {
	return Change(s.total, s.PaidTotal())
}

// SettledAmount is min(paid, total): progress toward the order balance, change excluded.
func (s *Splitter) SettledAmount() decimal.Decimal {
	return Settled(s.total, s.PaidTotal())
}

// Summary computes every figure at once.
func (s *Splitter) Summary() Summary {
	paid := s.PaidTotal()
	return Summary{
		Total:         s.total,
		PaidTotal:     paid,
		SettledAmount: Settled(s.total, paid),
		Remaining:     Remaining(s.total, paid),
		Change:        Change(s.total, paid),
	}
}

// Remaining is max(0, total - paid).
func Remaining(total, paid decimal.Decimal) decimal.Decimal {
	return clampZero(total.Sub(paid))
}

// Change is max(0, paid - total).
func Change(total, paid decimal.Decimal) decimal.Decimal {
	return clampZero(paid.Sub(total))
}

// Settled is min(paid, total).
func Settled(total, paid decimal.Decimal) decimal.Decimal {
	return decimal.Min(clampZero(paid), clampZero(total))
}

func (s *Splitter) index(localID uuid.UUID) int {
	for i, alloc := range s.allocations {
		if alloc.LocalID == localID {
			return i
		}
	}
	return -1
}

func clampZero(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

func allocationNotFound(localID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "payment allocation not found").
		WithDetails(map[string]any{"allocation_id": localID.String()})
}
