// Package draft keeps the backend-confirmed lines of an order and the lines chosen in the
// current session apart, and reconciles them for display, pricing and commit.
package draft

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/adoniasgoesw/filazero/pkg/errors"
	"github.com/adoniasgoesw/filazero/pkg/types"
)

// DisplayItem is one row of the merged view: every line of a product, persisted and pending,
// under a single combined quantity. Lines stay individually addressable.
type DisplayItem struct {
	ProductID       uuid.UUID
	Name            string
	Quantity        int
	PendingQuantity int
	Amount          decimal.Decimal
	Lines           []LineEntry
}

// Store is the draft of one order session. It is not safe for concurrent use; the owning
// session serialises access.
type Store struct {
	persisted []types.OrderItem
	pending   []LineEntry
	counts    map[uuid.UUID]int
	nextSeq   uint64
	dirty     bool
	inflight  *flight
}

// flight tracks local mutations made while a materialized snapshot is being written.
type flight struct {
	seqs            map[uint64]struct{}
	persistedEdited bool
	removed         []types.OrderItem
}

// Snapshot is the materialized item list handed to the backend by a commit.
type Snapshot struct {
	Items  []types.OrderItem
	tail   []types.OrderItem
	flight *flight
}

// NewStore starts a draft from the backend's current items.
func NewStore(persisted []types.OrderItem) *Store {
	return &Store{
		persisted: nonEmpty(persisted),
		counts:    map[uuid.UUID]int{},
	}
}

// LoadPersisted replaces the persisted lines with a fresh backend read. Pending lines are kept.
// A read taken while a snapshot is being written may or may not include it, so it is ignored
// and false is returned; the commit outcome decides the persisted lines instead.
func (s *Store) LoadPersisted(items []types.OrderItem) bool {
	if s.inflight != nil {
		return false
	}
	s.persisted = nonEmpty(items)
	s.dirty = false
	return true
}

// InFlight reports a snapshot handed out by Begin and not yet committed or aborted.
func (s *Store) InFlight() bool {
	return s.inflight != nil
}

// AddPending appends one pending line per add. Each call is its own entry even when an
// identical configuration was added before.
func (s *Store) AddPending(product types.Product, complements []types.ComplementSelection, quantity int) error {
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if product.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product is required")
	}
	if !product.Active {
		return pkgerrors.New(pkgerrors.CodeValidation, "product is not available").
			WithDetails(map[string]any{"product_id": product.ID.String()})
	}
	for _, c := range complements {
		if c.Quantity < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "complement quantity must be at least 1")
		}
	}

	item := types.OrderItem{
		ProductID: product.ID,
		Name:      product.Name,
		Quantity:  quantity,
		UnitPrice: product.UnitPrice,
	}
	if len(complements) > 0 {
		item.Complements = append([]types.ComplementSelection(nil), complements...)
	}

	s.nextSeq++
	entry := PendingEntry(item)
	entry.seq = s.nextSeq
	s.pending = append(s.pending, entry)
	s.counts[product.ID] += quantity
	return nil
}

// PendingCount is the running pending quantity of a product, for badges.
func (s *Store) PendingCount(productID uuid.UUID) int {
	return s.counts[productID]
}

// PendingLen is the number of pending entries.
func (s *Store) PendingLen() int {
	return len(s.pending)
}

// HasUncommitted reports pending lines or local edits to persisted lines.
func (s *Store) HasUncommitted() bool {
	return len(s.pending) > 0 || s.dirty
}

// Entries lists persisted lines followed by pending lines in add order.
func (s *Store) Entries() []LineEntry {
	out := make([]LineEntry, 0, len(s.persisted)+len(s.pending))
	for _, item := range s.persisted {
		out = append(out, PersistedEntry(item))
	}
	for _, entry := range s.pending {
		entry.item = entry.item.Clone()
		out = append(out, entry)
	}
	return out
}

// Items is the pricing input: every persisted and pending line.
func (s *Store) Items() []types.OrderItem {
	out := types.CloneItems(s.persisted)
	for _, entry := range s.pending {
		out = append(out, entry.item.Clone())
	}
	return out
}

// PersistedDirty reports local edits to persisted lines not yet saved.
func (s *Store) PersistedDirty() bool {
	return s.dirty
}

// Persisted returns a copy of the confirmed lines.
func (s *Store) Persisted() []types.OrderItem {
	return types.CloneItems(s.persisted)
}

// MergedView groups lines by product in order of first appearance.
func (s *Store) MergedView() []DisplayItem {
	var out []DisplayItem
	index := map[uuid.UUID]int{}
	for _, entry := range s.Entries() {
		item := entry.item
		idx, ok := index[item.ProductID]
		if !ok {
			idx = len(out)
			index[item.ProductID] = idx
			out = append(out, DisplayItem{ProductID: item.ProductID, Name: item.Name, Amount: decimal.Zero})
		}
		row := &out[idx]
		row.Quantity += item.Quantity
		if entry.kind == Pending {
			row.PendingQuantity += item.Quantity
		}
		row.Amount = row.Amount.Add(item.LineAmount())
		row.Lines = append(row.Lines, entry)
	}
	return out
}

// RemoveOrDecrement takes one unit off the most recent pending line matching the combination,
// falling back to the last matching persisted line, which is deleted when it reaches zero.
func (s *Store) RemoveOrDecrement(productID uuid.UUID, sig Signature) error {
	for i := len(s.pending) - 1; i >= 0; i-- {
		if s.pending[i].item.ProductID == productID && Of(s.pending[i].item) == sig {
			s.decrementPending(i)
			return nil
		}
	}
	for i := len(s.persisted) - 1; i >= 0; i-- {
		if s.persisted[i].ProductID == productID && Of(s.persisted[i]) == sig {
			s.decrementPersisted(i)
			return nil
		}
	}
	return lineNotFound(productID)
}

// RemoveLast undoes the most recent add of a product: the newest pending entry first, then
// the last persisted line.
func (s *Store) RemoveLast(productID uuid.UUID) error {
	for i := len(s.pending) - 1; i >= 0; i-- {
		if s.pending[i].item.ProductID == productID {
			s.decrementPending(i)
			return nil
		}
	}
	for i := len(s.persisted) - 1; i >= 0; i-- {
		if s.persisted[i].ProductID == productID {
			s.decrementPersisted(i)
			return nil
		}
	}
	return lineNotFound(productID)
}

// Materialize is the commit payload for the current draft.
func (s *Store) Materialize() []types.OrderItem {
	return Materialize(s.persisted, s.pendingItems())
}

// Begin snapshots the draft for a commit. Mutations made before Commit or Abort are tracked
// and survive the commit.
func (s *Store) Begin() Snapshot {
	f := &flight{seqs: make(map[uint64]struct{}, len(s.pending))}
	for _, entry := range s.pending {
		f.seqs[entry.seq] = struct{}{}
	}
	s.inflight = f
	return Snapshot{
		Items:  s.Materialize(),
		tail:   aggregate(s.pendingItems()),
		flight: f,
	}
}

// Commit records that the snapshot was stored by the backend: its pending lines become
// persisted. Returns false for a snapshot that is no longer current.
func (s *Store) Commit(snap Snapshot) bool {
	if snap.flight == nil || snap.flight != s.inflight {
		return false
	}
	f := s.inflight
	s.inflight = nil

	persisted := append(types.CloneItems(s.persisted), types.CloneItems(snap.tail)...)
	for _, removed := range f.removed {
		persisted = decrementMatching(persisted, removed)
	}
	s.persisted = nonEmpty(persisted)

	kept := s.pending[:0]
	for _, entry := range s.pending {
		if _, ok := f.seqs[entry.seq]; !ok {
			kept = append(kept, entry)
		}
	}
	s.pending = kept
	s.rebuildCounts()
	s.dirty = f.persistedEdited || len(f.removed) > 0
	return true
}

// Abort drops the snapshot after a failed write. Nothing local is lost.
func (s *Store) Abort(snap Snapshot) {
	if snap.flight != nil && snap.flight == s.inflight {
		s.inflight = nil
	}
}

// Clear empties the draft once the order is finalized or deleted.
func (s *Store) Clear() {
	s.persisted = nil
	s.pending = nil
	s.counts = map[uuid.UUID]int{}
	s.dirty = false
	s.inflight = nil
}

func (s *Store) pendingItems() []types.OrderItem {
	out := make([]types.OrderItem, 0, len(s.pending))
	for _, entry := range s.pending {
		out = append(out, entry.item)
	}
	return out
}

func (s *Store) decrementPending(i int) {
	entry := &s.pending[i]
	if s.inflight != nil {
		if _, ok := s.inflight.seqs[entry.seq]; ok {
			one := entry.item.Clone()
			one.Quantity = 1
			s.inflight.removed = append(s.inflight.removed, one)
		}
	}
	s.counts[entry.item.ProductID]--
	if s.counts[entry.item.ProductID] <= 0 {
		delete(s.counts, entry.item.ProductID)
	}
	if entry.item.Quantity > 1 {
		entry.item.Quantity--
		return
	}
	s.pending = append(s.pending[:i], s.pending[i+1:]...)
}

func (s *Store) decrementPersisted(i int) {
	s.dirty = true
	if s.inflight != nil {
		s.inflight.persistedEdited = true
	}
	if s.persisted[i].Quantity > 1 {
		s.persisted[i].Quantity--
		return
	}
	s.persisted = append(s.persisted[:i], s.persisted[i+1:]...)
}

func (s *Store) rebuildCounts() {
	s.counts = make(map[uuid.UUID]int, len(s.pending))
	for _, entry := range s.pending {
		s.counts[entry.item.ProductID] += entry.item.Quantity
	}
}

// decrementMatching takes one unit off the last line equal in product, combination and price.
func decrementMatching(items []types.OrderItem, target types.OrderItem) []types.OrderItem {
	sig := Of(target)
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].ProductID != target.ProductID || Of(items[i]) != sig || !samePrice(items[i], target) {
			continue
		}
		if items[i].Quantity > 1 {
			items[i].Quantity--
			return items
		}
		return append(items[:i], items[i+1:]...)
	}
	return items
}

func nonEmpty(items []types.OrderItem) []types.OrderItem {
	out := make([]types.OrderItem, 0, len(items))
	for _, item := range items {
		if item.Quantity > 0 {
			out = append(out, item.Clone())
		}
	}
	return out
}

func lineNotFound(productID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "no line for product").
		WithDetails(map[string]any{"product_id": productID.String()})
}
