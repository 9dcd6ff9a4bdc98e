package draft

import "github.com/adoniasgoesw/filazero/pkg/types"

// EntryKind tags where a line entry came from.
type EntryKind int

const (
	// Persisted lines are confirmed by the backend.
	Persisted EntryKind = iota + 1
	// Pending lines were chosen in this session and not yet saved.
	Pending
)

func (k EntryKind) String() string {
	switch k {
	case Persisted:
		return "persisted"
	case Pending:
		return "pending"
	default:
		return "unknown"
	}
}

// LineEntry is one addressable order line, either Persisted or Pending.
type LineEntry struct {
	kind EntryKind
	seq  uint64
	item types.OrderItem
}

// PersistedEntry wraps a backend-confirmed item.
func PersistedEntry(item types.OrderItem) LineEntry {
	return LineEntry{kind: Persisted, item: item.Clone()}
}

// PendingEntry wraps a session-local item.
func PendingEntry(item types.OrderItem) LineEntry {
	return LineEntry{kind: Pending, item: item.Clone()}
}

func (e LineEntry) Kind() EntryKind       { return e.kind }
func (e LineEntry) Item() types.OrderItem { return e.item.Clone() }
func (e LineEntry) Signature() Signature  { return Of(e.item) }
func (e LineEntry) IsPending() bool       { return e.kind == Pending }
func (e LineEntry) Quantity() int         { return e.item.Quantity }
