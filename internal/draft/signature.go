package draft

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"

	"github.com/google/uuid"

	"github.com/adoniasgoesw/filazero/pkg/types"
)

// Signature identifies an exact complement combination regardless of the order complements
// were picked in. The zero value is never produced; an empty combination has its own digest.
type Signature [sha256.Size]byte

// SignatureOf canonicalises the complement set (ids merged, sorted by id bytes) and hashes
// id and quantity pairs in binary form.
func SignatureOf(complements []types.ComplementSelection) Signature {
	merged := make(map[uuid.UUID]int, len(complements))
	for _, c := range complements {
		if c.Quantity > 0 {
			merged[c.ComplementID] += c.Quantity
		}
	}

	ids := make([]uuid.UUID, 0, len(merged))
	for id := range merged {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })

	h := sha256.New()
	var qty [8]byte
	for _, id := range ids {
		h.Write(id[:])
		binary.BigEndian.PutUint64(qty[:], uint64(merged[id]))
		h.Write(qty[:])
	}

	var sig Signature
	copy(sig[:], h.Sum(nil))
	return sig
}

// Of is the signature of an item's complements.
func Of(item types.OrderItem) Signature {
	return SignatureOf(item.Complements)
}

func (s Signature) String() string {
	return hex.EncodeToString(s[:8])
}
