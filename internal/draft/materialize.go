package draft

import (
	"github.com/google/uuid"

	"github.com/adoniasgoesw/filazero/pkg/types"
)

// Materialize builds the authoritative item list sent to the backend: persisted lines first,
// untouched, followed by pending lines. Pending lines sharing product, complement combination
// and prices are folded into one line. The result depends only on its inputs, so sending it
// twice stores the same state twice.
func Materialize(persisted, pending []types.OrderItem) []types.OrderItem {
	out := make([]types.OrderItem, 0, len(persisted)+len(pending))
	for _, item := range persisted {
		if item.Quantity > 0 {
			out = append(out, item.Clone())
		}
	}
	return append(out, aggregate(pending)...)
}

type lineKey struct {
	productID uuid.UUID
	signature Signature
}

func aggregate(pending []types.OrderItem) []types.OrderItem {
	out := make([]types.OrderItem, 0, len(pending))
	buckets := make(map[lineKey][]int, len(pending))
	for _, item := range pending {
		if item.Quantity <= 0 {
			continue
		}
		key := lineKey{productID: item.ProductID, signature: Of(item)}
		merged := false
		for _, idx := range buckets[key] {
			if samePrice(out[idx], item) {
				out[idx].Quantity += item.Quantity
				merged = true
				break
			}
		}
		if merged {
			continue
		}
		buckets[key] = append(buckets[key], len(out))
		out = append(out, item.Clone())
	}
	return out
}

func samePrice(a, b types.OrderItem) bool {
	return a.UnitPrice.Equal(b.UnitPrice) && a.UnitAmount().Equal(b.UnitAmount())
}
