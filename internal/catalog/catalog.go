// Package catalog exposes the read-only product, complement and payment-method registry the
// order engine prices against. The registry itself is maintained elsewhere.
package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/adoniasgoesw/filazero/pkg/types"
)

// Lookup is the catalog read surface consumed by the order engine.
type Lookup interface {
	Product(ctx context.Context, id uuid.UUID) (*types.Product, error)
	ComplementCategories(ctx context.Context, productID uuid.UUID) ([]types.ComplementCategory, error)
	PaymentMethods(ctx context.Context) ([]types.PaymentMethod, error)
}
