package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adoniasgoesw/filazero/pkg/db"
	"github.com/adoniasgoesw/filazero/pkg/db/models"
	dbtypes "github.com/adoniasgoesw/filazero/pkg/db/types"
	pkgerrors "github.com/adoniasgoesw/filazero/pkg/errors"
	"github.com/adoniasgoesw/filazero/pkg/types"
)

// Repository reads the catalog tables with gorm.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{db: conn}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Product(ctx context.Context, id uuid.UUID) (*types.Product, error) {
	var row models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": id.String()})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load product")
	}
	product := toProduct(row)
	return &product, nil
}

// ComplementCategories lists a product's categories with their complements, both in display
// order.
func (r *Repository) ComplementCategories(ctx context.Context, productID uuid.UUID) ([]types.ComplementCategory, error) {
	var rows []models.ComplementCategory
	err := r.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC, name ASC") }).
		Where("product_id = ?", productID).
		Order("position ASC, name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load complement categories")
	}
	out := make([]types.ComplementCategory, 0, len(rows))
	for _, row := range rows {
		out = append(out, toCategory(row))
	}
	return out, nil
}

// PaymentMethods lists every payment method, composites included.
func (r *Repository) PaymentMethods(ctx context.Context) ([]types.PaymentMethod, error) {
	var rows []models.PaymentMethod
	if err := r.db.WithContext(ctx).Order("is_composite ASC, name ASC").Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load payment methods")
	}
	out := make([]types.PaymentMethod, 0, len(rows))
	for _, row := range rows {
		out = append(out, toPaymentMethod(row))
	}
	return out, nil
}

// CompositePaymentMethod returns the composite method standing for members, creating it on
// first use. Members must be active, non-composite methods; order and duplicates do not matter.
func (r *Repository) CompositePaymentMethod(ctx context.Context, members []uuid.UUID) (*types.PaymentMethod, error) {
	canonical := dbtypes.UUIDArray(members).Canonical()
	if len(canonical) < 2 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a composite payment method needs at least two methods")
	}
	key := canonical.Key()

	var existing models.PaymentMethod
	err := r.db.WithContext(ctx).Where("member_key = ?", key).First(&existing).Error
	if err == nil {
		method := toPaymentMethod(existing)
		return &method, nil
	}
	if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "find composite payment method")
	}

	var parts []models.PaymentMethod
	if err := r.db.WithContext(ctx).Where("id IN ?", []uuid.UUID(canonical)).Find(&parts).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load member payment methods")
	}
	if len(parts) != len(canonical) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment method not found")
	}
	names := make([]string, 0, len(parts))
	byID := make(map[uuid.UUID]models.PaymentMethod, len(parts))
	for _, part := range parts {
		if part.IsComposite || !part.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "composite members must be active single methods").
				WithDetails(map[string]any{"payment_method_id": part.ID.String()})
		}
		byID[part.ID] = part
	}
	for _, id := range canonical {
		names = append(names, byID[id].Name)
	}

	created := models.PaymentMethod{
		Name:        strings.Join(names, " + "),
		IsActive:    true,
		IsComposite: true,
		Members:     canonical,
		MemberKey:   &key,
	}
	if err := r.db.WithContext(ctx).Create(&created).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			// Another terminal created it first.
			return r.CompositePaymentMethod(ctx, members)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, fmt.Sprintf("create composite payment method %s", key))
	}
	method := toPaymentMethod(created)
	return &method, nil
}

func toProduct(row models.Product) types.Product {
	product := types.Product{
		ID:        row.ID,
		Name:      row.Name,
		UnitPrice: row.UnitPrice,
		Active:    row.IsActive,
	}
	if row.CategoryID != nil {
		product.CategoryID = *row.CategoryID
	}
	return product
}

func toCategory(row models.ComplementCategory) types.ComplementCategory {
	category := types.ComplementCategory{
		ID:            row.ID,
		ProductID:     row.ProductID,
		Name:          row.Name,
		Required:      row.Required,
		MaxSelectable: row.MaxSelectable,
		Items:         make([]types.ComplementItem, 0, len(row.Items)),
	}
	for _, item := range row.Items {
		category.Items = append(category.Items, types.ComplementItem{
			ID:         item.ID,
			CategoryID: item.CategoryID,
			Name:       item.Name,
			UnitPrice:  item.UnitPrice,
			Active:     item.IsActive,
		})
	}
	return category
}

func toPaymentMethod(row models.PaymentMethod) types.PaymentMethod {
	method := types.PaymentMethod{
		ID:        row.ID,
		Name:      row.Name,
		Active:    row.IsActive,
		Composite: row.IsComposite,
	}
	if len(row.Members) > 0 {
		method.Members = append([]uuid.UUID(nil), row.Members...)
	}
	return method
}
