package complements

import (
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/adoniasgoesw/filazero/pkg/errors"
	"github.com/adoniasgoesw/filazero/pkg/types"
)

// CategoryError is a rule violation scoped to one complement category.
type CategoryError struct {
	CategoryID   uuid.UUID
	CategoryName string
	Code         pkgerrors.Code
	Selected     int
	Max          int
}

func (e CategoryError) Error() string {
	switch e.Code {
	case pkgerrors.CodeMissingRequired:
		return fmt.Sprintf("%s: choose at least one option", e.CategoryName)
	case pkgerrors.CodeQuantityExceeded:
		return fmt.Sprintf("%s: %d selected, at most %d allowed", e.CategoryName, e.Selected, e.Max)
	default:
		return fmt.Sprintf("%s: %s", e.CategoryName, e.Code)
	}
}

// ValidateForCommit checks every category against its rules. The product can be added only
// when the returned list is empty.
func ValidateForCommit(categories []types.ComplementCategory, selections map[uuid.UUID]Selection) []CategoryError {
	var errs []CategoryError
	for _, category := range categories {
		selected := selections[category.ID].Total()
		if category.Required && selected < 1 {
			errs = append(errs, CategoryError{
				CategoryID:   category.ID,
				CategoryName: category.Name,
				Code:         pkgerrors.CodeMissingRequired,
				Selected:     selected,
				Max:          category.MaxSelectable,
			})
		}
		if !category.Unbounded() && selected > category.MaxSelectable {
			errs = append(errs, CategoryError{
				CategoryID:   category.ID,
				CategoryName: category.Name,
				Code:         pkgerrors.CodeQuantityExceeded,
				Selected:     selected,
				Max:          category.MaxSelectable,
			})
		}
	}
	return errs
}

// AsError folds category errors into a single typed error, or nil when there are none. The
// code is MissingRequired when any category lacks a choice.
func AsError(errs []CategoryError) error {
	if len(errs) == 0 {
		return nil
	}
	code := errs[0].Code
	details := make([]map[string]any, 0, len(errs))
	for _, e := range errs {
		if e.Code == pkgerrors.CodeMissingRequired {
			code = pkgerrors.CodeMissingRequired
		}
		details = append(details, map[string]any{
			"category_id": e.CategoryID.String(),
			"code":        e.Code,
			"message":     e.Error(),
		})
	}
	return pkgerrors.New(code, errs[0].Error()).WithDetails(details)
}

// Build validates selections and snapshots them into order-line complements in category order.
// Unknown or inactive complements are rejected.
func Build(categories []types.ComplementCategory, selections map[uuid.UUID]Selection) ([]types.ComplementSelection, error) {
	known := make(map[uuid.UUID]struct{}, len(categories))
	for _, category := range categories {
		known[category.ID] = struct{}{}
	}
	for categoryID, selection := range selections {
		if _, ok := known[categoryID]; !ok && selection.Total() > 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "complement category does not belong to product").
				WithDetails(map[string]any{"category_id": categoryID.String()})
		}
	}

	if err := AsError(ValidateForCommit(categories, selections)); err != nil {
		return nil, err
	}

	var out []types.ComplementSelection
	for _, category := range categories {
		selection := selections[category.ID]
		for _, id := range selection.IDs() {
			item, ok := category.Item(id)
			if !ok || !item.Active {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "complement is not available").
					WithDetails(map[string]any{"category_id": category.ID.String(), "complement_id": id.String()})
			}
			out = append(out, types.ComplementSelection{
				ComplementID: item.ID,
				CategoryID:   category.ID,
				Name:         item.Name,
				UnitPrice:    item.UnitPrice,
				Quantity:     selection[id],
			})
		}
	}
	return out, nil
}
