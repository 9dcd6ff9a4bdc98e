package complements

import (
	"github.com/google/uuid"

	pkgerrors "github.com/adoniasgoesw/filazero/pkg/errors"
	"github.com/adoniasgoesw/filazero/pkg/types"
)

// Form holds complement choices for one product while the operator configures it. Errors are
// kept per category so a rejected tap in one category never blocks another.
type Form struct {
	categories []types.ComplementCategory
	byID       map[uuid.UUID]types.ComplementCategory
	selections map[uuid.UUID]Selection
	inline     map[uuid.UUID]error
}

// NewForm starts an empty form for the product's complement categories.
func NewForm(categories []types.ComplementCategory) *Form {
	byID := make(map[uuid.UUID]types.ComplementCategory, len(categories))
	for _, category := range categories {
		byID[category.ID] = category
	}
	return &Form{
		categories: categories,
		byID:       byID,
		selections: map[uuid.UUID]Selection{},
		inline:     map[uuid.UUID]error{},
	}
}

// Tap selects or increments a complement.
func (f *Form) Tap(categoryID, complementID uuid.UUID) error {
	category, ok := f.byID[categoryID]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown complement category")
	}
	if _, ok := category.Item(complementID); !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown complement")
	}
	next, err := ToggleOrIncrement(category, f.selections[categoryID], complementID)
	f.selections[categoryID] = next
	if err != nil {
		f.inline[categoryID] = err
		return err
	}
	delete(f.inline, categoryID)
	return nil
}

// Untap removes one unit of a complement.
func (f *Form) Untap(categoryID, complementID uuid.UUID) {
	category, ok := f.byID[categoryID]
	if !ok {
		return
	}
	f.selections[categoryID] = Decrement(category, f.selections[categoryID], complementID)
	delete(f.inline, categoryID)
}

// Selection returns a copy of the current choice in a category.
func (f *Form) Selection(categoryID uuid.UUID) Selection {
	return f.selections[categoryID].Clone()
}

// Selections returns copies of every category's choice.
func (f *Form) Selections() map[uuid.UUID]Selection {
	out := make(map[uuid.UUID]Selection, len(f.selections))
	for id, selection := range f.selections {
		out[id] = selection.Clone()
	}
	return out
}

// InlineError is the last rejected tap for a category, if any.
func (f *Form) InlineError(categoryID uuid.UUID) error {
	return f.inline[categoryID]
}

// Validate runs the commit checks without building lines.
func (f *Form) Validate() []CategoryError {
	return ValidateForCommit(f.categories, f.selections)
}

// Complements validates the form and snapshots the chosen complements.
func (f *Form) Complements() ([]types.ComplementSelection, error) {
	return Build(f.categories, f.selections)
}
