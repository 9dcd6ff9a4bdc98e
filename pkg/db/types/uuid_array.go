package dbtypes

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// UUIDArray stores a uuid list as a Postgres array literal. sqlite keeps the same literal in a
// text column, so one model serves both drivers.
type UUIDArray []uuid.UUID

// Canonical returns the distinct ids in byte order. Composite payment methods are matched on
// their canonical member list.
func (a UUIDArray) Canonical() UUIDArray {
	out := slices.Clone(a)
	slices.SortFunc(out, func(x, y uuid.UUID) int { return bytes.Compare(x[:], y[:]) })
	return slices.Compact(out)
}

// Key renders the canonical list as one string.
func (a UUIDArray) Key() string {
	return a.Canonical().literal()
}

// Scan parses the array literal with lib/pq, which handles quoting and NULL.
func (a *UUIDArray) Scan(src any) error {
	var raw pq.StringArray
	if err := raw.Scan(src); err != nil {
		return fmt.Errorf("UUIDArray: %w", err)
	}
	out := make(UUIDArray, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("UUIDArray: parse %q: %w", s, err)
		}
		out = append(out, id)
	}
	*a = out
	return nil
}

func (a UUIDArray) Value() (driver.Value, error) {
	return a.literal(), nil
}

// uuids never need quoting inside an array literal.
func (a UUIDArray) literal() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, id := range a {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(id.String())
	}
	b.WriteByte('}')
	return b.String()
}
