package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	pkgerrors "github.com/adoniasgoesw/filazero/pkg/errors"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports a unique constraint violation on Postgres or sqlite. A non-empty
// constraintName narrows the match to that index.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if pg, ok := pkgerrors.PostgresError(err); ok {
		return pg.Code == pgUniqueViolation && (constraintName == "" || pg.Constraint == constraintName)
	}
	msg := err.Error()
	if constraintName != "" && strings.Contains(msg, constraintName) {
		return true
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) && !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	// sqlite names columns, not indexes
	return constraintName == ""
}

// IsNotFound reports a gorm lookup that matched no row.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
