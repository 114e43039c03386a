package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/lib/pq"

	"github.com/identikit/apiserver/internal/apperr"
)

// Postgres error classes and codes the translation layer understands.
// Anything else passes through as an internal error.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqConnectionClass     = "08"
	pqUndefinedTable      = "42P01"
)

// uniqueColumns are the columns guarded by unique constraints on the users
// table, used to name the offending field in conflict details.
var uniqueColumns = []string{"username", "email"}

// translate maps a driver-level error into the service taxonomy. This is the
// single coupling point to PostgreSQL error codes: swapping the backing
// store only touches this table.
func translate(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("Record not found")
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.Dependency("Datastore unavailable", err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		switch {
		case code == pqUniqueViolation:
			return duplicateError(pqErr)
		case code == pqForeignKeyViolation:
			return apperr.Validation("Invalid reference", nil)
		case code == pqUndefinedTable:
			return apperr.Dependency("Datastore schema mismatch", err)
		case strings.HasPrefix(code, pqConnectionClass):
			return apperr.Dependency("Datastore unavailable", err)
		}
	}

	return apperr.Internal(err)
}

// duplicateError extracts the colliding column from the constraint name so
// clients learn which field already exists, e.g.
// {"email": "email already exists"}.
func duplicateError(pqErr *pq.Error) error {
	field := fieldFromConstraint(pqErr.Constraint)
	if field == "" {
		return apperr.Conflict("Data already exists", nil)
	}
	return apperr.Conflict("Data already exists", map[string]string{
		field: field + " already exists",
	})
}

func fieldFromConstraint(constraint string) string {
	for _, column := range uniqueColumns {
		if strings.Contains(constraint, column) {
			return column
		}
	}
	return ""
}
