package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicateNumber = errors.New("document number already in use")
)

// Postgres SQLSTATE codes the repositories react to.
const (
	pgErrUniqueViolation = "23505" // unique_violation
	pgErrUndefinedColumn = "42703" // undefined_column
)

func pgCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != pgErrUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

func isUndefinedColumn(err error) bool {
	return pgCode(err) == pgErrUndefinedColumn
}
