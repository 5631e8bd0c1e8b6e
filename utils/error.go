package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

var ErrorRecordNotFound = errors.New("record not found")

// Core error taxonomy. Every mutating operation fails with one of these
// (wrapped via %w); callers branch with errors.Is and the HTTP layer maps
// them to status codes. None of them is fatal to the process.
var (
	// ErrInsufficientStock: a requested debit would make quantity negative.
	// Always aborts the whole enclosing operation with no partial effect.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidTransition: a transfer/invoice operation attempted from a
	// state that does not permit it.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrValidation: malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")

	// ErrPermissionDenied: the actor lacks scope over the store(s) involved.
	ErrPermissionDenied = errors.New("permission denied")
)

func ValidationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// IsDuplicateEntry reports whether err is a uniqueness-constraint violation.
// Covers MySQL (error 1062) and sqlite (tests). Surfaced to callers as a
// validation-class failure, never auto-retried.
func IsDuplicateEntry(err error) bool {
	if err == nil {
		return false
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
