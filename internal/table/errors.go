package table

import (
	"errors"
	"fmt"

	"github.com/nerrad567/microdb/internal/schema"
)

// Domain errors for the table package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, table.ErrNotFound) {
//	    // handle missing row
//	}
var (
	// ErrNotFound is returned when no row has the requested key.
	ErrNotFound = errors.New("table: not found")

	// ErrTableNotFound is returned when a table name is not declared.
	ErrTableNotFound = errors.New("table: table not declared")

	// ErrUnknownColumn is returned when a record or query names a column
	// the table does not declare.
	ErrUnknownColumn = errors.New("table: unknown column")

	// ErrMissingColumn is returned when an insert omits a required column.
	ErrMissingColumn = errors.New("table: missing required column")

	// ErrMissingKey is returned when an operation needs the primary key
	// and the record does not carry it.
	ErrMissingKey = errors.New("table: missing primary key")

	// ErrInvalidValue is returned when a value cannot be converted to its
	// column type. It is the same sentinel as schema.ErrInvalidValue.
	ErrInvalidValue = schema.ErrInvalidValue

	// ErrDuplicateTable is returned when a registry already holds a table
	// with the same name.
	ErrDuplicateTable = errors.New("table: duplicate table")
)

// NotFoundError names the table and key that matched no row.
type NotFoundError struct {
	Table string
	Key   any
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s key %v", ErrNotFound, e.Table, e.Key)
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
