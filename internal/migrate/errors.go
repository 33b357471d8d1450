package migrate

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors for the migrate package.
var (
	// ErrMigrationFailed is returned when a statement of a synchronization
	// plan fails. The rest of that table's plan is not executed.
	ErrMigrationFailed = errors.New("migrate: migration failed")

	// ErrSchemaDriftUnresolved marks drift the synchronizer will not
	// correct automatically. It is a warning: Sync never returns it.
	ErrSchemaDriftUnresolved = errors.New("migrate: schema drift unresolved")
)

// MigrationError names the table and statement that failed.
type MigrationError struct {
	Table     string
	Statement string
	Err       error
}

// Error implements the error interface.
func (e *MigrationError) Error() string {
	return fmt.Sprintf("migrate %s: %q: %v", e.Table, e.Statement, e.Err)
}

// Unwrap returns the underlying error.
func (e *MigrationError) Unwrap() error {
	return e.Err
}

// Is matches ErrMigrationFailed.
func (e *MigrationError) Is(target error) bool {
	return target == ErrMigrationFailed
}

// DriftError lists the unresolved drift of one table.
type DriftError struct {
	Table string
	Drift []Drift
}

// Error implements the error interface.
func (e *DriftError) Error() string {
	parts := make([]string, len(e.Drift))
	for i, d := range e.Drift {
		parts[i] = d.String()
	}
	return fmt.Sprintf("%s: schema drift on %s: %s", ErrSchemaDriftUnresolved, e.Table, strings.Join(parts, "; "))
}

// Is matches ErrSchemaDriftUnresolved.
func (e *DriftError) Is(target error) bool {
	return target == ErrSchemaDriftUnresolved
}
