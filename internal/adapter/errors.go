package adapter

import (
	"errors"
	"fmt"
)

// Domain errors for the adapter package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, adapter.ErrStorageUnavailable) {
//	    // connectivity or permission failure, not retried
//	}
var (
	// ErrStorageUnavailable is returned when the database cannot be reached
	// or refuses the operation for permission reasons.
	ErrStorageUnavailable = errors.New("adapter: storage unavailable")

	// ErrCapability is returned when an operation is not supported by the dialect.
	ErrCapability = errors.New("adapter: operation not supported")

	// ErrInvalidTypeMap is returned when a dialect does not map every logical type.
	ErrInvalidTypeMap = errors.New("adapter: incomplete type map")

	// ErrUnknownDialect is returned when no dialect is registered for a connection scheme.
	ErrUnknownDialect = errors.New("adapter: unknown dialect")
)

// StorageError wraps a connectivity or permission failure with the
// dialect and operation that hit it.
type StorageError struct {
	Dialect   string
	Operation string
	Err       error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("[%s] %s: storage unavailable: %v", e.Dialect, e.Operation, e.Err)
}

// Unwrap returns the underlying driver error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is matches ErrStorageUnavailable.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorageUnavailable
}

// CapabilityError is returned when an operation is unsupported by the
// active dialect.
type CapabilityError struct {
	Dialect   string
	Operation string
	Reason    string
}

// Error implements the error interface.
func (e *CapabilityError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s does not support %s: %s", e.Dialect, e.Operation, e.Reason)
	}
	return fmt.Sprintf("%s does not support %s", e.Dialect, e.Operation)
}

// Is matches ErrCapability.
func (e *CapabilityError) Is(target error) bool {
	return target == ErrCapability
}
