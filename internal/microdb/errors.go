package microdb

import "errors"

var (
	// ErrInvalidSyncMode is returned for a sync mode other than open, lazy or off.
	ErrInvalidSyncMode = errors.New("microdb: invalid sync mode")

	// ErrNoConnection is returned when Open is called without a connection string.
	ErrNoConnection = errors.New("microdb: connection string is required")
)
