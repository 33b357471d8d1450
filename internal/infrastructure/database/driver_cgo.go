//go:build !purego

// CGO SQLite driver using mattn/go-sqlite3. This is the default build.
// Build with -tags purego to use modernc.org/sqlite instead.
package database

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

const (
	// SQLiteDriverName is the database/sql driver name for SQLite.
	SQLiteDriverName = "sqlite3"

	// SQLiteDriverType identifies the SQLite implementation in use.
	SQLiteDriverType = "cgo"

	// msPerSecond converts seconds to milliseconds.
	msPerSecond = 1000
)

// SQLiteDSN builds the connection string for a SQLite file (or ":memory:")
// with busy timeout, foreign keys and optional WAL journaling.
// See: https://github.com/mattn/go-sqlite3#connection-string
func SQLiteDSN(path string, busyTimeoutSeconds int, walMode bool) string {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on",
		path,
		busyTimeoutSeconds*msPerSecond,
	)
	if walMode {
		dsn += "&_journal_mode=WAL&_synchronous=NORMAL"
	}
	return dsn
}

// IsSQLiteUnavailable reports whether err is a SQLite open, permission or
// I/O failure rather than a statement error.
func IsSQLiteUnavailable(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code {
	case sqlite3.ErrCantOpen, sqlite3.ErrPerm, sqlite3.ErrAuth, sqlite3.ErrReadonly, sqlite3.ErrIoErr, sqlite3.ErrNotADB:
		return true
	default:
		return false
	}
}
