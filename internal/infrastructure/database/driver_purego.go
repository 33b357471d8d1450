//go:build purego

// Pure Go SQLite driver using modernc.org/sqlite.
// Selected with: go build -tags purego (works with CGO_ENABLED=0).
package database

import (
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	// SQLiteDriverName is the database/sql driver name for SQLite.
	SQLiteDriverName = "sqlite"

	// SQLiteDriverType identifies the SQLite implementation in use.
	SQLiteDriverType = "purego"

	// msPerSecond converts seconds to milliseconds.
	msPerSecond = 1000

	// primaryCodeMask strips extended result code bits.
	primaryCodeMask = 0xff
)

// SQLiteDSN builds the connection string for a SQLite file (or ":memory:")
// with busy timeout, foreign keys and optional WAL journaling, using the
// _pragma query parameters understood by modernc.org/sqlite.
func SQLiteDSN(path string, busyTimeoutSeconds int, walMode bool) string {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)",
		path,
		busyTimeoutSeconds*msPerSecond,
	)
	if walMode {
		dsn += "&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}
	return dsn
}

// IsSQLiteUnavailable reports whether err is a SQLite open, permission or
// I/O failure rather than a statement error.
func IsSQLiteUnavailable(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() & primaryCodeMask {
	case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_PERM, sqlite3.SQLITE_AUTH, sqlite3.SQLITE_READONLY, sqlite3.SQLITE_IOERR, sqlite3.SQLITE_NOTADB:
		return true
	default:
		return false
	}
}
