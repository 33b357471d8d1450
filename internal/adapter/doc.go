// Package adapter provides the dialect abstraction for microdb.
//
// An Adapter holds everything that differs between SQL engines: the
// logical to dialect type map, catalog introspection, column drop support,
// autoincrement syntax, identifier quoting, bind markers and generated key
// retrieval. The synchronizer and the table engine never branch on dialect
// name; they ask the adapter.
//
// # Dialects
//
//	sqlite       mattn/go-sqlite3 (default) or modernc.org/sqlite (-tags purego)
//	postgres     jackc/pgx/v5 stdlib driver
//	mysql        go-sql-driver/mysql
//	cockroachdb  pgx plus cockroach-go/v2 crdb transaction retries
//
// SQLite reports SupportsDropColumn() == false; dropping columns there goes
// through RebuildWithoutColumns, which recreates the table under a shadow
// name, copies surviving columns and renames it back. The caller runs the
// rebuild in a single transaction.
//
// # Selection
//
// Resolve picks the dialect from the connection scheme once, at open time,
// and returns the database.Config to open:
//
//	a, cfg, err := adapter.Resolve("sqlite:///var/lib/microdb/books.db", adapter.ConnOptions{WALMode: true})
//	db, err := database.Open(ctx, cfg)
//
// New dialects plug in with Register.
//
// # Errors
//
// Connectivity and permission failures are reported as StorageError
// (errors.Is ErrStorageUnavailable) and are not retried. Operations a
// dialect cannot perform return CapabilityError (errors.Is ErrCapability).
package adapter
