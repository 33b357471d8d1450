// Package database provides SQL connectivity for microdb.
//
// This package manages:
//   - Connection pools for any database/sql driver (SQLite, PostgreSQL, MySQL)
//   - Scoped transactions carried by context.Context (WithTx, Executor)
//   - The statement primitives the rest of the framework relies on:
//     Exec (affected row count), Fetch (rows), and begin/commit/rollback
//   - SQLite driver selection at build time (mattn/go-sqlite3 by default,
//     modernc.org/sqlite with -tags purego)
//
// Security Considerations:
//   - Values are always passed as statement parameters
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{
//	    Driver: database.SQLiteDriverName,
//	    DSN:    database.SQLiteDSN("./data/app.db", 5, true),
//	    Path:   "./data/app.db",
//	    MaxOpenConns: 1,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	err = db.WithTx(ctx, func(ctx context.Context) error {
//	    _, err := database.Exec(ctx, db.Executor(ctx), "DELETE FROM book WHERE id = ?", 1)
//	    return err
//	})
//
// Transaction Scope:
//
// WithTx binds the transaction to the context handed to its callback.
// Nested WithTx calls with that context join the outer transaction, and
// AfterCommit callbacks run only once the outermost transaction commits.
// There is no partial-success state: any error or panic rolls back the
// whole scope.
package database
