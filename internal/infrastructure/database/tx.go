package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Executor is the statement surface shared by *DB and *sql.Tx.
// Adapters and tables issue every statement through an Executor so the
// same code runs inside or outside a transaction.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// TxRunner executes fn inside a transaction on db and commits it.
// A runner must roll back when fn returns an error or panics.
// Runners may call fn more than once (retrying serialization failures).
type TxRunner func(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(*sql.Tx) error) error

// txScope is the transaction bound to one call tree.
type txScope struct {
	tx          *sql.Tx
	afterCommit []func()
}

type txScopeKey struct{}

// SetTxRunner replaces the transaction runner. Dialects with their own
// retry protocol install one here; nil restores the standard runner.
func (db *DB) SetTxRunner(runner TxRunner) {
	if runner == nil {
		runner = runStandardTx
	}
	db.runTx = runner
}

// WithTx runs fn inside a scoped transaction.
//
// The transaction is carried by the context passed to fn. Nested calls
// with that context join the outer transaction instead of opening a new
// one, so hooks that perform CRUD share the caller's transaction and a
// single-connection pool never deadlocks.
//
// The outermost call commits when fn returns nil and rolls back on error
// or panic. Callbacks registered with AfterCommit run only after a
// successful commit of the outermost transaction.
//
// Example:
//
//	err := db.WithTx(ctx, func(ctx context.Context) error {
//	    _, err := db.Executor(ctx).ExecContext(ctx, "UPDATE book SET pages = ?", 450)
//	    return err
//	})
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if scopeFrom(ctx) != nil {
		return fn(ctx)
	}

	run := db.runTx
	if run == nil {
		run = runStandardTx
	}

	var committed []func()
	err := run(ctx, db.DB, nil, func(tx *sql.Tx) error {
		scope := &txScope{tx: tx}
		if err := fn(context.WithValue(ctx, txScopeKey{}, scope)); err != nil {
			return err
		}
		committed = scope.afterCommit
		return nil
	})
	if err != nil {
		return err
	}

	for _, cb := range committed {
		cb()
	}
	return nil
}

// Executor returns the transaction bound to ctx, or the pool itself when
// no transaction is in flight.
func (db *DB) Executor(ctx context.Context) Executor {
	if scope := scopeFrom(ctx); scope != nil {
		return scope.tx
	}
	return db
}

// InTx reports whether ctx carries an active scoped transaction.
func InTx(ctx context.Context) bool {
	return scopeFrom(ctx) != nil
}

// AfterCommit registers fn to run once the outermost transaction bound to
// ctx commits. Without a transaction fn runs immediately.
func AfterCommit(ctx context.Context, fn func()) {
	scope := scopeFrom(ctx)
	if scope == nil {
		fn()
		return
	}
	scope.afterCommit = append(scope.afterCommit, fn)
}

func scopeFrom(ctx context.Context) *txScope {
	scope, _ := ctx.Value(txScopeKey{}).(*txScope) //nolint:errcheck // type assertion, not an error
	return scope
}

// runStandardTx is the default TxRunner: begin, run, commit, and roll back
// on every other exit path including panics.
func runStandardTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(*sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback() //nolint:errcheck // Re-panicking below
			panic(p)
		}
		if err != nil {
			tx.Rollback() //nolint:errcheck // Original error takes precedence
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
