// Package table is the CRUD engine over declared tables.
//
// A Table pairs a schema.Table with a database connection and the dialect
// adapter selected at open time. It offers Get, List, All, Insert, Update
// and Delete keyed by the declared primary key, plus ListBy, Count,
// Exists and Move built on them.
//
// # Transactions
//
// Every mutation runs inside database.DB.WithTx. The transaction travels
// in the context: hooks receive that context, so any CRUD they perform
// joins the same transaction, and an error anywhere rolls the whole call
// tree back.
//
// # Hooks and re-entrancy
//
// Hooks registered with On run before and after each mutation. A trigger
// stack bound to the top-level call records which (table, operation,
// record) chains are running; a nested mutation of a record whose chain
// is already running still writes but skips its hooks. The guard is
// released on every exit path, including hook errors and panics.
//
// # Change feed and metrics
//
// Committed mutations are handed to an optional ChangePublisher after the
// outermost transaction commits; rolled back work publishes nothing.
// Every operation is reported to an optional Observer.
//
// # Registry
//
// Registry resolves table names to tables once at open time. Unknown
// names fail with ErrTableNotFound.
package table
