// Package migrate keeps live tables synchronized with their declarations.
//
// The Synchronizer compares a schema.Table with the live schema reported
// by the dialect adapter and executes the smallest set of statements that
// makes them column-compatible:
//
//   - CREATE TABLE when the table is missing
//   - one ADD COLUMN per declared column the table lacks
//   - a native multi-column drop, or the adapter's rebuild fallback, for
//     live columns no longer declared, inside one transaction
//
// Type, nullability and default disagreements on shared columns are drift.
// Which side is authoritative cannot be known, so drift is logged and
// returned through Plan.Warning rather than corrected.
//
// Synchronization is idempotent: a second run with no intervening change
// executes no statements.
//
// # Usage
//
//	sync := migrate.New(db, dialect)
//	sync.SetLogger(log)
//	plans, err := sync.SyncAll(ctx, tables)
//	for _, p := range plans {
//	    if w := p.Warning(); w != nil {
//	        log.Warn("drift", "error", w)
//	    }
//	}
package migrate
