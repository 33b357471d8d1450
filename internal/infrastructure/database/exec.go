package database

import (
	"context"
	"fmt"
)

// Row is one fetched row: column names in select order and their values
// as returned by the driver.
type Row struct {
	Columns []string
	Values  []any
}

// Value returns the value of the named column.
func (r Row) Value(name string) (any, bool) {
	for i, c := range r.Columns {
		if c == name {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Exec executes a statement and returns the number of affected rows.
// Drivers that cannot report affected rows (DDL on some engines) yield 0.
func Exec(ctx context.Context, ex Executor, query string, args ...any) (int64, error) {
	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil //nolint:nilerr // Affected count is informational for DDL
	}
	return n, nil
}

// Fetch executes a query and materialises every row.
//
// Rows are fully read before Fetch returns, so the connection is released
// even on a single-connection pool and callers may issue further
// statements while iterating the result.
func Fetch(ctx context.Context, ex Executor, query string, args ...any) ([]Row, error) {
	rows, err := ex.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}

	var out []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, Row{Columns: cols, Values: vals})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return out, nil
}
