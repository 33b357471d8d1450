package table

import (
	"fmt"
	"strings"

	"github.com/nerrad567/microdb/internal/adapter"
	"github.com/nerrad567/microdb/internal/schema"
)

// Comparison operators supported in conditions.
const (
	opEq     = "="
	opNe     = "<>"
	opLt     = "<"
	opGt     = ">"
	opLike   = "LIKE"
	opIsNull = "IS NULL"
	opNotNil = "IS NOT NULL"
)

type condition struct {
	column string
	op     string
	value  any
}

type ordering struct {
	column string
	desc   bool
}

// Query collects the conditions, ordering and limit of a read.
type Query struct {
	where []condition
	order []ordering
	limit int
}

// QueryOption configures a read.
//
// Example:
//
//	books, err := book.All(ctx,
//	    table.Like("author", "%Herbert%"),
//	    table.OrderBy("title"),
//	    table.Limit(10),
//	)
type QueryOption func(*Query)

// Eq keeps rows whose column equals v. A nil v matches NULL.
func Eq(column string, v any) QueryOption {
	if v == nil {
		return IsNull(column)
	}
	return where(column, opEq, v)
}

// Ne keeps rows whose column differs from v. A nil v matches non-NULL.
func Ne(column string, v any) QueryOption {
	if v == nil {
		return NotNull(column)
	}
	return where(column, opNe, v)
}

// Lt keeps rows whose column is less than v.
func Lt(column string, v any) QueryOption { return where(column, opLt, v) }

// Gt keeps rows whose column is greater than v.
func Gt(column string, v any) QueryOption { return where(column, opGt, v) }

// Like keeps rows whose column matches the SQL LIKE pattern.
// Case sensitivity follows the dialect.
func Like(column, pattern string) QueryOption { return where(column, opLike, pattern) }

// IsNull keeps rows whose column is NULL.
func IsNull(column string) QueryOption { return where(column, opIsNull, nil) }

// NotNull keeps rows whose column holds a value.
func NotNull(column string) QueryOption { return where(column, opNotNil, nil) }

// OrderBy sorts ascending by column. Later calls add tie-breakers.
func OrderBy(column string) QueryOption {
	return func(q *Query) { q.order = append(q.order, ordering{column: column}) }
}

// OrderByDesc sorts descending by column.
func OrderByDesc(column string) QueryOption {
	return func(q *Query) { q.order = append(q.order, ordering{column: column, desc: true}) }
}

// Limit caps the number of rows returned. Zero means no limit.
func Limit(n int) QueryOption {
	return func(q *Query) { q.limit = n }
}

func where(column, op string, v any) QueryOption {
	return func(q *Query) { q.where = append(q.where, condition{column: column, op: op, value: v}) }
}

func buildQuery(opts []QueryOption) Query {
	var q Query
	for _, o := range opts {
		o(&q)
	}
	return q
}

// statement accumulates SQL text and its bind arguments.
type statement struct {
	a    adapter.Adapter
	sb   strings.Builder
	args []any
}

func newStatement(a adapter.Adapter, format string, args ...any) *statement {
	s := &statement{a: a}
	fmt.Fprintf(&s.sb, format, args...)
	return s
}

// bind appends v as an argument and returns its placeholder.
func (s *statement) bind(v any) string {
	s.args = append(s.args, v)
	return s.a.Placeholder(len(s.args))
}

func (s *statement) write(parts ...string) {
	for _, p := range parts {
		s.sb.WriteString(p)
	}
}

func (s *statement) String() string { return s.sb.String() }

// whereKey appends "WHERE pk = ? [AND ...]" for the key record.
func (s *statement) whereKey(t *schema.Table, key *schema.Record) {
	for i, name := range t.PrimaryKey() {
		if i == 0 {
			s.write(" WHERE ")
		} else {
			s.write(" AND ")
		}
		s.write(s.a.QuoteIdent(name), " = ", s.bind(key.Value(name)))
	}
}

// whereQuery appends the query's conditions, normalizing values to the
// column type.
func (s *statement) whereQuery(t *schema.Table, q Query) error {
	for i, c := range q.where {
		col, ok := t.Column(c.column)
		if !ok {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.Name(), c.column)
		}
		if i == 0 {
			s.write(" WHERE ")
		} else {
			s.write(" AND ")
		}
		ident := s.a.QuoteIdent(c.column)

		switch c.op {
		case opIsNull:
			s.write(ident, " IS NULL")
		case opNotNil:
			s.write(ident, " IS NOT NULL")
		case opLike:
			s.write(ident, " LIKE ", s.bind(c.value))
		default:
			v, err := col.Normalize(c.value)
			if err != nil {
				return err
			}
			s.write(ident, " ", c.op, " ", s.bind(v))
		}
	}
	return nil
}

// orderAndLimit appends ORDER BY and LIMIT. Without an explicit order rows
// come back in primary key order.
func (s *statement) orderAndLimit(t *schema.Table, q Query) error {
	order := q.order
	if len(order) == 0 {
		for _, k := range t.PrimaryKey() {
			order = append(order, ordering{column: k})
		}
	}
	for i, o := range order {
		if !t.HasColumn(o.column) {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.Name(), o.column)
		}
		if i == 0 {
			s.write(" ORDER BY ")
		} else {
			s.write(", ")
		}
		s.write(s.a.QuoteIdent(o.column))
		if o.desc {
			s.write(" DESC")
		}
	}
	if q.limit > 0 {
		fmt.Fprintf(&s.sb, " LIMIT %d", q.limit)
	}
	return nil
}
