package adapter

import (
	"context"
	"slices"

	"github.com/nerrad567/microdb/internal/infrastructure/database"
	"github.com/nerrad567/microdb/internal/schema"
)

// LiveColumn is one column as observed in the connected database.
// TypeName is the dialect's own spelling; it carries no logical type.
type LiveColumn struct {
	Name     string
	TypeName string
	NotNull  bool

	// Default is the default expression as reported by the catalog,
	// or nil when the column has none.
	Default *string
}

// Snapshot maps column names to their live description.
// An empty snapshot means the table does not exist.
type Snapshot map[string]LiveColumn

// Names returns the column names in sorted order.
func (s Snapshot) Names() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Adapter encapsulates everything that differs between SQL dialects.
//
// Nothing above the adapter branches on dialect name: the synchronizer and
// the table engine build every statement through these operations. A new
// dialect is added by implementing Adapter and registering a Factory.
//
// Operations that talk to the database take the Executor to run on, so
// the caller decides whether they join a transaction.
type Adapter interface {
	// Name returns the dialect name ("sqlite", "postgres", ...).
	Name() string

	// TypeMap returns the dialect type name of every logical type.
	TypeMap() map[schema.LogicalType]string

	// TableExists reports whether table exists.
	TableExists(ctx context.Context, ex database.Executor, table string) (bool, error)

	// CurrentSchema introspects table. It returns an empty snapshot when
	// the table does not exist.
	CurrentSchema(ctx context.Context, ex database.Executor, table string) (Snapshot, error)

	// SupportsDropColumn reports whether DropColumns is available.
	SupportsDropColumn() bool

	// AutoincrementSyntax returns the token used for generated integer keys.
	AutoincrementSyntax() string

	// DropColumns drops columns natively and returns the executed statements.
	// Adapters without native support return a CapabilityError.
	DropColumns(ctx context.Context, ex database.Executor, table string, columns []string) ([]string, error)

	// RebuildWithoutColumns recreates t from its declaration, copies every
	// surviving column's values and swaps the new table in. The caller runs
	// it inside one transaction.
	RebuildWithoutColumns(ctx context.Context, ex database.Executor, t *schema.Table, columns []string) ([]string, error)

	// QuoteIdent quotes an identifier.
	QuoteIdent(name string) string

	// Placeholder returns the bind parameter marker for the n-th argument (1-based).
	Placeholder(n int) string

	// CreateTableSQL renders CREATE TABLE for t.
	CreateTableSQL(t *schema.Table) string

	// AddColumnSQL renders ALTER TABLE ... ADD COLUMN for c.
	AddColumnSQL(table string, c schema.Column) string

	// FormatDefault renders c.Default as a SQL literal, or "" for none.
	FormatDefault(c schema.Column) string

	// TypeMatches reports whether a live type name is the dialect's
	// spelling of logical.
	TypeMatches(logical schema.LogicalType, live string) bool

	// DefaultMatches reports whether a live default expression equals the
	// declared default of c.
	DefaultMatches(c schema.Column, live *string) bool

	// InsertRow inserts one row and returns the generated key when t has
	// an auto key that was not supplied, nil otherwise.
	InsertRow(ctx context.Context, ex database.Executor, t *schema.Table, columns []string, values []any) (any, error)

	// IsUnavailable reports whether err is a connectivity or permission failure.
	IsUnavailable(err error) bool
}

// TxRunner is implemented by adapters that need their own transaction
// protocol, such as retrying serialization failures. The returned runner
// is installed with database.DB.SetTxRunner.
type TxRunner interface {
	TxRunner() database.TxRunner
}

// ConnOptions tunes the connection a Factory produces.
type ConnOptions struct {
	// BusyTimeout is the SQLite lock wait in seconds.
	BusyTimeout int

	// WALMode enables SQLite write-ahead logging for file databases.
	WALMode bool

	// MaxOpenConns limits the pool for server dialects. Zero keeps the
	// dialect default.
	MaxOpenConns int
}
