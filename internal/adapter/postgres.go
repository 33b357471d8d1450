package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/nerrad567/microdb/internal/infrastructure/database"
	"github.com/nerrad567/microdb/internal/schema"
)

// pgxDriverName is the database/sql driver registered by pgx/v5/stdlib.
const pgxDriverName = "pgx"

// postgresAliases maps information_schema data_type spellings onto the
// names used in the type map.
var postgresAliases = map[string]string{
	"character varying":           "varchar",
	"timestamp without time zone": "timestamp",
	"time without time zone":      "time",
	"int8":                        "bigint",
	"float8":                      "double precision",
	"bool":                        "boolean",
	"bytes":                       "bytea",
	"decimal":                     "numeric",
}

// Postgres is the adapter for PostgreSQL through pgx.
type Postgres struct {
	dialect
}

// NewPostgres creates the PostgreSQL adapter.
func NewPostgres() (*Postgres, error) {
	p := &Postgres{dialect: postgresDialect("postgres")}
	p.introspect = p.CurrentSchema
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func postgresDialect(name string) dialect {
	return dialect{
		name: name,
		types: map[schema.LogicalType]string{
			schema.TypeText:     "VARCHAR",
			schema.TypeInteger:  "BIGINT",
			schema.TypeFloat:    "DOUBLE PRECISION",
			schema.TypeBoolean:  "BOOLEAN",
			schema.TypeBinary:   "BYTEA",
			schema.TypeDecimal:  "NUMERIC",
			schema.TypeDate:     "DATE",
			schema.TypeDateTime: "TIMESTAMP",
			schema.TypeTime:     "TIME",
		},
		aliases:     postgresAliases,
		quote:       `"`,
		autoinc:     "BIGSERIAL",
		autoKeyDef:  func(string) string { return "BIGSERIAL PRIMARY KEY" },
		boolTrue:    "true",
		boolFalse:   "false",
		returning:   true,
		dropColumn:  true,
		emptyInsert: "DEFAULT VALUES",
		placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
		unavailable: isPostgresUnavailable,
	}
}

// TableExists checks information_schema.tables in the current schema.
func (p *Postgres) TableExists(ctx context.Context, ex database.Executor, table string) (bool, error) {
	rows, err := database.Fetch(ctx, ex,
		`SELECT COUNT(*) FROM information_schema.tables
		 WHERE table_schema = current_schema() AND table_name = $1`, table)
	if err != nil {
		return false, p.wrap("table exists", err)
	}
	return len(rows) == 1 && asInt(rows[0].Values[0]) > 0, nil
}

// CurrentSchema reads information_schema.columns in the current schema.
func (p *Postgres) CurrentSchema(ctx context.Context, ex database.Executor, table string) (Snapshot, error) {
	rows, err := database.Fetch(ctx, ex,
		`SELECT column_name, data_type, is_nullable, column_default
		 FROM information_schema.columns
		 WHERE table_schema = current_schema() AND table_name = $1
		 ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, p.wrap("introspect "+table, err)
	}
	snap := make(Snapshot, len(rows))
	for _, r := range rows {
		col := LiveColumn{
			Name:     asString(r.Values[0]),
			TypeName: asString(r.Values[1]),
			NotNull:  strings.EqualFold(asString(r.Values[2]), "NO"),
			Default:  asOptionalString(r.Values[3]),
		}
		snap[col.Name] = col
	}
	return snap, nil
}

// RebuildWithoutColumns runs the generic rebuild and then moves the
// shadow table's key sequence past the copied keys.
func (p *Postgres) RebuildWithoutColumns(ctx context.Context, ex database.Executor, t *schema.Table, columns []string) ([]string, error) {
	executed, err := p.dialect.RebuildWithoutColumns(ctx, ex, t, columns)
	if err != nil || !t.AutoKey() {
		return executed, err
	}
	key := p.QuoteIdent(t.Pkey())
	stmt := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', '%s'), COALESCE(MAX(%s), 0) + 1, false) FROM %s",
		strings.ReplaceAll(p.QuoteIdent(t.Name()), "'", "''"), t.Pkey(), key, p.QuoteIdent(t.Name()))
	if _, err := database.Fetch(ctx, ex, stmt); err != nil {
		return executed, p.wrap("reset sequence", err)
	}
	return append(executed, stmt), nil
}

// isPostgresUnavailable classifies connection exceptions (class 08),
// authorization failures (class 28) and insufficient privilege.
func isPostgresUnavailable(err error) bool {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return strings.HasPrefix(pgErr.Code, "08") ||
		strings.HasPrefix(pgErr.Code, "28") ||
		pgErr.Code == "42501"
}

// postgresFactory accepts postgres:// and postgresql:// URLs, passed to pgx unchanged.
func postgresFactory(conn string, opts ConnOptions) (Adapter, database.Config, error) {
	a, err := NewPostgres()
	if err != nil {
		return nil, database.Config{}, err
	}
	return a, serverConfig(pgxDriverName, conn, opts), nil
}

// serverConfig is the pool configuration shared by client-server dialects.
func serverConfig(driverName, dsn string, opts ConnOptions) database.Config {
	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = defaultServerConns
	}
	return database.Config{
		Driver:          driverName,
		DSN:             dsn,
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxOpen,
		ConnMaxLifetime: serverConnLifetime,
	}
}

func init() {
	Register("postgres", postgresFactory)
	Register("postgresql", postgresFactory)
}

var _ Adapter = (*Postgres)(nil)
