package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/microdb/internal/infrastructure/database"
	"github.com/nerrad567/microdb/internal/schema"
)

// SQLite is the adapter for embedded SQLite files.
//
// SQLite cannot drop constrained columns in place, so SupportsDropColumn
// is false and the synchronizer uses the rebuild fallback.
type SQLite struct {
	dialect
}

// NewSQLite creates the SQLite adapter.
func NewSQLite() (*SQLite, error) {
	s := &SQLite{dialect: dialect{
		name: "sqlite",
		types: map[schema.LogicalType]string{
			schema.TypeText:     "TEXT",
			schema.TypeInteger:  "INTEGER",
			schema.TypeFloat:    "REAL",
			schema.TypeBoolean:  "BOOLEAN",
			schema.TypeBinary:   "BLOB",
			schema.TypeDecimal:  "NUMERIC",
			schema.TypeDate:     "DATE",
			schema.TypeDateTime: "DATETIME",
			schema.TypeTime:     "TIME",
		},
		quote:       `"`,
		autoinc:     "AUTOINCREMENT",
		autoKeyDef:  func(typeName string) string { return typeName + " PRIMARY KEY AUTOINCREMENT" },
		boolTrue:    "1",
		boolFalse:   "0",
		returning:   true,
		emptyInsert: "DEFAULT VALUES",
		unavailable: database.IsSQLiteUnavailable,
	}}
	s.introspect = s.CurrentSchema
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// TableExists checks sqlite_master.
func (s *SQLite) TableExists(ctx context.Context, ex database.Executor, table string) (bool, error) {
	rows, err := database.Fetch(ctx, ex,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table)
	if err != nil {
		return false, s.wrap("table exists", err)
	}
	return len(rows) == 1 && asInt(rows[0].Values[0]) > 0, nil
}

// CurrentSchema reads PRAGMA table_info.
func (s *SQLite) CurrentSchema(ctx context.Context, ex database.Executor, table string) (Snapshot, error) {
	rows, err := database.Fetch(ctx, ex,
		`SELECT name, type, "notnull", dflt_value FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, s.wrap("introspect "+table, err)
	}
	snap := make(Snapshot, len(rows))
	for _, r := range rows {
		col := LiveColumn{
			Name:     asString(r.Values[0]),
			TypeName: asString(r.Values[1]),
			NotNull:  asInt(r.Values[2]) != 0,
			Default:  asOptionalString(r.Values[3]),
		}
		snap[col.Name] = col
	}
	return snap, nil
}

// RebuildWithoutColumns runs the generic rebuild and carries the
// AUTOINCREMENT high-water mark over to the rebuilt table. Dropping the
// original deletes its sqlite_sequence row, and the copy only records the
// largest surviving key, so deleted keys would otherwise be handed out again.
func (s *SQLite) RebuildWithoutColumns(ctx context.Context, ex database.Executor, t *schema.Table, columns []string) ([]string, error) {
	if !t.AutoKey() {
		return s.dialect.RebuildWithoutColumns(ctx, ex, t, columns)
	}
	seq, err := s.sequence(ctx, ex, t.Name())
	if err != nil {
		return nil, err
	}
	executed, err := s.dialect.RebuildWithoutColumns(ctx, ex, t, columns)
	if err != nil || seq == 0 {
		return executed, err
	}

	name := quoteLiteral(t.Name())
	for _, stmt := range []string{
		fmt.Sprintf("DELETE FROM sqlite_sequence WHERE name = %s", name),
		fmt.Sprintf("INSERT INTO sqlite_sequence (name, seq) VALUES (%s, %d)", name, seq),
	} {
		if _, err := ex.ExecContext(ctx, stmt); err != nil {
			return executed, s.wrap("restore sequence", err)
		}
		executed = append(executed, stmt)
	}
	return executed, nil
}

// sequence returns the AUTOINCREMENT high-water mark of table, or 0 when
// SQLite has not recorded one.
func (s *SQLite) sequence(ctx context.Context, ex database.Executor, table string) (int64, error) {
	ok, err := s.TableExists(ctx, ex, "sqlite_sequence")
	if err != nil || !ok {
		return 0, err
	}
	rows, err := database.Fetch(ctx, ex, "SELECT seq FROM sqlite_sequence WHERE name = ?", table)
	if err != nil {
		return 0, s.wrap("read sequence", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return asInt(rows[0].Values[0]), nil
}

// sqliteFactory accepts sqlite://path, sqlite3://path, bare paths and ":memory:".
func sqliteFactory(conn string, opts ConnOptions) (Adapter, database.Config, error) {
	path := conn
	for _, prefix := range []string{"sqlite://", "sqlite3://", "file:"} {
		path = strings.TrimPrefix(path, prefix)
	}
	if path == "" {
		return nil, database.Config{}, errors.New("adapter: sqlite connection has no path")
	}

	a, err := NewSQLite()
	if err != nil {
		return nil, database.Config{}, err
	}

	memory := path == ":memory:"
	busy := opts.BusyTimeout
	if busy <= 0 {
		busy = defaultBusyTimeout
	}
	cfg := database.Config{
		Driver: database.SQLiteDriverName,
		DSN:    database.SQLiteDSN(path, busy, opts.WALMode && !memory),
		// One writer; an in-memory database also lives on its only connection.
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
	if !memory {
		cfg.Path = path
	}
	return a, cfg, nil
}

// defaultBusyTimeout is the SQLite lock wait in seconds when none is configured.
const defaultBusyTimeout = 5

func init() {
	Register("sqlite", sqliteFactory)
	Register("sqlite3", sqliteFactory)
}

var _ Adapter = (*SQLite)(nil)
