package microdb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/nerrad567/microdb/internal/adapter"
	"github.com/nerrad567/microdb/internal/infrastructure/database"
	"github.com/nerrad567/microdb/internal/migrate"
	"github.com/nerrad567/microdb/internal/schema"
	"github.com/nerrad567/microdb/internal/table"
)

// defaultName is used when Options.Name is empty.
const defaultName = "default"

// SyncMode selects when declared tables are synchronized.
type SyncMode string

// Sync modes.
const (
	SyncOpen SyncMode = "open"
	SyncLazy SyncMode = "lazy"
	SyncOff  SyncMode = "off"
)

// ParseSyncMode parses a sync mode name. An empty string means SyncOpen.
func ParseSyncMode(s string) (SyncMode, error) {
	switch m := SyncMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return SyncOpen, nil
	case SyncOpen, SyncLazy, SyncOff:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSyncMode, s)
}

// Logger is the logging interface used by the handle and passed on to
// the synchronizer and every table.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures Open.
type Options struct {
	// Name identifies the database in logs and change feed topics.
	Name string

	// Connection selects the dialect and target; see adapter.Resolve.
	Connection string

	// Tables are the declared tables, in registration order.
	Tables []*schema.Table

	// SyncMode defaults to SyncOpen.
	SyncMode SyncMode

	// Conn tunes the connection pool.
	Conn adapter.ConnOptions

	Logger        Logger
	Publisher     table.ChangePublisher
	TableObserver table.Observer
	SyncObserver  migrate.Observer
}

// DB is an open microdb database.
type DB struct {
	name     string
	mode     SyncMode
	conn     *database.DB
	adapter  adapter.Adapter
	sync     *migrate.Synchronizer
	registry *table.Registry
	logger   Logger

	mu     sync.Mutex
	guards map[string]*sync.Mutex
	synced map[string]bool
}

// Open opens the database described by opts.
//
// In SyncOpen mode every table is synchronized before Open returns; a
// failure closes the connection and returns the joined errors.
func Open(ctx context.Context, opts Options) (*DB, error) {
	if strings.TrimSpace(opts.Connection) == "" {
		return nil, ErrNoConnection
	}
	mode, err := ParseSyncMode(string(opts.SyncMode))
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	name := opts.Name
	if name == "" {
		name = defaultName
	}

	a, cfg, err := adapter.Resolve(opts.Connection, opts.Conn)
	if err != nil {
		return nil, err
	}
	conn, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, adapter.Wrap(a, "open", err)
	}
	if r, ok := a.(adapter.TxRunner); ok {
		conn.SetTxRunner(r.TxRunner())
	}

	d := &DB{
		name:     name,
		mode:     mode,
		conn:     conn,
		adapter:  a,
		sync:     migrate.New(conn, a),
		registry: table.NewRegistry(),
		logger:   logger,
		guards:   make(map[string]*sync.Mutex, len(opts.Tables)),
		synced:   make(map[string]bool, len(opts.Tables)),
	}
	d.sync.SetLogger(logger)
	if opts.SyncObserver != nil {
		d.sync.SetObserver(opts.SyncObserver)
	}

	for _, s := range opts.Tables {
		t := table.New(conn, a, s)
		t.SetLogger(logger)
		if opts.Publisher != nil {
			t.SetPublisher(opts.Publisher)
		}
		if opts.TableObserver != nil {
			t.SetObserver(opts.TableObserver)
		}
		if mode == SyncLazy {
			t.SetPrepare(func(ctx context.Context) error {
				return d.ensureSynced(ctx, s)
			})
			t.SetReferencePrepare(d.prepareReferenced)
		}
		if err := d.registry.Add(t); err != nil {
			conn.Close() //nolint:errcheck // Best effort cleanup on error path
			return nil, err
		}
		d.guards[s.Name()] = &sync.Mutex{}
	}

	if mode == SyncOpen {
		if _, err := d.Sync(ctx); err != nil {
			conn.Close() //nolint:errcheck // Best effort cleanup on error path
			return nil, err
		}
	}

	logger.Info("database opened",
		"name", name,
		"dialect", a.Name(),
		"tables", d.registry.Len(),
		"sync_mode", string(mode),
	)
	return d, nil
}

// Name returns the database name.
func (d *DB) Name() string { return d.name }

// Adapter returns the dialect adapter selected at open time.
func (d *DB) Adapter() adapter.Adapter { return d.adapter }

// SyncMode returns the mode the database was opened with.
func (d *DB) SyncMode() SyncMode { return d.mode }

// Table returns the engine for a declared table.
// Returns ErrTableNotFound (from the table package) for unknown names.
func (d *DB) Table(name string) (*table.Table, error) {
	return d.registry.Lookup(name)
}

// Tables returns every table engine in registration order.
func (d *DB) Tables() []*table.Table {
	return d.registry.Tables()
}

// WithTx runs fn in a scoped transaction shared by every table operation
// made with the context it receives.
func (d *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return d.conn.WithTx(ctx, fn)
}

// Sync synchronizes every declared table regardless of the sync mode.
// Each table is reconciled on its own; failures are joined and the plans
// of every attempted table are returned.
func (d *DB) Sync(ctx context.Context) ([]*migrate.Plan, error) {
	tables := d.registry.Tables()
	plans := make([]*migrate.Plan, 0, len(tables))
	var errs []error
	for _, t := range tables {
		plan, err := d.syncTable(ctx, t.Schema())
		if plan != nil {
			plans = append(plans, plan)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return plans, errors.Join(errs...)
}

// HealthCheck verifies the database is reachable.
func (d *DB) HealthCheck(ctx context.Context) error {
	if err := d.conn.HealthCheck(ctx); err != nil {
		return adapter.Wrap(d.adapter, "health", err)
	}
	return nil
}

// Close closes the connection pool.
func (d *DB) Close() error {
	return d.conn.Close()
}

// ensureSynced synchronizes s once. It is the lazy-mode prepare step.
func (d *DB) ensureSynced(ctx context.Context, s *schema.Table) error {
	d.mu.Lock()
	done := d.synced[s.Name()]
	d.mu.Unlock()
	if done {
		return nil
	}
	if _, err := d.syncTable(ctx, s); err != nil {
		return fmt.Errorf("preparing table %s: %w", s.Name(), err)
	}
	return nil
}

// prepareReferenced synchronizes a table named by a References
// declaration. Tables this database does not declare are left alone.
func (d *DB) prepareReferenced(ctx context.Context, name string) error {
	t, err := d.registry.Lookup(name)
	if err != nil {
		return nil //nolint:nilerr // Undeclared tables are managed elsewhere
	}
	return d.ensureSynced(ctx, t.Schema())
}

// syncTable runs one synchronization under the table's guard. Success is
// recorded once the surrounding transaction, if any, commits.
func (d *DB) syncTable(ctx context.Context, s *schema.Table) (*migrate.Plan, error) {
	guard := d.guard(s.Name())
	guard.Lock()
	defer guard.Unlock()

	plan, err := d.sync.Sync(ctx, s)
	if err != nil {
		d.logger.Error("table synchronization failed", "table", s.Name(), "error", err)
		return plan, err
	}
	name := s.Name()
	database.AfterCommit(ctx, func() {
		d.mu.Lock()
		d.synced[name] = true
		d.mu.Unlock()
	})
	return plan, nil
}

func (d *DB) guard(name string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	g, ok := d.guards[name]
	if !ok {
		g = &sync.Mutex{}
		d.guards[name] = g
	}
	return g
}

// synchronized reports whether name has been synchronized and committed.
func (d *DB) synchronized(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.synced[name]
}
