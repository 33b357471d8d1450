package migrate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/microdb/internal/adapter"
	"github.com/nerrad567/microdb/internal/infrastructure/database"
	"github.com/nerrad567/microdb/internal/schema"
)

// Logger defines the logging interface used by the Synchronizer.
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

// Observer receives every finished synchronization run.
type Observer interface {
	ObserveSync(plan *Plan, err error)
}

// Synchronizer brings live tables in line with their declarations.
//
// Statements run through the executor bound to the context, so a
// synchronization started inside a scoped transaction joins it.
// Synchronizing the same table from several connections at once is not
// safe; run migrations from a single writer.
type Synchronizer struct {
	db       *database.DB
	adapter  adapter.Adapter
	logger   Logger
	observer Observer
}

// New creates a Synchronizer for db using dialect a.
func New(db *database.DB, a adapter.Adapter) *Synchronizer {
	return &Synchronizer{
		db:      db,
		adapter: a,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the synchronizer.
func (s *Synchronizer) SetLogger(logger Logger) {
	s.logger = logger
}

// SetObserver sets the observer notified after each run.
func (s *Synchronizer) SetObserver(o Observer) {
	s.observer = o
}

// Sync reconciles one table.
//
//  1. A missing table is created from the declaration.
//  2. Otherwise the live schema is diffed against the declaration.
//  3. Each missing column is added with its own ADD COLUMN statement.
//  4. Extra live columns are dropped natively, or through the rebuild
//     fallback, inside one transaction.
//  5. Type, nullability and default drift is reported, never corrected.
//
// Running Sync again with no intervening change executes nothing.
// A failing statement aborts the rest of the table's plan and is returned
// as a MigrationError; statements already executed stay applied. Drift is
// available from Plan.Warning and is never returned as an error.
func (s *Synchronizer) Sync(ctx context.Context, t *schema.Table) (plan *Plan, err error) {
	plan = newPlan(t.Name(), s.adapter.Name())
	defer func() {
		plan.Duration = time.Since(plan.Started)
		if s.observer != nil {
			s.observer.ObserveSync(plan, err)
		}
	}()

	ex := s.db.Executor(ctx)

	exists, err := s.adapter.TableExists(ctx, ex, t.Name())
	if err != nil {
		return plan, fmt.Errorf("sync %s: %w", t.Name(), err)
	}

	if !exists {
		stmt := s.adapter.CreateTableSQL(t)
		if err := s.exec(ctx, ex, plan, stmt); err != nil {
			return plan, err
		}
		plan.Created = true
		s.logger.Info("table created", "table", t.Name(), "run_id", plan.RunID.String())
		return plan, nil
	}

	live, err := s.adapter.CurrentSchema(ctx, ex, t.Name())
	if err != nil {
		return plan, fmt.Errorf("sync %s: %w", t.Name(), err)
	}

	diff := ComputeDiff(s.adapter, t, live)
	plan.Drift = diff.Alter

	for _, c := range diff.Add {
		if err := s.exec(ctx, ex, plan, s.adapter.AddColumnSQL(t.Name(), c)); err != nil {
			return plan, err
		}
		s.logger.Info("column added", "table", t.Name(), "column", c.Name, "run_id", plan.RunID.String())
	}

	if len(diff.Drop) > 0 {
		if err := s.dropColumns(ctx, plan, t, diff.Drop); err != nil {
			return plan, err
		}
	}

	for _, d := range plan.Drift {
		s.logger.Warn("unresolved schema drift",
			"table", t.Name(),
			"column", d.Column,
			"kind", string(d.Kind),
			"declared", d.Declared,
			"live", d.Live,
		)
	}
	if plan.Empty() {
		s.logger.Debug("table in sync", "table", t.Name())
	}
	return plan, nil
}

// SyncAll synchronizes every table. A failure on one table does not stop
// the others; the errors are joined.
func (s *Synchronizer) SyncAll(ctx context.Context, tables []*schema.Table) ([]*Plan, error) {
	plans := make([]*Plan, 0, len(tables))
	var errs []error
	for _, t := range tables {
		plan, err := s.Sync(ctx, t)
		plans = append(plans, plan)
		if err != nil {
			s.logger.Error("table synchronization failed", "table", t.Name(), "error", err)
			errs = append(errs, err)
		}
	}
	return plans, errors.Join(errs...)
}

func (s *Synchronizer) exec(ctx context.Context, ex database.Executor, plan *Plan, stmt string) error {
	if _, err := ex.ExecContext(ctx, stmt); err != nil {
		return &MigrationError{Table: plan.Table, Statement: stmt, Err: adapter.Wrap(s.adapter, "migrate", err)}
	}
	plan.Statements = append(plan.Statements, stmt)
	return nil
}

// dropColumns removes columns in one transaction, natively when the
// dialect can and through the rebuild fallback otherwise. On failure the
// transaction rolls back and the table keeps its columns and rows.
func (s *Synchronizer) dropColumns(ctx context.Context, plan *Plan, t *schema.Table, columns []string) error {
	var (
		executed []string
		method   = "rebuild"
	)
	if s.adapter.SupportsDropColumn() {
		method = "drop"
	}

	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		ex := s.db.Executor(ctx)
		var err error
		if s.adapter.SupportsDropColumn() {
			executed, err = s.adapter.DropColumns(ctx, ex, t.Name(), columns)
		} else {
			executed, err = s.adapter.RebuildWithoutColumns(ctx, ex, t, columns)
		}
		return err
	})
	if err != nil {
		return &MigrationError{
			Table:     t.Name(),
			Statement: fmt.Sprintf("%s columns %s", method, strings.Join(columns, ", ")),
			Err:       err,
		}
	}

	plan.Statements = append(plan.Statements, executed...)
	s.logger.Info("columns dropped",
		"table", t.Name(),
		"columns", columns,
		"method", method,
		"run_id", plan.RunID.String(),
	)
	return nil
}
