package table

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/nerrad567/microdb/internal/adapter"
	"github.com/nerrad567/microdb/internal/infrastructure/database"
	"github.com/nerrad567/microdb/internal/schema"
	"github.com/nerrad567/microdb/internal/trigger"
)

// Logger defines the logging interface used by tables.
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

// PrepareFunc runs before every operation on a table, with the caller's
// context. The database handle uses it to synchronize lazily.
type PrepareFunc func(ctx context.Context) error

// ReferenceFunc prepares a table that Move checks references against,
// named by the References declaration. The database handle uses it to
// synchronize the referenced table lazily.
type ReferenceFunc func(ctx context.Context, table string) error

// countColumn converts COUNT(*) results, which drivers return as int64,
// []byte or string.
var countColumn = schema.Column{Name: "count", Type: schema.TypeInteger}

// Table is the CRUD engine for one declared table.
//
// Every mutation runs in a scoped transaction: the outermost call commits
// or rolls back, nested calls made from hooks join it. Hooks are guarded
// by the trigger stack bound to the call tree, so a hook that mutates the
// record it was triggered for does not run its own chain again.
//
// Records returned by reads are fresh copies holding canonical values
// (see schema.Column.Normalize).
type Table struct {
	schema    *schema.Table
	db        *database.DB
	adapter   adapter.Adapter
	selectSQL string

	hooks     map[HookPoint][]HookFunc
	prepare   PrepareFunc
	reference ReferenceFunc
	publisher ChangePublisher
	observer  Observer
	logger    Logger
}

// New creates the engine for s on db, building SQL through a.
func New(db *database.DB, a adapter.Adapter, s *schema.Table) *Table {
	cols := s.ColumnNames()
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = a.QuoteIdent(c)
	}
	return &Table{
		schema:    s,
		db:        db,
		adapter:   a,
		selectSQL: fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), a.QuoteIdent(s.Name())),
		hooks:     make(map[HookPoint][]HookFunc),
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the table.
func (t *Table) SetLogger(logger Logger) {
	t.logger = logger
}

// SetPrepare sets the function run before every operation.
func (t *Table) SetPrepare(fn PrepareFunc) {
	t.prepare = fn
}

// SetReferencePrepare sets the function Move runs on a referenced table
// before checking the target row exists.
func (t *Table) SetReferencePrepare(fn ReferenceFunc) {
	t.reference = fn
}

// SetPublisher sets where committed changes are sent. nil disables publishing.
func (t *Table) SetPublisher(p ChangePublisher) {
	t.publisher = p
}

// SetObserver sets the operation observer. nil disables observation.
func (t *Table) SetObserver(o Observer) {
	t.observer = o
}

// Name returns the table name.
func (t *Table) Name() string { return t.schema.Name() }

// Schema returns the table declaration.
func (t *Table) Schema() *schema.Table { return t.schema }

// Get returns the row with key.
//
// key is the primary key value, or a record (or map) carrying every
// primary key column; composite keys must be passed as a record.
// Returns a NotFoundError (errors.Is ErrNotFound) if no row matches.
func (t *Table) Get(ctx context.Context, key any) (rec *schema.Record, err error) {
	start := time.Now()
	defer func() { t.observe("get", start, err) }()

	if err := t.ready(ctx); err != nil {
		return nil, err
	}
	k, err := t.keyRecord(key)
	if err != nil {
		return nil, err
	}
	return t.fetchOne(ctx, k)
}

// Exists reports whether a row with key exists.
func (t *Table) Exists(ctx context.Context, key any) (bool, error) {
	_, err := t.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// List returns the matching rows as a sequence. Each range over the
// sequence executes the query again. Rows are ordered by primary key
// unless the options order them.
//
// Example:
//
//	for rec, err := range book.List(ctx, table.Eq("genre", "sf")) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(rec.Value("title"))
//	}
func (t *Table) List(ctx context.Context, opts ...QueryOption) iter.Seq2[*schema.Record, error] {
	return func(yield func(*schema.Record, error) bool) {
		recs, err := t.All(ctx, opts...)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, r := range recs {
			if !yield(r, nil) {
				return
			}
		}
	}
}

// All returns the matching rows.
func (t *Table) All(ctx context.Context, opts ...QueryOption) (recs []*schema.Record, err error) {
	start := time.Now()
	defer func() { t.observe("list", start, err) }()

	if err := t.ready(ctx); err != nil {
		return nil, err
	}

	q := buildQuery(opts)
	st := newStatement(t.adapter, "%s", t.selectSQL)
	if err := st.whereQuery(t.schema, q); err != nil {
		return nil, err
	}
	if err := st.orderAndLimit(t.schema, q); err != nil {
		return nil, err
	}

	rows, err := database.Fetch(ctx, t.db.Executor(ctx), st.String(), st.args...)
	if err != nil {
		return nil, adapter.Wrap(t.adapter, "list "+t.Name(), err)
	}
	recs = make([]*schema.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := t.decodeRow(row)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// ListBy returns the rows whose column equals value.
func (t *Table) ListBy(ctx context.Context, column string, value any, opts ...QueryOption) ([]*schema.Record, error) {
	return t.All(ctx, append([]QueryOption{Eq(column, value)}, opts...)...)
}

// Count returns the number of matching rows. Ordering and limit options
// are ignored.
func (t *Table) Count(ctx context.Context, opts ...QueryOption) (n int64, err error) {
	start := time.Now()
	defer func() { t.observe("count", start, err) }()

	if err := t.ready(ctx); err != nil {
		return 0, err
	}

	st := newStatement(t.adapter, "SELECT COUNT(*) FROM %s", t.adapter.QuoteIdent(t.Name()))
	if err := st.whereQuery(t.schema, buildQuery(opts)); err != nil {
		return 0, err
	}
	rows, err := database.Fetch(ctx, t.db.Executor(ctx), st.String(), st.args...)
	if err != nil {
		return 0, adapter.Wrap(t.adapter, "count "+t.Name(), err)
	}
	if len(rows) != 1 || len(rows[0].Values) != 1 {
		return 0, fmt.Errorf("count %s: unexpected result shape", t.Name())
	}
	v, err := countColumn.Normalize(rows[0].Values[0])
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", t.Name(), err)
	}
	return v.(int64), nil //nolint:forcetypeassert // Normalize returns int64 for integer columns
}

// Insert validates and writes rec and returns its primary key: the
// generated key for an auto key that rec omits, the supplied value
// otherwise, or a key record for a composite key.
//
// Required columns (NOT NULL without a default) must be present.
// before_insert hooks may complete the record; it is validated again
// after they run.
func (t *Table) Insert(ctx context.Context, rec *schema.Record) (key any, err error) {
	start := time.Now()
	defer func() { t.observe("insert", start, err) }()

	if err := t.ready(ctx); err != nil {
		return nil, err
	}
	values, err := t.normalize(rec)
	if err != nil {
		return nil, err
	}
	if t.schema.AutoKey() {
		if v, ok := values.Get(t.schema.Pkey()); ok && v == nil {
			values.Delete(t.schema.Pkey())
		}
	}

	ident := trigger.PendingRecord
	if k, kerr := t.keyRecord(values); kerr == nil {
		ident = keyString(k)
	}

	err = t.mutate(ctx, trigger.OpInsert, ident, func(ctx context.Context, run bool) error {
		ev := &Event{Table: t.Name(), Op: trigger.OpInsert, Phase: PhaseBefore, Record: values}
		if run {
			if err := t.runHooks(ctx, ev); err != nil {
				return err
			}
			v, err := t.normalize(ev.Record)
			if err != nil {
				return err
			}
			values = v
		}
		if err := t.checkRequired(values); err != nil {
			return err
		}

		cols := values.Columns()
		args := make([]any, len(cols))
		for i, c := range cols {
			args[i] = values.Value(c)
		}
		generated, err := t.adapter.InsertRow(ctx, t.db.Executor(ctx), t.schema, cols, args)
		if err != nil {
			return err
		}
		if generated != nil {
			pk, _ := t.schema.Column(t.schema.Pkey())
			id, err := pk.Normalize(generated)
			if err != nil {
				return fmt.Errorf("insert into %s: generated key: %w", t.Name(), err)
			}
			values.Set(pk.Name, id)
		}

		k, err := t.keyRecord(values)
		if err != nil {
			return err
		}
		key = keyValue(k)
		t.publish(ctx, trigger.OpInsert, key, values)

		if run {
			ev.Phase = PhaseAfter
			ev.Record = values
			return t.runHooks(ctx, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return key, nil
}

// Update writes the columns rec supplies to the row with rec's primary
// key. Columns rec omits keep their stored values.
//
// Returns ErrMissingKey if rec lacks a primary key column and a
// NotFoundError if no row matches. before_update hooks see the supplied
// record; after_update hooks see the full updated row.
func (t *Table) Update(ctx context.Context, rec *schema.Record) (err error) {
	start := time.Now()
	defer func() { t.observe("update", start, err) }()

	if err := t.ready(ctx); err != nil {
		return err
	}
	values, err := t.normalize(rec)
	if err != nil {
		return err
	}
	k, err := t.keyRecord(values)
	if err != nil {
		return err
	}

	return t.mutate(ctx, trigger.OpUpdate, keyString(k), func(ctx context.Context, run bool) error {
		old, err := t.fetchOne(ctx, k)
		if err != nil {
			return err
		}

		ev := &Event{Table: t.Name(), Op: trigger.OpUpdate, Phase: PhaseBefore, Record: values, Old: old.Clone()}
		if run {
			if err := t.runHooks(ctx, ev); err != nil {
				return err
			}
			if values, err = t.normalize(ev.Record); err != nil {
				return err
			}
			if nk, err := t.keyRecord(values); err != nil || keyString(nk) != keyString(k) {
				return fmt.Errorf("%w: before_update hook on %s changed the primary key", ErrInvalidValue, t.Name())
			}
		}
		if err := t.checkNullable(values); err != nil {
			return err
		}
		if err := t.updateRow(ctx, k, values); err != nil {
			return err
		}

		row := old
		for _, c := range values.Columns() {
			row.Set(c, values.Value(c))
		}
		t.publish(ctx, trigger.OpUpdate, keyValue(k), row)

		if run {
			ev.Phase = PhaseAfter
			ev.Record = row
			return t.runHooks(ctx, ev)
		}
		return nil
	})
}

// Delete removes the row identified by target, a key value or a record
// carrying the primary key. Returns a NotFoundError if no row matches.
func (t *Table) Delete(ctx context.Context, target any) (err error) {
	start := time.Now()
	defer func() { t.observe("delete", start, err) }()

	if err := t.ready(ctx); err != nil {
		return err
	}
	k, err := t.keyRecord(target)
	if err != nil {
		return err
	}

	return t.mutate(ctx, trigger.OpDelete, keyString(k), func(ctx context.Context, run bool) error {
		old, err := t.fetchOne(ctx, k)
		if err != nil {
			return err
		}

		ev := &Event{Table: t.Name(), Op: trigger.OpDelete, Phase: PhaseBefore, Record: old, Old: old}
		if run {
			if err := t.runHooks(ctx, ev); err != nil {
				return err
			}
		}

		st := newStatement(t.adapter, "DELETE FROM %s", t.adapter.QuoteIdent(t.Name()))
		st.whereKey(t.schema, k)
		n, err := database.Exec(ctx, t.db.Executor(ctx), st.String(), st.args...)
		if err != nil {
			return adapter.Wrap(t.adapter, "delete from "+t.Name(), err)
		}
		if n == 0 {
			return &NotFoundError{Table: t.Name(), Key: keyValue(k)}
		}
		t.publish(ctx, trigger.OpDelete, keyValue(k), old)

		if run {
			ev.Phase = PhaseAfter
			return t.runHooks(ctx, ev)
		}
		return nil
	})
}

// Move sets column of the row with key to target, typically re-pointing
// a reference. When the column declares References, the referenced row
// must exist; otherwise a NotFoundError for the referenced table is
// returned and nothing changes. A nil target clears a nullable column.
func (t *Table) Move(ctx context.Context, key any, column string, target any) error {
	col, ok := t.schema.Column(column)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.Name(), column)
	}
	if col.PrimaryKey {
		return fmt.Errorf("%w: %s.%s is part of the primary key", ErrInvalidValue, t.Name(), column)
	}
	k, err := t.keyRecord(key)
	if err != nil {
		return err
	}
	if err := t.ready(ctx); err != nil {
		return err
	}
	rt, rc, checked := col.ReferencedTable()
	checked = checked && target != nil
	if checked && t.reference != nil {
		if err := t.reference(ctx, rt); err != nil {
			return err
		}
	}

	return t.db.WithTx(ctx, func(ctx context.Context) error {
		if checked {
			if err := t.checkReference(ctx, col, rt, rc, target); err != nil {
				return err
			}
		}
		return t.Update(ctx, k.Clone().Set(column, target))
	})
}

func (t *Table) checkReference(ctx context.Context, col schema.Column, refTable, refColumn string, target any) error {
	v, err := col.Normalize(target)
	if err != nil {
		return err
	}
	st := newStatement(t.adapter, "SELECT 1 FROM %s WHERE %s = ",
		t.adapter.QuoteIdent(refTable), t.adapter.QuoteIdent(refColumn))
	st.write(st.bind(v), " LIMIT 1")

	rows, err := database.Fetch(ctx, t.db.Executor(ctx), st.String(), st.args...)
	if err != nil {
		return adapter.Wrap(t.adapter, "check reference "+col.References, err)
	}
	if len(rows) == 0 {
		return &NotFoundError{Table: refTable, Key: v}
	}
	return nil
}

// mutate runs fn in a scoped transaction with the hook chain for
// (table, op, ident) entered. run is false when the chain is already
// active in this call tree; fn then skips hooks but still writes.
func (t *Table) mutate(ctx context.Context, op trigger.Operation, ident string, fn func(ctx context.Context, run bool) error) error {
	ctx, stack := trigger.Ensure(ctx)
	return t.db.WithTx(ctx, func(ctx context.Context) error {
		key := trigger.Key{Table: t.Name(), Op: op, Record: ident}
		release, run := stack.Enter(key)
		defer release()

		if !run && t.hasHooks(op) {
			t.logger.Debug("hook chain already active, hooks skipped", "key", key.String())
		}
		return fn(ctx, run)
	})
}

func (t *Table) ready(ctx context.Context) error {
	if t.prepare == nil {
		return nil
	}
	return t.prepare(ctx)
}

func (t *Table) fetchOne(ctx context.Context, k *schema.Record) (*schema.Record, error) {
	st := newStatement(t.adapter, "%s", t.selectSQL)
	st.whereKey(t.schema, k)

	rows, err := database.Fetch(ctx, t.db.Executor(ctx), st.String(), st.args...)
	if err != nil {
		return nil, adapter.Wrap(t.adapter, "get from "+t.Name(), err)
	}
	if len(rows) == 0 {
		return nil, &NotFoundError{Table: t.Name(), Key: keyValue(k)}
	}
	return t.decodeRow(rows[0])
}

func (t *Table) updateRow(ctx context.Context, k *schema.Record, values *schema.Record) error {
	st := newStatement(t.adapter, "UPDATE %s SET ", t.adapter.QuoteIdent(t.Name()))
	set := 0
	for _, c := range values.Columns() {
		if t.schema.IsKey(c) {
			continue
		}
		if set > 0 {
			st.write(", ")
		}
		st.write(t.adapter.QuoteIdent(c), " = ", st.bind(values.Value(c)))
		set++
	}
	if set == 0 {
		return nil
	}
	st.whereKey(t.schema, k)

	if _, err := database.Exec(ctx, t.db.Executor(ctx), st.String(), st.args...); err != nil {
		return adapter.Wrap(t.adapter, "update "+t.Name(), err)
	}
	return nil
}

// decodeRow converts driver values into a record in declaration order.
func (t *Table) decodeRow(row database.Row) (*schema.Record, error) {
	rec := schema.NewRecord()
	for i, name := range row.Columns {
		col, ok := t.schema.Column(name)
		if !ok {
			continue
		}
		v, err := col.Normalize(row.Values[i])
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", t.Name(), err)
		}
		rec.Set(name, v)
	}
	return rec, nil
}

// normalize checks that every column of rec is declared and converts the
// values to their canonical types.
func (t *Table) normalize(rec *schema.Record) (*schema.Record, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: nil record for %s", ErrInvalidValue, t.Name())
	}
	out := schema.NewRecord()
	for _, name := range rec.Columns() {
		col, ok := t.schema.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.Name(), name)
		}
		v, err := col.Normalize(rec.Value(name))
		if err != nil {
			return nil, err
		}
		out.Set(name, v)
	}
	return out, nil
}

func (t *Table) checkRequired(values *schema.Record) error {
	if err := t.checkNullable(values); err != nil {
		return err
	}
	for _, c := range t.schema.Columns() {
		if values.Has(c.Name) || !c.Required() {
			continue
		}
		if c.PrimaryKey {
			return fmt.Errorf("%w: %s.%s", ErrMissingKey, t.Name(), c.Name)
		}
		return fmt.Errorf("%w: %s.%s", ErrMissingColumn, t.Name(), c.Name)
	}
	return nil
}

func (t *Table) checkNullable(values *schema.Record) error {
	for _, name := range values.Columns() {
		col, _ := t.schema.Column(name)
		if values.Value(name) == nil && !col.Nullable {
			return fmt.Errorf("%w: %s.%s is not nullable", ErrInvalidValue, t.Name(), name)
		}
	}
	return nil
}

// keyRecord extracts the normalized primary key from key: a scalar for a
// single-column key, or a record or map carrying every key column.
func (t *Table) keyRecord(key any) (*schema.Record, error) {
	pk := t.schema.PrimaryKey()

	var src *schema.Record
	switch k := key.(type) {
	case *schema.Record:
		src = k
	case map[string]any:
		src = schema.RecordFromMap(k)
	default:
		if len(pk) != 1 {
			return nil, fmt.Errorf("%w: %s has a composite key, pass a record", ErrMissingKey, t.Name())
		}
		src = schema.NewRecord().Set(pk[0], key)
	}

	out := schema.NewRecord()
	for _, name := range pk {
		v := src.Value(name)
		if v == nil {
			return nil, fmt.Errorf("%w: %s.%s", ErrMissingKey, t.Name(), name)
		}
		col, _ := t.schema.Column(name)
		nv, err := col.Normalize(v)
		if err != nil {
			return nil, err
		}
		out.Set(name, nv)
	}
	return out, nil
}

// keyValue is the caller-facing form of a key record.
func keyValue(k *schema.Record) any {
	if k.Len() == 1 {
		return k.Value(k.Columns()[0])
	}
	return k
}

// keyString renders a key record as a trigger record identity.
func keyString(k *schema.Record) string {
	parts := make([]string, 0, k.Len())
	for _, c := range k.Columns() {
		parts = append(parts, fmt.Sprint(k.Value(c)))
	}
	return strings.Join(parts, "|")
}
