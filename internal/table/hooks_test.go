package table

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/microdb/internal/schema"
	"github.com/nerrad567/microdb/internal/trigger"
)

type fakePublisher struct {
	mu      sync.Mutex
	changes []Change
}

func (p *fakePublisher) PublishChange(c Change) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, c)
}

func (p *fakePublisher) snapshot() []Change {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Change, len(p.changes))
	copy(out, p.changes)
	return out
}

type fakeObserver struct {
	mu   sync.Mutex
	ops  []string
	errs int
}

func (o *fakeObserver) ObserveOperation(table, op string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, table+"."+op)
	if err != nil {
		o.errs++
	}
}

func TestHookOrderAndEvents(t *testing.T) {
	_, _, book := openBookstore(t)
	ctx := context.Background()

	var seen []string
	record := func(point HookPoint) HookFunc {
		return func(_ context.Context, ev *Event) error {
			seen = append(seen, point.String())
			if ev.Table != "book" {
				t.Errorf("%s: Event.Table = %q, want book", point, ev.Table)
			}
			return nil
		}
	}
	for _, p := range []HookPoint{BeforeInsert, AfterInsert, BeforeUpdate, AfterUpdate, BeforeDelete, AfterDelete} {
		book.On(p, record(p))
	}

	var afterInsertID, oldPages, newPages any
	book.On(AfterInsert, func(_ context.Context, ev *Event) error {
		afterInsertID = ev.Record.Value("id")
		return nil
	})
	book.On(AfterUpdate, func(_ context.Context, ev *Event) error {
		oldPages = ev.Old.Value("pages")
		newPages = ev.Record.Value("pages")
		return nil
	})

	id := mustInsert(t, book, schema.NewRecord().Set("title", "Dune").Set("pages", 412))
	if err := book.Update(ctx, schema.NewRecord().Set("id", id).Set("pages", 450)); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := book.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	want := []string{
		"before_insert", "after_insert",
		"before_update", "after_update",
		"before_delete", "after_delete",
	}
	if len(seen) != len(want) {
		t.Fatalf("hooks ran %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("hook %d = %s, want %s", i, seen[i], want[i])
		}
	}
	if afterInsertID != id {
		t.Errorf("after_insert saw id %v, want %v", afterInsertID, id)
	}
	if oldPages != int64(412) || newPages != int64(450) {
		t.Errorf("after_update saw pages %v -> %v, want 412 -> 450", oldPages, newPages)
	}
}

func TestBeforeHookCompletesRecord(t *testing.T) {
	_, _, book := openBookstore(t)
	ctx := context.Background()

	book.On(BeforeInsert, func(_ context.Context, ev *Event) error {
		if !ev.Record.Has("title") {
			ev.Record.Set("title", "Untitled")
		}
		return nil
	})

	id := mustInsert(t, book, schema.NewRecord().Set("pages", 12))
	rec, err := book.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.Value("title") != "Untitled" {
		t.Errorf("title = %v, want value set by before_insert", rec.Value("title"))
	}
}

func TestHookReentrancyIsSuppressed(t *testing.T) {
	_, _, book := openBookstore(t)
	ctx := context.Background()
	id := mustInsert(t, book, schema.NewRecord().Set("title", "Dune").Set("pages", 412))

	calls := 0
	book.On(AfterUpdate, func(ctx context.Context, ev *Event) error {
		calls++
		if !trigger.Active(ctx, "book", trigger.OpUpdate) {
			t.Error("trigger.Active() = false inside an update hook")
		}
		pages, _ := ev.Record.Value("pages").(int64)
		return book.Update(ctx, schema.NewRecord().Set("id", ev.Record.Value("id")).Set("pages", pages+1))
	})

	if err := book.Update(ctx, schema.NewRecord().Set("id", id).Set("pages", 450)); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("hook ran %d times, want 1", calls)
	}
	rec, err := book.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.Value("pages") != int64(451) {
		t.Errorf("pages = %v, want 451 (nested update applied once)", rec.Value("pages"))
	}

	if err := book.Update(ctx, schema.NewRecord().Set("id", id).Set("pages", 10)); err != nil {
		t.Fatalf("second Update() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("hook ran %d times after a fresh top-level update, want 2", calls)
	}
}

func TestInsertHookInsertingIntoSameTable(t *testing.T) {
	_, _, book := openBookstore(t)
	ctx := context.Background()

	calls := 0
	book.On(AfterInsert, func(ctx context.Context, ev *Event) error {
		calls++
		_, err := book.Insert(ctx, schema.NewRecord().Set("title", "Copy of "+ev.Record.Value("title").(string)))
		return err
	})

	mustInsert(t, book, schema.NewRecord().Set("title", "Dune"))
	if calls != 1 {
		t.Errorf("hook ran %d times, want 1", calls)
	}
	n, err := book.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
}

func TestHookCrossTable(t *testing.T) {
	_, shelf, book := openBookstore(t)
	ctx := context.Background()

	// Deleting a shelf clears the books that referenced it.
	shelf.On(BeforeDelete, func(ctx context.Context, ev *Event) error {
		books, err := book.ListBy(ctx, "shelf", ev.Record.Value("code"))
		if err != nil {
			return err
		}
		for _, b := range books {
			if err := book.Move(ctx, b.Value("id"), "shelf", nil); err != nil {
				return err
			}
		}
		return nil
	})

	mustInsert(t, shelf, schema.NewRecord().Set("code", "A1"))
	id := mustInsert(t, book, schema.NewRecord().Set("title", "Dune").Set("shelf", "A1"))

	if err := shelf.Delete(ctx, "A1"); err != nil {
		t.Fatalf("Delete(shelf) error = %v", err)
	}
	rec, err := book.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.Value("shelf") != nil {
		t.Errorf("book shelf = %v, want cleared by hook", rec.Value("shelf"))
	}
}

func TestHookErrorRollsBack(t *testing.T) {
	_, shelf, book := openBookstore(t)
	ctx := context.Background()
	mustInsert(t, shelf, schema.NewRecord().Set("code", "A1"))

	errHook := errors.New("shelf is locked")
	fail := true
	book.On(AfterInsert, func(ctx context.Context, ev *Event) error {
		if err := shelf.Update(ctx, schema.NewRecord().Set("code", "A1").Set("room", "busy")); err != nil {
			return err
		}
		if fail {
			return errHook
		}
		return nil
	})

	_, err := book.Insert(ctx, schema.NewRecord().Set("title", "Dune"))
	if !errors.Is(err, errHook) {
		t.Fatalf("Insert() error = %v, want hook error", err)
	}

	n, err := book.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Count() = %d after failed hook, want 0", n)
	}
	rec, err := shelf.Get(ctx, "A1")
	if err != nil {
		t.Fatalf("Get(shelf) error = %v", err)
	}
	if rec.Value("room") != nil {
		t.Errorf("shelf room = %v, want hook write rolled back", rec.Value("room"))
	}

	// The guard was released: the next insert runs its hooks again.
	fail = false
	mustInsert(t, book, schema.NewRecord().Set("title", "Dune"))
	rec, _ = shelf.Get(ctx, "A1")
	if rec.Value("room") != "busy" {
		t.Errorf("shelf room = %v, want busy after successful insert", rec.Value("room"))
	}
}

func TestHookPanicReleasesGuard(t *testing.T) {
	_, _, book := openBookstore(t)
	ctx := context.Background()
	id := mustInsert(t, book, schema.NewRecord().Set("title", "Dune"))

	panicking := true
	calls := 0
	book.On(BeforeUpdate, func(context.Context, *Event) error {
		calls++
		if panicking {
			panic("boom")
		}
		return nil
	})

	func() {
		defer func() {
			if recover() == nil {
				t.Error("Update() did not propagate the hook panic")
			}
		}()
		book.Update(ctx, schema.NewRecord().Set("id", id).Set("pages", 1)) //nolint:errcheck // Panics
	}()

	panicking = false
	if err := book.Update(ctx, schema.NewRecord().Set("id", id).Set("pages", 2)); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("hook ran %d times, want 2", calls)
	}
	rec, _ := book.Get(ctx, id)
	if rec.Value("pages") != int64(2) {
		t.Errorf("pages = %v, want 2", rec.Value("pages"))
	}
}

func TestChangesPublishedAfterCommit(t *testing.T) {
	db, shelf, book := openBookstore(t)
	ctx := context.Background()
	pub := &fakePublisher{}
	book.SetPublisher(pub)
	shelf.SetPublisher(pub)

	id := mustInsert(t, book, schema.NewRecord().Set("title", "Dune"))
	if err := book.Update(ctx, schema.NewRecord().Set("id", id).Set("pages", 10)); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := book.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	changes := pub.snapshot()
	if len(changes) != 3 {
		t.Fatalf("published %d changes, want 3", len(changes))
	}
	wantOps := []trigger.Operation{trigger.OpInsert, trigger.OpUpdate, trigger.OpDelete}
	for i, c := range changes {
		if c.Op != wantOps[i] || c.Table != "book" || c.Key != id {
			t.Errorf("change %d = %s %s %v, want %s book %v", i, c.Op, c.Table, c.Key, wantOps[i], id)
		}
	}
	if changes[1].Record.Value("title") != "Dune" || changes[1].Record.Value("pages") != int64(10) {
		t.Errorf("update change record = %v, want full row", changes[1].Record)
	}
	if changes[0].ID == changes[1].ID {
		t.Error("changes share an ID")
	}

	sentinel := errors.New("abort")
	err := db.WithTx(ctx, func(ctx context.Context) error {
		mustInsertCtx(t, ctx, shelf, schema.NewRecord().Set("code", "A1"))
		if n := len(pub.snapshot()); n != 3 {
			t.Errorf("change published before commit: %d", n)
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("WithTx() error = %v", err)
	}
	if n := len(pub.snapshot()); n != 3 {
		t.Errorf("rolled back insert published; total %d changes", n)
	}

	err = db.WithTx(ctx, func(ctx context.Context) error {
		mustInsertCtx(t, ctx, shelf, schema.NewRecord().Set("code", "B2"))
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}
	changes = pub.snapshot()
	if len(changes) != 4 || changes[3].Table != "shelf" || changes[3].Key != "B2" {
		t.Errorf("committed insert not published: %+v", changes)
	}
}

func mustInsertCtx(t *testing.T, ctx context.Context, tbl *Table, rec *schema.Record) {
	t.Helper()
	if _, err := tbl.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
}

func TestObserver(t *testing.T) {
	_, _, book := openBookstore(t)
	ctx := context.Background()
	obs := &fakeObserver{}
	book.SetObserver(obs)

	id := mustInsert(t, book, schema.NewRecord().Set("title", "Dune"))
	if _, err := book.Get(ctx, id); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	book.Get(ctx, 99) //nolint:errcheck // Counted as a failed operation
	if _, err := book.All(ctx); err != nil {
		t.Fatalf("All() error = %v", err)
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	want := []string{"book.insert", "book.get", "book.get", "book.list"}
	if len(obs.ops) != len(want) {
		t.Fatalf("observed %v, want %v", obs.ops, want)
	}
	for i := range want {
		if obs.ops[i] != want[i] {
			t.Errorf("op %d = %s, want %s", i, obs.ops[i], want[i])
		}
	}
	if obs.errs != 1 {
		t.Errorf("observed %d failures, want 1", obs.errs)
	}
}

func TestPrepareRunsFirst(t *testing.T) {
	_, _, book := openBookstore(t)
	ctx := context.Background()
	errNotReady := errors.New("not ready")

	book.SetPrepare(func(context.Context) error { return errNotReady })
	if _, err := book.Insert(ctx, schema.NewRecord().Set("title", "Dune")); !errors.Is(err, errNotReady) {
		t.Errorf("Insert() error = %v, want prepare error", err)
	}
	if _, err := book.All(ctx); !errors.Is(err, errNotReady) {
		t.Errorf("All() error = %v, want prepare error", err)
	}

	book.SetPrepare(nil)
	mustInsert(t, book, schema.NewRecord().Set("title", "Dune"))
}

func TestOnUnknownPointPanics(t *testing.T) {
	_, _, book := openBookstore(t)
	defer func() {
		if recover() == nil {
			t.Error("On(unknown point) did not panic")
		}
	}()
	book.On(HookPoint(42), func(context.Context, *Event) error { return nil })
}
