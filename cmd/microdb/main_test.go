package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/microdb/internal/infrastructure/config"
	"github.com/nerrad567/microdb/internal/table"
)

const testSchema = `
tables:
  - name: book
    columns:
      - {name: id, type: integer, primary_key: true, autoincrement: true}
      - {name: title, type: text, nullable: false}
      - {name: author, type: text}
      - {name: pages, type: integer}
  - name: loan
    columns:
      - {name: book, type: integer, primary_key: true}
      - {name: member, type: text, primary_key: true}
      - {name: due, type: date}
`

// testEnv writes a schema and a config pointing at a private register.
type testEnv struct {
	dir    string
	config string
	conn   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.yaml")
	if err := os.WriteFile(schemaPath, []byte(testSchema), 0600); err != nil {
		t.Fatalf("writing schema: %v", err)
	}
	cfg := "schema:\n  path: " + schemaPath + "\n" +
		"registry:\n  path: " + filepath.Join(dir, "register.yaml") + "\n" +
		"logging:\n  output: none\n"
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfg), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return &testEnv{dir: dir, config: cfgPath, conn: "sqlite://" + filepath.Join(dir, "shop.db")}
}

// run executes the CLI with the test config and connection.
func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	full := append([]string{"--config", e.config}, args...)
	var out bytes.Buffer
	err := run(ctx, full, strings.NewReader(stdin), &out)
	return out.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, "", args...)
	if err != nil {
		t.Fatalf("run(%v) error = %v", args, err)
	}
	return out
}

func TestRun_Version(t *testing.T) {
	e := newTestEnv(t)
	out := e.mustRun(t, "version")
	if !strings.HasPrefix(out, "microdb dev") {
		t.Errorf("version output = %q", out)
	}
}

func TestRun_Sync(t *testing.T) {
	e := newTestEnv(t)

	out := e.mustRun(t, "--connection", e.conn, "sync")
	for _, want := range []string{"book: created", "loan: created", "CREATE TABLE"} {
		if !strings.Contains(out, want) {
			t.Errorf("first sync output missing %q:\n%s", want, out)
		}
	}

	out = e.mustRun(t, "--connection", e.conn, "sync")
	if out != "book: in sync\nloan: in sync\n" {
		t.Errorf("second sync output = %q", out)
	}
}

func TestRun_CRUD(t *testing.T) {
	e := newTestEnv(t)
	conn := []string{"--connection", e.conn}
	cmd := func(args ...string) []string { return append(append([]string{}, conn...), args...) }

	if out := e.mustRun(t, cmd("insert", "book", `{"title":"Dune","author":"Herbert","pages":412}`)...); out != "1\n" {
		t.Errorf("insert output = %q, want 1", out)
	}
	out, err := e.run(t, `{"title":"Emma","author":"Austen"}`, cmd("insert", "book", "-")...)
	if err != nil || out != "2\n" {
		t.Fatalf("insert from stdin = %q, %v", out, err)
	}

	out = e.mustRun(t, cmd("get", "book", "1")...)
	if !strings.Contains(out, `"title":"Dune"`) || !strings.Contains(out, `"pages":412`) {
		t.Errorf("get output = %q", out)
	}

	e.mustRun(t, cmd("update", "book", `{"id":1,"pages":500}`)...)
	out = e.mustRun(t, cmd("list", "book", "--where", "pages=500")...)
	if strings.Count(out, "\n") != 1 || !strings.Contains(out, `"title":"Dune"`) {
		t.Errorf("list --where output = %q", out)
	}

	out = e.mustRun(t, cmd("list", "book", "--like", "author=%ust%")...)
	if !strings.Contains(out, "Emma") || strings.Contains(out, "Dune") {
		t.Errorf("list --like output = %q", out)
	}

	out = e.mustRun(t, cmd("list", "book", "--order", "title", "--desc", "--limit", "1")...)
	if !strings.Contains(out, "Emma") || strings.Count(out, "\n") != 1 {
		t.Errorf("list --order output = %q", out)
	}

	if out := e.mustRun(t, cmd("list", "book", "--count")...); out != "2\n" {
		t.Errorf("list --count output = %q", out)
	}

	e.mustRun(t, cmd("delete", "book", "1")...)
	if _, err := e.run(t, "", cmd("get", "book", "1")...); !errors.Is(err, table.ErrNotFound) {
		t.Errorf("get after delete error = %v, want ErrNotFound", err)
	}
}

func TestRun_CompositeKey(t *testing.T) {
	e := newTestEnv(t)
	conn := []string{"--connection", e.conn}
	cmd := func(args ...string) []string { return append(append([]string{}, conn...), args...) }

	e.mustRun(t, cmd("insert", "loan", `{"book":1,"member":"ann","due":"2026-11-01"}`)...)

	out := e.mustRun(t, cmd("get", "loan", "book=1", "member=ann")...)
	if !strings.Contains(out, `"member":"ann"`) {
		t.Errorf("get output = %q", out)
	}
	if _, err := e.run(t, "", cmd("get", "loan", "1")...); !errors.Is(err, table.ErrMissingKey) {
		t.Errorf("get with scalar key error = %v, want ErrMissingKey", err)
	}
	e.mustRun(t, cmd("delete", "loan", "book=1", "member=ann")...)
	if out := e.mustRun(t, cmd("list", "loan", "--count")...); out != "0\n" {
		t.Errorf("count after delete = %q", out)
	}
}

func TestRun_Register(t *testing.T) {
	e := newTestEnv(t)

	if out := e.mustRun(t, "db", "add", "shop", e.conn); out != "registered shop\n" {
		t.Errorf("db add output = %q", out)
	}
	if _, err := e.run(t, "", "db", "add", "shop", e.conn); !errors.Is(err, config.ErrConnectionExists) {
		t.Errorf("duplicate db add error = %v, want ErrConnectionExists", err)
	}
	if out := e.mustRun(t, "db", "show", "shop"); out != e.conn+"\n" {
		t.Errorf("db show output = %q", out)
	}
	if out := e.mustRun(t, "db", "list"); !strings.HasPrefix(out, "shop") {
		t.Errorf("db list output = %q", out)
	}

	if out := e.mustRun(t, "--db", "shop", "insert", "book", `{"title":"Dune"}`); out != "1\n" {
		t.Errorf("insert via registered name = %q", out)
	}

	e.mustRun(t, "db", "remove", "shop")
	if _, err := e.run(t, "", "--db", "shop", "list", "book"); !errors.Is(err, config.ErrConnectionNotFound) {
		t.Errorf("list with removed name error = %v, want ErrConnectionNotFound", err)
	}
}

func TestRun_Errors(t *testing.T) {
	e := newTestEnv(t)

	if _, err := e.run(t, "", "list", "book"); !errors.Is(err, errNoDatabase) {
		t.Errorf("no database error = %v, want errNoDatabase", err)
	}
	if _, err := e.run(t, "", "--connection", e.conn, "list", "nope"); !errors.Is(err, table.ErrTableNotFound) {
		t.Errorf("unknown table error = %v, want ErrTableNotFound", err)
	}
	if _, err := e.run(t, "", "--connection", e.conn, "insert", "book", `[1]`); err == nil {
		t.Error("insert with non-object record should fail")
	}
	if _, err := e.run(t, "", "--connection", e.conn, "list", "book", "--where", "pages"); err == nil {
		t.Error("--where without = should fail")
	}
	if _, err := e.run(t, "", "--connection", e.conn, "--schema", filepath.Join(e.dir, "missing.yaml"), "sync"); err == nil {
		t.Error("sync with missing schema should fail")
	}
}

func TestParseKey(t *testing.T) {
	if got := parseKey([]string{"42"}); got != "42" {
		t.Errorf("parseKey(42) = %#v", got)
	}
	got, ok := parseKey([]string{"book=1", "member=ann"}).(map[string]any)
	if !ok || got["book"] != "1" || got["member"] != "ann" {
		t.Errorf("parseKey(pairs) = %#v", got)
	}
}
