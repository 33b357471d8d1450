package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/nerrad567/microdb/internal/changefeed"
	"github.com/nerrad567/microdb/internal/infrastructure/config"
	"github.com/nerrad567/microdb/internal/infrastructure/mqtt"
	"github.com/nerrad567/microdb/internal/microdb"
	"github.com/nerrad567/microdb/internal/schema"
	"github.com/nerrad567/microdb/internal/table"
)

// =============================================================================
// Connection register
// =============================================================================

// RegisterGroup contains the connection register commands.
type RegisterGroup struct {
	Add    RegisterAddCmd    `cmd:"" help:"Register a connection string under a name."`
	Remove RegisterRemoveCmd `cmd:"" help:"Remove a registered connection."`
	List   RegisterListCmd   `cmd:"" help:"List registered connections."`
	Show   RegisterShowCmd   `cmd:"" help:"Print one registered connection string."`
}

// RegisterAddCmd registers a connection.
type RegisterAddCmd struct {
	Name       string `arg:"" help:"Connection name."`
	Connection string `arg:"" help:"Connection string."`
}

// Run adds the connection and saves the register.
func (c *RegisterAddCmd) Run(a *app) error {
	reg, err := a.register()
	if err != nil {
		return err
	}
	if err := reg.Add(c.Name, c.Connection); err != nil {
		return err
	}
	if err := reg.Save(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "registered %s\n", c.Name)
	return nil
}

// RegisterRemoveCmd removes a connection.
type RegisterRemoveCmd struct {
	Name string `arg:"" help:"Connection name."`
}

// Run removes the connection and saves the register.
func (c *RegisterRemoveCmd) Run(a *app) error {
	reg, err := a.register()
	if err != nil {
		return err
	}
	if err := reg.Remove(c.Name); err != nil {
		return err
	}
	if err := reg.Save(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "removed %s\n", c.Name)
	return nil
}

// RegisterListCmd lists connections.
type RegisterListCmd struct{}

// Run prints the register as a name/connection table.
func (c *RegisterListCmd) Run(a *app) error {
	reg, err := a.register()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, e := range reg.List() {
		fmt.Fprintf(w, "%s\t%s\n", e.Name, e.Connection)
	}
	return w.Flush()
}

// RegisterShowCmd prints one connection.
type RegisterShowCmd struct {
	Name string `arg:"" help:"Connection name."`
}

// Run prints the connection string registered under Name.
func (c *RegisterShowCmd) Run(a *app) error {
	reg, err := a.register()
	if err != nil {
		return err
	}
	conn, err := reg.Get(c.Name)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, conn)
	return nil
}

// =============================================================================
// Schema synchronization
// =============================================================================

// SyncCmd synchronizes every declared table.
type SyncCmd struct{}

// Run opens the database without synchronizing, then synchronizes every
// table and prints the executed statements and unresolved drift.
func (c *SyncCmd) Run(a *app) error {
	s, err := a.open(microdb.SyncOff)
	if err != nil {
		return err
	}
	defer s.close()

	plans, syncErr := s.db.Sync(a.ctx)
	for _, p := range plans {
		state := "in sync"
		switch {
		case p.Created:
			state = "created"
		case !p.Empty():
			state = "migrated"
		}
		fmt.Fprintf(a.out, "%s: %s\n", p.Table, state)
		for _, stmt := range p.Statements {
			fmt.Fprintf(a.out, "  %s\n", stmt)
		}
		for _, d := range p.Drift {
			fmt.Fprintf(a.out, "  drift: %s\n", d)
		}
	}
	return syncErr
}

// =============================================================================
// CRUD
// =============================================================================

// GetCmd prints one record.
type GetCmd struct {
	Table string   `arg:"" help:"Table name."`
	Key   []string `arg:"" help:"Primary key value, or column=value pairs for a composite key."`
}

// Run fetches the record and prints it as JSON.
func (c *GetCmd) Run(a *app) error {
	return a.withTable(c.Table, func(t *table.Table) error {
		rec, err := t.Get(a.ctx, parseKey(c.Key))
		if err != nil {
			return err
		}
		return writeJSON(a.out, rec)
	})
}

// ListCmd prints matching records.
type ListCmd struct {
	Table string   `arg:"" help:"Table name."`
	Where []string `name:"where" short:"w" sep:"none" help:"Equality filter column=value (repeatable)."`
	Like  []string `name:"like" sep:"none" help:"Pattern filter column=pattern (repeatable)."`
	Order string   `name:"order" help:"Order by column (default: primary key)."`
	Desc  bool     `name:"desc" help:"Descending order."`
	Limit int      `name:"limit" help:"Maximum number of records."`
	Count bool     `name:"count" help:"Print the number of matching records instead."`
}

// Run lists the records, one JSON object per line.
func (c *ListCmd) Run(a *app) error {
	opts, err := c.options()
	if err != nil {
		return err
	}
	return a.withTable(c.Table, func(t *table.Table) error {
		if c.Count {
			n, err := t.Count(a.ctx, opts...)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, n)
			return nil
		}
		for rec, err := range t.List(a.ctx, opts...) {
			if err != nil {
				return err
			}
			if err := writeJSON(a.out, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *ListCmd) options() ([]table.QueryOption, error) {
	var opts []table.QueryOption
	for _, w := range c.Where {
		col, v, ok := strings.Cut(w, "=")
		if !ok {
			return nil, fmt.Errorf("--where %q: want column=value", w)
		}
		opts = append(opts, table.Eq(col, v))
	}
	for _, l := range c.Like {
		col, p, ok := strings.Cut(l, "=")
		if !ok {
			return nil, fmt.Errorf("--like %q: want column=pattern", l)
		}
		opts = append(opts, table.Like(col, p))
	}
	if c.Order != "" {
		if c.Desc {
			opts = append(opts, table.OrderByDesc(c.Order))
		} else {
			opts = append(opts, table.OrderBy(c.Order))
		}
	}
	if c.Limit > 0 {
		opts = append(opts, table.Limit(c.Limit))
	}
	return opts, nil
}

// InsertCmd inserts a record.
type InsertCmd struct {
	Table  string `arg:"" help:"Table name."`
	Record string `arg:"" help:"Record as a JSON object, or - to read it from stdin."`
}

// Run inserts the record and prints its key as JSON.
func (c *InsertCmd) Run(a *app) error {
	rec, err := a.readRecord(c.Record)
	if err != nil {
		return err
	}
	return a.withTable(c.Table, func(t *table.Table) error {
		key, err := t.Insert(a.ctx, rec)
		if err != nil {
			return err
		}
		return writeJSON(a.out, key)
	})
}

// UpdateCmd updates a record.
type UpdateCmd struct {
	Table  string `arg:"" help:"Table name."`
	Record string `arg:"" help:"Primary key and changed columns as a JSON object, or - for stdin."`
}

// Run applies the update.
func (c *UpdateCmd) Run(a *app) error {
	rec, err := a.readRecord(c.Record)
	if err != nil {
		return err
	}
	return a.withTable(c.Table, func(t *table.Table) error {
		return t.Update(a.ctx, rec)
	})
}

// DeleteCmd deletes a record.
type DeleteCmd struct {
	Table string   `arg:"" help:"Table name."`
	Key   []string `arg:"" help:"Primary key value, or column=value pairs for a composite key."`
}

// Run deletes the record.
func (c *DeleteCmd) Run(a *app) error {
	return a.withTable(c.Table, func(t *table.Table) error {
		return t.Delete(a.ctx, parseKey(c.Key))
	})
}

// =============================================================================
// Change feed
// =============================================================================

// WatchCmd prints committed changes.
type WatchCmd struct {
	Table string `arg:"" optional:"" help:"Only watch this table."`
}

// Run subscribes to the change feed and prints each change as JSON until
// interrupted. The database itself is not opened.
func (c *WatchCmd) Run(a *app) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	mqttCfg := cfg.Changefeed.MQTT
	mqttCfg.Broker.ClientID += "-watch"

	client, err := mqtt.Connect(mqttCfg)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer client.Close() //nolint:errcheck // Shutdown path

	var writeErr error
	err = changefeed.Watch(a.ctx, client, databaseName(cfg), c.Table, byte(mqttCfg.QoS), func(ch table.Change) { //nolint:gosec // QoS validated to 0-2
		if writeErr == nil {
			writeErr = writeJSON(a.out, ch)
		}
	})
	if err != nil {
		return err
	}
	return writeErr
}

// VersionCmd prints version information.
type VersionCmd struct{}

// Run prints the version.
func (c *VersionCmd) Run(a *app) error {
	fmt.Fprintf(a.out, "microdb %s (commit %s, built %s)\n", version, commit, date)
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

// register loads the connection register named by the configuration.
func (a *app) register() (*config.Register, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	return loadRegister(cfg)
}

// withTable opens the database, runs fn on the named table and closes it.
func (a *app) withTable(name string, fn func(t *table.Table) error) error {
	s, err := a.open("")
	if err != nil {
		return err
	}
	defer s.close()

	t, err := s.db.Table(name)
	if err != nil {
		return err
	}
	return fn(t)
}

// readRecord decodes a JSON object argument, reading stdin for "-".
func (a *app) readRecord(arg string) (*schema.Record, error) {
	data := []byte(arg)
	if arg == "-" {
		var err error
		if data, err = io.ReadAll(a.in); err != nil {
			return nil, fmt.Errorf("reading record: %w", err)
		}
	}
	rec := schema.NewRecord()
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("parsing record: %w", err)
	}
	return rec, nil
}

// parseKey turns key arguments into a scalar or a column map.
func parseKey(args []string) any {
	if len(args) == 1 && !strings.Contains(args[0], "=") {
		return args[0]
	}
	m := make(map[string]any, len(args))
	for _, arg := range args {
		col, v, _ := strings.Cut(arg, "=")
		m[col] = v
	}
	return m
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", b)
	return err
}
