// microdb - micro database framework
//
// This is the command line entry point. It manages the connection register,
// synchronizes declared schemas, performs single-table CRUD with records
// as JSON, and watches the change feed.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/nerrad567/microdb/internal/adapter"
	"github.com/nerrad567/microdb/internal/changefeed"
	"github.com/nerrad567/microdb/internal/infrastructure/config"
	"github.com/nerrad567/microdb/internal/infrastructure/influxdb"
	"github.com/nerrad567/microdb/internal/infrastructure/logging"
	"github.com/nerrad567/microdb/internal/infrastructure/mqtt"
	"github.com/nerrad567/microdb/internal/microdb"
	"github.com/nerrad567/microdb/internal/schema"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// errNoDatabase is returned when neither a connection nor a registered
// name selects a database.
var errNoDatabase = errors.New("no database selected: use --db, --connection or database.connection in the config")

// Globals are the flags shared by every command.
type Globals struct {
	Config     string `name:"config" short:"c" help:"Configuration file." type:"path" env:"MICRODB_CONFIG"`
	Database   string `name:"db" help:"Registered database name."`
	Connection string `name:"connection" help:"Connection string; overrides --db."`
	Schema     string `name:"schema" help:"Schema declaration file." type:"path"`
}

// CLI defines the command-line interface.
type CLI struct {
	Globals `embed:""`

	Register RegisterGroup `cmd:"" name:"db" help:"Manage the connection register."`
	Sync     SyncCmd       `cmd:"" help:"Synchronize declared tables and print what changed."`
	Get      GetCmd        `cmd:"" help:"Print one record."`
	List     ListCmd       `cmd:"" help:"Print matching records, one JSON object per line."`
	Insert   InsertCmd     `cmd:"" help:"Insert a record and print its key."`
	Update   UpdateCmd     `cmd:"" help:"Update a record by primary key."`
	Delete   DeleteCmd     `cmd:"" help:"Delete a record by primary key."`
	Watch    WatchCmd      `cmd:"" help:"Print committed changes from the change feed."`
	Version  VersionCmd    `cmd:"" help:"Print version information."`
}

func main() {
	// Cancel on interrupt so watch and long syncs stop cleanly.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run parses args and executes the selected command, separated from main
// for testability.
func run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("microdb"),
		kong.Description("Declarative tables with schema synchronization, CRUD and a change feed."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Writers(out, os.Stderr),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return kctx.Run(&app{ctx: ctx, in: in, out: out, globals: cli.Globals})
}

// app carries what every command needs.
type app struct {
	ctx     context.Context
	in      io.Reader
	out     io.Writer
	globals Globals
}

// loadConfig loads the configuration and applies the global flags.
func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.globals.Config)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if a.globals.Database != "" {
		cfg.Database.Name = a.globals.Database
	}
	if a.globals.Connection != "" {
		cfg.Database.Connection = a.globals.Connection
	}
	if a.globals.Schema != "" {
		cfg.Schema.Path = a.globals.Schema
	}
	return cfg, nil
}

// loadRegister opens the connection register named by cfg.
func loadRegister(cfg *config.Config) (*config.Register, error) {
	path := cfg.Registry.Path
	if path == "" {
		var err error
		if path, err = config.DefaultRegisterPath(); err != nil {
			return nil, err
		}
	}
	return config.LoadRegister(path)
}

// connection resolves the connection string for cfg.
func connection(cfg *config.Config) (string, error) {
	if cfg.Database.Connection != "" {
		return cfg.Database.Connection, nil
	}
	if cfg.Database.Name == "" {
		return "", errNoDatabase
	}
	reg, err := loadRegister(cfg)
	if err != nil {
		return "", err
	}
	return reg.Resolve(cfg.Database.Name)
}

// adapterOptions maps the database section onto connection options.
func adapterOptions(cfg *config.Config) adapter.ConnOptions {
	return adapter.ConnOptions{
		BusyTimeout:  cfg.Database.BusyTimeout,
		WALMode:      cfg.Database.WALMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	}
}

// databaseName is the name used in logs and change feed topics.
func databaseName(cfg *config.Config) string {
	if cfg.Database.Name != "" {
		return cfg.Database.Name
	}
	return "default"
}

// session is an open database with its optional change feed and metrics
// clients. close releases them in reverse order.
type session struct {
	db     *microdb.DB
	log    *logging.Logger
	closer []func()
}

func (s *session) close() {
	for i := len(s.closer) - 1; i >= 0; i-- {
		s.closer[i]()
	}
}

// open connects to the configured database, overriding the configured
// sync mode when mode is not empty.
func (a *app) open(mode microdb.SyncMode) (*session, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	log := logging.New(cfg.Logging, version)

	conn, err := connection(cfg)
	if err != nil {
		return nil, err
	}
	tables, err := schema.LoadFile(cfg.Schema.Path)
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}
	if mode == "" {
		if mode, err = microdb.ParseSyncMode(cfg.Schema.SyncMode); err != nil {
			return nil, err
		}
	}

	s := &session{log: log}
	opts := microdb.Options{
		Name:       databaseName(cfg),
		Connection: conn,
		Tables:     tables,
		SyncMode:   mode,
		Conn:       adapterOptions(cfg),
		Logger:     log.Component("microdb"),
	}

	if cfg.Changefeed.Enabled {
		client, err := mqtt.Connect(cfg.Changefeed.MQTT)
		if err != nil {
			return nil, fmt.Errorf("connecting to MQTT: %w", err)
		}
		client.SetLogger(log)
		s.closer = append(s.closer, func() {
			if err := client.Close(); err != nil {
				log.Error("error closing MQTT", "error", err)
			}
		})
		feed := changefeed.New(client, opts.Name, byte(cfg.Changefeed.MQTT.QoS)) //nolint:gosec // QoS validated to 0-2
		feed.SetLogger(log.Component("changefeed"))
		opts.Publisher = feed
	}

	if cfg.InfluxDB.Enabled {
		client, err := influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		client.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		s.closer = append(s.closer, func() {
			if err := client.Close(); err != nil {
				log.Error("error closing InfluxDB", "error", err)
			}
		})
		metrics := microdb.NewMetrics(client)
		opts.TableObserver = metrics
		opts.SyncObserver = metrics
	}

	db, err := microdb.Open(a.ctx, opts)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s.db = db
	s.closer = append(s.closer, func() {
		if err := db.Close(); err != nil {
			log.Error("error closing database", "error", err)
		}
	})
	return s, nil
}
