package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Database configuration constants.
const (
	// dirPermissions is the permission mode for the database directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for the database file.
	filePermissions = 0600

	// connectionTimeout is the timeout for verifying database connectivity.
	connectionTimeout = 5 * time.Second
)

// ErrNoDriver is returned when Open is called without a driver name.
var ErrNoDriver = errors.New("database: driver name is required")

// DB wraps a sql.DB connection with microdb-specific functionality.
// It provides scoped transactions, health checks, and lifecycle management.
type DB struct {
	*sql.DB
	driver string
	path   string
	runTx  TxRunner
}

// Config contains database connection options.
// Dialect adapters fill it in from a connection string; see adapter.Resolve.
type Config struct {
	// Driver is the database/sql driver name (e.g. "sqlite3", "pgx", "mysql").
	Driver string

	// DSN is the driver-specific data source name.
	DSN string

	// Path is the filesystem path of a file-backed database, if any.
	// Its directory is created on open and the file is restricted to 0600.
	Path string

	// MaxOpenConns limits open connections. Zero means unlimited.
	// File databases with a single writer should use 1.
	MaxOpenConns int

	// MaxIdleConns limits idle connections kept in the pool.
	MaxIdleConns int

	// ConnMaxLifetime is the maximum time a connection may be reused.
	// Zero means connections are never closed due to age.
	ConnMaxLifetime time.Duration

	// ConnMaxIdleTime is how long idle connections are kept open.
	ConnMaxIdleTime time.Duration
}

// Open creates a new database connection with the specified configuration.
//
// It performs the following setup:
//  1. Creates the database directory if the database is file-backed
//  2. Opens the connection pool with the configured limits
//  3. Verifies the connection with a ping
//  4. Sets file permissions (0600) for file-backed databases
//
// Connectivity failures surface promptly: the ping is bounded by a
// five second timeout derived from ctx.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.Driver == "" {
		return nil, ErrNoDriver
	}

	if cfg.Path != "" {
		dir := filepath.Dir(cfg.Path)
		if err := os.MkdirAll(dir, dirPermissions); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	db := &DB{
		DB:     sqlDB,
		driver: cfg.Driver,
		path:   cfg.Path,
		runTx:  runStandardTx,
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		sqlDB.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	if cfg.Path != "" {
		_ = os.Chmod(cfg.Path, filePermissions) //nolint:errcheck // File may be created lazily by the driver
	}

	return db, nil
}

// Close closes the database connection gracefully.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Driver returns the database/sql driver name the pool was opened with.
func (db *DB) Driver() string {
	return db.driver
}

// Path returns the filesystem path to the database file, or "" for
// server-backed databases.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck verifies the database is accessible and functioning.
// It performs a simple query to ensure the connection is alive.
func (db *DB) HealthCheck(ctx context.Context) error {
	var result int
	err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result)
	if err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Stats returns database connection pool statistics.
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}

// ExecContext executes a query that doesn't return rows (INSERT, UPDATE, DELETE, DDL).
// This is a convenience wrapper that provides consistent error handling.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	result, err := db.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	return result, nil
}

// BeginTx starts a new transaction with the given options.
// Most callers should use WithTx, which guarantees commit-or-rollback.
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	tx, err := db.DB.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	return tx, nil
}
