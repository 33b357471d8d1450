package adapter

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/microdb/internal/infrastructure/database"
)

// Pool defaults for client-server dialects.
const (
	defaultServerConns = 10
	serverConnLifetime = 30 * time.Minute
)

// Factory builds an adapter and the connection configuration for a
// connection string whose scheme it was registered for.
type Factory func(conn string, opts ConnOptions) (Adapter, database.Config, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// Register makes a dialect available under a connection scheme
// ("postgres" for postgres://...). Registering a scheme twice replaces
// the earlier factory.
func Register(scheme string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[strings.ToLower(scheme)] = f
}

// Schemes returns the registered connection schemes in sorted order.
func Schemes() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	out := make([]string, 0, len(factories))
	for s := range factories {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// Resolve selects the dialect for conn once, at open time.
//
// Connection forms:
//
//	sqlite:///var/lib/microdb/books.db   SQLite file
//	/var/lib/microdb/books.db            bare path, SQLite
//	:memory:                             in-memory SQLite
//	postgres://user:pw@host/db           PostgreSQL (also postgresql://)
//	mysql://user:pw@host:3306/db         MySQL
//	cockroachdb://user@host:26257/db     CockroachDB
//
// Returns ErrUnknownDialect for an unregistered scheme.
func Resolve(conn string, opts ConnOptions) (Adapter, database.Config, error) {
	conn = strings.TrimSpace(conn)
	if conn == "" {
		return nil, database.Config{}, fmt.Errorf("%w: empty connection string", ErrUnknownDialect)
	}

	scheme := "sqlite"
	if i := strings.Index(conn, "://"); i > 0 {
		scheme = strings.ToLower(conn[:i])
	}

	factoriesMu.RLock()
	f, ok := factories[scheme]
	factoriesMu.RUnlock()
	if !ok {
		return nil, database.Config{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownDialect, scheme, strings.Join(Schemes(), ", "))
	}
	return f(conn, opts)
}
