package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Register errors.
var (
	// ErrConnectionNotFound is returned when a name is not registered.
	ErrConnectionNotFound = errors.New("config: connection not registered")

	// ErrConnectionExists is returned when adding a name that is already registered.
	ErrConnectionExists = errors.New("config: connection already registered")

	// ErrInvalidConnection is returned for an invalid name or empty connection string.
	ErrInvalidConnection = errors.New("config: invalid connection")
)

// Register file permissions. Connection strings may carry credentials.
const (
	registerDirPerm  = 0o700
	registerFilePerm = 0o600
)

var connectionNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// Register maps connection names to connection strings.
//
// The register lets tools address a database by a short name
// ("bookstore") instead of its full connection string. It is persisted
// as YAML:
//
//	connections:
//	  bookstore: sqlite:///home/ann/.microdb/bookstore.db
//	  warehouse: postgres://app@db.internal/warehouse
//
// A Register is not safe for concurrent use.
type Register struct {
	path        string
	Connections map[string]string `yaml:"connections"`
}

// RegisterEntry is one registered connection.
type RegisterEntry struct {
	Name       string
	Connection string
}

// DefaultRegisterPath returns ~/.microdb/db/register.yaml.
func DefaultRegisterPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, ".microdb", "db", "register.yaml"), nil
}

// LoadRegister reads the register at path. A missing file yields an empty
// register that Save will create.
func LoadRegister(path string) (*Register, error) {
	r := &Register{path: path, Connections: make(map[string]string)}

	data, err := os.ReadFile(path) //nolint:gosec // Path comes from configuration
	if errors.Is(err, os.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading register: %w", err)
	}
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parsing register %s: %w", path, err)
	}
	if r.Connections == nil {
		r.Connections = make(map[string]string)
	}
	return r, nil
}

// Path returns the file the register is saved to.
func (r *Register) Path() string { return r.path }

// Add registers conn under name.
// Returns ErrConnectionExists if name is taken and ErrInvalidConnection
// for a malformed name or an empty connection string.
func (r *Register) Add(name, conn string) error {
	if !connectionNameRegex.MatchString(name) {
		return fmt.Errorf("%w: name %q", ErrInvalidConnection, name)
	}
	conn = strings.TrimSpace(conn)
	if conn == "" {
		return fmt.Errorf("%w: empty connection string for %q", ErrInvalidConnection, name)
	}
	if _, ok := r.Connections[name]; ok {
		return fmt.Errorf("%w: %q", ErrConnectionExists, name)
	}
	r.Connections[name] = conn
	return nil
}

// Remove unregisters name.
func (r *Register) Remove(name string) error {
	if _, ok := r.Connections[name]; !ok {
		return fmt.Errorf("%w: %q", ErrConnectionNotFound, name)
	}
	delete(r.Connections, name)
	return nil
}

// Get returns the connection string registered under name.
func (r *Register) Get(name string) (string, error) {
	conn, ok := r.Connections[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrConnectionNotFound, name)
	}
	return conn, nil
}

// List returns the registered connections sorted by name.
func (r *Register) List() []RegisterEntry {
	out := make([]RegisterEntry, 0, len(r.Connections))
	for name, conn := range r.Connections {
		out = append(out, RegisterEntry{Name: name, Connection: conn})
	}
	slices.SortFunc(out, func(a, b RegisterEntry) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Save writes the register, creating its directory if needed. The file is
// replaced atomically.
func (r *Register) Save() error {
	if err := os.MkdirAll(filepath.Dir(r.path), registerDirPerm); err != nil {
		return fmt.Errorf("creating register directory: %w", err)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding register: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".register-*.yaml")
	if err != nil {
		return fmt.Errorf("creating register: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // Already renamed on success

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck // Write error takes precedence
		return fmt.Errorf("writing register: %w", err)
	}
	if err := tmp.Chmod(registerFilePerm); err != nil {
		tmp.Close() //nolint:errcheck // Chmod error takes precedence
		return fmt.Errorf("writing register: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing register: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replacing register: %w", err)
	}
	return nil
}

// Resolve returns the connection string for a database setting that is
// either a registered name or a connection string. Values containing
// "://" or a path separator, and ":memory:", are treated as connection
// strings.
func (r *Register) Resolve(nameOrConn string) (string, error) {
	if strings.Contains(nameOrConn, "://") || strings.ContainsRune(nameOrConn, os.PathSeparator) ||
		strings.ContainsRune(nameOrConn, '/') || nameOrConn == ":memory:" {
		return nameOrConn, nil
	}
	return r.Get(nameOrConn)
}
