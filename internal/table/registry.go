package table

import (
	"fmt"
	"slices"
	"sync"
)

// Registry maps table names to tables. It is filled once when the
// database opens and read afterwards.
//
// All public methods are thread-safe.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]*Table
	order  []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tables: make(map[string]*Table)}
}

// Add registers t. Returns ErrDuplicateTable if the name is taken.
func (r *Registry) Add(t *Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tables[t.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTable, t.Name())
	}
	r.tables[t.Name()] = t
	r.order = append(r.order, t.Name())
	return nil
}

// Lookup returns the named table.
// Returns ErrTableNotFound if no table has that name.
func (r *Registry) Lookup(name string) (*Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTableNotFound, name)
	}
	return t, nil
}

// Tables returns the tables in registration order.
func (r *Registry) Tables() []*Table {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Table, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tables[name])
	}
	return out
}

// Names returns the table names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := slices.Clone(r.order)
	slices.Sort(out)
	return out
}

// Len returns the number of tables.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
