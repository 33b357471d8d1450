package schema

import (
	"fmt"
	"regexp"
)

// Identifier limits.
const (
	maxIdentifierLength = 63
	identifierPattern   = `^[A-Za-z_][A-Za-z0-9_]*$`
)

var identifierRegex = regexp.MustCompile(identifierPattern)

// ValidIdentifier reports whether s is usable as a table or column name.
func ValidIdentifier(s string) bool {
	return len(s) <= maxIdentifierLength && identifierRegex.MatchString(s)
}

// Table is the declared schema of one table.
// A Table is immutable once built; accessors return copies.
type Table struct {
	name    string
	columns []Column
	index   map[string]int
	pk      []string
}

// NewTable validates and builds a table declaration.
//
// Rules:
//   - table and column names are identifiers, column names are unique
//   - every column has a known logical type
//   - exactly one primary key exists (one column or a composite set)
//   - AutoIncrement is only allowed on a single integer primary key
//   - defaults convert to the column type (binary columns take none)
//
// Primary key columns are forced NOT NULL.
func NewTable(name string, cols ...Column) (*Table, error) {
	if !ValidIdentifier(name) {
		return nil, fmt.Errorf("%w: name %q", ErrInvalidTable, name)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s has no columns", ErrInvalidTable, name)
	}

	t := &Table{
		name:    name,
		columns: make([]Column, 0, len(cols)),
		index:   make(map[string]int, len(cols)),
	}

	auto := 0
	for _, c := range cols {
		if !ValidIdentifier(c.Name) {
			return nil, fmt.Errorf("%w: %s.%q is not an identifier", ErrInvalidColumn, name, c.Name)
		}
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("%w: %s.%s declared twice", ErrInvalidColumn, name, c.Name)
		}
		if !c.Type.Valid() {
			return nil, fmt.Errorf("%w: %s.%s has type %q", ErrInvalidType, name, c.Name, c.Type)
		}
		if c.References != "" {
			rt, rc, ok := c.ReferencedTable()
			if !ok || !ValidIdentifier(rt) || !ValidIdentifier(rc) {
				return nil, fmt.Errorf("%w: %s.%s references %q, want table.column", ErrInvalidColumn, name, c.Name, c.References)
			}
		}
		if c.PrimaryKey {
			c.Nullable = false
			t.pk = append(t.pk, c.Name)
		}
		if c.AutoIncrement {
			if !c.PrimaryKey || c.Type != TypeInteger {
				return nil, fmt.Errorf("%w: %s.%s autoincrement requires an integer primary key", ErrInvalidColumn, name, c.Name)
			}
			auto++
		}
		if c.Default != nil {
			if c.Type == TypeBinary {
				return nil, fmt.Errorf("%w: %s.%s binary columns cannot declare a default", ErrInvalidColumn, name, c.Name)
			}
			d, err := c.Normalize(c.Default)
			if err != nil {
				return nil, fmt.Errorf("%w: %s.%s default: %w", ErrInvalidColumn, name, c.Name, err)
			}
			c.Default = d
		}
		t.index[c.Name] = len(t.columns)
		t.columns = append(t.columns, c)
	}

	if len(t.pk) == 0 {
		return nil, fmt.Errorf("%w: %s has no primary key", ErrInvalidTable, name)
	}
	if auto > 0 && len(t.pk) > 1 {
		return nil, fmt.Errorf("%w: %s autoincrement is not allowed on a composite key", ErrInvalidTable, name)
	}
	return t, nil
}

// MustTable is like NewTable but panics on error.
// It is intended for package-level declarations.
func MustTable(name string, cols ...Column) *Table {
	t, err := NewTable(name, cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Columns returns the declared columns in order.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// Column returns the named column.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.columns[i], true
}

// HasColumn reports whether the table declares name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// ColumnNames returns the column names in declaration order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.Name
	}
	return out
}

// PrimaryKey returns the primary key column names in declaration order.
func (t *Table) PrimaryKey() []string {
	out := make([]string, len(t.pk))
	copy(out, t.pk)
	return out
}

// Pkey returns the single-column primary key name, or "" when the key is composite.
func (t *Table) Pkey() string {
	if len(t.pk) == 1 {
		return t.pk[0]
	}
	return ""
}

// AutoKey reports whether the primary key is generated by the database.
func (t *Table) AutoKey() bool {
	if len(t.pk) != 1 {
		return false
	}
	c, _ := t.Column(t.pk[0])
	return c.AutoIncrement
}

// IsKey reports whether name is part of the primary key.
func (t *Table) IsKey(name string) bool {
	c, ok := t.Column(name)
	return ok && c.PrimaryKey
}
