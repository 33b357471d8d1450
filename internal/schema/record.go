package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"time"
)

// Record is an ordered mapping of column name to value representing one row.
//
// Records are built fresh on every read; a Record never aliases table
// state, so callers may modify it freely.
type Record struct {
	keys []string
	vals map[string]any
}

// NewRecord creates an empty record.
func NewRecord() *Record {
	return &Record{vals: make(map[string]any)}
}

// RecordFromMap builds a record from m with columns in sorted order.
func RecordFromMap(m map[string]any) *Record {
	r := &Record{vals: make(map[string]any, len(m))}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		r.Set(k, m[k])
	}
	return r
}

// Set assigns v to column and returns the record for chaining.
// An existing column keeps its position.
//
// Example:
//
//	rec := schema.NewRecord().Set("title", "Dune").Set("pages", 412)
func (r *Record) Set(column string, v any) *Record {
	if r.vals == nil {
		r.vals = make(map[string]any)
	}
	if _, ok := r.vals[column]; !ok {
		r.keys = append(r.keys, column)
	}
	r.vals[column] = v
	return r
}

// Get returns the value of column and whether it is present.
func (r *Record) Get(column string) (any, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.vals[column]
	return v, ok
}

// Value returns the value of column, or nil when absent.
func (r *Record) Value(column string) any {
	v, _ := r.Get(column)
	return v
}

// Has reports whether column is present (its value may be nil).
func (r *Record) Has(column string) bool {
	_, ok := r.Get(column)
	return ok
}

// Delete removes column from the record.
func (r *Record) Delete(column string) {
	if _, ok := r.vals[column]; !ok {
		return
	}
	delete(r.vals, column)
	r.keys = slices.DeleteFunc(r.keys, func(k string) bool { return k == column })
}

// Columns returns the column names in order.
func (r *Record) Columns() []string {
	if r == nil {
		return nil
	}
	return slices.Clone(r.keys)
}

// Len returns the number of columns.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Clone returns an independent copy. Byte slices are copied.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := &Record{keys: slices.Clone(r.keys), vals: make(map[string]any, len(r.vals))}
	for k, v := range r.vals {
		if b, ok := v.([]byte); ok {
			v = bytes.Clone(b)
		}
		out.vals[k] = v
	}
	return out
}

// Map returns the record as a plain map.
func (r *Record) Map() map[string]any {
	out := make(map[string]any, r.Len())
	if r == nil {
		return out
	}
	for k, v := range r.vals {
		out[k] = v
	}
	return out
}

// Equal reports whether r and other hold the same columns and values.
// Column order is ignored; times compare with time.Equal.
func (r *Record) Equal(other *Record) bool {
	if r.Len() != other.Len() {
		return false
	}
	for _, k := range r.Columns() {
		ov, ok := other.Get(k)
		if !ok || !ValuesEqual(r.Value(k), ov) {
			return false
		}
	}
	return true
}

// ValuesEqual compares two canonical values.
func ValuesEqual(a, b any) bool {
	switch x := a.(type) {
	case []byte:
		y, ok := b.([]byte)
		return ok && bytes.Equal(x, y)
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	}
	return reflect.DeepEqual(a, b)
}

// String renders the record for logs.
func (r *Record) String() string {
	b, err := r.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("record(%d columns)", r.Len())
	}
	return string(b)
}

// MarshalJSON encodes the record as a JSON object in column order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.Columns() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')

		vb, err := json.Marshal(r.vals[k])
		if err != nil {
			return nil, fmt.Errorf("encoding column %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the key order.
// Numbers are decoded as json.Number so integers survive intact;
// Column.Normalize converts them to the column type.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%w: record must be a JSON object", ErrInvalidValue)
	}

	*r = Record{vals: make(map[string]any)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("%w: unexpected token %v", ErrInvalidValue, tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("decoding column %q: %w", key, err)
		}
		r.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
