package schema

import (
	"encoding/json"
	"testing"
)

func TestRecordOrder(t *testing.T) {
	r := NewRecord().Set("title", "Dune").Set("pages", 412).Set("id", 1)
	r.Set("pages", 450)

	cols := r.Columns()
	if len(cols) != 3 || cols[0] != "title" || cols[1] != "pages" || cols[2] != "id" {
		t.Errorf("Columns() = %v, want [title pages id]", cols)
	}
	if r.Value("pages") != 450 {
		t.Errorf("Value(pages) = %v, want 450", r.Value("pages"))
	}

	r.Delete("pages")
	if r.Has("pages") || r.Len() != 2 {
		t.Errorf("after Delete, Has(pages) = %v, Len() = %d", r.Has("pages"), r.Len())
	}
	r.Delete("missing")
	if r.Len() != 2 {
		t.Error("Delete of missing column changed the record")
	}
}

func TestRecordNilValue(t *testing.T) {
	r := NewRecord().Set("genre", nil)
	v, ok := r.Get("genre")
	if !ok || v != nil {
		t.Errorf("Get(genre) = %v, %v; want nil, true", v, ok)
	}
	if r.Value("absent") != nil {
		t.Error("Value(absent) should be nil")
	}
}

func TestRecordClone(t *testing.T) {
	r := NewRecord().Set("data", []byte("abc")).Set("title", "Dune")
	c := r.Clone()
	c.Set("title", "Emma")
	c.Value("data").([]byte)[0] = 'x'

	if r.Value("title") != "Dune" {
		t.Error("Clone() shares values with the original")
	}
	if string(r.Value("data").([]byte)) != "abc" {
		t.Error("Clone() shares byte slices with the original")
	}
}

func TestRecordFromMapSorted(t *testing.T) {
	r := RecordFromMap(map[string]any{"title": "Dune", "author": "Herbert", "id": int64(1)})
	cols := r.Columns()
	if len(cols) != 3 || cols[0] != "author" || cols[1] != "id" || cols[2] != "title" {
		t.Errorf("Columns() = %v, want sorted", cols)
	}
	if len(r.Map()) != 3 {
		t.Errorf("Map() has %d entries, want 3", len(r.Map()))
	}
}

func TestRecordEqual(t *testing.T) {
	a := NewRecord().Set("id", int64(1)).Set("data", []byte{1, 2})
	b := NewRecord().Set("data", []byte{1, 2}).Set("id", int64(1))
	if !a.Equal(b) {
		t.Error("Equal() = false for same values in different order")
	}
	b.Set("id", int64(2))
	if a.Equal(b) {
		t.Error("Equal() = true for different values")
	}
}

func TestRecordJSON(t *testing.T) {
	r := NewRecord().Set("title", "Dune").Set("pages", int64(412)).Set("genre", nil)

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"title":"Dune","pages":412,"genre":null}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}

	var back Record
	if err := json.Unmarshal([]byte(`{"pages": 412, "title": "Dune", "id": 9007199254740993}`), &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	cols := back.Columns()
	if len(cols) != 3 || cols[0] != "pages" || cols[2] != "id" {
		t.Errorf("Unmarshal() columns = %v, want input order", cols)
	}
	n, ok := back.Value("id").(json.Number)
	if !ok || n.String() != "9007199254740993" {
		t.Errorf("id = %#v, want exact json.Number", back.Value("id"))
	}

	if err := json.Unmarshal([]byte(`[1,2]`), &back); err == nil {
		t.Error("Unmarshal() of array should fail")
	}
}
