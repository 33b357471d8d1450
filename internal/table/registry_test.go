package table

import (
	"errors"
	"testing"
)

func TestRegistry(t *testing.T) {
	_, shelf, book := openBookstore(t)
	r := NewRegistry()

	for _, tbl := range []*Table{shelf, book} {
		if err := r.Add(tbl); err != nil {
			t.Fatalf("Add(%s) error = %v", tbl.Name(), err)
		}
	}
	if err := r.Add(book); !errors.Is(err, ErrDuplicateTable) {
		t.Errorf("Add(duplicate) error = %v, want ErrDuplicateTable", err)
	}

	got, err := r.Lookup("book")
	if err != nil {
		t.Fatalf("Lookup(book) error = %v", err)
	}
	if got != book {
		t.Error("Lookup(book) returned a different table")
	}

	if _, err := r.Lookup("author"); !errors.Is(err, ErrTableNotFound) {
		t.Errorf("Lookup(author) error = %v, want ErrTableNotFound", err)
	}

	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
	names := r.Names()
	if len(names) != 2 || names[0] != "book" || names[1] != "shelf" {
		t.Errorf("Names() = %v, want [book shelf]", names)
	}
	tables := r.Tables()
	if len(tables) != 2 || tables[0] != shelf || tables[1] != book {
		t.Error("Tables() not in registration order")
	}
}
