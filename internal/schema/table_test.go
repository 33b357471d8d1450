package schema

import (
	"errors"
	"testing"
)

func bookColumns() []Column {
	return []Column{
		{Name: "id", Type: TypeInteger, PrimaryKey: true, AutoIncrement: true},
		{Name: "title", Type: TypeText},
		{Name: "pages", Type: TypeInteger, Nullable: true},
	}
}

func TestNewTable(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		cols    []Column
		wantErr error
	}{
		{
			name:  "book",
			table: "book",
			cols:  bookColumns(),
		},
		{
			name:  "text key",
			table: "shelf",
			cols: []Column{
				{Name: "code", Type: TypeText, PrimaryKey: true},
				{Name: "label", Type: TypeText, Nullable: true},
			},
		},
		{
			name:  "composite key",
			table: "loan",
			cols: []Column{
				{Name: "book_id", Type: TypeInteger, PrimaryKey: true},
				{Name: "member", Type: TypeText, PrimaryKey: true},
			},
		},
		{
			name:    "bad table name",
			table:   "1book",
			cols:    bookColumns(),
			wantErr: ErrInvalidTable,
		},
		{
			name:    "no columns",
			table:   "book",
			wantErr: ErrInvalidTable,
		},
		{
			name:    "no primary key",
			table:   "book",
			cols:    []Column{{Name: "title", Type: TypeText}},
			wantErr: ErrInvalidTable,
		},
		{
			name:  "duplicate column",
			table: "book",
			cols: []Column{
				{Name: "id", Type: TypeInteger, PrimaryKey: true},
				{Name: "id", Type: TypeText},
			},
			wantErr: ErrInvalidColumn,
		},
		{
			name:    "unknown type",
			table:   "book",
			cols:    []Column{{Name: "id", Type: "uuid", PrimaryKey: true}},
			wantErr: ErrInvalidType,
		},
		{
			name:    "autoincrement on text",
			table:   "book",
			cols:    []Column{{Name: "id", Type: TypeText, PrimaryKey: true, AutoIncrement: true}},
			wantErr: ErrInvalidColumn,
		},
		{
			name:  "autoincrement off key",
			table: "book",
			cols: []Column{
				{Name: "id", Type: TypeInteger, PrimaryKey: true},
				{Name: "seq", Type: TypeInteger, AutoIncrement: true},
			},
			wantErr: ErrInvalidColumn,
		},
		{
			name:  "autoincrement on composite key",
			table: "loan",
			cols: []Column{
				{Name: "book_id", Type: TypeInteger, PrimaryKey: true, AutoIncrement: true},
				{Name: "member", Type: TypeText, PrimaryKey: true},
			},
			wantErr: ErrInvalidTable,
		},
		{
			name:  "default not convertible",
			table: "book",
			cols: []Column{
				{Name: "id", Type: TypeInteger, PrimaryKey: true},
				{Name: "pages", Type: TypeInteger, Default: "many"},
			},
			wantErr: ErrInvalidColumn,
		},
		{
			name:  "malformed reference",
			table: "book",
			cols: []Column{
				{Name: "id", Type: TypeInteger, PrimaryKey: true},
				{Name: "shelf", Type: TypeText, References: "shelf"},
			},
			wantErr: ErrInvalidColumn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.table, tt.cols...)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("NewTable() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewTable() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTableAccessors(t *testing.T) {
	tbl := MustTable("book", bookColumns()...)

	if tbl.Name() != "book" {
		t.Errorf("Name() = %q, want book", tbl.Name())
	}
	if tbl.Pkey() != "id" {
		t.Errorf("Pkey() = %q, want id", tbl.Pkey())
	}
	if !tbl.AutoKey() {
		t.Error("AutoKey() = false, want true")
	}
	names := tbl.ColumnNames()
	if len(names) != 3 || names[0] != "id" || names[1] != "title" || names[2] != "pages" {
		t.Errorf("ColumnNames() = %v", names)
	}

	id, ok := tbl.Column("id")
	if !ok || id.Nullable {
		t.Errorf("Column(id) = %+v, %v; want non-nullable key", id, ok)
	}
	if _, ok := tbl.Column("genre"); ok {
		t.Error("Column(genre) should not exist")
	}

	cols := tbl.Columns()
	cols[0].Name = "mutated"
	if tbl.ColumnNames()[0] != "id" {
		t.Error("Columns() exposed internal state")
	}

	title, _ := tbl.Column("title")
	if !title.Required() {
		t.Error("title should be required")
	}
	if id.Required() {
		t.Error("autoincrement key should not be required")
	}
}

func TestCompositeKey(t *testing.T) {
	tbl := MustTable("loan",
		Column{Name: "book_id", Type: TypeInteger, PrimaryKey: true},
		Column{Name: "member", Type: TypeText, PrimaryKey: true, Nullable: true},
		Column{Name: "due", Type: TypeDate, Nullable: true},
	)

	if tbl.Pkey() != "" {
		t.Errorf("Pkey() = %q, want empty for composite key", tbl.Pkey())
	}
	if pk := tbl.PrimaryKey(); len(pk) != 2 || pk[0] != "book_id" || pk[1] != "member" {
		t.Errorf("PrimaryKey() = %v", pk)
	}
	if tbl.AutoKey() {
		t.Error("AutoKey() = true for composite key")
	}
	member, _ := tbl.Column("member")
	if member.Nullable {
		t.Error("key column must be forced NOT NULL")
	}
}

func TestMustTablePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustTable() did not panic on invalid declaration")
		}
	}()
	MustTable("book")
}

func TestReferencedTable(t *testing.T) {
	c := Column{Name: "shelf", Type: TypeText, References: "shelf.code"}
	table, column, ok := c.ReferencedTable()
	if !ok || table != "shelf" || column != "code" {
		t.Errorf("ReferencedTable() = %q, %q, %v", table, column, ok)
	}
	if _, _, ok := (Column{Name: "x"}).ReferencedTable(); ok {
		t.Error("ReferencedTable() ok for column without reference")
	}
}
