// Package schema provides the declarative schema model for microdb.
//
// Application code declares each table once, either in Go or in a YAML
// schema file. The declaration is dialect independent: columns carry a
// LogicalType and adapters translate it to a concrete type name.
//
// # Key Types
//
//   - LogicalType: text, integer, float, boolean, binary, decimal, date, datetime, time
//   - Column: name, type, nullability, default, key flags, optional reference
//   - Table: an immutable, validated column list with its primary key
//   - Record: an ordered column to value mapping for one row
//
// # Usage
//
//	book := schema.MustTable("book",
//	    schema.Column{Name: "id", Type: schema.TypeInteger, PrimaryKey: true, AutoIncrement: true},
//	    schema.Column{Name: "title", Type: schema.TypeText},
//	    schema.Column{Name: "pages", Type: schema.TypeInteger, Nullable: true},
//	)
//
//	tables, err := schema.LoadFile("/etc/microdb/schema.yaml")
//
// # Values
//
// Column.Normalize converts whatever a driver or JSON decoder produced into
// one canonical Go type per logical type, so records read back from any
// dialect compare equal.
package schema
