package migrate

import (
	"fmt"

	"github.com/nerrad567/microdb/internal/adapter"
	"github.com/nerrad567/microdb/internal/schema"
)

// DriftKind classifies a disagreement between a declared and a live column.
type DriftKind string

// Drift kinds.
const (
	DriftType     DriftKind = "type"
	DriftNotNull  DriftKind = "notnull"
	DriftDefault  DriftKind = "default"
	nullSpelling            = "NULL"
	emptySpelling           = "none"
)

// Drift is one unresolved disagreement on a column present on both sides.
type Drift struct {
	Column   string
	Kind     DriftKind
	Declared string
	Live     string
}

// String renders the drift for logs.
func (d Drift) String() string {
	return fmt.Sprintf("%s %s: declared %s, live %s", d.Column, d.Kind, d.Declared, d.Live)
}

// Diff is the difference between a declared table and its live schema.
type Diff struct {
	// Add lists declared columns missing from the live table, in declaration order.
	Add []schema.Column

	// Drop lists live columns the declaration no longer has, sorted.
	Drop []string

	// Alter lists drift on columns present on both sides.
	Alter []Drift
}

// Empty reports whether live and declared schemas agree.
func (d Diff) Empty() bool {
	return len(d.Add) == 0 && len(d.Drop) == 0 && len(d.Alter) == 0
}

// ComputeDiff compares t with its live snapshot using the adapter's
// type and default comparison. Primary key columns are only checked for
// type: engines report their nullability and generated defaults
// inconsistently.
func ComputeDiff(a adapter.Adapter, t *schema.Table, live adapter.Snapshot) Diff {
	var d Diff

	for _, c := range t.Columns() {
		lc, ok := live[c.Name]
		if !ok {
			d.Add = append(d.Add, c)
			continue
		}
		if !a.TypeMatches(c.Type, lc.TypeName) {
			d.Alter = append(d.Alter, Drift{
				Column:   c.Name,
				Kind:     DriftType,
				Declared: a.TypeMap()[c.Type],
				Live:     lc.TypeName,
			})
		}
		if c.PrimaryKey {
			continue
		}
		if lc.NotNull == c.Nullable {
			d.Alter = append(d.Alter, Drift{
				Column:   c.Name,
				Kind:     DriftNotNull,
				Declared: nullability(!c.Nullable),
				Live:     nullability(lc.NotNull),
			})
		}
		if !a.DefaultMatches(c, lc.Default) {
			declared := a.FormatDefault(c)
			if declared == "" {
				declared = emptySpelling
			}
			liveDefault := emptySpelling
			if lc.Default != nil {
				liveDefault = *lc.Default
			}
			d.Alter = append(d.Alter, Drift{
				Column:   c.Name,
				Kind:     DriftDefault,
				Declared: declared,
				Live:     liveDefault,
			})
		}
	}

	for _, name := range live.Names() {
		if !t.HasColumn(name) {
			d.Drop = append(d.Drop, name)
		}
	}
	return d
}

func nullability(notNull bool) string {
	if notNull {
		return "NOT " + nullSpelling
	}
	return nullSpelling
}
