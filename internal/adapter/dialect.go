package adapter

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/microdb/internal/infrastructure/database"
	"github.com/nerrad567/microdb/internal/schema"
)

// rebuildPrefix names the shadow table used by the rebuild fallback.
const rebuildPrefix = "_rebuild_"

// dialect holds the dialect knowledge shared by every adapter.
// Concrete adapters embed it and supply introspection.
type dialect struct {
	name    string
	types   map[schema.LogicalType]string
	aliases map[string]string
	quote   string
	autoinc string

	// autoKeyDef renders the definition of an auto-generated integer key
	// after its quoted name, given the mapped integer type.
	autoKeyDef func(typeName string) string

	boolTrue, boolFalse string
	returning           bool
	dropColumn          bool
	emptyInsert         string
	placeholder         func(n int) string
	unavailable         func(error) bool
	introspect          func(ctx context.Context, ex database.Executor, table string) (Snapshot, error)
}

// ValidateTypeMap checks that m maps every logical type to a non-empty
// dialect type name.
func ValidateTypeMap(m map[schema.LogicalType]string) error {
	var missing []string
	for _, lt := range schema.AllLogicalTypes() {
		if strings.TrimSpace(m[lt]) == "" {
			missing = append(missing, string(lt))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: no mapping for %s", ErrInvalidTypeMap, strings.Join(missing, ", "))
	}
	return nil
}

func (d *dialect) validate() error {
	if err := ValidateTypeMap(d.types); err != nil {
		return fmt.Errorf("%s: %w", d.name, err)
	}
	return nil
}

// Name returns the dialect name.
func (d *dialect) Name() string { return d.name }

// TypeMap returns a copy of the logical to dialect type mapping.
func (d *dialect) TypeMap() map[schema.LogicalType]string {
	out := make(map[schema.LogicalType]string, len(d.types))
	for k, v := range d.types {
		out[k] = v
	}
	return out
}

// SupportsDropColumn reports whether columns can be dropped natively.
func (d *dialect) SupportsDropColumn() bool { return d.dropColumn }

// AutoincrementSyntax returns the generated key token.
func (d *dialect) AutoincrementSyntax() string { return d.autoinc }

// QuoteIdent quotes name, doubling embedded quote characters.
func (d *dialect) QuoteIdent(name string) string {
	return d.quote + strings.ReplaceAll(name, d.quote, d.quote+d.quote) + d.quote
}

// Placeholder returns the n-th bind marker.
func (d *dialect) Placeholder(n int) string {
	if d.placeholder == nil {
		return "?"
	}
	return d.placeholder(n)
}

func (d *dialect) columnDef(c schema.Column, inlineAutoKey bool) string {
	typeName := d.types[c.Type]
	if inlineAutoKey {
		return d.QuoteIdent(c.Name) + " " + d.autoKeyDef(typeName)
	}
	var b strings.Builder
	b.WriteString(d.QuoteIdent(c.Name))
	b.WriteByte(' ')
	b.WriteString(typeName)
	if !c.Nullable {
		b.WriteString(" NOT NULL")
	}
	if def := d.FormatDefault(c); def != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(def)
	}
	return b.String()
}

// CreateTableSQL renders CREATE TABLE for t.
func (d *dialect) CreateTableSQL(t *schema.Table) string {
	return d.createTableSQL(t.Name(), t)
}

func (d *dialect) createTableSQL(name string, t *schema.Table) string {
	auto := t.AutoKey()
	defs := make([]string, 0, len(t.ColumnNames())+1)
	for _, c := range t.Columns() {
		defs = append(defs, d.columnDef(c, auto && c.PrimaryKey))
	}
	if !auto {
		keys := t.PrimaryKey()
		quoted := make([]string, len(keys))
		for i, k := range keys {
			quoted[i] = d.QuoteIdent(k)
		}
		defs = append(defs, "PRIMARY KEY ("+strings.Join(quoted, ", ")+")")
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", d.QuoteIdent(name), strings.Join(defs, ", "))
}

// AddColumnSQL renders ALTER TABLE ... ADD COLUMN.
func (d *dialect) AddColumnSQL(table string, c schema.Column) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.QuoteIdent(table), d.columnDef(c, false))
}

// FormatDefault renders the declared default as a SQL literal.
func (d *dialect) FormatDefault(c schema.Column) string {
	switch v := c.Default.(type) {
	case nil:
		return ""
	case string:
		if c.Type == schema.TypeDecimal {
			return v
		}
		return quoteLiteral(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return d.boolTrue
		}
		return d.boolFalse
	case time.Time:
		if c.Type == schema.TypeDate {
			return quoteLiteral(v.Format(schema.DateLayout))
		}
		return quoteLiteral(v.Format(schema.DateTimeLayout))
	default:
		return quoteLiteral(fmt.Sprint(v))
	}
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// TypeMatches compares a live type name with the mapping of logical,
// ignoring case, length/precision suffixes and catalog aliases.
func (d *dialect) TypeMatches(logical schema.LogicalType, live string) bool {
	want, ok := d.types[logical]
	if !ok {
		return false
	}
	return d.canonicalType(want) == d.canonicalType(live)
}

func (d *dialect) canonicalType(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexByte(s, '('); i >= 0 {
		rest := ""
		if j := strings.IndexByte(s[i:], ')'); j >= 0 {
			rest = s[i+j+1:]
		}
		s = strings.TrimSpace(s[:i] + rest)
	}
	s = strings.Join(strings.Fields(s), " ")
	if alias, ok := d.aliases[s]; ok {
		return alias
	}
	return s
}

// DefaultMatches compares a live default expression with the declared
// default. Casts, wrapping parentheses and quoting are ignored, and
// numeric literals compare by value.
func (d *dialect) DefaultMatches(c schema.Column, live *string) bool {
	want := d.FormatDefault(c)
	if live == nil {
		return want == ""
	}
	got := strings.TrimSpace(*live)
	if want == "" {
		return got == "" || strings.EqualFold(got, "null")
	}
	return literalEqual(unwrapDefault(got), unwrapDefault(want))
}

// unwrapDefault strips parentheses, "::type" casts and quotes from a
// default expression.
func unwrapDefault(s string) string {
	for {
		s = strings.TrimSpace(s)
		if len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' {
			s = s[1 : len(s)-1]
			continue
		}
		break
	}
	if strings.HasPrefix(s, "'") {
		if end := closingQuote(s); end > 0 {
			return strings.ReplaceAll(s[1:end], "''", "'")
		}
		return s
	}
	if i := strings.Index(s, "::"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// closingQuote returns the index of the quote ending the literal that
// starts at s[0], or -1.
func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		if s[i] != '\'' {
			continue
		}
		if i+1 < len(s) && s[i+1] == '\'' {
			i++
			continue
		}
		return i
	}
	return -1
}

func literalEqual(a, b string) bool {
	if a == b || strings.EqualFold(a, b) {
		return true
	}
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	return errA == nil && errB == nil && fa == fb
}

// DropColumns drops columns one statement at a time.
func (d *dialect) DropColumns(ctx context.Context, ex database.Executor, table string, columns []string) ([]string, error) {
	if !d.dropColumn {
		return nil, &CapabilityError{Dialect: d.name, Operation: "drop column", Reason: "use the rebuild fallback"}
	}
	executed := make([]string, 0, len(columns))
	for _, col := range columns {
		stmt := fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", d.QuoteIdent(table), d.QuoteIdent(col))
		if _, err := ex.ExecContext(ctx, stmt); err != nil {
			return executed, d.wrap("drop column", err)
		}
		executed = append(executed, stmt)
	}
	return executed, nil
}

// RebuildWithoutColumns recreates t under a shadow name, copies the
// surviving columns, drops the original and renames the shadow into place.
// Values are copied verbatim, so NULLs stay NULL rather than taking defaults.
func (d *dialect) RebuildWithoutColumns(ctx context.Context, ex database.Executor, t *schema.Table, columns []string) ([]string, error) {
	live, err := d.introspect(ctx, ex, t.Name())
	if err != nil {
		return nil, err
	}

	var keep []string
	for _, name := range t.ColumnNames() {
		if _, ok := live[name]; ok && !slices.Contains(columns, name) {
			keep = append(keep, d.QuoteIdent(name))
		}
	}

	shadow := rebuildPrefix + t.Name()
	stmts := []string{d.createTableSQL(shadow, t)}
	if len(keep) > 0 {
		cols := strings.Join(keep, ", ")
		stmts = append(stmts, fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
			d.QuoteIdent(shadow), cols, cols, d.QuoteIdent(t.Name())))
	}
	stmts = append(stmts,
		fmt.Sprintf("DROP TABLE %s", d.QuoteIdent(t.Name())),
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", d.QuoteIdent(shadow), d.QuoteIdent(t.Name())),
	)

	executed := make([]string, 0, len(stmts))
	for _, stmt := range stmts {
		if _, err := ex.ExecContext(ctx, stmt); err != nil {
			return executed, d.wrap("rebuild "+t.Name(), err)
		}
		executed = append(executed, stmt)
	}
	return executed, nil
}

// InsertRow inserts one row. When t has an auto key that columns do not
// supply, the generated key is returned via RETURNING or LastInsertId.
func (d *dialect) InsertRow(ctx context.Context, ex database.Executor, t *schema.Table, columns []string, values []any) (any, error) {
	var query string
	if len(columns) == 0 {
		query = fmt.Sprintf("INSERT INTO %s %s", d.QuoteIdent(t.Name()), d.emptyInsert)
	} else {
		quoted := make([]string, len(columns))
		marks := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = d.QuoteIdent(c)
			marks[i] = d.Placeholder(i + 1)
		}
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			d.QuoteIdent(t.Name()), strings.Join(quoted, ", "), strings.Join(marks, ", "))
	}

	wantKey := t.AutoKey() && !slices.Contains(columns, t.Pkey())
	if wantKey && d.returning {
		rows, err := database.Fetch(ctx, ex, query+" RETURNING "+d.QuoteIdent(t.Pkey()), values...)
		if err != nil {
			return nil, d.wrap("insert into "+t.Name(), err)
		}
		if len(rows) != 1 || len(rows[0].Values) != 1 {
			return nil, fmt.Errorf("insert into %s: expected one generated key, got %d rows", t.Name(), len(rows))
		}
		return rows[0].Values[0], nil
	}

	res, err := ex.ExecContext(ctx, query, values...)
	if err != nil {
		return nil, d.wrap("insert into "+t.Name(), err)
	}
	if !wantKey {
		return nil, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert into %s: reading generated key: %w", t.Name(), err)
	}
	return id, nil
}

// IsUnavailable reports whether err is a connectivity or permission failure.
func (d *dialect) IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return d.unavailable != nil && d.unavailable(err)
}

// wrap classifies a driver error: storage failures become StorageError,
// anything else is annotated with the operation.
func (d *dialect) wrap(op string, err error) error {
	if d.IsUnavailable(err) {
		return &StorageError{Dialect: d.name, Operation: op, Err: err}
	}
	return fmt.Errorf("%s: %s: %w", d.name, op, err)
}

// Wrap classifies err the same way the adapter's own operations do.
// The table engine uses it for statements it builds itself.
func Wrap(a Adapter, op string, err error) error {
	if err == nil {
		return nil
	}
	if a.IsUnavailable(err) {
		return &StorageError{Dialect: a.Name(), Operation: op, Err: err}
	}
	return fmt.Errorf("%s: %s: %w", a.Name(), op, err)
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

func asInt(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case []byte, string:
		n, _ := strconv.ParseInt(asString(x), 10, 64) //nolint:errcheck // zero on malformed catalog values
		return n
	default:
		return 0
	}
}

func asOptionalString(v any) *string {
	if v == nil {
		return nil
	}
	s := asString(v)
	return &s
}
