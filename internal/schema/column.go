package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Layouts accepted for date, datetime and time values.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
	TimeLayout     = "15:04:05"
)

// dateTimeLayouts are tried in order when parsing datetime strings.
// Drivers disagree on the textual form they return.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	DateTimeLayout,
	DateLayout,
}

// Column describes one declared column.
type Column struct {
	// Name is the column identifier.
	Name string

	// Type is the logical type; adapters map it to a dialect type name.
	Type LogicalType

	// Nullable allows NULL values. Primary key columns are never nullable.
	Nullable bool

	// Default is the value used when an insert omits the column.
	// It must be convertible to Type; nil means no default.
	Default any

	// PrimaryKey marks the column as part of the table's primary key.
	PrimaryKey bool

	// AutoIncrement asks the database to generate key values.
	// Only valid on a single integer primary key.
	AutoIncrement bool

	// References optionally names a "table.column" this column points at.
	// It drives reference checks in Move and is not emitted as a constraint.
	References string
}

// Required reports whether an insert must supply a value for the column.
func (c Column) Required() bool {
	return !c.Nullable && c.Default == nil && !c.AutoIncrement
}

// ReferencedTable splits References into table and column.
// ok is false when the column declares no reference.
func (c Column) ReferencedTable() (table, column string, ok bool) {
	if c.References == "" {
		return "", "", false
	}
	table, column, ok = strings.Cut(c.References, ".")
	return table, column, ok
}

// Normalize converts v into the canonical Go type for the column's
// logical type. nil is returned unchanged.
//
// Canonical types:
//
//	text      string
//	integer   int64
//	float     float64
//	boolean   bool
//	binary    []byte
//	decimal   string
//	date      time.Time (midnight)
//	datetime  time.Time
//	time      string (HH:MM:SS)
//
// Returns ErrInvalidValue if v cannot be represented.
func (c Column) Normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	var (
		out any
		err error
	)
	switch c.Type {
	case TypeText:
		out, err = toText(v)
	case TypeInteger:
		out, err = toInteger(v)
	case TypeFloat:
		out, err = toFloat(v)
	case TypeBoolean:
		out, err = toBool(v)
	case TypeBinary:
		out, err = toBinary(v)
	case TypeDecimal:
		out, err = toDecimal(v)
	case TypeDate:
		var t time.Time
		t, err = toDateTime(v)
		if err == nil {
			out = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
	case TypeDateTime:
		out, err = toDateTime(v)
	case TypeTime:
		out, err = toTimeOfDay(v)
	default:
		return nil, fmt.Errorf("%w: column %q has type %q", ErrInvalidType, c.Name, c.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: column %q (%s): %v", ErrInvalidValue, c.Name, c.Type, err)
	}
	return out, nil
}

func toText(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case json.Number:
		return x.String(), nil
	case int64, int, int32, float64, bool:
		return fmt.Sprint(x), nil
	case fmt.Stringer:
		return x.String(), nil
	}
	return "", fmt.Errorf("unsupported %T", v)
}

func toInteger(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", x)
		}
		return int64(x), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", x)
		}
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("%v is not integral", x)
		}
		// 2^63 is the first float64 beyond the int64 range.
		if x >= 1<<63 || x < -(1<<63) {
			return 0, fmt.Errorf("%v overflows int64", x)
		}
		return int64(x), nil
	case float32:
		return toInteger(float64(x))
	case json.Number:
		return x.Int64()
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(x)), 10, 64)
	}
	return 0, fmt.Errorf("unsupported %T", v)
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	case []byte:
		return strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
	}
	return 0, fmt.Errorf("unsupported %T", v)
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int64:
		return x != 0, nil
	case int:
		return x != 0, nil
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return false, err
		}
		return n != 0, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(x))
	case []byte:
		return strconv.ParseBool(strings.TrimSpace(string(x)))
	}
	return false, fmt.Errorf("unsupported %T", v)
}

func toBinary(v any) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		out := make([]byte, len(x))
		copy(out, x)
		return out, nil
	case string:
		return []byte(x), nil
	}
	return nil, fmt.Errorf("unsupported %T", v)
}

func toDecimal(v any) (string, error) {
	switch x := v.(type) {
	case string:
		s := strings.TrimSpace(x)
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return "", err
		}
		return trimDecimal(s), nil
	case []byte:
		return toDecimal(string(x))
	case json.Number:
		return toDecimal(x.String())
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case int:
		return strconv.Itoa(x), nil
	}
	return "", fmt.Errorf("unsupported %T", v)
}

// trimDecimal drops trailing fractional zeros so "19.990000" (fixed-scale
// columns) and "19.99" compare equal.
func trimDecimal(s string) string {
	if !strings.Contains(s, ".") || strings.ContainsAny(s, "eE") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func toDateTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		return parseDateTime(x)
	case []byte:
		return parseDateTime(string(x))
	}
	return time.Time{}, fmt.Errorf("unsupported %T", v)
}

func parseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date/time %q", s)
}

func toTimeOfDay(v any) (string, error) {
	switch x := v.(type) {
	case time.Time:
		return x.Format(TimeLayout), nil
	case []byte:
		return toTimeOfDay(string(x))
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range []string{TimeLayout, "15:04:05.999999999", "15:04"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format(TimeLayout), nil
			}
		}
		return "", fmt.Errorf("unrecognised time %q", s)
	}
	return "", fmt.Errorf("unsupported %T", v)
}
