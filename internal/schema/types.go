package schema

import "fmt"

// LogicalType is a dialect-independent column type.
// Adapters translate each logical type into one dialect type name.
type LogicalType string

// Logical type constants.
const (
	TypeText     LogicalType = "text"
	TypeInteger  LogicalType = "integer"
	TypeFloat    LogicalType = "float"
	TypeBoolean  LogicalType = "boolean"
	TypeBinary   LogicalType = "binary"
	TypeDecimal  LogicalType = "decimal"
	TypeDate     LogicalType = "date"
	TypeDateTime LogicalType = "datetime"
	TypeTime     LogicalType = "time"
)

// AllLogicalTypes returns every logical type in declaration order.
func AllLogicalTypes() []LogicalType {
	return []LogicalType{
		TypeText, TypeInteger, TypeFloat, TypeBoolean, TypeBinary,
		TypeDecimal, TypeDate, TypeDateTime, TypeTime,
	}
}

var validTypes map[LogicalType]struct{}

func init() {
	validTypes = make(map[LogicalType]struct{}, len(AllLogicalTypes()))
	for _, t := range AllLogicalTypes() {
		validTypes[t] = struct{}{}
	}
}

// Valid reports whether t is a known logical type.
func (t LogicalType) Valid() bool {
	_, ok := validTypes[t]
	return ok
}

// String implements fmt.Stringer.
func (t LogicalType) String() string {
	return string(t)
}

// ParseLogicalType converts a type name into a LogicalType.
// The aliases "int", "bool", "blob", "real", "numeric" and "timestamp"
// are accepted for convenience in declaration files.
func ParseLogicalType(s string) (LogicalType, error) {
	switch s {
	case "int":
		return TypeInteger, nil
	case "bool":
		return TypeBoolean, nil
	case "blob", "bytes":
		return TypeBinary, nil
	case "real", "double":
		return TypeFloat, nil
	case "numeric":
		return TypeDecimal, nil
	case "timestamp":
		return TypeDateTime, nil
	}
	t := LogicalType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}
