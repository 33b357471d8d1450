package schema

import "errors"

// Domain errors for the schema package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, schema.ErrInvalidTable) {
//	    // declaration is malformed
//	}
var (
	// ErrInvalidTable is returned when a table declaration fails validation.
	ErrInvalidTable = errors.New("schema: invalid table")

	// ErrInvalidColumn is returned when a column declaration fails validation.
	ErrInvalidColumn = errors.New("schema: invalid column")

	// ErrInvalidType is returned when a logical type name is not recognised.
	ErrInvalidType = errors.New("schema: invalid logical type")

	// ErrInvalidValue is returned when a value cannot be converted to a column's logical type.
	ErrInvalidValue = errors.New("schema: invalid value")

	// ErrInvalidDeclaration is returned when a schema file cannot be parsed or validated.
	ErrInvalidDeclaration = errors.New("schema: invalid declaration")
)
