package schema

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseLogicalType(t *testing.T) {
	tests := []struct {
		input   string
		want    LogicalType
		wantErr bool
	}{
		{input: "text", want: TypeText},
		{input: "integer", want: TypeInteger},
		{input: "int", want: TypeInteger},
		{input: "bool", want: TypeBoolean},
		{input: "blob", want: TypeBinary},
		{input: "timestamp", want: TypeDateTime},
		{input: "time", want: TypeTime},
		{input: "uuid", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLogicalType(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidType) {
					t.Errorf("ParseLogicalType(%q) error = %v, want ErrInvalidType", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLogicalType(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseLogicalType(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestAllLogicalTypesValid(t *testing.T) {
	types := AllLogicalTypes()
	if len(types) != 9 {
		t.Fatalf("AllLogicalTypes() has %d entries, want 9", len(types))
	}
	for _, lt := range types {
		if !lt.Valid() {
			t.Errorf("%q.Valid() = false", lt)
		}
	}
}

func TestNormalize(t *testing.T) {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	moment := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		typ  LogicalType
		in   any
		want any
	}{
		{"text from string", TypeText, "Dune", "Dune"},
		{"text from bytes", TypeText, []byte("Dune"), "Dune"},
		{"integer from int", TypeInteger, 412, int64(412)},
		{"integer from int64", TypeInteger, int64(412), int64(412)},
		{"integer from integral float", TypeInteger, float64(412), int64(412)},
		{"integer from json number", TypeInteger, json.Number("412"), int64(412)},
		{"integer from bytes", TypeInteger, []byte("412"), int64(412)},
		{"float from int64", TypeFloat, int64(3), float64(3)},
		{"float from string", TypeFloat, "2.5", 2.5},
		{"boolean from int64", TypeBoolean, int64(1), true},
		{"boolean from zero", TypeBoolean, int64(0), false},
		{"boolean from string", TypeBoolean, "true", true},
		{"binary from string", TypeBinary, "abc", []byte("abc")},
		{"decimal from float", TypeDecimal, 19.99, "19.99"},
		{"decimal from fixed scale bytes", TypeDecimal, []byte("19.990000"), "19.99"},
		{"decimal whole number", TypeDecimal, "10.000", "10"},
		{"date from string", TypeDate, "2024-03-15", day},
		{"date from time truncates", TypeDate, moment, day},
		{"datetime from sqlite text", TypeDateTime, "2024-03-15 10:30:00", moment},
		{"datetime from rfc3339", TypeDateTime, "2024-03-15T10:30:00Z", moment},
		{"time from string", TypeTime, "10:30:00", "10:30:00"},
		{"time from short string", TypeTime, "10:30", "10:30:00"},
		{"time from time", TypeTime, moment, "10:30:00"},
		{"nil passes through", TypeInteger, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Column{Name: "c", Type: tt.typ}
			got, err := c.Normalize(tt.in)
			if err != nil {
				t.Fatalf("Normalize(%v) error = %v", tt.in, err)
			}
			if !ValuesEqual(got, tt.want) {
				t.Errorf("Normalize(%v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeRejects(t *testing.T) {
	tests := []struct {
		name string
		typ  LogicalType
		in   any
	}{
		{"integer from text", TypeInteger, "many"},
		{"integer from fraction", TypeInteger, 1.5},
		{"integer beyond int64", TypeInteger, 1e19},
		{"integer below int64", TypeInteger, -1e19},
		{"boolean from word", TypeBoolean, "maybe"},
		{"decimal from text", TypeDecimal, "cheap"},
		{"date from garbage", TypeDate, "15/03/2024"},
		{"binary from int", TypeBinary, 7},
		{"time from garbage", TypeTime, "noon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Column{Name: "c", Type: tt.typ}
			if _, err := c.Normalize(tt.in); !errors.Is(err, ErrInvalidValue) {
				t.Errorf("Normalize(%v) error = %v, want ErrInvalidValue", tt.in, err)
			}
		})
	}
}

func TestNormalizeBinaryCopies(t *testing.T) {
	in := []byte("abc")
	c := Column{Name: "data", Type: TypeBinary}
	out, err := c.Normalize(in)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	in[0] = 'x'
	if string(out.([]byte)) != "abc" {
		t.Error("Normalize() aliased the input slice")
	}
}
