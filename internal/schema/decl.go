package schema

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Declaration is the on-disk form of a schema file.
//
// Example:
//
//	tables:
//	  - name: book
//	    columns:
//	      - {name: id, type: integer, primary_key: true, autoincrement: true}
//	      - {name: title, type: text, nullable: false}
//	      - {name: pages, type: integer}
//	      - {name: shelf, type: text, references: shelf.code}
type Declaration struct {
	Tables []TableDecl `yaml:"tables" validate:"required,min=1,unique=Name,dive"`
}

// TableDecl declares one table.
type TableDecl struct {
	Name    string       `yaml:"name" validate:"required,identifier"`
	Columns []ColumnDecl `yaml:"columns" validate:"required,min=1,unique=Name,dive"`
}

// ColumnDecl declares one column.
// Nullable defaults to true for non-key columns when omitted.
type ColumnDecl struct {
	Name          string `yaml:"name" validate:"required,identifier"`
	Type          string `yaml:"type" validate:"required,logicaltype"`
	Nullable      *bool  `yaml:"nullable"`
	Default       any    `yaml:"default"`
	PrimaryKey    bool   `yaml:"primary_key"`
	AutoIncrement bool   `yaml:"autoincrement"`
	References    string `yaml:"references" validate:"omitempty,reference"`
}

var declValidator = newDeclValidator()

func newDeclValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	mustRegister(v, "identifier", func(fl validator.FieldLevel) bool {
		return ValidIdentifier(fl.Field().String())
	})
	mustRegister(v, "logicaltype", func(fl validator.FieldLevel) bool {
		_, err := ParseLogicalType(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "reference", func(fl validator.FieldLevel) bool {
		t, c, ok := strings.Cut(fl.Field().String(), ".")
		return ok && ValidIdentifier(t) && ValidIdentifier(c)
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("registering %s validation: %v", tag, err))
	}
}

// LoadFile reads and builds the tables declared in a YAML schema file.
func LoadFile(path string) ([]*Table, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path comes from trusted configuration
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}
	tables, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tables, nil
}

// Parse builds tables from YAML schema declaration bytes.
// Declarations are validated structurally first, then each table is
// built with NewTable so the same rules apply as for Go declarations.
func Parse(data []byte) ([]*Table, error) {
	var decl Declaration
	if err := yaml.Unmarshal(data, &decl); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDeclaration, err)
	}
	return decl.Build()
}

// Build validates the declaration and converts it into tables.
func (d Declaration) Build() ([]*Table, error) {
	if err := declValidator.Struct(d); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDeclaration, describeValidation(err))
	}

	tables := make([]*Table, 0, len(d.Tables))
	for _, td := range d.Tables {
		cols := make([]Column, 0, len(td.Columns))
		for _, cd := range td.Columns {
			lt, err := ParseLogicalType(cd.Type)
			if err != nil {
				return nil, err
			}
			nullable := !cd.PrimaryKey
			if cd.Nullable != nil {
				nullable = *cd.Nullable
			}
			cols = append(cols, Column{
				Name:          cd.Name,
				Type:          lt,
				Nullable:      nullable,
				Default:       cd.Default,
				PrimaryKey:    cd.PrimaryKey,
				AutoIncrement: cd.AutoIncrement,
				References:    cd.References,
			})
		}
		t, err := NewTable(td.Name, cols...)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// describeValidation flattens validator errors into one readable line.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Declaration.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
