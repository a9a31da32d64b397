// Derives the schema header written on line 1 of each table file.

package jsonldb

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"
)

// currentVersion is the current version of the JSONL database format.
const currentVersion = "1.0"

// ColumnType represents the type of a table column in the schema header.
type ColumnType string

const (
	// ColumnTypeText stores text values.
	ColumnTypeText ColumnType = "text"
	// ColumnTypeNumber stores numeric values (integer or float).
	ColumnTypeNumber ColumnType = "number"
	// ColumnTypeBool stores boolean values.
	ColumnTypeBool ColumnType = "bool"
	// ColumnTypeDate stores ISO8601 date strings.
	ColumnTypeDate ColumnType = "date"
	// ColumnTypeJSON stores nested structures as JSON.
	ColumnTypeJSON ColumnType = "json"
)

// Column describes one field of the row type in the schema header.
type Column struct {
	Name        string     `json:"name"`
	Type        ColumnType `json:"type"`
	Required    bool       `json:"required,omitempty"`
	Description string     `json:"description,omitempty"`
}

// schemaHeader is the first row of a JSONL data file containing schema and
// metadata. Its Version field distinguishes it from data rows.
type schemaHeader struct {
	Version string   `json:"version"`
	Columns []Column `json:"columns"`
}

// Columns returns the column definitions derived from the row type T.
// Exposed for schema introspection endpoints.
func Columns[T any]() ([]Column, error) {
	return columnsForType[T]()
}

// headerForType returns the marshaled schema header for the row type T.
func headerForType[T any]() ([]byte, error) {
	cols, err := columnsForType[T]()
	if err != nil {
		return nil, err
	}
	return json.Marshal(&schemaHeader{Version: currentVersion, Columns: cols})
}

// columnsForType extracts column definitions using JSON Schema reflection.
//
// It uses github.com/invopop/jsonschema to extract field descriptions from
// `jsonschema:"description=..."` tags and required fields from the schema.
func columnsForType[T any]() ([]Column, error) {
	t := reflect.TypeFor[T]()
	structType := t
	if t.Kind() == reflect.Pointer {
		structType = t.Elem()
	}
	if structType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("type must be a struct or pointer to struct, got %s", t.Kind())
	}

	// Generate JSON Schema from type with inline properties (no $ref).
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	schema := r.ReflectFromType(structType)

	required := make(map[string]bool)
	for _, name := range schema.Required {
		required[name] = true
	}

	var columns []Column
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		name := pair.Key
		prop := pair.Value

		colType := ColumnTypeText
		for i := range structType.NumField() {
			field := structType.Field(i)
			if jsonFieldName(&field) == name {
				colType = goTypeToColumnType(field.Type)
				break
			}
		}

		columns = append(columns, Column{
			Name:        name,
			Type:        colType,
			Required:    required[name],
			Description: prop.Description,
		})
	}
	return columns, nil
}

// jsonFieldName returns the JSON field name for a struct field.
func jsonFieldName(field *reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" || tag == "-" {
		return field.Name
	}
	// Handle "name,omitempty" format.
	for i, c := range tag {
		if c == ',' {
			if i == 0 {
				return field.Name
			}
			return tag[:i]
		}
	}
	return tag
}

// goTypeToColumnType maps Go types to schema column types.
func goTypeToColumnType(t reflect.Type) ColumnType {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == reflect.TypeFor[time.Time]() {
		return ColumnTypeDate
	}
	switch t.Kind() { //nolint:exhaustive // Other kinds default to text
	case reflect.String:
		return ColumnTypeText
	case reflect.Bool:
		return ColumnTypeBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return ColumnTypeNumber
	case reflect.Struct, reflect.Slice, reflect.Array, reflect.Map:
		return ColumnTypeJSON
	default:
		return ColumnTypeText
	}
}
