package ddl

import (
	"fmt"
	"strings"

	"atexport/internal/schema"
)

// ColumnDef is one column of a dialect-neutral table definition.
//
// Name is unquoted; quoting happens at render time. Nullable columns carry
// no NOT NULL clause. Default is emitted as raw SQL.
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef is a table name (optionally schema-qualified, "schema.table") and
// its ordered columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// TypeMapper turns a schema SQL type into a dialect type. pk is set for the
// primary key column, which some dialects need to bound in length.
type TypeMapper func(sqlType string, pk bool) string

// FromSchema derives a TableDef from an assembled table, mapping every
// column type through mapType. The record-id column becomes the only
// primary key; all other columns are nullable because Airtable omits empty
// cells.
func FromSchema(t schema.Table, mapType TypeMapper) (TableDef, error) {
	name := strings.TrimSpace(t.SQLTable)
	if name == "" {
		return TableDef{}, fmt.Errorf("ddl: table %q has no sqltable", t.Airtable)
	}
	if mapType == nil {
		mapType = func(s string, _ bool) string { return s }
	}

	td := TableDef{FQN: name, Columns: make([]ColumnDef, 0, len(t.Columns))}
	for _, c := range t.Columns {
		pk := c.IsPrimaryKey()
		td.Columns = append(td.Columns, ColumnDef{
			Name:       c.SQLColumn,
			SQLType:    mapType(c.SQLType, pk),
			Nullable:   !pk,
			PrimaryKey: pk,
		})
	}
	return td, nil
}
