package schema

import (
	"fmt"
	"regexp"
	"strings"

	"atexport/internal/airtable"
)

// Primary key column seeded into every table; it holds the Airtable record id.
const (
	PrimaryKeyColumn = "id"
	PrimaryKeyType   = "varchar"
	PrimaryKeyExtra  = "primary key"
)

// Column is one column of the output schema. Field and Type are nil only for
// the synthetic primary key.
type Column struct {
	Field           *string `json:"field"`
	Type            *string `json:"type"`
	SQLColumn       string  `json:"sqlcolumn"`
	SQLType         string  `json:"sqltype"`
	Extra           string  `json:"extra,omitempty"`
	Formula         string  `json:"formula,omitempty"`
	Description     string  `json:"description,omitempty"`
	OverrideApplied bool    `json:"override,omitempty"`
}

// IsPrimaryKey reports whether c is the synthetic record-id column.
func (c Column) IsPrimaryKey() bool { return c.Field == nil }

// FieldName returns the source field name, or "" for the primary key.
func (c Column) FieldName() string {
	if c.Field == nil {
		return ""
	}
	return *c.Field
}

// RemoteType returns the raw remote type tag, or "" for the primary key.
func (c Column) RemoteType() string {
	if c.Type == nil {
		return ""
	}
	return *c.Type
}

func primaryKey() Column {
	return Column{
		SQLColumn:   PrimaryKeyColumn,
		SQLType:     PrimaryKeyType,
		Extra:       PrimaryKeyExtra,
		Description: "primary key, holds the Airtable record id",
	}
}

// Table is the relational schema of one exported Airtable table. Columns[0]
// is always the primary key.
type Table struct {
	Base     string   `json:"base"`
	BaseName string   `json:"basename"`
	Airtable string   `json:"airtable"`
	SQLTable string   `json:"sqltable"`
	View     string   `json:"view,omitempty"`
	Columns  []Column `json:"columns"`
}

// ColumnNames returns the SQL column names in order.
func (t Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.SQLColumn
	}
	return out
}

// TableConfig is the per-table selection policy.
type TableConfig struct {
	Base     string
	BaseName string
	Airtable string
	// SQLTable defaults to the normalized Airtable table name.
	SQLTable   string
	View       string
	AllColumns bool
	Overrides  Overrides
	// StrictColumns turns column name collisions into errors.
	StrictColumns bool
	// Folding applies to derived table and column names.
	Folding Folding
}

// Filters excludes fields by name. A field is excluded when any pattern
// matches anywhere in its name.
type Filters []*regexp.Regexp

// CompileFilters compiles column filter patterns. The first invalid pattern
// is reported by value.
func CompileFilters(patterns []string) (Filters, error) {
	out := make(Filters, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrFilterPattern, p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Match reports whether any filter matches name.
func (fs Filters) Match(name string) bool {
	for _, re := range fs {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Diagnostic codes.
const (
	DiagUnmappedType    = "unmapped_type"
	DiagColumnCollision = "column_collision"
)

// Diagnostic is a non-fatal finding from Assemble.
type Diagnostic struct {
	Code    string
	Table   string
	Field   string
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s.%s: %s", d.Code, d.Table, d.Field, d.Message)
}

// Assemble builds the schema of one table from its remote metadata.
//
// Fields are visited in remote order. A field is skipped when all_columns is
// off and it is neither the remote primary field nor named in the overrides,
// and independently whenever a filter matches its name. The primary key
// column comes first no matter what is skipped.
//
// Unknown remote types and duplicate column names are returned as
// diagnostics; duplicates become an ErrColumnCollision error when
// tc.StrictColumns is set.
func Assemble(tc TableConfig, remote airtable.Table, filters Filters) (Table, []Diagnostic, error) {
	sqlTable := strings.TrimSpace(tc.SQLTable)
	if sqlTable == "" {
		sqlTable = tc.Folding.Normalize(tc.Airtable)
	}
	t := Table{
		Base:     tc.Base,
		BaseName: tc.BaseName,
		Airtable: tc.Airtable,
		SQLTable: sqlTable,
		View:     tc.View,
		Columns:  []Column{primaryKey()},
	}

	var diags []Diagnostic
	idToName := remote.FieldNames()
	seen := map[string]string{PrimaryKeyColumn: ""}

	for _, f := range remote.Fields {
		_, named := tc.Overrides[f.Name]
		if !tc.AllColumns && f.ID != remote.PrimaryFieldID && !named {
			continue
		}
		if filters.Match(f.Name) {
			continue
		}

		col, typ, applied, err := tc.Folding.Resolve(tc.Overrides, f)
		if err != nil {
			return Table{}, diags, fmt.Errorf("table %q: %w", tc.Airtable, err)
		}

		if tag, unknown := unknownTag(f); unknown && !applied {
			diags = append(diags, Diagnostic{
				Code:    DiagUnmappedType,
				Table:   sqlTable,
				Field:   f.Name,
				Message: fmt.Sprintf("remote type %q has no mapping, using %s", tag, UnmappedType),
			})
		}

		if prev, dup := seen[col]; dup {
			d := Diagnostic{
				Code:    DiagColumnCollision,
				Table:   sqlTable,
				Field:   f.Name,
				Message: fmt.Sprintf("column %q already produced by %s", col, describeOwner(prev)),
			}
			if tc.StrictColumns {
				return Table{}, diags, fmt.Errorf("table %q field %q: %w: %s", tc.Airtable, f.Name, ErrColumnCollision, d.Message)
			}
			diags = append(diags, d)
		} else {
			seen[col] = f.Name
		}

		name, tag := f.Name, f.Tag()
		if f.Type == airtable.MultipleRecordLinks && f.PrefersSingleRecordLink() {
			tag = airtable.SingleRecordLink.String()
		}
		c := Column{
			Field:           &name,
			Type:            &tag,
			SQLColumn:       col,
			SQLType:         typ,
			Description:     f.Description,
			OverrideApplied: applied,
		}
		if f.Type == airtable.Formula {
			c.Formula = RewriteFormula(f.FormulaText(), idToName)
		}
		t.Columns = append(t.Columns, c)
	}
	return t, diags, nil
}

// unknownTag returns the remote tag that has no place in the closed type set,
// looking through lookups to their target.
func unknownTag(f airtable.Field) (string, bool) {
	if f.Type == airtable.MultipleLookupValues {
		if target := f.LookupTarget(); target != nil {
			f = *target
		}
	}
	if f.Type == airtable.FieldTypeUnknown {
		return f.Tag(), true
	}
	return "", false
}

func describeOwner(field string) string {
	if field == "" {
		return "the primary key"
	}
	return fmt.Sprintf("field %q", field)
}
