// Package ddl renders CREATE TABLE statements.
//
// GenerateDDL produces the portable statement written to create_<table>.sql
// files, straight from the schema document. BuildCreateTableSQL and
// RenderColumns work on the dialect-neutral TableDef model and are what the
// backend packages under internal/storage/*/ddl build on.
package ddl

import (
	"fmt"
	"strings"

	"atexport/internal/schema"
)

// GenerateDDL renders t as
//
//	CREATE TABLE IF NOT EXISTS <sqltable> (
//	  <sqlcolumn> <sqltype>[ <extra>],
//	  ...
//	);
//
// Columns appear in t.Columns order. Names and types are emitted verbatim.
func GenerateDDL(t schema.Table) string {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE IF NOT EXISTS ")
	sb.WriteString(t.SQLTable)
	sb.WriteString(" (\n")
	for i, c := range t.Columns {
		sb.WriteString("  ")
		sb.WriteString(c.SQLColumn)
		sb.WriteByte(' ')
		sb.WriteString(c.SQLType)
		if extra := strings.TrimSpace(c.Extra); extra != "" {
			sb.WriteByte(' ')
			sb.WriteString(extra)
		}
		if i < len(t.Columns)-1 {
			sb.WriteByte(',')
		}
		sb.WriteByte('\n')
	}
	sb.WriteString(");\n")
	return sb.String()
}

// RenderColumns validates t and renders its column clauses, followed by a
// PRIMARY KEY clause when any column is part of the key. quote is applied to
// every column name; dialect names the caller in error messages.
func RenderColumns(dialect string, t TableDef, quote func(string) string) ([]string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return nil, fmt.Errorf("%s ddl: table FQN must not be empty", dialect)
	}
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("%s ddl: at least one column is required", dialect)
	}
	if quote == nil {
		quote = func(s string) string { return s }
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, 1)
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("%s ddl: column with empty name in table %s", dialect, fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return nil, fmt.Errorf("%s ddl: column %s missing SQLType", dialect, name)
		}

		var sb strings.Builder
		sb.WriteString(quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, quote(name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}
	return cols, nil
}

// BuildCreateTableSQL renders an unquoted CREATE TABLE IF NOT EXISTS
// statement for t.
func BuildCreateTableSQL(t TableDef) (string, error) {
	cols, err := RenderColumns("generic", t, nil)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
		strings.TrimSpace(t.FQN),
		strings.Join(cols, ",\n  "),
	), nil
}

// QuoteFQN splits a dotted name and quotes each non-empty segment.
func QuoteFQN(fqn string, quote func(string) string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, quote(p))
	}
	return strings.Join(out, ".")
}
