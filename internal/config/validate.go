package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"atexport/internal/schema"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks the run.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is reported but does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single lint finding. Path is a dotted path into the config,
// e.g. "tables[1].columns.Name".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

var knownDrivers = map[string]struct{}{
	"sqlite":   {},
	"postgres": {},
	"mssql":    {},
	"mysql":    {},
}

// Validate lints c without mutating it.
func Validate(c *Config) []Issue {
	var issues []Issue
	issues = append(issues, validateFilters(c.ColumnFilters)...)
	issues = append(issues, validateDB(c.DB)...)
	issues = append(issues, validateTables(c.Tables, c.Folding())...)
	return issues
}

func validateFilters(patterns []string) []Issue {
	var issues []Issue
	for i, p := range patterns {
		if _, err := regexp.Compile(p); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("column_filters[%d]", i),
				Message:  fmt.Sprintf("invalid pattern %q: %v", p, err),
			})
		}
	}
	return issues
}

func validateDB(db DBConfig) []Issue {
	var issues []Issue
	driver := strings.ToLower(strings.TrimSpace(db.Driver))
	if _, ok := knownDrivers[driver]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "db.driver",
			Message:  fmt.Sprintf("unknown driver %q; ensure a matching backend is registered", db.Driver),
		})
	}
	if driver != "sqlite" && strings.TrimSpace(db.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "db.dsn",
			Message:  fmt.Sprintf("driver %q requires a dsn", db.Driver),
		})
	}
	return issues
}

func validateTables(tables []Table, fold schema.Folding) []Issue {
	var issues []Issue
	if len(tables) == 0 {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "tables",
			Message:  "no tables configured; nothing to export",
		})
	}

	owners := map[string]int{}
	for i, t := range tables {
		path := fmt.Sprintf("tables[%d]", i)
		if strings.TrimSpace(t.Base) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: path + ".base", Message: "base must not be empty"})
		} else if !strings.HasPrefix(t.Base, "app") {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path + ".base",
				Message:  fmt.Sprintf("base %q does not look like a base id (app...)", t.Base),
			})
		}
		if strings.TrimSpace(t.Airtable) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: path + ".airtable", Message: "airtable table name or id must not be empty"})
			continue
		}

		sqlTable := t.Table
		if sqlTable == "" {
			sqlTable = fold.Normalize(t.Airtable)
		}
		if sqlTable == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".table",
				Message:  fmt.Sprintf("airtable name %q normalizes to nothing; set table explicitly", t.Airtable),
			})
		} else if prev, dup := owners[sqlTable]; dup {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".table",
				Message:  fmt.Sprintf("sql table %q is also produced by tables[%d]", sqlTable, prev),
			})
		} else {
			owners[sqlTable] = i
		}

		if !t.IncludeAll() && len(t.Columns) == 0 {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path + ".columns",
				Message:  "all_columns is false and no columns are listed; only the primary field is exported",
			})
		}
		names := make([]string, 0, len(t.Columns))
		for name := range t.Columns {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			c := t.Columns[name]
			cpath := fmt.Sprintf("%s.columns.%s", path, name)
			switch {
			case !c.Valid():
				issues = append(issues, Issue{Severity: SeverityError, Path: cpath, Message: "column override requires both sqlcol and sqltype"})
			case c.Kind == schema.OverrideRename && strings.TrimSpace(c.Column) == "":
				issues = append(issues, Issue{Severity: SeverityWarning, Path: cpath, Message: "empty rename keeps the derived column name"})
			}
		}
	}
	return issues
}
