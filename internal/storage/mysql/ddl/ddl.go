// Package ddl holds the MySQL dialect.
package ddl

import (
	"context"
	"fmt"
	"strings"

	gddl "atexport/internal/ddl"
	"atexport/internal/schema"
	"atexport/internal/storage"
)

// MapType maps a schema SQL type onto MySQL. The primary key becomes
// VARCHAR(255) because TEXT columns cannot be keys without a prefix length;
// lists use the JSON type.
func MapType(sqlType string, pk bool) string {
	t := strings.ToUpper(strings.TrimSpace(sqlType))
	if strings.HasSuffix(t, "[]") {
		return "JSON"
	}
	switch t {
	case "VARCHAR", "TEXT":
		if pk {
			return "VARCHAR(255)"
		}
		return "TEXT"
	case "INTEGER", "INT", "BIGINT":
		return "BIGINT"
	case "BOOLEAN", "BOOL":
		return "TINYINT(1)"
	case "FLOAT", "DOUBLE", "REAL":
		return "DOUBLE"
	case "TIMESTAMP", "DATETIME":
		return "DATETIME(3)"
	default:
		return strings.TrimSpace(sqlType)
	}
}

// QuoteIdent backtick-quotes one identifier segment.
func QuoteIdent(id string) string {
	return "`" + strings.ReplaceAll(id, "`", "``") + "`"
}

// BuildCreateTableSQL renders CREATE TABLE IF NOT EXISTS with backtick
// quoting and a utf8mb4 default charset.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	cols, err := gddl.RenderColumns("mysql", t, QuoteIdent)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n) DEFAULT CHARSET=utf8mb4;",
		gddl.QuoteFQN(t.FQN, QuoteIdent),
		strings.Join(cols, ",\n  "),
	), nil
}

// EnsureTable creates the table for t if it does not exist.
func EnsureTable(ctx context.Context, repo storage.Repository, t schema.Table) error {
	td, err := gddl.FromSchema(t, MapType)
	if err != nil {
		return err
	}
	sql, err := BuildCreateTableSQL(td)
	if err != nil {
		return err
	}
	return repo.Exec(ctx, sql)
}
