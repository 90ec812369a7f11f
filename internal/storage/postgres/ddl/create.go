package ddl

import (
	"context"
	"fmt"
	"strings"

	gddl "atexport/internal/ddl"
	"atexport/internal/schema"
	"atexport/internal/storage"
)

// BuildCreateTableSQL renders a CREATE TABLE IF NOT EXISTS with
// double-quoted identifiers. "schema.table" names are quoted per segment.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	cols, err := gddl.RenderColumns("postgres", t, QuoteIdent)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
		gddl.QuoteFQN(t.FQN, QuoteIdent),
		strings.Join(cols, ",\n  "),
	), nil
}

// QuoteIdent double-quotes one identifier segment.
func QuoteIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

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
