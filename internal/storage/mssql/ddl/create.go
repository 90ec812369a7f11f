package ddl

import (
	"context"
	"fmt"
	"strings"

	gddl "atexport/internal/ddl"
	"atexport/internal/schema"
	"atexport/internal/storage"
)

// BuildCreateTableSQL returns a T-SQL script that creates the table unless
// it exists. T-SQL has no CREATE TABLE IF NOT EXISTS, so the statement is
// guarded:
//
//	IF OBJECT_ID(N'[dbo].[people]', N'U') IS NULL
//	BEGIN
//	  CREATE TABLE [dbo].[people] (
//	    [id] NVARCHAR(255) NOT NULL,
//	    ...
//	    PRIMARY KEY ([id])
//	  );
//	END;
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	cols, err := gddl.RenderColumns("mssql", t, QuoteIdent)
	if err != nil {
		return "", err
	}
	fqn := gddl.QuoteFQN(t.FQN, QuoteIdent)
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n  CREATE TABLE %s (\n    %s\n  );\nEND;",
		strings.ReplaceAll(fqn, "'", "''"),
		fqn,
		strings.Join(cols, ",\n    "),
	), nil
}

// QuoteIdent brackets one identifier segment, escaping closing brackets.
//
//	name     -> [name]
//	weird]id -> [weird]]id]
func QuoteIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
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
