package app

import (
	"context"

	"atexport/internal/export"
)

// All runs generate-schema-map, create-sql, download-data (JSON), create-db
// and load-db in order, stopping at the first failure.
func (a *App) All(ctx context.Context, opts LoadOptions) error {
	if _, err := a.GenerateSchemaMap(ctx); err != nil {
		return err
	}
	if _, err := a.CreateSQL(ctx); err != nil {
		return err
	}
	if err := a.DownloadData(ctx, export.FormatJSON); err != nil {
		return err
	}
	if err := a.CreateDB(ctx); err != nil {
		return err
	}
	return a.LoadDB(ctx, opts)
}
