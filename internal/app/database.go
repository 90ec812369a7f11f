package app

import (
	"context"
	"fmt"
	"log/slog"

	"atexport/internal/config"
	"atexport/internal/export"
	"atexport/internal/metrics"
	"atexport/internal/schema"
	"atexport/internal/storage"
	_ "atexport/internal/storage/all"
)

// LoadOptions tunes LoadDB.
type LoadOptions struct {
	// Truncate deletes existing rows of each table before loading, so a
	// reload does not collide on primary keys.
	Truncate bool
}

// open connects to the configured backend for one table. SQLite databases
// get their parent directory created.
func (a *App) open(ctx context.Context, t schema.Table) (storage.Repository, string, error) {
	kind, dsn := a.cfg.Target()
	if kind == "sqlite" && a.cfg.DB.DSN == "" {
		if _, err := config.EnsurePath(dsn, config.PathOptions{ParentsOnly: true}); err != nil {
			return nil, "", err
		}
	}
	repo, err := storage.New(ctx, storage.Config{
		Kind:    kind,
		DSN:     dsn,
		Table:   t.SQLTable,
		Columns: t.ColumnNames(),
	})
	if err != nil {
		return nil, "", err
	}
	return repo, kind, nil
}

// CreateDB creates every table of the schema document in the configured
// database using the backend's dialect. Existing tables are left alone.
func (a *App) CreateDB(ctx context.Context) error {
	return a.step(ctx, StepCreateDB, func(ctx context.Context, log *slog.Logger) error {
		doc, err := a.loadDocument()
		if err != nil {
			return err
		}
		for _, t := range doc {
			if err := a.createTable(ctx, t); err != nil {
				return err
			}
			log.Info("table ensured", "table", t.SQLTable, "columns", len(t.Columns))
		}
		return nil
	})
}

func (a *App) createTable(ctx context.Context, t schema.Table) error {
	repo, kind, err := a.open(ctx, t)
	if err != nil {
		return err
	}
	defer repo.Close()
	return storage.EnsureTable(ctx, kind, repo, t)
}

// LoadDB reads <data_dir>/<sqltable>.json for every table, coerces values to
// the column types and inserts them in batches of db.batch_size. Tables are
// created first when missing.
func (a *App) LoadDB(ctx context.Context, opts LoadOptions) error {
	return a.step(ctx, StepLoadDB, func(ctx context.Context, log *slog.Logger) error {
		doc, err := a.loadDocument()
		if err != nil {
			return err
		}
		for _, t := range doc {
			n, err := a.loadTable(ctx, t, opts)
			if err != nil {
				return fmt.Errorf("table %s: %w", t.SQLTable, err)
			}
			log.Info("table loaded", "table", t.SQLTable, "rows", n)
		}
		return nil
	})
}

func (a *App) loadTable(ctx context.Context, t schema.Table, opts LoadOptions) (int64, error) {
	columns := t.ColumnNames()
	path := a.cfg.DataFile(t.SQLTable, string(export.FormatJSON))
	rows, err := export.LoadJSON(path, columns)
	if err != nil {
		return 0, err
	}
	types := export.SQLTypes(t)
	for i, row := range rows {
		if err := export.CoerceRow(columns, types, row); err != nil {
			return 0, fmt.Errorf("row %d: %w", i, err)
		}
	}

	repo, kind, err := a.open(ctx, t)
	if err != nil {
		return 0, err
	}
	defer repo.Close()

	if err := storage.EnsureTable(ctx, kind, repo, t); err != nil {
		return 0, err
	}
	if opts.Truncate {
		if err := repo.Exec(ctx, "DELETE FROM "+t.SQLTable); err != nil {
			return 0, err
		}
	}

	batch := a.cfg.DB.BatchSize
	if batch <= 0 {
		batch = config.DefaultBatchSize
	}
	n, err := storage.LoadRows(ctx, t.SQLTable, columns, rows, batch, repo.CopyFrom)
	metrics.RecordRow(a.job, metrics.KindInserted, n)
	metrics.RecordBatches(a.job, (n+int64(batch)-1)/int64(batch))
	return n, err
}
