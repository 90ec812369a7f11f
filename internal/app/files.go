package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"atexport/internal/config"
	"atexport/internal/ddl"
	"atexport/internal/export"
	"atexport/internal/fileutil"
	"atexport/internal/metrics"
)

// CreateSQL writes create_<sqltable>.sql for every table of the schema
// document and returns the paths in document order.
func (a *App) CreateSQL(ctx context.Context) ([]string, error) {
	var paths []string
	err := a.step(ctx, StepCreateSQL, func(_ context.Context, log *slog.Logger) error {
		doc, err := a.loadDocument()
		if err != nil {
			return err
		}
		for _, t := range doc {
			path := a.cfg.SQLFile(t.SQLTable)
			stmt := ddl.GenerateDDL(t)
			changed, err := fileutil.WriteIfChanged(path, []byte(stmt), 0o644)
			if err != nil {
				return err
			}
			log.Debug("ddl written", "table", t.SQLTable, "path", path, "changed", changed,
				"fingerprint", fileutil.Fingerprint([]byte(stmt)))
			paths = append(paths, path)
		}
		log.Info("ddl scripts written", "tables", len(doc), "dir", a.cfg.Path(a.cfg.SQLDir))
		return nil
	})
	return paths, err
}

// DownloadData fetches the records of every table in the schema document
// and writes one data file per table and format. Without formats it writes
// JSON.
func (a *App) DownloadData(ctx context.Context, formats ...export.Format) error {
	if len(formats) == 0 {
		formats = []export.Format{export.FormatJSON}
	}
	return a.step(ctx, StepDownloadData, func(ctx context.Context, log *slog.Logger) error {
		if err := a.needRemote(); err != nil {
			return err
		}
		doc, err := a.loadDocument()
		if err != nil {
			return err
		}
		if _, err := config.EnsurePath(a.cfg.Path(a.cfg.DataDir), config.PathOptions{}); err != nil {
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(a.workers)
		for _, t := range doc {
			g.Go(func() error {
				log.Info("downloading", "base", t.Base, "airtable", t.Airtable, "view", t.View)
				recs, err := a.remote.ListRecords(gctx, t.Base, t.Airtable, t.View)
				if err != nil {
					return fmt.Errorf("table %s: %w", t.SQLTable, err)
				}
				rows := export.MapRecords(t, recs)
				for _, f := range formats {
					path := a.cfg.DataFile(t.SQLTable, string(f))
					changed, err := export.Save(path, f, t.ColumnNames(), rows)
					if err != nil {
						return fmt.Errorf("table %s: %w", t.SQLTable, err)
					}
					log.Info("data written", "table", t.SQLTable, "rows", len(rows), "path", path, "changed", changed)
				}
				metrics.RecordRow(a.job, metrics.KindDownloaded, int64(len(rows)))
				return nil
			})
		}
		return g.Wait()
	})
}
