package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"atexport/internal/airtable"
	"atexport/internal/config"
	"atexport/internal/fileutil"
	"atexport/internal/metrics"
	"atexport/internal/schema"
)

// ReferenceSchemasFile is written by ArchiveSchemas.
const ReferenceSchemasFile = "reference_schemas.json"

// GenerateSchemaMap fetches the schema of every configured base once,
// assembles each configured table and writes the schema document. Tables
// keep config order. Assembly diagnostics are logged at warn.
func (a *App) GenerateSchemaMap(ctx context.Context) (schema.Document, error) {
	var doc schema.Document
	err := a.step(ctx, StepGenerateSchemaMap, func(ctx context.Context, log *slog.Logger) error {
		if err := a.needRemote(); err != nil {
			return err
		}
		filters, err := schema.CompileFilters(a.cfg.ColumnFilters)
		if err != nil {
			return err
		}

		schemas, err := a.fetchSchemas(ctx)
		if err != nil {
			return err
		}
		names := a.baseNames(ctx, log)

		tables := make([]schema.Table, len(a.cfg.Tables))
		diags := make([][]schema.Diagnostic, len(a.cfg.Tables))
		var g errgroup.Group
		for i, tc := range a.cfg.Tables {
			g.Go(func() error {
				remote, ok := schemas[tc.Base].Table(tc.Airtable)
				if !ok {
					return fmt.Errorf("table %q not found in base %s", tc.Airtable, tc.Base)
				}
				in := tc.TableConfig(names[tc.Base], a.cfg.StrictColumns)
				in.Folding = a.cfg.Folding()
				t, d, err := schema.Assemble(in, remote, filters)
				if err != nil {
					return err
				}
				tables[i], diags[i] = t, d
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		var ncols, ndiags int64
		for i, t := range tables {
			ncols += int64(len(t.Columns))
			for _, d := range diags[i] {
				ndiags++
				log.Warn(d.Message, "code", d.Code, "table", d.Table, "field", d.Field)
			}
		}
		metrics.RecordRow(a.job, metrics.KindColumns, ncols)
		metrics.RecordRow(a.job, metrics.KindDiagnostic, ndiags)

		doc = tables
		path, err := config.EnsurePath(a.cfg.SchemasPath(), config.PathOptions{ParentsOnly: true})
		if err != nil {
			return err
		}
		changed, err := schema.SaveDocument(path, doc)
		if err != nil {
			return err
		}
		log.Info("schema document written", "path", path, "tables", len(doc), "columns", ncols, "changed", changed)
		a.dumpDocument(doc)
		return nil
	})
	return doc, err
}

// fetchSchemas loads each distinct base of the config once, at most
// a.workers at a time.
func (a *App) fetchSchemas(ctx context.Context) (map[string]airtable.BaseSchema, error) {
	var (
		mu  sync.Mutex
		out = map[string]airtable.BaseSchema{}
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	seen := map[string]bool{}
	for _, t := range a.cfg.Tables {
		if seen[t.Base] {
			continue
		}
		seen[t.Base] = true
		base := t.Base
		g.Go(func() error {
			s, err := a.remote.BaseSchema(ctx, base)
			if err != nil {
				return fmt.Errorf("base %s: %w", base, err)
			}
			mu.Lock()
			out[base] = s
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// baseNames maps base id to display name. The listing is informational, so
// a failure only costs the names.
func (a *App) baseNames(ctx context.Context, log *slog.Logger) map[string]string {
	names := map[string]string{}
	bases, err := a.remote.ListBases(ctx)
	if err != nil {
		log.Warn("base names unavailable", "err", err)
		return names
	}
	for _, b := range bases {
		names[b.ID] = b.Name
	}
	return names
}

// ArchiveSchemas writes the raw schema of every accessible base, keyed by
// base id, to reference_schemas.json under the base directory.
func (a *App) ArchiveSchemas(ctx context.Context) (string, error) {
	var path string
	err := a.step(ctx, StepArchiveSchemas, func(ctx context.Context, log *slog.Logger) error {
		if err := a.needRemote(); err != nil {
			return err
		}
		bases, err := a.remote.ListBases(ctx)
		if err != nil {
			return err
		}

		schemas := make([]airtable.BaseSchema, len(bases))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(a.workers)
		for i, b := range bases {
			g.Go(func() error {
				s, err := a.remote.BaseSchema(gctx, b.ID)
				if err != nil {
					return fmt.Errorf("base %s: %w", b.ID, err)
				}
				schemas[i] = s
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		ref := make(map[string]airtable.BaseSchema, len(bases))
		for i, b := range bases {
			ref[b.ID] = schemas[i]
		}
		data, err := json.MarshalIndent(ref, "", "  ")
		if err != nil {
			return err
		}
		path = a.cfg.Path(ReferenceSchemasFile)
		changed, err := fileutil.WriteIfChanged(path, append(data, '\n'), 0o644)
		if err != nil {
			return err
		}
		log.Info("reference schemas written", "path", path, "bases", len(bases), "changed", changed,
			"fingerprint", fileutil.Fingerprint(data))
		return nil
	})
	return path, err
}
