// Package app runs the export pipeline steps: schema mapping, DDL scripts,
// data download, database creation and loading.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"

	"atexport/internal/airtable"
	"atexport/internal/config"
	"atexport/internal/logging"
	"atexport/internal/metrics"
	"atexport/internal/schema"
)

// Step names, also used as CLI command names and metric labels.
const (
	StepGenerateSchemaMap = "generate-schema-map"
	StepCreateSQL         = "create-sql"
	StepDownloadData      = "download-data"
	StepCreateDB          = "create-db"
	StepLoadDB            = "load-db"
	StepArchiveSchemas    = "archive-schemas"
)

// Remote is the Airtable API surface the pipeline reads from;
// *airtable.Client implements it.
type Remote interface {
	ListBases(ctx context.Context) ([]airtable.Base, error)
	BaseSchema(ctx context.Context, baseID string) (airtable.BaseSchema, error)
	ListRecords(ctx context.Context, baseID, table, view string) ([]airtable.Record, error)
}

var _ Remote = (*airtable.Client)(nil)

// App holds what every step needs. Build it with New.
type App struct {
	cfg     *config.Config
	remote  Remote
	log     *slog.Logger
	job     string
	runID   string
	workers int
	verbose bool
	dump    io.Writer
}

// Option customizes an App.
type Option func(*App)

// WithLogger sets the base logger; the run id is added to it.
func WithLogger(l *slog.Logger) Option { return func(a *App) { a.log = l } }

// WithJob sets the job label used for metrics. Default "atexport".
func WithJob(job string) Option { return func(a *App) { a.job = job } }

// WithRunID fixes the run id instead of generating one.
func WithRunID(id string) Option { return func(a *App) { a.runID = id } }

// WithWorkers bounds concurrent remote calls. Default 4.
func WithWorkers(n int) Option { return func(a *App) { a.workers = n } }

// WithVerbose dumps the generated schema document to w.
func WithVerbose(w io.Writer) Option {
	return func(a *App) {
		a.verbose = true
		a.dump = w
	}
}

// New builds an App. remote may be nil for steps that never call Airtable
// (create-sql, create-db, load-db).
func New(cfg *config.Config, remote Remote, opts ...Option) *App {
	a := &App{
		cfg:     cfg,
		remote:  remote,
		log:     slog.Default(),
		job:     "atexport",
		workers: 4,
		dump:    os.Stderr,
	}
	for _, o := range opts {
		o(a)
	}
	if a.runID == "" {
		a.runID = uuid.NewString()
	}
	if a.workers <= 0 {
		a.workers = 1
	}
	a.log = logging.WithRunID(a.log, a.runID)
	return a
}

// RunID identifies this run in logs.
func (a *App) RunID() string { return a.runID }

// step times fn, logs its outcome and records step metrics.
func (a *App) step(ctx context.Context, name string, fn func(context.Context, *slog.Logger) error) error {
	log := a.log.With("step", name)
	ctx = logging.WithContext(ctx, log)
	start := time.Now()
	log.Info("step started")

	err := fn(ctx, log)

	d := time.Since(start)
	metrics.RecordStep(a.job, name, err, d)
	if err != nil {
		log.Error("step failed", "err", err, "elapsed", d.Truncate(time.Millisecond))
		return fmt.Errorf("%s: %w", name, err)
	}
	log.Info("step finished", "elapsed", d.Truncate(time.Millisecond))
	return nil
}

func (a *App) needRemote() error {
	if a.remote == nil {
		return fmt.Errorf("no Airtable client configured (set AIRTABLE_API_KEY)")
	}
	return nil
}

// loadDocument reads the schema document written by GenerateSchemaMap.
func (a *App) loadDocument() (schema.Document, error) {
	path, err := config.EnsurePath(a.cfg.SchemasPath(), config.PathOptions{MustExist: true})
	if err != nil {
		return nil, err
	}
	return schema.LoadDocument(path)
}

func (a *App) dumpDocument(doc schema.Document) {
	if !a.verbose || a.dump == nil {
		return
	}
	cs := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true, SortKeys: true}
	cs.Fdump(a.dump, doc)
}
