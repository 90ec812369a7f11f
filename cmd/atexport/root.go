package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"atexport/internal/airtable"
	"atexport/internal/app"
	"atexport/internal/config"
	"atexport/internal/logging"
	"atexport/internal/metrics"
	"atexport/internal/metrics/datadog"
	"atexport/internal/metrics/prompush"
)

const (
	keyPushgatewayURL = "metrics.pushgateway_url"
	keyDogStatsDAddr  = "metrics.dogstatsd_addr"
)

// cli holds state shared by all subcommands of one invocation.
type cli struct {
	v        *viper.Viper
	out      io.Writer
	errOut   io.Writer
	noConfig bool
	verbose  bool
	workers  int
	log      *slog.Logger
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{v: config.NewViper(), out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "atexport",
		Short: "Export Airtable bases into SQL databases",
		Long: `atexport maps Airtable tables onto SQL tables, writes CREATE TABLE scripts,
downloads records as JSON or CSV and loads them into SQLite, Postgres,
SQL Server or MySQL.

Settings come from flags, then ATEXPORT_* environment variables (the API key
is also read from AIRTABLE_API_KEY), then the config file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			s := config.RuntimeSettings(c.v)
			log, err := logging.Setup(logging.Config{Level: s.LogLevel, Format: s.LogFormat, Output: c.errOut})
			if err != nil {
				return err
			}
			c.log = log
			return nil
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringP("config-file", "c", "config.yml", "config document")
	pf.BoolVar(&c.noConfig, "no-config-file", false, "run from flags and the schema document only")
	pf.String("base-dir", "", "directory generated files are placed in")
	pf.String("schemas-file", "", "schema document, relative to base-dir")
	pf.String("data-dir", "", "data file directory, relative to base-dir")
	pf.String("sql-dir", "", "CREATE TABLE script directory, relative to base-dir")
	pf.String("db-file", "", "SQLite database file, relative to base-dir")
	pf.String("db-driver", "", "database backend: sqlite, postgres, mssql or mysql")
	pf.String("db-dsn", "", "database connection string")
	pf.Int("batch-size", 0, "rows per insert batch")
	pf.String("api-url", "", "Airtable API base URL")
	pf.String("log-level", "info", "debug, info, warn or error")
	pf.String("log-format", "text", "text or json")
	pf.String("metrics-backend", "none", "none, pushgateway or datadog")
	pf.String("pushgateway-url", "", "Prometheus Pushgateway URL")
	pf.String("dogstatsd-addr", "127.0.0.1:8125", "DogStatsD address")
	pf.IntVar(&c.workers, "workers", 4, "tables processed in parallel")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "dump the generated schema document")

	for key, name := range map[string]string{
		config.KeyConfigFile:     "config-file",
		config.KeyBaseDir:        "base-dir",
		config.KeySchemasFile:    "schemas-file",
		config.KeyDataDir:        "data-dir",
		config.KeySQLDir:         "sql-dir",
		config.KeyDBFile:         "db-file",
		config.KeyDBDriver:       "db-driver",
		config.KeyDBDSN:          "db-dsn",
		config.KeyBatchSize:      "batch-size",
		config.KeyAPIURL:         "api-url",
		config.KeyLogLevel:       "log-level",
		config.KeyLogFormat:      "log-format",
		config.KeyMetricsBackend: "metrics-backend",
		keyPushgatewayURL:        "pushgateway-url",
		keyDogStatsDAddr:         "dogstatsd-addr",
	} {
		_ = c.v.BindPFlag(key, pf.Lookup(name))
	}

	root.AddCommand(
		c.generateSchemaMapCmd(),
		c.createSQLCmd(),
		c.downloadDataCmd(),
		c.createDBCmd(),
		c.loadDBCmd(),
		c.allCmd(),
		c.archiveSchemasCmd(),
		c.validateCmd(),
		c.createConfigCmd(),
	)
	return root
}

// loadConfig reads the config document (unless --no-config-file) and layers
// flags and environment on top.
func (c *cli) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if c.noConfig {
		cfg = &config.Config{}
		cfg.ApplyDefaults()
	} else {
		loaded, err := config.Load(c.v.GetString(config.KeyConfigFile))
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	config.Layer(c.v, cfg)
	return cfg, nil
}

// remote returns nil without an API key; steps that need Airtable fail
// with a pointer to AIRTABLE_API_KEY.
func (c *cli) remote() (app.Remote, error) {
	s := config.RuntimeSettings(c.v)
	if s.APIKey == "" {
		return nil, nil
	}
	client, err := airtable.NewClient(airtable.ClientConfig{APIKey: s.APIKey, BaseURL: s.APIURL})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// newMetricsBackend builds the backend named by kind. "none" returns nil.
func newMetricsBackend(kind, job, pushURL, dogAddr string) (metrics.Backend, error) {
	switch kind {
	case "", "none":
		return nil, nil
	case "pushgateway":
		return prompush.NewBackend(job, pushURL)
	case "datadog":
		return datadog.NewBackend(datadog.Config{Addr: dogAddr, Namespace: "atexport."})
	default:
		return nil, fmt.Errorf("unknown metrics backend %q (want none, pushgateway or datadog)", kind)
	}
}

// run loads the configuration, optionally lints it, and calls fn with an
// App. Metrics are flushed after fn returns.
func (c *cli) run(ctx context.Context, job string, lint bool, fn func(context.Context, *app.App) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if lint && !c.noConfig {
		if printIssues(c.errOut, config.Validate(cfg)) {
			return errors.New("config has errors; run atexport validate")
		}
	}

	remote, err := c.remote()
	if err != nil {
		return err
	}

	s := config.RuntimeSettings(c.v)
	backend, err := newMetricsBackend(s.MetricsBackend, "atexport", c.v.GetString(keyPushgatewayURL), c.v.GetString(keyDogStatsDAddr))
	if err != nil {
		return err
	}
	if backend != nil {
		metrics.SetBackend(backend)
		defer func() {
			if err := metrics.Flush(); err != nil {
				c.log.Warn("metrics flush failed", "backend", s.MetricsBackend, "err", err)
			}
		}()
	}

	opts := []app.Option{app.WithLogger(c.log), app.WithJob(job), app.WithWorkers(c.workers)}
	if c.verbose {
		opts = append(opts, app.WithVerbose(c.errOut))
	}
	return fn(ctx, app.New(cfg, remote, opts...))
}
