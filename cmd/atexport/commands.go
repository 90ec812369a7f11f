package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"atexport/internal/app"
	"atexport/internal/config"
	"atexport/internal/export"
)

func (c *cli) generateSchemaMapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate-schema-map",
		Short: "Fetch base schemas and write the schema document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd.Context(), app.StepGenerateSchemaMap, true, func(ctx context.Context, a *app.App) error {
				doc, err := a.GenerateSchemaMap(ctx)
				if err != nil {
					return err
				}
				printSuccess(c.out, "%d tables mapped", len(doc))
				return nil
			})
		},
	}
}

func (c *cli) createSQLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-sql",
		Short: "Write a CREATE TABLE script per table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd.Context(), app.StepCreateSQL, false, func(ctx context.Context, a *app.App) error {
				paths, err := a.CreateSQL(ctx)
				if err != nil {
					return err
				}
				for _, p := range paths {
					printInfo(c.out, "%s", p)
				}
				printSuccess(c.out, "%d scripts written", len(paths))
				return nil
			})
		},
	}
}

func (c *cli) downloadDataCmd() *cobra.Command {
	var formats []string
	cmd := &cobra.Command{
		Use:   "download-data",
		Short: "Download records into data files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fs := make([]export.Format, 0, len(formats))
			for _, s := range formats {
				f, err := export.ParseFormat(s)
				if err != nil {
					return err
				}
				fs = append(fs, f)
			}
			return c.run(cmd.Context(), app.StepDownloadData, false, func(ctx context.Context, a *app.App) error {
				if err := a.DownloadData(ctx, fs...); err != nil {
					return err
				}
				printSuccess(c.out, "data downloaded")
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&formats, "format", "f", []string{"json"}, "json or csv, repeatable")
	return cmd
}

func (c *cli) createDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-db",
		Short: "Create the tables in the configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd.Context(), app.StepCreateDB, false, func(ctx context.Context, a *app.App) error {
				if err := a.CreateDB(ctx); err != nil {
					return err
				}
				printSuccess(c.out, "tables created")
				return nil
			})
		},
	}
}

func (c *cli) loadDBCmd() *cobra.Command {
	var opts app.LoadOptions
	cmd := &cobra.Command{
		Use:   "load-db",
		Short: "Load the JSON data files into the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd.Context(), app.StepLoadDB, false, func(ctx context.Context, a *app.App) error {
				if err := a.LoadDB(ctx, opts); err != nil {
					return err
				}
				printSuccess(c.out, "data loaded")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&opts.Truncate, "truncate", false, "delete existing rows first")
	return cmd
}

func (c *cli) allCmd() *cobra.Command {
	var opts app.LoadOptions
	cmd := &cobra.Command{
		Use:   "all",
		Short: "Run every step from generate-schema-map to load-db",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd.Context(), "all", true, func(ctx context.Context, a *app.App) error {
				if err := a.All(ctx, opts); err != nil {
					return err
				}
				printSuccess(c.out, "export finished (run %s)", a.RunID())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&opts.Truncate, "truncate", false, "delete existing rows before loading")
	return cmd
}

func (c *cli) archiveSchemasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive-schemas",
		Short: "Save the raw schema of every accessible base",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd.Context(), app.StepArchiveSchemas, false, func(ctx context.Context, a *app.App) error {
				path, err := a.ArchiveSchemas(ctx)
				if err != nil {
					return err
				}
				printSuccess(c.out, "schemas archived to %s", path)
				return nil
			})
		},
	}
}

func (c *cli) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the config document",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			cfg, err := config.Load(c.v.GetString(config.KeyConfigFile))
			if err != nil {
				return err
			}
			config.Layer(c.v, cfg)
			if printIssues(c.out, config.Validate(cfg)) {
				return errors.New("config has errors")
			}
			printSuccess(c.out, "config ok: %d tables", len(cfg.Tables))
			return nil
		},
	}
}

func (c *cli) createConfigCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "create-config FILE",
		Short: "Write an example config document",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := config.WriteExample(args[0], force); err != nil {
				return err
			}
			printSuccess(c.out, "example config written to %s", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
