// Package config defines the YAML configuration of an export run: where
// generated files go, which database receives the data, and which Airtable
// tables are exported with which column overrides.
//
// Example (trimmed):
//
//	base_dir: generated
//	column_filters: [" copy$"]
//	tables:
//	  - base: app123ABC456DEF
//	    airtable: My Table
//	    table: my_table
//	    all_columns: false
//	    columns:
//	      Name: name
//	      Amount: {sqlcol: amount_cents, sqltype: BIGINT}
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"atexport/internal/schema"
)

// Defaults for unset path settings. Paths are relative to BaseDir.
const (
	DefaultSchemasFile = "schemas.json"
	DefaultDataDir     = "data"
	DefaultSQLDir      = "create_sql"
	DefaultDBFile      = "airtable.sqlite"
	DefaultDriver      = "sqlite"
	DefaultBatchSize   = 500
)

// Config is the top-level document decoded from config.yml.
type Config struct {
	BaseDir     string `yaml:"base_dir"`
	SchemasFile string `yaml:"schemas_file"`
	DataDir     string `yaml:"data_dir"`
	// LegacyDataDir is the older spelling "datadir"; data_dir wins.
	LegacyDataDir string `yaml:"datadir,omitempty"`
	SQLDir        string `yaml:"sql_dir"`
	DBFile        string `yaml:"db_file"`

	DB DBConfig `yaml:"db"`

	// ColumnFilters are regular expressions; a field whose name matches any
	// of them is never exported.
	ColumnFilters []string `yaml:"column_filters"`
	StrictColumns bool     `yaml:"strict_columns"`
	// FoldAccents strips diacritics before derived names are reduced to
	// ASCII, so "Café" becomes "cafe" instead of "caf".
	FoldAccents bool `yaml:"fold_accents"`

	Tables []Table `yaml:"tables"`
}

// Folding is the name folding selected by fold_accents.
func (c *Config) Folding() schema.Folding {
	if c.FoldAccents {
		return schema.FoldAccents
	}
	return schema.FoldNone
}

// DBConfig selects the storage backend. For sqlite an empty DSN means
// DBFile.
type DBConfig struct {
	Driver    string `yaml:"driver"`
	DSN       string `yaml:"dsn"`
	BatchSize int    `yaml:"batch_size"`
}

// Table is one exported Airtable table.
type Table struct {
	Base     string `yaml:"base"`
	Airtable string `yaml:"airtable"`
	Table    string `yaml:"table"`
	View     string `yaml:"view"`
	// AllColumns defaults to true when omitted.
	AllColumns *bool                     `yaml:"all_columns"`
	Columns    map[string]ColumnOverride `yaml:"columns"`
}

// IncludeAll reports the effective all_columns setting.
func (t Table) IncludeAll() bool {
	return t.AllColumns == nil || *t.AllColumns
}

// Overrides converts the columns mapping for the resolver.
func (t Table) Overrides() schema.Overrides {
	if len(t.Columns) == 0 {
		return nil
	}
	out := make(schema.Overrides, len(t.Columns))
	for name, c := range t.Columns {
		out[name] = c.Override
	}
	return out
}

// TableConfig builds the assembler input for t.
func (t Table) TableConfig(baseName string, strict bool) schema.TableConfig {
	return schema.TableConfig{
		Base:          t.Base,
		BaseName:      baseName,
		Airtable:      t.Airtable,
		SQLTable:      t.Table,
		View:          t.View,
		AllColumns:    t.IncludeAll(),
		Overrides:     t.Overrides(),
		StrictColumns: strict,
	}
}

// ColumnOverride is one entry of a table's columns mapping. A scalar value
// renames the column; a mapping with sqlcol and sqltype replaces both; an
// empty value only selects the field.
// A mapping missing either key decodes to an invalid full override, which
// Validate and the resolver both report.
type ColumnOverride struct {
	schema.Override
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *ColumnOverride) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			c.Override = schema.Override{Kind: schema.OverrideNone}
			return nil
		}
		var s string
		if err := n.Decode(&s); err != nil {
			return err
		}
		c.Override = schema.Rename(s)
		return nil
	case yaml.MappingNode:
		var m struct {
			SQLCol  string `yaml:"sqlcol"`
			SQLType string `yaml:"sqltype"`
		}
		if err := n.Decode(&m); err != nil {
			return err
		}
		c.Override = schema.Full(m.SQLCol, m.SQLType)
		return nil
	default:
		return fmt.Errorf("line %d: column override must be a name or {sqlcol, sqltype}", n.Line)
	}
}

// MarshalYAML writes the override back in the form it was read.
func (c ColumnOverride) MarshalYAML() (any, error) {
	switch c.Kind {
	case schema.OverrideFull:
		return map[string]string{"sqlcol": c.Column, "sqltype": c.SQLType}, nil
	case schema.OverrideRename:
		return c.Column, nil
	}
	return nil, nil
}

// Parse decodes a config document and applies defaults. Unknown keys are
// rejected.
func Parse(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var c Config
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: %w", err)
	}
	c.ApplyDefaults()
	return &c, nil
}

// Load reads and parses the config file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(bytes.NewReader(b))
}

// ApplyDefaults fills unset settings.
func (c *Config) ApplyDefaults() {
	if c.DataDir == "" {
		c.DataDir = c.LegacyDataDir
	}
	c.LegacyDataDir = ""
	if c.SchemasFile == "" {
		c.SchemasFile = DefaultSchemasFile
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.SQLDir == "" {
		c.SQLDir = DefaultSQLDir
	}
	if c.DBFile == "" {
		c.DBFile = DefaultDBFile
	}
	if c.DB.Driver == "" {
		c.DB.Driver = DefaultDriver
	}
	if c.DB.BatchSize <= 0 {
		c.DB.BatchSize = DefaultBatchSize
	}
}
