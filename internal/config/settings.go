package config

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by NewViper,
// e.g. ATEXPORT_DATA_DIR.
const EnvPrefix = "ATEXPORT"

// Setting keys shared by flags, environment and the config document.
const (
	KeyConfigFile     = "config_file"
	KeyBaseDir        = "base_dir"
	KeySchemasFile    = "schemas_file"
	KeyDataDir        = "data_dir"
	KeySQLDir         = "sql_dir"
	KeyDBFile         = "db_file"
	KeyDBDriver       = "db.driver"
	KeyDBDSN          = "db.dsn"
	KeyBatchSize      = "db.batch_size"
	KeyAPIKey         = "api_key"
	KeyAPIURL         = "api_url"
	KeyLogLevel       = "log.level"
	KeyLogFormat      = "log.format"
	KeyMetricsBackend = "metrics.backend"
)

// Settings are the run options that do not live in the config document.
type Settings struct {
	ConfigFile     string
	APIKey         string
	APIURL         string
	LogLevel       string
	LogFormat      string
	MetricsBackend string
}

// NewViper returns a viper instance reading ATEXPORT_* variables, with
// AIRTABLE_API_KEY accepted for the API key. Callers bind command-line flags
// on top with BindPFlag.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv(KeyAPIKey, EnvPrefix+"_API_KEY", "AIRTABLE_API_KEY")

	v.SetDefault(KeyConfigFile, "config.yml")
	v.SetDefault(KeyAPIURL, "https://api.airtable.com")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyMetricsBackend, "none")
	return v
}

// RuntimeSettings reads the non-document settings from v.
func RuntimeSettings(v *viper.Viper) Settings {
	return Settings{
		ConfigFile:     v.GetString(KeyConfigFile),
		APIKey:         v.GetString(KeyAPIKey),
		APIURL:         v.GetString(KeyAPIURL),
		LogLevel:       v.GetString(KeyLogLevel),
		LogFormat:      v.GetString(KeyLogFormat),
		MetricsBackend: v.GetString(KeyMetricsBackend),
	}
}

// Layer overrides document settings in c with values set by flag or
// environment. Values only present as viper defaults do not override.
func Layer(v *viper.Viper, c *Config) {
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			if s := v.GetString(key); s != "" {
				*dst = s
			}
		}
	}
	str(KeyBaseDir, &c.BaseDir)
	str(KeySchemasFile, &c.SchemasFile)
	str(KeyDataDir, &c.DataDir)
	str(KeySQLDir, &c.SQLDir)
	str(KeyDBFile, &c.DBFile)
	str(KeyDBDriver, &c.DB.Driver)
	str(KeyDBDSN, &c.DB.DSN)
	if v.IsSet(KeyBatchSize) {
		if n := v.GetInt(KeyBatchSize); n > 0 {
			c.DB.BatchSize = n
		}
	}
}
