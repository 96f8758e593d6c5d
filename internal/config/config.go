// Package config resolves the run configuration from flags, environment,
// .env files, a YAML config file and defaults, in that order of precedence.
package config

import (
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/lehigh-university-libraries/workfusion/internal/errors"
)

// EnvPrefix prefixes every environment variable, e.g. WORKFUSION_DB.
const EnvPrefix = "WORKFUSION"

// Keys understood by Load. Command flags bind to the same names.
const (
	KeyDatabase    = "db"
	KeyBackend     = "backend"
	KeyLogLevel    = "log-level"
	KeyLogFormat   = "log-format"
	KeyReportDir   = "report-dir"
	KeyParquet     = "parquet"
	KeyMetricsFile = "metrics-file"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config is the resolved configuration for one invocation.
type Config struct {
	DatabasePath string
	Backend      string
	LogLevel     string
	LogFormat    string
	ReportDir    string

	// ParquetPath, when set, receives the per-record outcomes.
	ParquetPath string

	// MetricsFile, when set, receives a node-exporter textfile dump.
	MetricsFile string

	// ConfigFile is the config file that was read, if any.
	ConfigFile string
}

// SetDefaults installs the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDatabase, "workfusion.db")
	v.SetDefault(KeyBackend, BackendSQLite)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "auto")
	v.SetDefault(KeyReportDir, "reports")
}

// LoadEnvFiles loads .env then .env.local. Variables already set in the
// environment win, and missing files are ignored.
func LoadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

// Load resolves a Config from v. configFile overrides the search for
// .workfusion.yaml in the working and home directories.
func Load(v *viper.Viper, configFile string) (Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".workfusion")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, errors.NewValidationError("config", configFile, err.Error())
		}
	}

	cfg := Config{
		DatabasePath: v.GetString(KeyDatabase),
		Backend:      strings.ToLower(v.GetString(KeyBackend)),
		LogLevel:     v.GetString(KeyLogLevel),
		LogFormat:    v.GetString(KeyLogFormat),
		ReportDir:    v.GetString(KeyReportDir),
		ParquetPath:  v.GetString(KeyParquet),
		MetricsFile:  v.GetString(KeyMetricsFile),
		ConfigFile:   v.ConfigFileUsed(),
	}
	return cfg, cfg.Validate()
}

// Validate checks the values Load cannot default.
func (c Config) Validate() error {
	if !slices.Contains([]string{BackendSQLite, BackendMemory}, c.Backend) {
		return errors.NewValidationError("backend", c.Backend, "must be sqlite or memory")
	}
	if c.Backend == BackendSQLite && strings.TrimSpace(c.DatabasePath) == "" {
		return errors.NewValidationError("db", c.DatabasePath, "a database path is required for the sqlite backend")
	}
	return nil
}
