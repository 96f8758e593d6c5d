package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/workfusion/internal/errors"
)

// inTempDir isolates the config search path from the developer's files.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	inTempDir(t)

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, Config{
		DatabasePath: "workfusion.db",
		Backend:      BackendSQLite,
		LogLevel:     "info",
		LogFormat:    "auto",
		ReportDir:    "reports",
	}, cfg)
}

func TestLoadPrecedence(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".workfusion.yaml"), []byte(
		"db: from-file.db\nbackend: memory\nreport-dir: file-reports\n"), 0o644))
	t.Setenv("WORKFUSION_REPORT_DIR", "env-reports")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String(KeyBackend, "", "")
	require.NoError(t, flags.Parse([]string{"--backend", "SQLite"}))

	v := viper.New()
	require.NoError(t, v.BindPFlag(KeyBackend, flags.Lookup(KeyBackend)))

	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Backend, "flags beat the config file")
	assert.Equal(t, "env-reports", cfg.ReportDir, "env beats the config file")
	assert.Equal(t, "from-file.db", cfg.DatabasePath)
	assert.Equal(t, filepath.Join(dir, ".workfusion.yaml"), cfg.ConfigFile)
}

func TestLoadExplicitFile(t *testing.T) {
	dir := inTempDir(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("metrics-file: run.prom\nparquet: out.parquet\n"), 0o644))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "run.prom", cfg.MetricsFile)
	assert.Equal(t, "out.parquet", cfg.ParquetPath)

	_, err = Load(viper.New(), filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.IsValidation(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "sqlite", cfg: Config{Backend: BackendSQLite, DatabasePath: "w.db"}},
		{name: "memory without path", cfg: Config{Backend: BackendMemory}},
		{name: "sqlite without path", cfg: Config{Backend: BackendSQLite}, wantErr: true},
		{name: "unknown backend", cfg: Config{Backend: "postgres", DatabasePath: "w.db"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.True(t, errors.IsValidation(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoadEnvFiles(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("WORKFUSION_BACKEND=memory\n"), 0o644))
	t.Setenv("WORKFUSION_BACKEND", "")
	require.NoError(t, os.Unsetenv("WORKFUSION_BACKEND"))

	LoadEnvFiles()
	t.Cleanup(func() { _ = os.Unsetenv("WORKFUSION_BACKEND") })

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Backend)
}
