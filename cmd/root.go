package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lehigh-university-libraries/workfusion/internal/config"
	"github.com/lehigh-university-libraries/workfusion/internal/logging"
	"github.com/lehigh-university-libraries/workfusion/internal/storage"
	"github.com/lehigh-university-libraries/workfusion/internal/storage/memory"
	"github.com/lehigh-university-libraries/workfusion/internal/storage/sqlite"
)

// app carries the resolved configuration from the root command to its
// subcommands.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        config.Config
}

func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "workfusion",
		Short: "Fuse bibliographic records from several sources into canonical works",
		Long: `Workfusion reconciles catalog, enrichment and classification records that
describe the same literary work into one Work, Edition and Item hierarchy
with its contributors and subjects.

Records are matched by identifier first, then by fuzzy title together with
a shared contributor. Repeated runs over the same input are idempotent.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env files if present (ignore errors)
			config.LoadEnvFiles()

			for _, key := range []string{
				config.KeyDatabase, config.KeyBackend, config.KeyLogLevel, config.KeyLogFormat,
				config.KeyReportDir, config.KeyParquet, config.KeyMetricsFile,
			} {
				flag := cmd.Flags().Lookup(key)
				if flag == nil {
					continue
				}
				if err := a.v.BindPFlag(key, flag); err != nil {
					return fmt.Errorf("failed to bind flag %s: %w", key, err)
				}
			}

			cfg, err := config.Load(a.v, a.configFile)
			if err != nil {
				return err
			}
			a.cfg = cfg

			logCfg := logging.DefaultConfig()
			logCfg.Level = cfg.LogLevel
			logCfg.Format = cfg.LogFormat
			logging.Configure(logCfg)

			if cfg.ConfigFile != "" {
				logging.Default().Debug().Str("path", cfg.ConfigFile).Msg("Using config file")
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Config file (default is ./.workfusion.yaml or $HOME/.workfusion.yaml)")
	flags.String(config.KeyDatabase, "", "SQLite database path (default workfusion.db)")
	flags.String(config.KeyBackend, "", "Storage backend: sqlite or memory (default sqlite)")
	flags.String(config.KeyLogLevel, "", "Log level: trace, debug, info, warn, error")
	flags.String(config.KeyLogFormat, "", "Log format: auto, json, console")

	// Add subcommands
	cmd.AddCommand(newIngestCmd(a))
	cmd.AddCommand(newShowCmd(a))
	cmd.AddCommand(newReportCmd())

	return cmd
}

// openStore opens the configured backend.
func (a *app) openStore(ctx context.Context) (storage.Store, error) {
	switch a.cfg.Backend {
	case config.BackendMemory:
		return memory.New(), nil
	default:
		s, err := sqlite.Open(ctx, a.cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database %s: %w", a.cfg.DatabasePath, err)
		}
		return s, nil
	}
}
