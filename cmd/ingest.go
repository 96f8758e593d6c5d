package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/workfusion/internal/config"
	"github.com/lehigh-university-libraries/workfusion/internal/fusion"
	"github.com/lehigh-university-libraries/workfusion/internal/ingest"
	"github.com/lehigh-university-libraries/workfusion/internal/logging"
	"github.com/lehigh-university-libraries/workfusion/internal/metrics"
)

func newIngestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Fuse source records into the work store",
		Long: `Reads source records from JSONL or Parquet files, applies any embedded
enrichment and classification payloads, and fuses each record into the
configured store. Each record is committed on its own.

Invalid records are skipped and reported. A storage failure stops the run.
A YAML run report is always written to the report directory.`,
		Example: `  # Ingest a catalog export into the default SQLite database
  workfusion ingest records.jsonl

  # Dry run against an in-memory store and export outcomes
  workfusion ingest --backend memory --parquet outcomes.parquet records.parquet

  # Dump run metrics for the node exporter
  workfusion ingest --metrics-file /var/lib/node_exporter/workfusion.prom records.jsonl`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.Default()

			for _, path := range args {
				if _, err := os.Stat(path); os.IsNotExist(err) {
					return fmt.Errorf("record file not found: %s", path)
				}
			}

			records, err := ingest.LoadAll(ctx, args)
			if err != nil {
				return err
			}
			log.Info().Int("records", len(records)).Int("files", len(args)).Msg("Loaded records")

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			rec := metrics.New()
			sum, runErr := ingest.NewRunner(fusion.New(store), rec).Run(ctx, records)

			runCfg := ingest.RunConfig{Backend: a.cfg.Backend, Inputs: args}
			if a.cfg.Backend == config.BackendSQLite {
				runCfg.Database = a.cfg.DatabasePath
			}
			path, err := ingest.SaveYAML(a.cfg.ReportDir, runCfg, sum)
			if err != nil {
				return err
			}
			log.Info().Str("path", path).Msg("Run report saved")

			if a.cfg.ParquetPath != "" {
				if err := ingest.SaveParquet(a.cfg.ParquetPath, sum.Outcomes); err != nil {
					return err
				}
			}
			if a.cfg.MetricsFile != "" {
				if err := rec.WriteTextfile(a.cfg.MetricsFile); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "total=%d new=%d existing=%d skipped=%d reproject=%d\n",
				sum.Total, sum.New, sum.Existing, sum.Skipped, len(sum.Reproject))
			return runErr
		},
	}

	cmd.Flags().String(config.KeyReportDir, "", "Directory for YAML run reports (default reports)")
	cmd.Flags().String(config.KeyParquet, "", "Write per-record outcomes to this Parquet file")
	cmd.Flags().String(config.KeyMetricsFile, "", "Write prometheus metrics to this textfile")

	return cmd
}
