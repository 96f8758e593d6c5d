package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/workfusion/internal/ingest"
)

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "report <file>",
		Short:   "Summarize a saved ingest run report",
		Example: `  workfusion report reports/ingest-2026-03-14_09-30-00.000.yaml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := ingest.LoadYAML(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			sum := report.Summary
			fmt.Fprintf(out, "backend=%s inputs=%s\n", report.Config.Backend, strings.Join(report.Config.Inputs, ","))
			fmt.Fprintf(out, "total=%d new=%d existing=%d skipped=%d reproject=%d\n",
				sum.Total, sum.New, sum.Existing, sum.Skipped, len(sum.Reproject))
			for _, o := range sum.Outcomes {
				if o.Status == ingest.StatusSkipped {
					fmt.Fprintf(out, "skipped record %d (%s): %s\n", o.Index, o.Source, o.Reason)
				}
			}
			return nil
		},
	}
}
