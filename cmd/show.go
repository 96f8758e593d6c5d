package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/workfusion/internal/config"
	"github.com/lehigh-university-libraries/workfusion/internal/errors"
	"github.com/lehigh-university-libraries/workfusion/internal/storage"
)

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <work-id>",
		Short: "Print a stored work as YAML",
		Example: `  workfusion show 42
  workfusion show --db catalog.db 42`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid work id %q", args[0])
			}
			if a.cfg.Backend == config.BackendMemory {
				return fmt.Errorf("show needs a persistent store: the %s backend starts empty on every run", config.BackendMemory)
			}

			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			tx, err := store.Begin(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = tx.Rollback() }()

			work, err := storage.LoadWork(ctx, tx, id)
			if errors.IsNotFound(err) {
				return fmt.Errorf("work %d not found", id)
			}
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(work); err != nil {
				return fmt.Errorf("failed to encode work: %w", err)
			}
			return enc.Close()
		},
	}
}
