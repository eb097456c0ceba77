package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dkoster/causalsweep/internal/registry"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarize the most recent run in a run directory",
		Long: `Read the run registry and print the latest run's parameters and
per-combination progress.

Examples:
  causalsweep status --out results
  causalsweep status --out results --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("out")

			reg, err := registry.Open(dir)
			if err != nil {
				return err
			}
			defer reg.Close()

			summary, err := reg.LatestRun(cmd.Context())
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("no runs recorded in %s", dir)
			}
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(summary)
			}

			fmt.Printf("run %d started %s\n", summary.ID, summary.StartedAt)
			if summary.FinishedAt != "" {
				fmt.Printf("finished %s\n", summary.FinishedAt)
			} else {
				fmt.Println("still running (or interrupted)")
			}
			fmt.Printf("master seed=%d n=%d seeds=%d workers=%d\n",
				summary.MasterSeed, summary.SampleSize, summary.SeedCount, summary.Workers)
			fmt.Printf("components: %s\n", summary.Components)
			if summary.BaselineATE != nil {
				fmt.Printf("baseline ATE: %.6f\n", *summary.BaselineATE)
			}
			fmt.Printf("combinations: %d done, %d skipped, %d failed trials\n",
				summary.Done, summary.Skipped, summary.FailedTrials)
			return nil
		},
	}

	cmd.Flags().String("out", "results", "Run directory containing the registry")

	return cmd
}
