package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dkoster/causalsweep/internal/runner"
	"github.com/dkoster/causalsweep/internal/stitch"
)

func newStitchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stitch",
		Short: "Consolidate a run directory's checkpoints into one table",
		Long: `Read every checkpoint in the run directory, verify the combination
set is complete, and write the consolidated CSV. Missing or unexpected
ordinals are reported as an error rather than silently omitted.

Examples:
  causalsweep stitch --out results
  causalsweep stitch --out results --csv effects.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("out")
			csvPath, _ := cmd.Flags().GetString("csv")
			if csvPath == "" {
				csvPath = filepath.Join(dir, runner.ConsolidatedFileName)
			}

			table, err := stitch.Stitch(dir)
			if err != nil {
				return err
			}
			defer table.Release()

			if csvPath == "-" {
				return table.WriteCSV(os.Stdout)
			}
			if err := table.WriteCSVFile(csvPath); err != nil {
				return err
			}
			fmt.Printf("wrote %d rows to %s\n", table.NumRows(), csvPath)
			return nil
		},
	}

	cmd.Flags().String("out", "results", "Run directory containing checkpoints")
	cmd.Flags().String("csv", "", "Destination CSV path (default <out>/consolidated.csv, - for stdout)")

	return cmd
}
