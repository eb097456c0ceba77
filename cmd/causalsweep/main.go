package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "causalsweep",
		Short: "Combinatorial Monte Carlo sweep driver for causal estimators",
		Long: `causalsweep drives a combinatorial simulation study: for every
non-empty subset of the base estimator components it re-estimates a
treatment effect across a fixed plan of random seeds, checkpoints each
combination to disk, and consolidates the checkpoints into one table.

An interrupted run can be restarted with the same parameters; finished
combinations are skipped.`,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for machine consumption)")
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newStitchCmd(),
		newPlanCmd(),
		newStatusCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(os.Stdout).Encode(map[string]string{"version": version})
			} else {
				fmt.Printf("causalsweep version %s\n", version)
			}
		},
	}
}
