package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dkoster/causalsweep/internal/config"
	"github.com/dkoster/causalsweep/internal/logging"
	"github.com/dkoster/causalsweep/internal/runner"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the full combinatorial sweep",
		Long: `Run the sweep: draw the working sample, enumerate every non-empty
component subset, evaluate each one across the seed plan, and write one
checkpoint file per combination under the output directory.

Re-running with the same output directory skips combinations that
already have a checkpoint.

Examples:
  causalsweep run --out results --n 1000 --seeds 200
  causalsweep run --config sweep.yaml --stitch
  causalsweep run --components age,sex,bmi --workers 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			log := logging.NewLogger(cfg.Logging.Level, os.Stderr)
			report, err := runner.Run(cmd.Context(), runner.Options{Config: cfg, Log: log})
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(report)
			}
			fmt.Printf("run complete: %d combinations (%d skipped), %d failed trials, %.1fs\n",
				report.Combinations, report.Skipped, report.FailedTrials, report.ElapsedSeconds)
			if report.ConsolidatedPath != "" {
				fmt.Printf("consolidated table: %s\n", report.ConsolidatedPath)
			}
			return nil
		},
	}

	cmd.Flags().String("out", "", "Output directory for checkpoints, log and registry")
	cmd.Flags().Int("n", 0, "Working sample size N")
	cmd.Flags().Int("seeds", 0, "Seed count K per combination")
	cmd.Flags().Int("workers", -1, "Worker pool size C (0 = cores minus one)")
	cmd.Flags().Int64("master-seed", 0, "Master seed for population, sample and seed plan")
	cmd.Flags().String("components", "", "Comma-separated base component set")
	cmd.Flags().Bool("stitch", false, "Consolidate checkpoints into a CSV after the run")
	cmd.Flags().String("log-level", "", "Log level: info or debug")

	return cmd
}

// loadConfig resolves the effective configuration: defaults, then the
// YAML file, then environment variables, then any flags set on cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("out") {
		cfg.OutputDir, _ = flags.GetString("out")
	}
	if flags.Changed("n") {
		cfg.SampleSize, _ = flags.GetInt("n")
	}
	if flags.Changed("seeds") {
		cfg.SeedCount, _ = flags.GetInt("seeds")
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("master-seed") {
		cfg.MasterSeed, _ = flags.GetInt64("master-seed")
	}
	if flags.Changed("components") {
		raw, _ := flags.GetString("components")
		cfg.Components = splitComponents(raw)
	}
	if flags.Changed("stitch") {
		cfg.Stitch, _ = flags.GetBool("stitch")
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	return cfg, nil
}

// splitComponents parses a comma-separated component list, trimming
// whitespace and dropping empty entries.
func splitComponents(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
