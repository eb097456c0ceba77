package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dkoster/causalsweep/internal/checkpoint"
	"github.com/dkoster/causalsweep/internal/combinator"
)

// planEntry is one row of the combination plan.
type planEntry struct {
	Ordinal    int    `json:"ordinal"`
	ConfigID   string `json:"config_id"`
	Size       int    `json:"size"`
	Checkpoint string `json:"checkpoint"`
}

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the combination plan without running anything",
		Long: `Enumerate the sweep's combinations in execution order, with the
checkpoint file name each one will be stored under.

Examples:
  causalsweep plan --components age,sex,bmi
  causalsweep plan --config sweep.yaml --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := combinator.Validate(cfg.Components); err != nil {
				return err
			}

			var entries []planEntry
			for ordinal, c := range combinator.All(cfg.Components) {
				entries = append(entries, planEntry{
					Ordinal:    ordinal,
					ConfigID:   c.ID(),
					Size:       c.Size(),
					Checkpoint: checkpoint.FileName(ordinal, c),
				})
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(entries)
			}

			fmt.Printf("base components (M=%d): %v\n", len(cfg.Components), cfg.Components)
			fmt.Printf("combinations: %d\n\n", len(entries))
			for _, e := range entries {
				fmt.Printf("%4d  %-30s %s\n", e.Ordinal, e.ConfigID, e.Checkpoint)
			}
			return nil
		},
	}

	cmd.Flags().String("components", "", "Comma-separated base component set")

	return cmd
}
