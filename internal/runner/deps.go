package runner

import (
	"context"
	"log/slog"

	"github.com/dkoster/causalsweep/internal/checkpoint"
	"github.com/dkoster/causalsweep/internal/config"
	"github.com/dkoster/causalsweep/internal/logging"
	"github.com/dkoster/causalsweep/internal/registry"
	"github.com/dkoster/causalsweep/internal/runlog"
)

// runDeps bundles the run's observational sinks: run log, trial trace
// and registry. The registry and trial trace are best-effort; only the
// checkpoint store (held by Run itself) can abort the run.
type runDeps struct {
	log    *runlog.Logger
	trials *logging.TrialLogger
	reg    *registry.Registry
	slog   *slog.Logger
}

// openRunDeps opens the sinks under the run directory. A registry that
// fails to open is logged and left nil; its methods below are nil-safe.
func openRunDeps(cfg *config.Config, log *slog.Logger) (*runDeps, error) {
	rl, err := runlog.Open(cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	reg, err := registry.Open(cfg.OutputDir)
	if err != nil {
		log.Warn("registry unavailable", "error", err)
		reg = nil
	}

	return &runDeps{
		log:    rl,
		trials: logging.NewTrialLogger(cfg.OutputDir, cfg.Logging.Level),
		reg:    reg,
		slog:   log,
	}, nil
}

func (d *runDeps) close() {
	d.log.Close()
	d.trials.Close()
	if d.reg != nil {
		d.reg.Close()
	}
}

func (d *runDeps) startRun(ctx context.Context, params checkpoint.RunParams, baselineATE *float64) int64 {
	if d.reg == nil {
		return 0
	}
	id, err := d.reg.StartRun(ctx, params, baselineATE)
	if err != nil {
		d.slog.Warn("registry write failed", "error", err)
		return 0
	}
	return id
}

func (d *runDeps) completeCombination(ctx context.Context, runID int64, ordinal int, configID, status string, failed int, elapsedSeconds float64) {
	if d.reg == nil {
		return
	}
	regStatus := registry.StatusDone
	if status == "skipped" {
		regStatus = registry.StatusSkipped
	}
	if err := d.reg.CompleteCombination(ctx, runID, ordinal, configID, regStatus, failed, elapsedSeconds); err != nil {
		d.slog.Warn("registry write failed", "ordinal", ordinal, "error", err)
	}
}

func (d *runDeps) finishRun(ctx context.Context, runID int64) {
	if d.reg == nil {
		return
	}
	if err := d.reg.FinishRun(ctx, runID); err != nil {
		d.slog.Warn("registry write failed", "error", err)
	}
}
