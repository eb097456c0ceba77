// Package runner orchestrates one sweep run end to end: validate
// parameters, build the population and working sample, enumerate
// configurations, sweep each one over the seed plan, checkpoint, log,
// and optionally stitch.
//
// Configurations are processed strictly sequentially; the only parallel
// region is the seed sweep inside one configuration. A run killed
// mid-sweep can be restarted with the same parameters and will skip
// every configuration that already has a checkpoint.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/dkoster/causalsweep/internal/checkpoint"
	"github.com/dkoster/causalsweep/internal/combinator"
	"github.com/dkoster/causalsweep/internal/config"
	"github.com/dkoster/causalsweep/internal/estimator"
	"github.com/dkoster/causalsweep/internal/pool"
	"github.com/dkoster/causalsweep/internal/population"
	"github.com/dkoster/causalsweep/internal/runlog"
	"github.com/dkoster/causalsweep/internal/seedplan"
	"github.com/dkoster/causalsweep/internal/stitch"
)

// ConsolidatedFileName is the stitched CSV written when stitching is
// requested.
const ConsolidatedFileName = "consolidated.csv"

// Options configures a run.
type Options struct {
	Config *config.Config

	// Estimator is the opaque estimation black box. Nil selects the
	// reference OLS estimator.
	Estimator estimator.Estimator

	// Log receives operational output. Nil discards it.
	Log *slog.Logger
}

// Report summarizes a finished run.
type Report struct {
	Combinations int      `json:"combinations"`
	Completed    int      `json:"completed"`
	Skipped      int      `json:"skipped"`
	FailedTrials int      `json:"failed_trials"`
	TruthATE     float64  `json:"truth_ate"`
	BaselineATE  *float64 `json:"baseline_ate,omitempty"`

	ElapsedSeconds   float64 `json:"elapsed_seconds"`
	OutputDir        string  `json:"output_dir"`
	ConsolidatedPath string  `json:"consolidated_path,omitempty"`
}

// Run executes one sweep. Checkpoint write failures abort the run;
// logging and registry failures are reported and computation continues.
func Run(ctx context.Context, opts Options) (*Report, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("runner: nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run parameters: %w", err)
	}

	log := opts.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	est := opts.Estimator
	if est == nil {
		est = estimator.NewOLS()
	}
	workers := cfg.Workers
	if workers == 0 {
		workers = pool.DefaultWorkers()
	}

	start := time.Now()

	pop, err := population.New(cfg.MasterSeed, cfg.PopulationSize, cfg.Components)
	if err != nil {
		return nil, fmt.Errorf("building population: %w", err)
	}
	sample, err := pop.Draw(cfg.MasterSeed, cfg.SampleSize)
	if err != nil {
		return nil, fmt.Errorf("drawing working sample: %w", err)
	}
	plan, err := seedplan.New(cfg.MasterSeed, cfg.SeedCount)
	if err != nil {
		return nil, fmt.Errorf("deriving seed plan: %w", err)
	}

	store, err := checkpoint.NewStore(cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	deps, err := openRunDeps(cfg, log)
	if err != nil {
		return nil, err
	}
	defer deps.close()

	params := checkpoint.RunParams{
		MasterSeed: cfg.MasterSeed,
		SampleSize: cfg.SampleSize,
		SeedCount:  cfg.SeedCount,
		Workers:    workers,
		Components: cfg.Components,
	}
	total := combinator.Count(len(cfg.Components))
	baseline := baselineATE(sample)

	log.Info("run starting",
		"master_seed", cfg.MasterSeed, "n", cfg.SampleSize, "k", cfg.SeedCount,
		"workers", workers, "combinations", total,
		"truth_ate", sample.Truth.ATE, "baseline_ate", derefOr(baseline, math.NaN()))

	if err := deps.log.Start(runlog.Params(params), sample.Truth.ATE, total); err != nil {
		log.Warn("run log write failed", "error", err)
	}
	runID := deps.startRun(ctx, params, baseline)

	report := &Report{
		Combinations: total,
		TruthATE:     sample.Truth.ATE,
		BaselineATE:  baseline,
		OutputDir:    cfg.OutputDir,
	}

	for ordinal, c := range combinator.All(cfg.Components) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run interrupted at combination %d: %w", ordinal, err)
		}

		if store.Exists(ordinal, c) {
			log.Info("checkpoint exists, skipping", "ordinal", ordinal, "config", c.ID())
			report.Skipped++
			deps.completeCombination(ctx, runID, ordinal, c.ID(), "skipped", 0, 0)
			continue
		}

		sweepStart := time.Now()
		trace := func(_ int, tr pool.TrialResult) {
			deps.trials.Trial(ordinal, tr.ConfigID, tr.Seed, tr.ElapsedSeconds, tr.Error)
			if tr.Failed() {
				log.Debug("trial failed", "ordinal", ordinal, "config", tr.ConfigID, "seed", tr.Seed, "error", tr.Error)
			}
		}
		results := pool.Sweep(est, sample, c, plan, workers, trace)

		failed := 0
		for _, tr := range results {
			if tr.Failed() {
				failed++
			}
		}
		report.FailedTrials += failed

		cp := checkpoint.Checkpoint{
			Ordinal:         ordinal,
			ConfigID:        c.ID(),
			SummaryEstimate: summaryEstimate(est, sample, c, cfg.MasterSeed),
			BaselineATE:     baseline,
			Params:          params,
			Results:         results,
		}
		if err := store.Write(cp); err != nil {
			// A lost checkpoint would corrupt the consolidated table, so
			// this is fatal.
			deps.log.Error("checkpoint write", err)
			return nil, fmt.Errorf("checkpoint for combination %d (%s): %w", ordinal, c.ID(), err)
		}

		if err := deps.log.Combination(ordinal, c.ID(), failed); err != nil {
			log.Warn("run log write failed", "ordinal", ordinal, "error", err)
		}
		deps.completeCombination(ctx, runID, ordinal, c.ID(), "done", failed, time.Since(sweepStart).Seconds())

		report.Completed++
		log.Info("combination finished", "ordinal", ordinal, "config", c.ID(),
			"failed_trials", failed, "elapsed", time.Since(sweepStart))
	}

	deps.finishRun(ctx, runID)
	if err := deps.log.Finish(); err != nil {
		log.Warn("run log write failed", "error", err)
	}

	if cfg.Stitch {
		table, err := stitch.Stitch(cfg.OutputDir)
		if err != nil {
			return nil, fmt.Errorf("stitching run directory: %w", err)
		}
		defer table.Release()

		path := filepath.Join(cfg.OutputDir, ConsolidatedFileName)
		if err := table.WriteCSVFile(path); err != nil {
			return nil, err
		}
		report.ConsolidatedPath = path
		log.Info("consolidated table written", "path", path, "rows", table.NumRows())
	}

	report.ElapsedSeconds = time.Since(start).Seconds()
	log.Info("run finished", "completed", report.Completed, "skipped", report.Skipped,
		"failed_trials", report.FailedTrials, "elapsed", time.Since(start))
	return report, nil
}

// derefOr returns *p, or fallback when p is nil.
func derefOr(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}

// baselineATE is the run-level unadjusted estimate: the difference in
// mean observed outcome between treated and control records of the
// working sample. It is computed once and attached to every checkpoint.
// Nil when one treatment arm is empty.
func baselineATE(s *population.Sample) *float64 {
	var treated, control []float64
	for _, r := range s.Records {
		if r.Treatment == 1.0 {
			treated = append(treated, r.Outcome)
		} else {
			control = append(control, r.Outcome)
		}
	}
	if len(treated) == 0 || len(control) == 0 {
		return nil
	}
	d := stat.Mean(treated, nil) - stat.Mean(control, nil)
	return &d
}

// summaryEstimate is the configuration's own estimate on the working
// sample, evaluated with the master seed so it is deterministic and
// independent of the trial plan. Nil when the estimator fails.
func summaryEstimate(est estimator.Estimator, s *population.Sample, c combinator.Config, masterSeed int64) *float64 {
	res, err := est.Estimate(s, c, masterSeed)
	if err != nil || math.IsNaN(res.Estimate) || math.IsInf(res.Estimate, 0) {
		return nil
	}
	return &res.Estimate
}
