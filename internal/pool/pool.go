// Package pool fans one configuration's seed sweep out over a bounded
// set of workers.
//
// The pool's contract is strict: exactly one TrialResult per planned
// seed, in seed-plan order, returned only after every evaluation has
// finished. A failing or panicking estimator never takes down its
// siblings; the failure is captured in the result for that seed. There
// is deliberately no cancellation or timeout: a hung estimator occupies
// its worker slot until it returns.
package pool

import (
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/dkoster/causalsweep/internal/combinator"
	"github.com/dkoster/causalsweep/internal/estimator"
	"github.com/dkoster/causalsweep/internal/population"
	"github.com/dkoster/causalsweep/internal/seedplan"
)

// TrialResult is the outcome of evaluating one (configuration, seed)
// pair. It is a tagged variant: either Estimate is set and Error is
// empty, or Error carries the failure and Estimate is nil.
type TrialResult struct {
	Seed           int64   `json:"seed"`
	ConfigID       string  `json:"config_id"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`

	Estimate *estimator.Result `json:"estimate,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// Failed reports whether the trial carries an error marker.
func (r TrialResult) Failed() bool {
	return r.Error != ""
}

// TraceFunc observes trial results in completion order. It runs
// serialized by the pool, so it may write to shared sinks. Completion
// order is independent of the plan order of the returned slice.
type TraceFunc func(planIndex int, result TrialResult)

// DefaultWorkers is the default pool size: available cores minus one,
// floored at one.
func DefaultWorkers() int {
	if n := runtime.NumCPU() - 1; n > 1 {
		return n
	}
	return 1
}

// Sweep evaluates cfg once per seed in plan using at most workers
// parallel evaluations and returns exactly len(plan) results in plan
// order. trace may be nil.
func Sweep(est estimator.Estimator, sample *population.Sample, cfg combinator.Config, plan seedplan.Plan, workers int, trace TraceFunc) []TrialResult {
	if workers < 1 {
		workers = 1
	}

	results := make([]TrialResult, len(plan))
	sem := make(chan struct{}, workers)

	var traceMu sync.Mutex
	var wg sync.WaitGroup
	for i, seed := range plan {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, seed int64) {
			defer wg.Done()
			defer func() { <-sem }()

			results[i] = runTrial(est, sample, cfg, seed)
			if trace != nil {
				traceMu.Lock()
				trace(i, results[i])
				traceMu.Unlock()
			}
		}(i, seed)
	}
	wg.Wait()

	return results
}

// runTrial executes one estimation, converting errors and panics into
// an error-marked result carrying the seed and configuration identity.
func runTrial(est estimator.Estimator, sample *population.Sample, cfg combinator.Config, seed int64) (tr TrialResult) {
	start := time.Now()
	tr = TrialResult{Seed: seed, ConfigID: cfg.ID()}

	defer func() {
		tr.ElapsedSeconds = time.Since(start).Seconds()
		if p := recover(); p != nil {
			tr.Estimate = nil
			tr.Error = fmt.Sprintf("estimator panic: %v", p)
		}
	}()

	res, err := est.Estimate(sample, cfg, seed)
	if err != nil {
		tr.Error = err.Error()
		return tr
	}
	// Non-finite payloads cannot be persisted; treat them as failures.
	if !finite(res) {
		tr.Error = fmt.Sprintf("estimator returned non-finite result %+v", res)
		return tr
	}
	tr.Estimate = &res
	return tr
}

func finite(res estimator.Result) bool {
	for _, v := range [...]float64{res.Estimate, res.Variance, res.Lower, res.Upper, res.PValue} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
