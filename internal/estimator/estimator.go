// Package estimator defines the estimation boundary of a sweep.
//
// The driver treats the estimator as an opaque, possibly slow, possibly
// failing black box: anything that maps (working sample, configuration,
// seed) to a point estimate with uncertainty. The reference
// implementation is the bootstrap OLS adjuster in ols.go; tests swap in
// stubs.
package estimator

import (
	"github.com/dkoster/causalsweep/internal/combinator"
	"github.com/dkoster/causalsweep/internal/population"
)

// Result is the numeric payload of one successful estimation.
type Result struct {
	// Estimate is the point estimate of the treatment effect.
	Estimate float64 `json:"estimate"`
	// Variance is the estimated variance of the point estimate.
	Variance float64 `json:"variance"`
	// Lower and Upper bound the 95% confidence interval.
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	// PValue is the two-sided p-value against a zero effect.
	PValue float64 `json:"p_value"`
}

// Estimator estimates a treatment effect on a resample of the working
// sample. Implementations must be deterministic in (sample, cfg, seed)
// and safe for concurrent use: the pool calls Estimate from many
// goroutines against the same shared read-only sample.
type Estimator interface {
	Estimate(sample *population.Sample, cfg combinator.Config, seed int64) (Result, error)
}
