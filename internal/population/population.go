// Package population builds the synthetic reference population for a run
// and draws the working sample every configuration is evaluated on.
//
// The population is generated once from the master seed and is immutable
// afterwards: covariates, a binary treatment, the observed outcome, and
// both latent counterfactual outcomes per record. Keeping the
// counterfactuals gives the run its ground truth.
package population

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat"
)

// DefaultSize is the number of records in the reference population.
const DefaultSize = 100_000

// DefaultCovariates is the default covariate set; it doubles as the base
// component set of the sweep, since a configuration selects the covariates
// the estimator adjusts for.
var DefaultCovariates = []string{"age", "sex", "bmi", "smoker", "exercise"}

// trueEffect is the constant treatment effect baked into the generator.
const trueEffect = 2.0

// Record is one synthetic individual.
type Record struct {
	// Covariates is indexed parallel to the population's covariate names.
	Covariates []float64
	// Treatment is the binary treatment indicator.
	Treatment float64
	// Outcome is the observed outcome, Y1 if treated else Y0.
	Outcome float64
	// Y0 and Y1 are the latent counterfactual outcomes.
	Y0, Y1 float64
}

// Truth holds the ground-truth effect values of a population or sample.
type Truth struct {
	// ATE is the sample average treatment effect, mean(Y1 - Y0).
	ATE float64
	// MeanY1 and MeanY0 are the counterfactual outcome means.
	MeanY1 float64
	MeanY0 float64
}

// Population is the immutable synthetic reference population.
type Population struct {
	CovariateNames []string
	Records        []Record
	Truth          Truth
}

// Sample is a working subsample of the population, shared read-only by
// every configuration and seed in a run.
type Sample struct {
	CovariateNames []string
	Records        []Record
	Truth          Truth
}

// New generates a population of n0 records with the given covariates,
// deterministically from masterSeed.
func New(masterSeed int64, n0 int, covariates []string) (*Population, error) {
	if n0 < 1 {
		return nil, fmt.Errorf("population size must be at least 1, got %d", n0)
	}
	if len(covariates) < 1 {
		return nil, fmt.Errorf("population needs at least one covariate")
	}

	rng := rand.New(rand.NewSource(masterSeed))
	p := len(covariates)

	// Fixed per-covariate coefficients for the outcome and propensity
	// models, derived from the covariate index so the data-generating
	// process is stable for a given covariate set.
	outcomeCoef := make([]float64, p)
	propensityCoef := make([]float64, p)
	for j := 0; j < p; j++ {
		outcomeCoef[j] = 1.0 / float64(j+1)
		propensityCoef[j] = 0.5 / float64(j+1)
	}

	records := make([]Record, n0)
	for i := range records {
		x := make([]float64, p)
		var xbOutcome, xbPropensity float64
		for j := 0; j < p; j++ {
			x[j] = rng.NormFloat64()
			xbOutcome += outcomeCoef[j] * x[j]
			xbPropensity += propensityCoef[j] * x[j]
		}

		pTreat := 1.0 / (1.0 + math.Exp(-xbPropensity))
		treatment := 0.0
		if rng.Float64() < pTreat {
			treatment = 1.0
		}

		y0 := xbOutcome + rng.NormFloat64()
		y1 := y0 + trueEffect
		outcome := y0
		if treatment == 1.0 {
			outcome = y1
		}

		records[i] = Record{
			Covariates: x,
			Treatment:  treatment,
			Outcome:    outcome,
			Y0:         y0,
			Y1:         y1,
		}
	}

	names := make([]string, p)
	copy(names, covariates)

	return &Population{
		CovariateNames: names,
		Records:        records,
		Truth:          truthOf(records),
	}, nil
}

// truthOf computes the counterfactual means and sample ATE over records.
func truthOf(records []Record) Truth {
	y0s := make([]float64, len(records))
	y1s := make([]float64, len(records))
	for i, r := range records {
		y0s[i] = r.Y0
		y1s[i] = r.Y1
	}
	m0 := stat.Mean(y0s, nil)
	m1 := stat.Mean(y1s, nil)
	return Truth{ATE: m1 - m0, MeanY1: m1, MeanY0: m0}
}

// Draw returns the working sample of size n, drawn without replacement
// with a seed derived from the master seed and n. The sample is
// independent of configuration and seed plan and must not be mutated.
func (p *Population) Draw(masterSeed int64, n int) (*Sample, error) {
	if n < 1 || n > len(p.Records) {
		return nil, fmt.Errorf("sample size %d outside [1, %d]", n, len(p.Records))
	}

	rng := rand.New(rand.NewSource(masterSeed + int64(n)))
	perm := rng.Perm(len(p.Records))

	records := make([]Record, n)
	for i := 0; i < n; i++ {
		records[i] = p.Records[perm[i]]
	}

	return &Sample{
		CovariateNames: p.CovariateNames,
		Records:        records,
		Truth:          truthOf(records),
	}, nil
}

// CovariateIndex returns the column index of the named covariate in s,
// or an error if the sample has no such covariate.
func (s *Sample) CovariateIndex(name string) (int, error) {
	for j, n := range s.CovariateNames {
		if n == name {
			return j, nil
		}
	}
	return 0, fmt.Errorf("unknown covariate %q", name)
}
