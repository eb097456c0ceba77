package estimator

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/dkoster/causalsweep/internal/combinator"
	"github.com/dkoster/causalsweep/internal/population"
)

// OLS is the reference estimator: it bootstrap-resamples the working
// sample with the trial seed, then regresses the outcome on treatment
// plus the covariates named by the configuration. The treatment
// coefficient is the effect estimate; its variance comes from the
// classical covariance estimate.
//
// A degenerate resample (one treatment arm empty, collinear design)
// makes the normal equations singular and Estimate returns an error.
// That is the expected failure mode the driver isolates per seed.
type OLS struct{}

// NewOLS returns the reference OLS estimator.
func NewOLS() *OLS {
	return &OLS{}
}

// Estimate implements Estimator.
func (o *OLS) Estimate(sample *population.Sample, cfg combinator.Config, seed int64) (Result, error) {
	cols, err := covariateColumns(sample, cfg)
	if err != nil {
		return Result{}, err
	}

	n := len(sample.Records)
	p := 2 + len(cols) // intercept, treatment, selected covariates
	if n <= p {
		return Result{}, fmt.Errorf("config %s: %d records cannot support %d coefficients", cfg.ID(), n, p)
	}

	// Bootstrap resample, with replacement, driven only by the trial seed.
	rng := rand.New(rand.NewSource(seed))
	x := mat.NewDense(n, p, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		r := sample.Records[rng.Intn(n)]
		x.Set(i, 0, 1.0)
		x.Set(i, 1, r.Treatment)
		for j, c := range cols {
			x.Set(i, 2+j, r.Covariates[c])
		}
		y.SetVec(i, r.Outcome)
	}

	var qr mat.QR
	qr.Factorize(x)
	beta := mat.NewVecDense(p, nil)
	if err := qr.SolveVecTo(beta, false, y); err != nil {
		return Result{}, fmt.Errorf("config %s seed %d: singular design: %w", cfg.ID(), seed, err)
	}

	// Residual variance.
	fitted := mat.NewVecDense(n, nil)
	fitted.MulVec(x, beta)
	var rss float64
	for i := 0; i < n; i++ {
		d := y.AtVec(i) - fitted.AtVec(i)
		rss += d * d
	}
	sigma2 := rss / float64(n-p)

	// Var(beta) = sigma2 * (X'X)^-1.
	var xtx mat.Dense
	xtx.Mul(x.T(), x)

	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return Result{}, fmt.Errorf("config %s seed %d: singular design: %w", cfg.ID(), seed, err)
	}

	est := beta.AtVec(1)
	variance := sigma2 * xtxInv.At(1, 1)
	if variance <= 0 || math.IsNaN(variance) || math.IsInf(variance, 0) {
		return Result{}, fmt.Errorf("config %s seed %d: degenerate variance %v", cfg.ID(), seed, variance)
	}
	se := math.Sqrt(variance)

	norm := distuv.Normal{Mu: 0, Sigma: 1}
	z := norm.Quantile(0.975)
	pval := 2 * norm.Survival(math.Abs(est/se))

	return Result{
		Estimate: est,
		Variance: variance,
		Lower:    est - z*se,
		Upper:    est + z*se,
		PValue:   pval,
	}, nil
}

// covariateColumns maps the configuration's components onto sample
// covariate columns.
func covariateColumns(sample *population.Sample, cfg combinator.Config) ([]int, error) {
	cols := make([]int, 0, len(cfg.Components))
	for _, name := range cfg.Components {
		idx, err := sample.CovariateIndex(name)
		if err != nil {
			return nil, fmt.Errorf("config %s: %w", cfg.ID(), err)
		}
		cols = append(cols, idx)
	}
	return cols, nil
}
