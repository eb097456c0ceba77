package estimator

import (
	"math"
	"testing"

	"github.com/dkoster/causalsweep/internal/combinator"
	"github.com/dkoster/causalsweep/internal/population"
)

func sampleForTest(t *testing.T, n int) *population.Sample {
	t.Helper()
	p, err := population.New(42, 10_000, population.DefaultCovariates)
	if err != nil {
		t.Fatalf("population.New() error = %v", err)
	}
	s, err := p.Draw(42, n)
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	return s
}

func TestOLS_Deterministic(t *testing.T) {
	s := sampleForTest(t, 200)
	cfg := combinator.Config{Components: []string{"age", "bmi"}}
	ols := NewOLS()

	a, err := ols.Estimate(s, cfg, 123)
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	b, err := ols.Estimate(s, cfg, 123)
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if a != b {
		t.Errorf("same inputs produced different results: %+v vs %+v", a, b)
	}
}

func TestOLS_SeedChangesResample(t *testing.T) {
	s := sampleForTest(t, 200)
	cfg := combinator.Config{Components: []string{"age"}}
	ols := NewOLS()

	a, err := ols.Estimate(s, cfg, 1)
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	b, err := ols.Estimate(s, cfg, 2)
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if a.Estimate == b.Estimate {
		t.Errorf("different seeds produced identical estimates %v", a.Estimate)
	}
}

func TestOLS_RecoversEffect(t *testing.T) {
	s := sampleForTest(t, 2000)
	cfg := combinator.Config{Components: population.DefaultCovariates}
	ols := NewOLS()

	res, err := ols.Estimate(s, cfg, 99)
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}

	// Full adjustment on a large sample should land near the truth.
	if math.Abs(res.Estimate-s.Truth.ATE) > 0.5 {
		t.Errorf("Estimate = %v, want within 0.5 of %v", res.Estimate, s.Truth.ATE)
	}
	if res.Lower >= res.Upper {
		t.Errorf("confidence interval inverted: [%v, %v]", res.Lower, res.Upper)
	}
	if res.Lower > res.Estimate || res.Upper < res.Estimate {
		t.Errorf("estimate %v outside its own interval [%v, %v]", res.Estimate, res.Lower, res.Upper)
	}
	if res.Variance <= 0 {
		t.Errorf("Variance = %v, want > 0", res.Variance)
	}
	if res.PValue < 0 || res.PValue > 1 {
		t.Errorf("PValue = %v, want in [0, 1]", res.PValue)
	}
}

func TestOLS_UnknownCovariate(t *testing.T) {
	s := sampleForTest(t, 100)
	cfg := combinator.Config{Components: []string{"no_such_covariate"}}

	if _, err := NewOLS().Estimate(s, cfg, 1); err == nil {
		t.Errorf("Estimate with unknown covariate expected error")
	}
}

func TestOLS_TooFewRecords(t *testing.T) {
	s := sampleForTest(t, 5)
	cfg := combinator.Config{Components: population.DefaultCovariates}

	if _, err := NewOLS().Estimate(s, cfg, 1); err == nil {
		t.Errorf("Estimate with n <= p expected error")
	}
}
