// Package seedplan derives the fixed sequence of trial seeds for a run.
//
// Every configuration in a run is evaluated against the exact same seed
// sequence, so estimates are paired across configurations. The plan is a
// pure function of (master seed, length): two runs with identical inputs
// produce bit-identical plans.
package seedplan

import (
	"fmt"
	"math/rand"
)

// UpperBound is the inclusive upper limit for generated seeds.
const UpperBound = 1_000_000

// Plan is an ordered sequence of distinct trial seeds.
type Plan []int64

// New derives a plan of k distinct seeds in [1, UpperBound] from masterSeed.
// The draw is without replacement, so k must not exceed UpperBound.
func New(masterSeed int64, k int) (Plan, error) {
	if k < 1 {
		return nil, fmt.Errorf("seed plan length must be at least 1, got %d", k)
	}
	if k > UpperBound {
		return nil, fmt.Errorf("seed plan length %d exceeds the seed range [1, %d]", k, UpperBound)
	}

	// math/rand's generator for a fixed seed is stable across releases,
	// which is what makes the plan reproducible.
	rng := rand.New(rand.NewSource(masterSeed))

	plan := make(Plan, 0, k)
	taken := make(map[int64]struct{}, k)
	for len(plan) < k {
		s := rng.Int63n(UpperBound) + 1
		if _, dup := taken[s]; dup {
			continue
		}
		taken[s] = struct{}{}
		plan = append(plan, s)
	}
	return plan, nil
}
