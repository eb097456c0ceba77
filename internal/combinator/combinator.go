// Package combinator enumerates the configuration space of a sweep:
// every non-empty subset of a base component set, in a stable order.
//
// Ordering is increasing subset size, and within a size the standard
// combinatorial (lexicographic-by-index) order over the base set. The
// ordinal of a configuration is its 1-based position in this order and
// is stable across runs for a given base set.
package combinator

import (
	"fmt"
	"iter"
	"strings"
)

// Separator joins component names into a configuration identity.
const Separator = "_"

// Config is an ordered, non-empty subset of the base component set.
// It is immutable after generation.
type Config struct {
	// Components holds the selected component names, in base-set order.
	Components []string
}

// ID returns the canonical identity of the configuration: its components
// joined by Separator, preserving base-set order.
func (c Config) ID() string {
	return strings.Join(c.Components, Separator)
}

// Size returns the number of components in the configuration.
func (c Config) Size() int {
	return len(c.Components)
}

// Count returns the number of configurations generated for a base set of
// size m, i.e. 2^m - 1. It returns 0 for m < 1.
func Count(m int) int {
	if m < 1 {
		return 0
	}
	return (1 << uint(m)) - 1
}

// Validate checks that the base component set is usable: non-empty, no
// blank names, no duplicates. Duplicate names would collapse distinct
// configurations onto the same identity.
func Validate(components []string) error {
	if len(components) < 1 {
		return fmt.Errorf("base component set must have at least one component")
	}
	seen := make(map[string]struct{}, len(components))
	for i, name := range components {
		if name == "" {
			return fmt.Errorf("component %d has an empty name", i)
		}
		if strings.Contains(name, Separator) {
			return fmt.Errorf("component %q contains the separator %q", name, Separator)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate component %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// All returns a lazy sequence over every non-empty subset of components,
// yielding (ordinal, config) pairs. Ordinals are 1-based. The caller must
// Validate the base set first; All yields nothing for an empty base set.
func All(components []string) iter.Seq2[int, Config] {
	return func(yield func(int, Config) bool) {
		ordinal := 0
		for size := 1; size <= len(components); size++ {
			for indices := range combinations(len(components), size) {
				ordinal++
				picked := make([]string, size)
				for i, idx := range indices {
					picked[i] = components[idx]
				}
				if !yield(ordinal, Config{Components: picked}) {
					return
				}
			}
		}
	}
}

// combinations yields every size-k index subset of 0..n-1 in lexicographic
// order. The yielded slice is reused between iterations.
func combinations(n, k int) iter.Seq[[]int] {
	return func(yield func([]int) bool) {
		if k < 1 || k > n {
			return
		}
		indices := make([]int, k)
		for i := range indices {
			indices[i] = i
		}
		for {
			if !yield(indices) {
				return
			}
			// Advance to the next combination: find the rightmost index
			// that can move, bump it, and reset everything after it.
			i := k - 1
			for i >= 0 && indices[i] == n-k+i {
				i--
			}
			if i < 0 {
				return
			}
			indices[i]++
			for j := i + 1; j < k; j++ {
				indices[j] = indices[j-1] + 1
			}
		}
	}
}
