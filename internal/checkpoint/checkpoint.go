// Package checkpoint persists one configuration's sweep results as a
// durable, atomic unit.
//
// Each configuration gets its own JSON file in the run directory, named
// <ordinal>_<component>_<component>....json with the ordinal zero-padded
// so lexicographic file order matches combinator order. Files are
// written via temp file + rename, so a checkpoint either exists
// completely or not at all. Existence of a checkpoint is what lets an
// interrupted run resume without recomputing finished configurations.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dkoster/causalsweep/internal/combinator"
	"github.com/dkoster/causalsweep/internal/pool"
)

// ext is the checkpoint file extension.
const ext = ".json"

// ordinalWidth pads ordinals in file names so that lexicographic order
// equals numeric order for any practical base-set size.
const ordinalWidth = 4

// RunParams records the parameters a checkpoint was produced under, for
// reproducibility and for integrity checks at stitch time.
type RunParams struct {
	MasterSeed int64    `json:"master_seed"`
	SampleSize int      `json:"sample_size"`
	SeedCount  int      `json:"seed_count"`
	Workers    int      `json:"workers"`
	Components []string `json:"components"`
}

// Checkpoint is the durable result set for one configuration.
type Checkpoint struct {
	Ordinal  int    `json:"ordinal"`
	ConfigID string `json:"config_id"`

	// SummaryEstimate is the configuration's estimate on the unresampled
	// working sample; nil when the estimator failed on it.
	SummaryEstimate *float64 `json:"summary_estimate,omitempty"`
	// BaselineATE is the run-level baseline estimate, identical across
	// every checkpoint of a run; nil when the working sample has an
	// empty treatment arm.
	BaselineATE *float64 `json:"baseline_ate,omitempty"`

	Params  RunParams          `json:"params"`
	Results []pool.TrialResult `json:"results"`
}

// Store reads and writes checkpoints under a single run directory.
type Store struct {
	dir string
}

// NewStore opens (creating if needed) the run directory.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the run directory the store operates on.
func (s *Store) Dir() string {
	return s.dir
}

// FileName returns the checkpoint file name for a configuration at the
// given ordinal. The name is both the durable key and a human-auditable
// label.
func FileName(ordinal int, cfg combinator.Config) string {
	return fmt.Sprintf("%0*d%s%s%s", ordinalWidth, ordinal, combinator.Separator, cfg.ID(), ext)
}

// Path returns the absolute path of a configuration's checkpoint file.
func (s *Store) Path(ordinal int, cfg combinator.Config) string {
	return filepath.Join(s.dir, FileName(ordinal, cfg))
}

// Exists reports whether a checkpoint for the configuration is already
// present, which is the resume signal: the driver skips the sweep
// entirely when it holds.
func (s *Store) Exists(ordinal int, cfg combinator.Config) bool {
	_, err := os.Stat(s.Path(ordinal, cfg))
	return err == nil
}

// Write durably persists cp. The write is atomic: a temp file is
// written and renamed into place, so readers never observe a partial
// checkpoint. Write failures are fatal to the run and must be surfaced
// by the caller, not retried.
func (s *Store) Write(cp Checkpoint) error {
	if cp.Ordinal < 1 {
		return fmt.Errorf("checkpoint ordinal must be >= 1, got %d", cp.Ordinal)
	}
	if cp.ConfigID == "" {
		return fmt.Errorf("checkpoint has no config identity")
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling checkpoint %s: %w", cp.ConfigID, err)
	}

	cfg := combinator.Config{Components: strings.Split(cp.ConfigID, combinator.Separator)}
	path := s.Path(cp.Ordinal, cfg)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing checkpoint temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		// Clean up temp file on rename failure.
		os.Remove(tmp)
		return fmt.Errorf("renaming checkpoint file: %w", err)
	}
	return nil
}

// ReadAll loads every checkpoint in the run directory, in no particular
// order. A checkpoint that cannot be parsed is an error, not a skip:
// silently dropping a configuration would corrupt the consolidated
// table.
func ReadAll(dir string) ([]Checkpoint, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading run directory: %w", err)
	}

	var cps []Checkpoint
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading checkpoint %s: %w", e.Name(), err)
		}
		var cp Checkpoint
		if err := json.Unmarshal(data, &cp); err != nil {
			return nil, fmt.Errorf("parsing checkpoint %s: %w", e.Name(), err)
		}
		cps = append(cps, cp)
	}
	return cps, nil
}
