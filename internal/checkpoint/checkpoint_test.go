package checkpoint

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/dkoster/causalsweep/internal/combinator"
	"github.com/dkoster/causalsweep/internal/estimator"
	"github.com/dkoster/causalsweep/internal/pool"
)

func f64(v float64) *float64 { return &v }

func testCheckpoint(ordinal int, cfg combinator.Config) Checkpoint {
	results := []pool.TrialResult{
		{Seed: 11, ConfigID: cfg.ID(), ElapsedSeconds: 0.01,
			Estimate: &estimator.Result{Estimate: 1.9, Variance: 0.04, Lower: 1.5, Upper: 2.3, PValue: 0.001}},
		{Seed: 22, ConfigID: cfg.ID(), ElapsedSeconds: 0.02, Error: "estimator failed for seed 22"},
	}
	return Checkpoint{
		Ordinal:         ordinal,
		ConfigID:        cfg.ID(),
		SummaryEstimate: f64(2.01),
		BaselineATE:     f64(1.98),
		Params:          RunParams{MasterSeed: 42, SampleSize: 50, SeedCount: 2, Workers: 2, Components: []string{"a", "b"}},
		Results:         results,
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		ordinal int
		cfg     combinator.Config
		want    string
	}{
		{1, combinator.Config{Components: []string{"a"}}, "0001_a.json"},
		{7, combinator.Config{Components: []string{"a", "b", "c"}}, "0007_a_b_c.json"},
		{123, combinator.Config{Components: []string{"x"}}, "0123_x.json"},
	}
	for _, tt := range tests {
		if got := FileName(tt.ordinal, tt.cfg); got != tt.want {
			t.Errorf("FileName(%d, %v) = %q, want %q", tt.ordinal, tt.cfg.Components, got, tt.want)
		}
	}
}

func TestFileName_LexicographicOrderMatchesOrdinal(t *testing.T) {
	cfg := combinator.Config{Components: []string{"a"}}
	names := []string{}
	for _, ord := range []int{1, 2, 9, 10, 99, 100, 1000} {
		names = append(names, FileName(ord, cfg))
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("file names not lexicographically ordered by ordinal: %v", names)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	cfg := combinator.Config{Components: []string{"a", "b"}}
	cp := testCheckpoint(4, cfg)
	if err := store.Write(cp); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := ReadAll(dir)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ReadAll() returned %d checkpoints, want 1", len(got))
	}

	rt := got[0]
	if rt.Ordinal != cp.Ordinal || rt.ConfigID != cp.ConfigID {
		t.Errorf("identity mismatch: got (%d, %q), want (%d, %q)", rt.Ordinal, rt.ConfigID, cp.Ordinal, cp.ConfigID)
	}
	if rt.BaselineATE == nil || *rt.BaselineATE != 1.98 || rt.SummaryEstimate == nil || *rt.SummaryEstimate != 2.01 {
		t.Errorf("summary mismatch: got (%v, %v)", rt.SummaryEstimate, rt.BaselineATE)
	}
	if len(rt.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(rt.Results))
	}
	if rt.Results[0].Estimate == nil || rt.Results[0].Estimate.Estimate != 1.9 {
		t.Errorf("success result lost payload: %+v", rt.Results[0])
	}
	if !rt.Results[1].Failed() || rt.Results[1].Estimate != nil {
		t.Errorf("failed result not preserved as tagged failure: %+v", rt.Results[1])
	}
}

func TestExists(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	cfg := combinator.Config{Components: []string{"a"}}
	if store.Exists(1, cfg) {
		t.Errorf("Exists() = true before write")
	}
	if err := store.Write(testCheckpoint(1, cfg)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !store.Exists(1, cfg) {
		t.Errorf("Exists() = false after write")
	}
}

func TestWrite_LeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if err := store.Write(testCheckpoint(2, combinator.Config{Components: []string{"b"}})); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

func TestWrite_Validation(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	if err := store.Write(Checkpoint{Ordinal: 0, ConfigID: "a"}); err == nil {
		t.Errorf("Write with ordinal 0 expected error")
	}
	if err := store.Write(Checkpoint{Ordinal: 1}); err == nil {
		t.Errorf("Write with empty config ID expected error")
	}
}

func TestReadAll_CorruptCheckpointIsError(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if err := store.Write(testCheckpoint(1, combinator.Config{Components: []string{"a"}})); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "0002_b.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("writing corrupt file: %v", err)
	}

	if _, err := ReadAll(dir); err == nil {
		t.Errorf("ReadAll with corrupt checkpoint expected error")
	}
}

func TestReadAll_IgnoresNonCheckpointFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if err := store.Write(testCheckpoint(1, combinator.Config{Components: []string{"a"}})); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	os.WriteFile(filepath.Join(dir, "run_log.txt"), []byte("log"), 0644)
	os.WriteFile(filepath.Join(dir, "trials.jsonl"), []byte("{}\n"), 0644)

	got, err := ReadAll(dir)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("ReadAll() returned %d checkpoints, want 1", len(got))
	}
}
