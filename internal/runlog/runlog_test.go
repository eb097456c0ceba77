package runlog

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

// The external telemetry extractor matches these patterns per block.
var (
	combPattern  = regexp.MustCompile(`comb=(\d+)`)
	timePattern  = regexp.MustCompile(`time:([0-9.]+)`)
	usagePattern = regexp.MustCompile(`usage: (.+)`)
)

func testParams() Params {
	return Params{MasterSeed: 42, SampleSize: 50, SeedCount: 5, Workers: 2, Components: []string{"a", "b", "c"}}
}

func readLog(t *testing.T, dir string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	return string(data)
}

func TestLogger_BlockFormat(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer l.Close()

	if err := l.Start(testParams(), 2.0, 7); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	for ord := 1; ord <= 7; ord++ {
		if err := l.Combination(ord, "a_b", 0); err != nil {
			t.Fatalf("Combination(%d) error = %v", ord, err)
		}
	}
	if err := l.Finish(); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	content := readLog(t, dir)

	combs := combPattern.FindAllStringSubmatch(content, -1)
	if len(combs) != 7 {
		t.Errorf("found %d comb= lines, want 7", len(combs))
	}
	for i, m := range combs {
		want := string(rune('1' + i))
		if m[1] != want {
			t.Errorf("comb line %d has ordinal %s, want %s", i, m[1], want)
		}
	}

	// One time: match per block plus the total in the footer.
	if got := len(timePattern.FindAllString(content, -1)); got != 8 {
		t.Errorf("found %d time: lines, want 8", got)
	}
	if got := len(usagePattern.FindAllString(content, -1)); got != 7 {
		t.Errorf("found %d usage: lines, want 7", got)
	}
}

func TestLogger_BlocksSeparatedByBlankLines(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer l.Close()

	l.Start(testParams(), 1.5, 3)
	l.Combination(1, "a", 0)
	l.Combination(2, "b", 1)

	content := readLog(t, dir)
	blocks := strings.Split(content, "\n\n")
	// Header, two combination blocks, trailing remainder.
	if len(blocks) < 3 {
		t.Errorf("expected blank-line separated blocks, got %d segments", len(blocks))
	}

	// Each combination block carries all three extractor lines.
	for _, b := range blocks[1:3] {
		if !combPattern.MatchString(b) || !timePattern.MatchString(b) || !usagePattern.MatchString(b) {
			t.Errorf("block missing extractor lines:\n%s", b)
		}
	}
}

func TestLogger_HeaderRecordsParameters(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer l.Close()
	l.Start(testParams(), 2.0, 7)

	content := readLog(t, dir)
	for _, want := range []string{"master seed=42", "sample size=50", "seeds per config=5", "workers=2", "M=3", "total combinations=7", "ground truth ATE=2.000000"} {
		if !strings.Contains(content, want) {
			t.Errorf("header missing %q:\n%s", want, content)
		}
	}
}

func TestLogger_PartialLogIsValid(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer l.Close()

	l.Start(testParams(), 2.0, 7)
	l.Combination(1, "a", 0)

	// Without Finish or Close, the flushed log must already parse.
	content := readLog(t, dir)
	if !combPattern.MatchString(content) {
		t.Errorf("mid-run log missing comb line")
	}
	if !strings.HasSuffix(content, "\n") {
		t.Errorf("mid-run log ends in a torn line")
	}
}

func TestLogger_NilSafe(t *testing.T) {
	var l *Logger
	if err := l.Start(testParams(), 0, 0); err != nil {
		t.Errorf("nil Start() error = %v", err)
	}
	if err := l.Combination(1, "a", 0); err != nil {
		t.Errorf("nil Combination() error = %v", err)
	}
	if err := l.Error("ctx", os.ErrClosed); err != nil {
		t.Errorf("nil Error() error = %v", err)
	}
	if err := l.Finish(); err != nil {
		t.Errorf("nil Finish() error = %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("nil Close() error = %v", err)
	}
}
