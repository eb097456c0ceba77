// Package runlog writes the append-only run log scraped by the external
// telemetry extractor.
//
// The format is a compatibility contract: per finished configuration the
// log carries one line containing `comb=<digits>`, one containing
// `time:<number>` and one containing `usage: <free text>`, with blank
// lines between blocks. Every line is flushed to disk immediately so a
// log read mid-run is valid up to its last line.
//
// A nil *Logger is safe to use; all methods are no-ops. Logging errors
// are returned for reporting but must never abort computation.
package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// FileName is the log file name inside the run directory.
const FileName = "run_log.txt"

// Params is the set of run parameters recorded in the log header for
// reproducibility.
type Params struct {
	MasterSeed int64
	SampleSize int
	SeedCount  int
	Workers    int
	Components []string
}

// Logger appends flushed lines to the run log.
type Logger struct {
	f     *os.File
	start time.Time
}

// Open creates (or appends to) the run log in dir.
func Open(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, FileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening run log: %w", err)
	}
	return &Logger{f: f, start: time.Now()}, nil
}

// Start emits the run header: start timestamp, run parameters, ground
// truth, and the combination count.
func (l *Logger) Start(params Params, truthATE float64, combinations int) error {
	if l == nil {
		return nil
	}
	l.start = time.Now()
	lines := []string{
		fmt.Sprintf("run started at %s", l.start.Format(time.RFC3339)),
		fmt.Sprintf("master seed=%d sample size=%d seeds per config=%d workers=%d", params.MasterSeed, params.SampleSize, params.SeedCount, params.Workers),
		fmt.Sprintf("base components (M=%d): %v", len(params.Components), params.Components),
		fmt.Sprintf("ground truth ATE=%.6f", truthATE),
		fmt.Sprintf("total combinations=%d", combinations),
		"",
	}
	return l.writeLines(lines)
}

// Combination emits one finished-configuration block in the extractor
// format. elapsed is time since run start; failed counts error-marked
// trials.
func (l *Logger) Combination(ordinal int, configID string, failed int) error {
	if l == nil {
		return nil
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	lines := []string{
		fmt.Sprintf("finished comb=%d config=%s failed_trials=%d", ordinal, configID, failed),
		fmt.Sprintf("elapsed time:%.3f", time.Since(l.start).Seconds()),
		fmt.Sprintf("memory usage: alloc=%.1fMB sys=%.1fMB heap_objects=%d", mb(ms.Alloc), mb(ms.Sys), ms.HeapObjects),
		"",
	}
	return l.writeLines(lines)
}

// Error records a non-fatal failure observed during the run.
func (l *Logger) Error(context string, err error) error {
	if l == nil {
		return nil
	}
	return l.writeLines([]string{fmt.Sprintf("error: %s: %v", context, err)})
}

// Finish emits the end-of-run session summary and total elapsed time.
func (l *Logger) Finish() error {
	if l == nil {
		return nil
	}
	host, _ := os.Hostname()
	lines := []string{
		fmt.Sprintf("session: go=%s os=%s arch=%s cpus=%d host=%s", runtime.Version(), runtime.GOOS, runtime.GOARCH, runtime.NumCPU(), host),
		fmt.Sprintf("run finished at %s, total time:%.3f", time.Now().Format(time.RFC3339), time.Since(l.start).Seconds()),
	}
	return l.writeLines(lines)
}

// Close closes the underlying file.
func (l *Logger) Close() error {
	if l == nil || l.f == nil {
		return nil
	}
	return l.f.Close()
}

// writeLines appends lines and flushes after each one, so a reader
// scraping the live file never sees a torn line.
func (l *Logger) writeLines(lines []string) error {
	for _, line := range lines {
		if _, err := l.f.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("writing run log: %w", err)
		}
		if err := l.f.Sync(); err != nil {
			return fmt.Errorf("flushing run log: %w", err)
		}
	}
	return nil
}

func mb(b uint64) float64 {
	return float64(b) / (1024 * 1024)
}
