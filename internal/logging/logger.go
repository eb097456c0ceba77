// Package logging provides leveled operational logging and the optional
// trial trace for causalsweep. It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A TrialLogger for structured JSONL per-trial traces (trials.jsonl
//     in the run directory), emitted in completion order
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	return slog.New(slog.NewTextHandler(w, opts))
}

// TrialLogger writes structured trial events to a JSONL file in
// completion order. It is safe for concurrent use. A nil TrialLogger is
// safe to use; all methods are no-ops on nil receiver.
type TrialLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewTrialLogger creates a trial logger writing to dir/trials.jsonl.
// At "info" level (the default), returns nil — no file is created.
// At "debug" level, the file is opened for append.
// Returns nil if the file cannot be opened. All methods are nil-safe.
func NewTrialLogger(dir string, level string) *TrialLogger {
	if ParseLevel(level) > slog.LevelDebug {
		return nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil
	}

	path := filepath.Join(dir, "trials.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil
	}
	return &TrialLogger{file: f}
}

// trialEvent is the on-disk shape of one trace line.
type trialEvent struct {
	Time     string  `json:"time"`
	Ordinal  int     `json:"ordinal"`
	ConfigID string  `json:"config_id"`
	Seed     int64   `json:"seed"`
	Elapsed  float64 `json:"elapsed_seconds"`
	Error    string  `json:"error,omitempty"`
}

// Trial records one completed trial. Events appear in completion order,
// not seed-plan order; the checkpoint holds the plan-ordered results.
// Safe to call on nil receiver.
func (tl *TrialLogger) Trial(ordinal int, configID string, seed int64, elapsedSeconds float64, errMsg string) {
	if tl == nil || tl.file == nil {
		return
	}

	ev := trialEvent{
		Time:     time.Now().UTC().Format(time.RFC3339Nano),
		Ordinal:  ordinal,
		ConfigID: configID,
		Seed:     seed,
		Elapsed:  elapsedSeconds,
		Error:    errMsg,
	}

	tl.mu.Lock()
	defer tl.mu.Unlock()

	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = tl.file.Write(data)
}

// Close closes the underlying file. Safe to call on nil receiver.
func (tl *TrialLogger) Close() {
	if tl == nil || tl.file == nil {
		return
	}

	tl.mu.Lock()
	defer tl.mu.Unlock()

	tl.file.Close()
	tl.file = nil
}
