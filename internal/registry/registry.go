// Package registry tracks runs and per-combination progress in a SQLite
// database next to the checkpoints.
//
// The registry is observational: checkpoints alone carry resume
// semantics, and a registry failure never invalidates completed work. It
// exists so `causalsweep status` can summarize a run directory without
// parsing every checkpoint file.
package registry

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/dkoster/causalsweep/internal/checkpoint"
)

// FileName is the registry database file inside the run directory.
const FileName = "registry.db"

// Combination status values.
const (
	StatusDone    = "done"
	StatusSkipped = "skipped"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at   TEXT NOT NULL,
	finished_at  TEXT,
	master_seed  INTEGER NOT NULL,
	sample_size  INTEGER NOT NULL,
	seed_count   INTEGER NOT NULL,
	workers      INTEGER NOT NULL,
	components   TEXT NOT NULL,
	baseline_ate REAL
);

CREATE TABLE IF NOT EXISTS combinations (
	run_id          INTEGER NOT NULL REFERENCES runs(id),
	ordinal         INTEGER NOT NULL,
	config_id       TEXT NOT NULL,
	status          TEXT NOT NULL,
	failed_trials   INTEGER NOT NULL,
	elapsed_seconds REAL NOT NULL,
	completed_at    TEXT NOT NULL,
	PRIMARY KEY (run_id, ordinal)
);
`

// Registry wraps the run-tracking database.
type Registry struct {
	db *sql.DB
}

// Open opens (creating if needed) the registry database in dir.
func Open(dir string) (*Registry, error) {
	dbPath := filepath.Join(dir, FileName)
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening registry database: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing registry schema: %w", err)
	}
	return &Registry{db: db}, nil
}

// Close closes the database.
func (r *Registry) Close() error {
	return r.db.Close()
}

// StartRun records a new run and returns its id. baselineATE may be
// nil when the working sample had an empty treatment arm.
func (r *Registry) StartRun(ctx context.Context, params checkpoint.RunParams, baselineATE *float64) (int64, error) {
	var baseline sql.NullFloat64
	if baselineATE != nil {
		baseline = sql.NullFloat64{Float64: *baselineATE, Valid: true}
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO runs (started_at, master_seed, sample_size, seed_count, workers, components, baseline_ate)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339),
		params.MasterSeed, params.SampleSize, params.SeedCount, params.Workers,
		strings.Join(params.Components, ","), baseline)
	if err != nil {
		return 0, fmt.Errorf("recording run start: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}
	return id, nil
}

// CompleteCombination records one configuration's completion (or skip,
// on resume). Re-recording the same ordinal replaces the earlier row.
func (r *Registry) CompleteCombination(ctx context.Context, runID int64, ordinal int, configID, status string, failedTrials int, elapsedSeconds float64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO combinations (run_id, ordinal, config_id, status, failed_trials, elapsed_seconds, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, ordinal, configID, status, failedTrials, elapsedSeconds,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recording combination %d: %w", ordinal, err)
	}
	return nil
}

// FinishRun stamps the run's finish time.
func (r *Registry) FinishRun(ctx context.Context, runID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), runID)
	if err != nil {
		return fmt.Errorf("recording run finish: %w", err)
	}
	return nil
}

// RunSummary is the status view of one run.
type RunSummary struct {
	ID          int64    `json:"id"`
	StartedAt   string   `json:"started_at"`
	FinishedAt  string   `json:"finished_at,omitempty"`
	MasterSeed  int64    `json:"master_seed"`
	SampleSize  int      `json:"sample_size"`
	SeedCount   int      `json:"seed_count"`
	Workers     int      `json:"workers"`
	Components  string   `json:"components"`
	BaselineATE *float64 `json:"baseline_ate,omitempty"`

	Done         int `json:"done"`
	Skipped      int `json:"skipped"`
	FailedTrials int `json:"failed_trials"`
}

// LatestRun returns the most recently started run with its combination
// counts, or sql.ErrNoRows if the registry has no runs.
func (r *Registry) LatestRun(ctx context.Context) (RunSummary, error) {
	var s RunSummary
	var finished sql.NullString
	var baseline sql.NullFloat64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, master_seed, sample_size, seed_count, workers, components, baseline_ate
		 FROM runs ORDER BY id DESC LIMIT 1`).
		Scan(&s.ID, &s.StartedAt, &finished, &s.MasterSeed, &s.SampleSize, &s.SeedCount, &s.Workers, &s.Components, &baseline)
	if err != nil {
		return RunSummary{}, err
	}
	if finished.Valid {
		s.FinishedAt = finished.String
	}
	if baseline.Valid {
		s.BaselineATE = &baseline.Float64
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(failed_trials), 0)
		 FROM combinations WHERE run_id = ?`, StatusDone, StatusSkipped, s.ID).
		Scan(&s.Done, &s.Skipped, &s.FailedTrials)
	if err != nil {
		return RunSummary{}, fmt.Errorf("counting combinations: %w", err)
	}
	return s, nil
}
