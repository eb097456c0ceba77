// Package config provides unified configuration loading for causalsweep.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dkoster/causalsweep/internal/combinator"
	"github.com/dkoster/causalsweep/internal/population"
	"github.com/dkoster/causalsweep/internal/seedplan"
)

// Config contains all run parameters. Precedence at startup is
// defaults -> YAML file -> environment variables -> command-line flags.
type Config struct {
	// MasterSeed seeds the population, the working sample draw and the
	// seed plan.
	MasterSeed int64 `json:"master_seed" yaml:"master_seed"`

	// PopulationSize is N0, the synthetic reference population size.
	PopulationSize int `json:"population_size" yaml:"population_size"`

	// SampleSize is N, the working sample drawn from the population.
	SampleSize int `json:"sample_size" yaml:"sample_size"`

	// SeedCount is K, the number of trial seeds per configuration.
	SeedCount int `json:"seed_count" yaml:"seed_count"`

	// Workers is C, the worker-pool size. 0 means available cores minus
	// one.
	Workers int `json:"workers" yaml:"workers"`

	// Components is the base estimator-component set; the sweep covers
	// every non-empty subset.
	Components []string `json:"components" yaml:"components"`

	// OutputDir is the run directory for checkpoints, log and registry.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Stitch consolidates the checkpoints into a CSV at the end of a run.
	Stitch bool `json:"stitch" yaml:"stitch"`

	// Logging contains settings for operational and trial logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// LoggingConfig configures causalsweep's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default) or "debug".
	// "debug" enables the trial trace in <output_dir>/trials.jsonl.
	Level string `json:"level" yaml:"level"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		MasterSeed:     42,
		PopulationSize: population.DefaultSize,
		SampleSize:     1000,
		SeedCount:      100,
		Workers:        0,
		Components:     append([]string(nil), population.DefaultCovariates...),
		OutputDir:      "results",
		Stitch:         false,
		Logging:        LoggingConfig{Level: "info"},
	}
}

// Load loads configuration from path (if non-empty) over the defaults
// and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides applies CAUSALSWEEP_* environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CAUSALSWEEP_MASTER_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MasterSeed = n
		}
	}
	if v := os.Getenv("CAUSALSWEEP_SAMPLE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SampleSize = n
		}
	}
	if v := os.Getenv("CAUSALSWEEP_SEED_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SeedCount = n
		}
	}
	if v := os.Getenv("CAUSALSWEEP_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("CAUSALSWEEP_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("CAUSALSWEEP_COMPONENTS"); v != "" {
		cfg.Components = strings.Split(v, ",")
	}
	if v := os.Getenv("CAUSALSWEEP_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks that the configuration can start a run. It fails fast
// before any work begins.
func (c *Config) Validate() error {
	if err := combinator.Validate(c.Components); err != nil {
		return fmt.Errorf("components: %w", err)
	}
	if c.PopulationSize < 1 {
		return fmt.Errorf("population_size must be at least 1, got %d", c.PopulationSize)
	}
	if c.SampleSize < 1 || c.SampleSize > c.PopulationSize {
		return fmt.Errorf("sample_size %d outside [1, %d]", c.SampleSize, c.PopulationSize)
	}
	if c.SeedCount < 1 {
		return fmt.Errorf("seed_count must be at least 1, got %d", c.SeedCount)
	}
	if c.SeedCount > seedplan.UpperBound {
		return fmt.Errorf("seed_count %d exceeds the seed range [1, %d]", c.SeedCount, seedplan.UpperBound)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir must not be empty")
	}

	validLevels := map[string]bool{"": true, "info": true, "debug": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, or empty for default)", c.Logging.Level)
	}
	return nil
}
