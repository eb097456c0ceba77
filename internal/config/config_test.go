package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
master_seed: 7
sample_size: 250
seed_count: 10
workers: 3
components: [age, bmi]
output_dir: /tmp/sweep-out
stitch: true
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MasterSeed != 7 || cfg.SampleSize != 250 || cfg.SeedCount != 10 || cfg.Workers != 3 {
		t.Errorf("numeric fields not loaded: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Components, []string{"age", "bmi"}) {
		t.Errorf("Components = %v, want [age bmi]", cfg.Components)
	}
	if cfg.OutputDir != "/tmp/sweep-out" || !cfg.Stitch {
		t.Errorf("output fields not loaded: %+v", cfg)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}

	// Fields absent from the file keep their defaults.
	if cfg.PopulationSize != Default().PopulationSize {
		t.Errorf("PopulationSize = %d, want default %d", cfg.PopulationSize, Default().PopulationSize)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Errorf("Load with missing file expected error")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CAUSALSWEEP_MASTER_SEED", "99")
	t.Setenv("CAUSALSWEEP_SAMPLE_SIZE", "77")
	t.Setenv("CAUSALSWEEP_COMPONENTS", "x,y,z")
	t.Setenv("CAUSALSWEEP_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MasterSeed != 99 {
		t.Errorf("MasterSeed = %d, want 99", cfg.MasterSeed)
	}
	if cfg.SampleSize != 77 {
		t.Errorf("SampleSize = %d, want 77", cfg.SampleSize)
	}
	if !reflect.DeepEqual(cfg.Components, []string{"x", "y", "z"}) {
		t.Errorf("Components = %v, want [x y z]", cfg.Components)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default ok", func(c *Config) {}, false},
		{"no components", func(c *Config) { c.Components = nil }, true},
		{"duplicate components", func(c *Config) { c.Components = []string{"a", "a"} }, true},
		{"zero population", func(c *Config) { c.PopulationSize = 0 }, true},
		{"sample too large", func(c *Config) { c.SampleSize = c.PopulationSize + 1 }, true},
		{"zero sample", func(c *Config) { c.SampleSize = 0 }, true},
		{"zero seeds", func(c *Config) { c.SeedCount = 0 }, true},
		{"negative workers", func(c *Config) { c.Workers = -1 }, true},
		{"zero workers ok", func(c *Config) { c.Workers = 0 }, false},
		{"empty output dir", func(c *Config) { c.OutputDir = "" }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
