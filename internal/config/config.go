// Package config provides unified configuration loading for gsst.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/ljmartin/generalized-tempering/internal/constants"
)

// Config contains all settings for a tempering run.
type Config struct {
	// Levels is the ordered sequence of tempered parameter values, for
	// example lambda values in [0,1] or restraint centers. At least one
	// level is required.
	Levels []float64 `yaml:"levels"`

	// Cutoff stops weight adaptation once the Wang-Landau update factor
	// drops below it. Smaller is more precise but equilibrates longer.
	Cutoff float64 `yaml:"cutoff"`

	// BaseTemperature is the simulation temperature in kelvin, used to
	// reduce potential energies to dimensionless form.
	BaseTemperature float64 `yaml:"base_temperature"`

	// Weights optionally supplies pre-equilibrated per-level weights.
	// Supplying them disables online estimation entirely.
	Weights []float64 `yaml:"weights,omitempty"`

	// ChangeInterval is the number of dynamics steps between level-change
	// attempts.
	ChangeInterval int `yaml:"change_interval"`

	// ReportInterval is the number of dynamics steps between report lines.
	ReportInterval int `yaml:"report_interval"`

	// Steps is the total number of dynamics steps for a run.
	Steps int `yaml:"steps"`

	// Seed seeds the level sampler and the toy dynamics noise. Zero
	// means a time-derived seed.
	Seed int64 `yaml:"seed,omitempty"`

	// StartLevel is the index of the initially occupied level.
	StartLevel int `yaml:"start_level,omitempty"`

	// ReportFile is the report destination. A ".gz" suffix enables gzip
	// compression; empty means stdout.
	ReportFile string `yaml:"report_file,omitempty"`

	// StorePath is the SQLite database for weight snapshots. Empty
	// disables persistence.
	StorePath string `yaml:"store_path,omitempty"`

	// Label is an optional human-readable tag attached to persisted runs.
	Label string `yaml:"label,omitempty"`

	// Logging configures operational and transition logging.
	Logging LoggingConfig `yaml:"logging"`

	// Dynamics configures the built-in toy system driven by `gsst run`.
	Dynamics DynamicsConfig `yaml:"dynamics"`
}

// LoggingConfig configures gsst's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables transition logging to <dir>/transitions.jsonl.
	Level string `yaml:"level"`

	// Dir is the directory for the transitions JSONL file. Defaults to
	// the working directory.
	Dir string `yaml:"dir,omitempty"`
}

// DynamicsConfig configures the built-in scaled harmonic system.
type DynamicsConfig struct {
	// Stiffness is the base force constant, kJ/mol per unit length squared.
	Stiffness float64 `yaml:"stiffness"`

	// Noise is the thermal noise amplitude of the toy integrator.
	Noise float64 `yaml:"noise"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Levels:          []float64{0.0, 0.25, 0.5, 0.75, 1.0},
		Cutoff:          constants.DefaultCutoff,
		BaseTemperature: 298.0,
		ChangeInterval:  constants.DefaultChangeInterval,
		ReportInterval:  constants.DefaultReportInterval,
		Steps:           1_000_000,
		Logging:         LoggingConfig{Level: "info"},
		Dynamics:        DynamicsConfig{Stiffness: 10.0, Noise: 1.0},
	}
}

// Load loads configuration from a file and environment variables.
// Order: defaults -> path (when non-empty) -> environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		loaded, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		// Fall back to ~/.gsst/config.yaml when present.
		if home, err := os.UserHomeDir(); err == nil {
			p := filepath.Join(home, ".gsst", "config.yaml")
			if _, statErr := os.Stat(p); statErr == nil {
				loaded, err := LoadFromFile(p)
				if err != nil {
					return nil, err
				}
				cfg = loaded
			}
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFromFile loads configuration from a specific YAML file, layered over
// the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is valid. Construction-time
// failures here are the only place configuration errors surface; nothing
// fails mid-run.
func (c *Config) Validate() error {
	if len(c.Levels) == 0 {
		return fmt.Errorf("at least one level is required")
	}
	if c.Cutoff <= 0 {
		return fmt.Errorf("cutoff must be positive, got %g", c.Cutoff)
	}
	if c.BaseTemperature <= 0 {
		return fmt.Errorf("base_temperature must be positive, got %g", c.BaseTemperature)
	}
	if c.Weights != nil && len(c.Weights) != len(c.Levels) {
		return fmt.Errorf("%d weights supplied for %d levels", len(c.Weights), len(c.Levels))
	}
	if c.ChangeInterval <= 0 {
		return fmt.Errorf("change_interval must be positive, got %d", c.ChangeInterval)
	}
	if c.ReportInterval <= 0 {
		return fmt.Errorf("report_interval must be positive, got %d", c.ReportInterval)
	}
	if c.Steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", c.Steps)
	}
	if c.StartLevel < 0 || c.StartLevel >= len(c.Levels) {
		return fmt.Errorf("start_level %d out of range [0,%d)", c.StartLevel, len(c.Levels))
	}
	return nil
}

// applyEnvOverrides applies GSST_* environment variables over the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GSST_CUTOFF"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Cutoff = f
		}
	}
	if v := os.Getenv("GSST_BASE_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.BaseTemperature = f
		}
	}
	if v := os.Getenv("GSST_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Seed = n
		}
	}
	if v := os.Getenv("GSST_STEPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Steps = n
		}
	}
	if v := os.Getenv("GSST_REPORT_FILE"); v != "" {
		cfg.ReportFile = v
	}
	if v := os.Getenv("GSST_STORE_PATH"); v != "" {
		cfg.StorePath = v
	}
	if v := os.Getenv("GSST_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
