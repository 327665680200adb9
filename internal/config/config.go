// Package config loads and validates the pipeline configuration from a
// YAML file with environment-variable overrides.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete pipeline configuration
type Config struct {
	Logging    LoggingConfig     `yaml:"logging" envconfig:"LOGGING"`
	Pipeline   PipelineConfig    `yaml:"pipeline" envconfig:"PIPELINE"`
	Sources    []SourceSpec      `yaml:"sources" validate:"required,min=1,dive"`
	Categories []CategoryPattern `yaml:"categories" validate:"dive"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PipelineConfig contains the knobs shared by every stage
type PipelineConfig struct {
	// OutputDir is where per-dataset CSV files land.
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
	// CityMarker is the case-sensitive substring that identifies the
	// target city in the municipio column.
	CityMarker string `yaml:"city_marker" envconfig:"CITY_MARKER" validate:"required"`
	// ZonalSeparator splits a compound barrio label into barrio name and
	// locality code. SIEDCO labels look like "KENNEDY E-10".
	ZonalSeparator string `yaml:"zonal_separator" envconfig:"ZONAL_SEPARATOR" validate:"required"`
	// NAMarkers are municipio values treated as missing besides the
	// empty string.
	NAMarkers []string `yaml:"na_markers" envconfig:"NA_MARKERS"`
	// OnFileError decides whether a failed source file skips with a
	// report or aborts the whole run.
	OnFileError string `yaml:"on_file_error" envconfig:"ON_FILE_ERROR" validate:"oneof=skip abort"`
	// Parallelism bounds the per-file normalize+filter fan-out.
	Parallelism int `yaml:"parallelism" envconfig:"PARALLELISM" validate:"min=1"`
}

// SourceSpec declares one raw spreadsheet file: where it is, how much
// header noise to skip, which column window to read, and the canonical
// column names to impose positionally.
type SourceSpec struct {
	Name       string   `yaml:"name" validate:"required"`
	Path       string   `yaml:"path" validate:"required"`
	Sheet      string   `yaml:"sheet"`
	SkipRows   int      `yaml:"skip_rows" validate:"min=0"`
	Columns    string   `yaml:"columns"`
	Types      []string `yaml:"types" validate:"dive,oneof=text date number"`
	Target     []string `yaml:"target_columns" validate:"required,min=1"`
	DateLayout string   `yaml:"date_layout"`
}

// CategoryPattern binds a crime category name to the pattern its source
// dataset identifiers must match. Patterns are compiled once at load
// time, never re-matched against mutable names during a run.
type CategoryPattern struct {
	Name    string `yaml:"name" validate:"required"`
	Pattern string `yaml:"pattern" validate:"required"`
}

// Load reads configuration from the given YAML file, applies environment
// overrides with the CRIME prefix, fills defaults and validates.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables take precedence over the file
	if err := envconfig.Process("CRIME", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration against the declared constraints,
// including per-source type/target arity.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	for _, src := range c.Sources {
		if len(src.Types) > 0 && len(src.Types) != len(src.Target) {
			return fmt.Errorf("source %s: %d column types declared for %d target columns", src.Name, len(src.Types), len(src.Target))
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/pipeline.log"
	}
	if c.Pipeline.OutputDir == "" {
		c.Pipeline.OutputDir = "data/reports"
	}
	if c.Pipeline.CityMarker == "" {
		c.Pipeline.CityMarker = "BOGOTA"
	}
	if c.Pipeline.ZonalSeparator == "" {
		c.Pipeline.ZonalSeparator = " E-"
	}
	if len(c.Pipeline.NAMarkers) == 0 {
		c.Pipeline.NAMarkers = []string{"NA", "-", "NO REPORTA"}
	}
	if c.Pipeline.OnFileError == "" {
		c.Pipeline.OnFileError = "skip"
	}
	if c.Pipeline.Parallelism == 0 {
		c.Pipeline.Parallelism = 4
	}
	for i := range c.Sources {
		if c.Sources[i].DateLayout == "" {
			c.Sources[i].DateLayout = "2006-01-02"
		}
	}
}
