// Package config provides configuration loading and management for beamwidth.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"beamwidth/pkg/beam"
	"beamwidth/pkg/synth"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Analysis parameters
	Analysis struct {
		// CornerFraction sets the corner region size used for the
		// background estimate, as a fraction of each image dimension
		CornerFraction float64 `yaml:"cornerFraction"`

		// NSigma scales the corner noise deviation removed together
		// with the background level
		NSigma float64 `yaml:"nSigma"`

		// AllowNegative keeps negative residuals after background
		// subtraction during refinement
		AllowNegative bool `yaml:"allowNegative"`

		// MaskDiameters sizes the integration rectangle as a multiple
		// of the current diameter estimate
		MaskDiameters float64 `yaml:"maskDiameters"`

		// MaxIter bounds the number of moment passes per analysis
		MaxIter int `yaml:"maxIter"`
	} `yaml:"analysis"`

	// Batch parameters
	Batch struct {
		// Workers is the number of frames analyzed concurrently;
		// zero selects the number of CPU cores
		Workers int `yaml:"workers"`
	} `yaml:"batch"`

	// Synthetic image parameters
	Synth struct {
		// Cols and Rows give the generated image size in pixels
		Cols int `yaml:"cols"`
		Rows int `yaml:"rows"`

		// MaxValue is the sensor saturation level
		MaxValue float64 `yaml:"maxValue"`

		// Noise is the mean of the added noise distribution
		Noise float64 `yaml:"noise"`

		// Model selects the noise distribution: poisson, gaussian,
		// uniform, or constant
		Model string `yaml:"model"`

		// Seed fixes the noise draw when nonzero
		Seed uint64 `yaml:"seed"`
	} `yaml:"synth"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default analysis parameters from the estimator defaults
	opt := beam.DefaultOptions()
	cfg.Analysis.CornerFraction = opt.CornerFraction
	cfg.Analysis.NSigma = opt.NSigma
	cfg.Analysis.AllowNegative = opt.AllowNegative
	cfg.Analysis.MaskDiameters = opt.MaskDiameters
	cfg.Analysis.MaxIter = opt.MaxIter

	// Set default batch parameters
	cfg.Batch.Workers = runtime.NumCPU() // Use all available cores by default

	// Set default synthetic image parameters
	cfg.Synth.Cols = 400
	cfg.Synth.Rows = 400
	cfg.Synth.MaxValue = 4095
	cfg.Synth.Noise = 20
	cfg.Synth.Model = synth.Poisson.String()
	cfg.Synth.Seed = 0

	return cfg
}

// Validate checks the configuration for values the analysis or the
// image generator would reject.
func (c *Config) Validate() error {
	if c.Analysis.CornerFraction < 0 || c.Analysis.CornerFraction > 0.25 {
		return fmt.Errorf("corner fraction must be between 0 and 0.25, got %g", c.Analysis.CornerFraction)
	}
	if c.Analysis.NSigma < 0 {
		return fmt.Errorf("n sigma must not be negative, got %g", c.Analysis.NSigma)
	}
	if c.Analysis.MaskDiameters <= 0 {
		return fmt.Errorf("mask diameters must be positive, got %g", c.Analysis.MaskDiameters)
	}
	if c.Analysis.MaxIter < 1 {
		return fmt.Errorf("max iterations must be at least 1, got %d", c.Analysis.MaxIter)
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Batch.Workers)
	}
	if c.Synth.Cols <= 0 || c.Synth.Rows <= 0 {
		return fmt.Errorf("synthetic image size must be positive, got %dx%d", c.Synth.Rows, c.Synth.Cols)
	}
	if c.Synth.MaxValue <= 0 || c.Synth.MaxValue > 65535 {
		return fmt.Errorf("max value must be positive and at most 65535, got %g", c.Synth.MaxValue)
	}
	if c.Synth.Noise < 0 {
		return fmt.Errorf("noise level must not be negative, got %g", c.Synth.Noise)
	}
	if _, err := synth.ParseNoiseModel(c.Synth.Model); err != nil {
		return err
	}
	return nil
}

// AnalysisOptions maps the analysis section onto estimator options
func (c *Config) AnalysisOptions() beam.Options {
	opt := beam.DefaultOptions()
	opt.CornerFraction = c.Analysis.CornerFraction
	opt.NSigma = c.Analysis.NSigma
	opt.AllowNegative = c.Analysis.AllowNegative
	opt.MaskDiameters = c.Analysis.MaskDiameters
	opt.MaxIter = c.Analysis.MaxIter
	return opt
}

// SynthOptions maps the synth section onto image generator options
func (c *Config) SynthOptions() (synth.Options, error) {
	model, err := synth.ParseNoiseModel(c.Synth.Model)
	if err != nil {
		return synth.Options{}, err
	}
	return synth.Options{
		MaxValue: c.Synth.MaxValue,
		Noise:    c.Synth.Noise,
		Model:    model,
		Seed:     c.Synth.Seed,
	}, nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
