// Package config provides configuration loading and management for pointfit.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"pointfit/pkg/registration"
	"pointfit/pkg/solver"
	"pointfit/pkg/transform"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Registration parameters
	Registration struct {
		// Variant is one of full, rigid, rigid-scale or anisotropic
		Variant string `yaml:"variant"`

		// Translate, Rotate and Scale select the stages of the rigid-scale variant
		Translate bool `yaml:"translate"`
		Rotate    bool `yaml:"rotate"`
		Scale     bool `yaml:"scale"`

		// Reverse queries from the fixed set into the transformed moving set
		Reverse bool `yaml:"reverse"`

		// TwoStage solves for translation alone before the full variant
		TwoStage bool `yaml:"twoStage"`

		// MatchCentroid pre-aligns the centroids before optimising
		MatchCentroid bool `yaml:"matchCentroid"`

		// NumCores bounds the goroutines used for nearest-neighbour queries
		NumCores int `yaml:"numCores"`
	} `yaml:"registration"`

	// Solver termination parameters
	Solver struct {
		// XTol is the relative parameter change that stops iteration
		XTol float64 `yaml:"xtol"`

		// FTol is the relative cost reduction that stops iteration
		FTol float64 `yaml:"ftol"`

		// MaxFev bounds residual evaluations; 0 means 200*(n+1)
		MaxFev int `yaml:"maxfev"`

		// Step is the relative central-difference step
		Step float64 `yaml:"step"`
	} `yaml:"solver"`

	// Transform output parameters
	Transform struct {
		// LegacyHomogeneousRow writes matrices with a [1 1 1 1] bottom row
		LegacyHomogeneousRow bool `yaml:"legacyHomogeneousRow"`
	} `yaml:"transform"`

	// Output parameters
	Output struct {
		// PreviewDir, when set, receives projection images of the result
		PreviewDir string `yaml:"previewDir"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default registration parameters
	cfg.Registration.Variant = registration.Full.String()
	cfg.Registration.Translate = true
	cfg.Registration.Rotate = true
	cfg.Registration.Scale = true
	cfg.Registration.NumCores = runtime.NumCPU() // Use all available cores by default

	// Set default solver parameters
	cfg.Solver.XTol = solver.DefaultXTol
	cfg.Solver.FTol = solver.DefaultFTol
	cfg.Solver.Step = solver.DefaultStep

	// Set default output parameters
	cfg.Output.Verbose = true

	return cfg
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

// Stages resolves the configured variant and flags to transform stages
func (c *Config) Stages() (transform.Stages, error) {
	v, err := registration.ParseVariant(c.Registration.Variant)
	if err != nil {
		return 0, err
	}
	r := c.Registration
	return v.Stages(r.Translate, r.Rotate, r.Scale), nil
}

// RegistrationOptions builds registration options from the configuration
func (c *Config) RegistrationOptions() (registration.Options, error) {
	stages, err := c.Stages()
	if err != nil {
		return registration.Options{}, err
	}

	opts := registration.DefaultOptions()
	opts.Stages = stages
	opts.Workers = c.Registration.NumCores
	opts.MatchCentroid = c.Registration.MatchCentroid
	if c.Registration.Reverse {
		opts.Direction = registration.Reverse
	}
	opts.Solver = solver.Settings{
		XTol:   c.Solver.XTol,
		FTol:   c.Solver.FTol,
		MaxFev: c.Solver.MaxFev,
		Step:   c.Solver.Step,
	}
	return opts, nil
}

// RowConvention returns the bottom-row convention for written matrices
func (c *Config) RowConvention() transform.RowConvention {
	if c.Transform.LegacyHomogeneousRow {
		return transform.LegacyRow
	}
	return transform.Homogeneous
}
