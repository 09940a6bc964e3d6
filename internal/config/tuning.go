package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig holds tracker tuning parameters. All fields are optional
// pointers so a partial JSON file only overrides what it names; the
// Get* accessors supply the documented defaults for absent fields.
type TuningConfig struct {
	// Particle filter params
	NumParticles      *int     `json:"num_particles,omitempty"`
	ResampleThreshold *float64 `json:"resample_threshold,omitempty"` // ESS fraction triggering resampling

	// Association params
	ClutterDensity *float64 `json:"clutter_density,omitempty"`
	ClutterPrior   *float64 `json:"clutter_prior,omitempty"`

	// Unscented transform params
	UKFAlpha *float64 `json:"ukf_alpha,omitempty"`
	UKFBeta  *float64 `json:"ukf_beta,omitempty"`
	UKFKappa *float64 `json:"ukf_kappa,omitempty"`

	// Measurement params
	MeasurementNoise *float64 `json:"measurement_noise,omitempty"`

	// Evaluation stage concurrency
	EvalWorkers *int `json:"eval_workers,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from a file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under
// the max file size. Fields omitted from the JSON file fall back to
// their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.NumParticles != nil && *c.NumParticles < 1 {
		return fmt.Errorf("num_particles must be >= 1, got %d", *c.NumParticles)
	}
	if c.ResampleThreshold != nil {
		if *c.ResampleThreshold < 0 || *c.ResampleThreshold > 1 {
			return fmt.Errorf("resample_threshold must be between 0 and 1, got %f", *c.ResampleThreshold)
		}
	}
	if c.ClutterDensity != nil && *c.ClutterDensity < 0 {
		return fmt.Errorf("clutter_density must be non-negative, got %f", *c.ClutterDensity)
	}
	if c.ClutterPrior != nil {
		if *c.ClutterPrior < 0 || *c.ClutterPrior > 1 {
			return fmt.Errorf("clutter_prior must be between 0 and 1, got %f", *c.ClutterPrior)
		}
	}
	if c.UKFAlpha != nil {
		if *c.UKFAlpha <= 0 || *c.UKFAlpha > 1 {
			return fmt.Errorf("ukf_alpha must be in (0, 1], got %f", *c.UKFAlpha)
		}
	}
	if c.UKFBeta != nil && *c.UKFBeta < 0 {
		return fmt.Errorf("ukf_beta must be non-negative, got %f", *c.UKFBeta)
	}
	if c.UKFKappa != nil && *c.UKFKappa < 0 {
		return fmt.Errorf("ukf_kappa must be non-negative, got %f", *c.UKFKappa)
	}
	if c.MeasurementNoise != nil && *c.MeasurementNoise <= 0 {
		return fmt.Errorf("measurement_noise must be positive, got %f", *c.MeasurementNoise)
	}
	if c.EvalWorkers != nil && *c.EvalWorkers < 1 {
		return fmt.Errorf("eval_workers must be >= 1, got %d", *c.EvalWorkers)
	}
	return nil
}

// GetNumParticles returns the num_particles value or the default.
func (c *TuningConfig) GetNumParticles() int {
	if c.NumParticles == nil {
		return 200
	}
	return *c.NumParticles
}

// GetResampleThreshold returns the resample_threshold value or the default.
func (c *TuningConfig) GetResampleThreshold() float64 {
	if c.ResampleThreshold == nil {
		return 0.5
	}
	return *c.ResampleThreshold
}

// GetClutterDensity returns the clutter_density value or the default.
func (c *TuningConfig) GetClutterDensity() float64 {
	if c.ClutterDensity == nil {
		return 0.01
	}
	return *c.ClutterDensity
}

// GetClutterPrior returns the clutter_prior value or the default.
func (c *TuningConfig) GetClutterPrior() float64 {
	if c.ClutterPrior == nil {
		return 0.0
	}
	return *c.ClutterPrior
}

// GetUKFAlpha returns the ukf_alpha value or the default.
func (c *TuningConfig) GetUKFAlpha() float64 {
	if c.UKFAlpha == nil {
		return 1.0
	}
	return *c.UKFAlpha
}

// GetUKFBeta returns the ukf_beta value or the default.
func (c *TuningConfig) GetUKFBeta() float64 {
	if c.UKFBeta == nil {
		return 2.0
	}
	return *c.UKFBeta
}

// GetUKFKappa returns the ukf_kappa value or the default.
func (c *TuningConfig) GetUKFKappa() float64 {
	if c.UKFKappa == nil {
		return 0.0
	}
	return *c.UKFKappa
}

// GetMeasurementNoise returns the measurement_noise value or the default.
func (c *TuningConfig) GetMeasurementNoise() float64 {
	if c.MeasurementNoise == nil {
		return 0.05
	}
	return *c.MeasurementNoise
}

// GetEvalWorkers returns the eval_workers value or the default.
func (c *TuningConfig) GetEvalWorkers() int {
	if c.EvalWorkers == nil {
		return 4
	}
	return *c.EvalWorkers
}
