package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/ancestry.report/internal/estimate"
)

// ModelConfig is the on-disk configuration for the population model and the
// estimation run. Fields are pointers so a partial JSON file only overrides
// what it names; the Get* accessors supply defaults for the rest.
type ModelConfig struct {
	// Population model constants
	MinSegmentCM *float64 `json:"min_segment_cm,omitempty"`
	Theta        *float64 `json:"theta,omitempty"`
	Lambda       *float64 `json:"lambda,omitempty"`
	RecombRate   *float64 `json:"recomb_rate,omitempty"`
	Autosomes    *int     `json:"autosomes,omitempty"`

	// Estimation parameters
	MaxGenerations    *int     `json:"max_generations,omitempty"`
	Alpha             *float64 `json:"alpha,omitempty"`
	FirstDegreeAdjust *bool    `json:"first_degree_adjust,omitempty"`

	// Input handling
	DisableMasking *bool  `json:"disable_masking,omitempty"`
	MergeGapBP     *int64 `json:"merge_gap_bp,omitempty"`
}

// EmptyModelConfig returns a ModelConfig with every field unset.
func EmptyModelConfig() *ModelConfig {
	return &ModelConfig{}
}

// LoadModelConfig loads a ModelConfig from a JSON file. Omitted fields keep
// their defaults, so partial configs are safe.
func LoadModelConfig(path string) (*ModelConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyModelConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate builds the effective parameters and delegates to the model's own
// validation, so a config file cannot describe a degenerate model.
func (c *ModelConfig) Validate() error {
	return c.Params().Validate()
}

// Params resolves the effective estimation parameters: every set field
// overrides the corresponding default.
func (c *ModelConfig) Params() estimate.Params {
	p := estimate.DefaultParams()
	if c.MinSegmentCM != nil {
		p.MinCM = *c.MinSegmentCM
	}
	if c.Theta != nil {
		p.Theta = *c.Theta
	}
	if c.Lambda != nil {
		p.Lambda = *c.Lambda
	}
	if c.RecombRate != nil {
		p.RecombRate = *c.RecombRate
	}
	if c.Autosomes != nil {
		p.Autosomes = *c.Autosomes
	}
	if c.MaxGenerations != nil {
		p.MaxD = *c.MaxGenerations
	}
	if c.Alpha != nil {
		p.Alpha = *c.Alpha
	}
	if c.FirstDegreeAdjust != nil {
		p.FirstDegreeAdjust = *c.FirstDegreeAdjust
	}
	return p
}

// GetDisableMasking returns whether genomic region masking is disabled.
func (c *ModelConfig) GetDisableMasking() bool {
	if c.DisableMasking != nil {
		return *c.DisableMasking
	}
	return false
}

// GetMergeGapBP returns the segment-merge gap in base pairs; negative
// disables merging.
func (c *ModelConfig) GetMergeGapBP() int64 {
	if c.MergeGapBP != nil {
		return *c.MergeGapBP
	}
	return -1
}
