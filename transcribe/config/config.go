// Package config aggregates the tunable parameters of the full analysis
// pipeline into one struct that can round-trip through JSON, so a whole run
// is reproducible from a single file.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/melotrace/melotrace/compare"
	"github.com/melotrace/melotrace/estimate"
	"github.com/melotrace/melotrace/midiexport"
	"github.com/melotrace/melotrace/notes"
	"github.com/melotrace/melotrace/pitchtrack"
)

// Config collects the parameters of every pipeline stage.
type Config struct {
	// ReferenceA4 is the tuning reference in Hz. Zero means 440.
	ReferenceA4 float64 `json:"reference_a4"`

	Estimator estimate.Params          `json:"estimator"`
	Cleaner   pitchtrack.CleanerParams `json:"cleaner"`
	Cleaning  pitchtrack.CleanOptions  `json:"cleaning"`
	Segmenter notes.SegmenterParams    `json:"segmenter"`
	Compare   compare.Params           `json:"compare"`
	Export    midiexport.Params        `json:"export"`
}

// Default returns the standard pipeline configuration with every cleanup
// stage enabled.
func Default() *Config {
	return &Config{
		ReferenceA4: notes.DefaultReferenceA4,
		Estimator:   estimate.DefaultParams(),
		Cleaner:     pitchtrack.DefaultCleanerParams(),
		Cleaning: pitchtrack.CleanOptions{
			Smooth:         true,
			RemoveOutliers: true,
			Interpolate:    true,
		},
		Segmenter: notes.DefaultSegmenterParams(),
		Compare:   compare.DefaultParams(),
		Export:    midiexport.DefaultParams(),
	}
}

// Load reads a configuration file. Absent fields keep their defaults, so a
// file only has to name what it overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
