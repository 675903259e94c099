package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultEnablesAllCleaningStages(t *testing.T) {
	cfg := Default()

	assert := assert.New(t)
	assert.True(cfg.Cleaning.Smooth)
	assert.True(cfg.Cleaning.RemoveOutliers)
	assert.True(cfg.Cleaning.Interpolate)
	assert.InDelta(440, cfg.ReferenceA4, 1e-9)
	assert.InDelta(0.5, cfg.Compare.TimeTolerance, 1e-9)
}

func TestLoadOverridesOnlyNamedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := []byte(`{"reference_a4": 442, "segmenter": {"min_duration": 0.2}}`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert := assert.New(t)
	assert.InDelta(442, cfg.ReferenceA4, 1e-9)
	assert.InDelta(0.2, cfg.Segmenter.MinDuration, 1e-9)
	// Untouched sections keep their defaults.
	assert.Equal(5, cfg.Cleaner.SmoothingWindow)
	assert.InDelta(0.5, cfg.Compare.TimeTolerance, 1e-9)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := Default()
	cfg.ReferenceA4 = 432
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 432, loaded.ReferenceA4, 1e-9)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
