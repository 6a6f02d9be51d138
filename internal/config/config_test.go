package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sample_rate: 44100\nmax_tracks: 8\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 44100, cfg.SampleRate)
	assert.Equal(t, 8, cfg.MaxTracks)
	assert.Equal(t, "medium", cfg.RecordingQuality, "unset fields keep the default")
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadQuality(t *testing.T) {
	cfg := Default()
	cfg.RecordingQuality = "ultra"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveSampleRate(t *testing.T) {
	cfg := Default()
	cfg.SampleRate = 0
	assert.Error(t, cfg.Validate())
}
