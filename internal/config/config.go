// Package config loads engine-wide defaults (sample rate, track limits,
// buffer and decoder block sizes, default recording quality) from YAML, the same way
// doismellburning-samoyed and flowpbx-flowpbx load their own YAML/JSON
// configuration via gopkg.in/yaml.v3.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EngineConfig holds the tunables an embedder may override at Initialize
// time instead of hardcoding them.
type EngineConfig struct {
	SampleRate      int     `yaml:"sample_rate"`
	MaxTracks       int     `yaml:"max_tracks"`
	FramesPerBuffer int     `yaml:"frames_per_buffer"`
	DecoderBlock    int     `yaml:"decoder_block_frames"`
	RecordingQuality string `yaml:"recording_quality"`
}

// Default returns the engine's built-in defaults, used when no
// configuration file is supplied.
func Default() EngineConfig {
	return EngineConfig{
		SampleRate:       48000,
		MaxTracks:        32,
		FramesPerBuffer:  512,
		DecoderBlock:     4096,
		RecordingQuality: "medium",
	}
}

// Load reads and parses a YAML configuration file, starting from Default
// and overriding any fields the file sets.
func Load(path string) (EngineConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration's values are usable.
func (c EngineConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("config: sample_rate must be positive")
	}
	if c.MaxTracks <= 0 {
		return fmt.Errorf("config: max_tracks must be positive")
	}
	if c.FramesPerBuffer <= 0 {
		return fmt.Errorf("config: frames_per_buffer must be positive")
	}
	switch c.RecordingQuality {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("config: recording_quality must be low, medium, or high, got %q", c.RecordingQuality)
	}
	return nil
}
