package trackengine

import (
	"encoding/json"
	"fmt"
	"time"
)

// stateVersion is the EngineState format version. Bump on breaking
// field changes so LoadState can refuse to load old snapshots.
const stateVersion = "1.0.0"

// TrackState is one track's serializable parameters, a snapshot of
// everything SaveState needs to reconstruct a Track via LoadTrack plus
// SetVolume/SetPan/SetMuted/SetSolo/SetPitch/SetStretch.
type TrackState struct {
	ID               string  `json:"id"`
	Path             string  `json:"path"`
	StartTimeSamples int64   `json:"start_time_samples"`
	Volume           float32 `json:"volume"`
	Pan              float32 `json:"pan"`
	Muted            bool    `json:"muted"`
	Solo             bool    `json:"solo"`
	Pitch            float64 `json:"pitch"`
	Stretch          float64 `json:"stretch"`
}

// EngineState is the complete serializable state of an AudioEngine
// session: enough to reload every track with its mix parameters, the
// master gain, and the last playback position.
type EngineState struct {
	Version       string       `json:"version"`
	SampleRate    int          `json:"sample_rate"`
	MaxTracks     int          `json:"max_tracks"`
	MasterVolume  float32      `json:"master_volume"`
	PositionMs    float64      `json:"position_ms"`
	Tracks        []TrackState `json:"tracks"`
	SavedAtUnixMs int64        `json:"saved_at_unix_ms"`
}

// SaveState captures the engine's current loaded tracks and mix
// parameters as an EngineState snapshot.
func (e *AudioEngine) SaveState() (EngineState, error) {
	if err := e.requireInitialized(); err != nil {
		return EngineState{}, err
	}

	e.tracksMu.Lock()
	tracks := make([]TrackState, 0, len(e.tracks))
	for _, t := range e.tracks {
		tracks = append(tracks, TrackState{
			ID:               t.ID,
			Path:             t.Path,
			StartTimeSamples: t.StartTimeSamples(),
			Volume:           t.Volume(),
			Pan:              t.Pan(),
			Muted:            t.Muted(),
			Solo:             t.Solo(),
			Pitch:            t.Pitch(),
			Stretch:          t.Stretch(),
		})
	}
	e.tracksMu.Unlock()

	return EngineState{
		Version:       stateVersion,
		SampleRate:    e.sampleRate,
		MaxTracks:     e.maxTracks,
		MasterVolume:  e.mixer.MasterGain(),
		PositionMs:    e.GetCurrentPosition(),
		Tracks:        tracks,
		SavedAtUnixMs: time.Now().UnixMilli(),
	}, nil
}

// ValidateState checks a decoded EngineState is self-consistent before
// LoadState attempts to apply it.
func ValidateState(s EngineState) error {
	if s.Version != stateVersion {
		return fmt.Errorf("state: incompatible version %q, expected %q", s.Version, stateVersion)
	}
	if s.SampleRate <= 0 || s.MaxTracks <= 0 {
		return fmt.Errorf("state: sample_rate and max_tracks must be positive")
	}
	if len(s.Tracks) > s.MaxTracks {
		return fmt.Errorf("state: %d tracks exceeds max_tracks %d", len(s.Tracks), s.MaxTracks)
	}
	seen := make(map[string]bool, len(s.Tracks))
	for _, ts := range s.Tracks {
		if ts.ID == "" || ts.Path == "" {
			return fmt.Errorf("state: track missing id or path")
		}
		if seen[ts.ID] {
			return fmt.Errorf("state: duplicate track id %q", ts.ID)
		}
		seen[ts.ID] = true
	}
	return nil
}

// LoadState initializes the engine if it is not yet initialized (and fails
// with InvalidState if it is already initialized at a different sample
// rate), then reconstructs every track and mix parameter from a validated
// snapshot.
func (e *AudioEngine) LoadState(s EngineState) error {
	if err := ValidateState(s); err != nil {
		return e.fail(newError(ErrInvalidArgument, "invalid state", err))
	}

	if !e.initialized.Load() {
		if err := e.Initialize(s.SampleRate, s.MaxTracks); err != nil {
			return err
		}
	} else if e.sampleRate != s.SampleRate {
		return e.fail(newError(ErrInvalidState, "engine already initialized at a different sample rate", nil))
	}

	e.UnloadAllTracks()

	for _, ts := range s.Tracks {
		startMs := float64(ts.StartTimeSamples) * 1000.0 / float64(s.SampleRate)
		if err := e.LoadTrack(ts.ID, ts.Path, startMs); err != nil {
			return err
		}
		t, _ := e.trackByID(ts.ID)
		t.SetVolume(ts.Volume)
		t.SetPan(ts.Pan)
		t.SetMuted(ts.Muted)
		t.SetSolo(ts.Solo)
		t.SetPitch(ts.Pitch)
		t.SetStretch(ts.Stretch)
	}

	e.mixer.SetMasterGain(s.MasterVolume)
	return e.Seek(s.PositionMs)
}

// SaveStateJSON is a convenience wrapper returning the snapshot as
// indented JSON.
func (e *AudioEngine) SaveStateJSON() ([]byte, error) {
	s, err := e.SaveState()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(s, "", "  ")
}

// LoadStateJSON decodes and applies a JSON-encoded EngineState.
func (e *AudioEngine) LoadStateJSON(data []byte) error {
	var s EngineState
	if err := json.Unmarshal(data, &s); err != nil {
		return e.fail(newError(ErrInvalidArgument, "decode state json", err))
	}
	return e.LoadState(s)
}
