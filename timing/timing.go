// Package timing converts between sample frames and milliseconds for a
// fixed sample rate, and caches the engine's total timeline duration.
package timing

import (
	"math"
	"sync/atomic"
)

// Manager holds the sample rate and a cached total-duration-in-frames
// value, updated whenever the set of loaded tracks changes.
type Manager struct {
	sampleRate     int
	totalFrames    atomic.Int64
}

// New creates a Manager for the given sample rate.
func New(sampleRate int) *Manager {
	return &Manager{sampleRate: sampleRate}
}

// SampleRate returns the configured sample rate.
func (m *Manager) SampleRate() int { return m.sampleRate }

// MsToFrames converts milliseconds to frames, rounding to nearest.
func (m *Manager) MsToFrames(ms float64) int64 {
	return int64(math.Round(ms * float64(m.sampleRate) / 1000.0))
}

// FramesToMs converts a frame count to milliseconds.
func (m *Manager) FramesToMs(frames int64) float64 {
	return float64(frames) * 1000.0 / float64(m.sampleRate)
}

// SetTotalFrames updates the cached total timeline duration, in frames.
func (m *Manager) SetTotalFrames(frames int64) {
	m.totalFrames.Store(frames)
}

// TotalFrames returns the cached total timeline duration, in frames.
func (m *Manager) TotalFrames() int64 {
	return m.totalFrames.Load()
}

// DurationMs derives the total timeline duration in milliseconds from the
// cached frame count.
func (m *Manager) DurationMs() float64 {
	return m.FramesToMs(m.TotalFrames())
}
