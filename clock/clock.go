// Package clock implements the engine's master sample-count cursor along
// the shared timeline.
package clock

import "sync/atomic"

// MasterClock is a monotonic frame cursor. Only the realtime output
// callback calls Advance; any thread may call Position; SetPosition is
// only safe to call while the transport is not Playing.
type MasterClock struct {
	frame atomic.Int64
}

// New returns a clock positioned at frame 0.
func New() *MasterClock {
	return &MasterClock{}
}

// Position returns the current timeline frame.
func (c *MasterClock) Position() int64 {
	return c.frame.Load()
}

// Advance moves the cursor forward by n frames. Called exactly once per
// realtime callback, after mixing.
func (c *MasterClock) Advance(n int64) {
	c.frame.Add(n)
}

// SetPosition resets the cursor to an explicit frame, e.g. for Seek or
// Stop. Callers must guarantee no callback is in flight.
func (c *MasterClock) SetPosition(frame int64) {
	c.frame.Store(frame)
}
