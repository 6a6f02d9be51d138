// Package transport implements the engine's {Stopped, Playing, Paused,
// Recording} state machine. State is held in a single atomic so the
// realtime callback can read it without a lock.
package transport

import "sync/atomic"

// State is one of the transport's four states.
type State int32

const (
	Stopped State = iota
	Playing
	Paused
	Recording
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Recording:
		return "recording"
	default:
		return "unknown"
	}
}

// Controller is the transport state machine. All transitions are called
// from the control thread; Current is also read by the realtime callback.
type Controller struct {
	state atomic.Int32
}

// New returns a Controller starting in Stopped.
func New() *Controller {
	return &Controller{}
}

// Current returns the current state. Safe to call from the realtime
// callback.
func (c *Controller) Current() State {
	return State(c.state.Load())
}

// Play transitions Stopped or Paused into Playing. Resuming from Paused
// keeps the current clock position; starting from Stopped is expected to
// begin at frame 0 (the caller is responsible for seeking the clock before
// calling Play, since Stop always forces the clock back to zero).
func (c *Controller) Play() {
	c.state.Store(int32(Playing))
}

// Pause transitions Playing into Paused. No-op from any other state.
func (c *Controller) Pause() {
	c.state.CompareAndSwap(int32(Playing), int32(Paused))
}

// Stop transitions any state into Stopped. Idempotent.
func (c *Controller) Stop() {
	c.state.Store(int32(Stopped))
}

// BeginRecording transitions into Recording. The caller decides whether
// recording may overlap Playing; the engine façade calls this only when
// the transport is not Playing, so a recording started during playback
// leaves the transport in Playing.
func (c *Controller) BeginRecording() {
	c.state.Store(int32(Recording))
}

// IsPlaying reports whether the realtime callback should be mixing audio.
func (c *Controller) IsPlaying() bool {
	return c.Current() == Playing
}
