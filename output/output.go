// Package output bridges the engine's mix callback to the host audio
// device, using portaudio's blocking Read/Write stream as the realtime
// loop: one goroutine calls Write in a tight cycle, playing the role of
// a realtime output callback.
package output

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
	"github.com/shaban/trackengine/internal/telemetry"
)

var log = telemetry.New("output")

// MixFunc fills out (stereo interleaved, frames frames) for one block. It
// must not block or
// allocate: it is called once per device buffer from the realtime loop.
type MixFunc func(out []float32, frames int)

// streamState is the driver's Closed → Open → Started →
// (Stopped|Paused|ErrorAfterClose) state machine.
type streamState int32

const (
	StateClosed streamState = iota
	StateOpen
	StateStarted
	StateStopped
	StatePaused
	StateErrorAfterClose
)

// Driver owns the output stream and its recovery state machine.
type Driver struct {
	sampleRate int
	mix        MixFunc
	framesPer  int

	mu     sync.Mutex
	stream *portaudio.Stream
	buf    []float32

	state     atomic.Int32
	recovering atomic.Bool
}

// New constructs a Driver at the given sample rate; mix is called for
// every block once Start succeeds.
func New(sampleRate, framesPerBuffer int, mix MixFunc) *Driver {
	d := &Driver{sampleRate: sampleRate, framesPer: framesPerBuffer, mix: mix}
	d.state.Store(int32(StateClosed))
	return d
}

// State returns the current stream lifecycle state.
func (d *Driver) State() streamState {
	return streamState(d.state.Load())
}

// Healthy reports whether the stream is in a usable, non-recovering state.
func (d *Driver) Healthy() bool {
	if d.recovering.Load() {
		return false
	}
	switch d.State() {
	case StateStarted, StateOpen, StateStopped, StatePaused:
		return true
	default:
		return false
	}
}

// Start opens the output stream, preferring the lowest-latency (exclusive)
// parameters first and falling back to shared/default latency on failure,
// then begins the realtime write loop.
func (d *Driver) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stream != nil {
		return nil
	}
	stream, buf, err := d.openStream()
	if err != nil {
		return fmt.Errorf("output: open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("output: start stream: %w", err)
	}
	d.stream = stream
	d.buf = buf
	d.state.Store(int32(StateStarted))
	log.Debug("output stream started", "sample_rate", d.sampleRate, "frames_per_buffer", d.framesPer)
	go d.writeLoop()
	return nil
}

// openStream tries an exclusive-latency configuration first, then falls
// back to the device's default (shared-mode-equivalent) latency.
func (d *Driver) openStream() (*portaudio.Stream, []float32, error) {
	dev, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return nil, nil, err
	}
	buf := make([]float32, d.framesPer*2)

	exclusive := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 2,
			Latency:  dev.DefaultLowOutputLatency,
		},
		SampleRate:      float64(d.sampleRate),
		FramesPerBuffer: d.framesPer,
	}
	if stream, err := portaudio.OpenStream(exclusive, buf); err == nil {
		return stream, buf, nil
	}

	shared := exclusive
	shared.Output.Latency = dev.DefaultHighOutputLatency
	stream, err := portaudio.OpenStream(shared, buf)
	if err != nil {
		return nil, nil, err
	}
	return stream, buf, nil
}

// writeLoop is the realtime loop: fill buf via mix, write it, repeat,
// until the stream is stopped or an unrecoverable error occurs.
func (d *Driver) writeLoop() {
	for d.State() == StateStarted {
		d.mix(d.buf, d.framesPer)
		if err := d.stream.Write(); err != nil {
			d.handleStreamError()
			return
		}
	}
}

// handleStreamError implements the driver's recovery matrix: snapshot
// whether we were playing, reopen, restart if so, else surface
// ErrorAfterClose. Collapses concurrent error paths via the
// single-flight recovering flag.
func (d *Driver) handleStreamError() {
	if !d.recovering.CompareAndSwap(false, true) {
		return // another goroutine is already recovering
	}
	defer d.recovering.Store(false)

	log.Warn("output stream write failed, attempting recovery")

	wasStarted := d.State() == StateStarted

	d.mu.Lock()
	if d.stream != nil {
		d.stream.Close()
		d.stream = nil
	}
	d.mu.Unlock()

	stream, buf, err := d.openStream()
	if err != nil {
		log.Error("output stream recovery failed to reopen", "err", err)
		d.state.Store(int32(StateErrorAfterClose))
		return
	}

	d.mu.Lock()
	d.stream = stream
	d.buf = buf
	d.mu.Unlock()

	if wasStarted {
		if err := stream.Start(); err != nil {
			log.Error("output stream recovery failed to restart", "err", err)
			d.state.Store(int32(StateErrorAfterClose))
			return
		}
		log.Debug("output stream recovered, resuming playback")
		d.state.Store(int32(StateStarted))
		go d.writeLoop()
		return
	}
	log.Debug("output stream recovered, idle")
	d.state.Store(int32(StateOpen))
}

// Stop halts the write loop and the underlying stream but keeps it open.
// Start returns early while a stream is held, so it does not restart a
// stopped stream; after Close, Start opens and starts a new one.
func (d *Driver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stream == nil {
		return nil
	}
	d.state.Store(int32(StateStopped))
	return d.stream.Stop()
}

// Close stops and releases the output stream entirely.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stream == nil {
		return nil
	}
	err := d.stream.Close()
	d.stream = nil
	d.state.Store(int32(StateClosed))
	return err
}
