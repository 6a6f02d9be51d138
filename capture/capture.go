// Package capture implements the microphone input path: a low-latency
// input loop that applies an atomic input-gain, tracks a peak level for
// metering, and pushes samples into an SPSC ring buffer for a worker
// thread to drain.
package capture

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
	"github.com/shaban/trackengine/internal/analyze"
	"github.com/shaban/trackengine/ringbuffer"
)

// secondsOfBuffer is the minimum ring buffer duration to absorb scheduling jitter.
const secondsOfBuffer = 2

// MicrophoneInput owns the input stream, its gain control, level meter,
// and the SPSC ring buffer the recording worker drains.
type MicrophoneInput struct {
	sampleRate int
	channels   int
	framesPer  int

	stream *portaudio.Stream
	buf    []float32
	ring   *ringbuffer.RingBuffer

	gain    atomic.Uint32 // float32 bits, default 1.0
	level   atomic.Uint32 // float32 bits, most recent peak
	running atomic.Bool

	dropped atomic.Uint64
}

// New constructs a MicrophoneInput matched to the requested sample rate
// and channel count, with a ring buffer sized to secondsOfBuffer audio.
func New(sampleRate, channels, framesPerBuffer int) *MicrophoneInput {
	m := &MicrophoneInput{
		sampleRate: sampleRate,
		channels:   channels,
		framesPer:  framesPerBuffer,
		ring:       ringbuffer.New(sampleRate * channels * secondsOfBuffer),
	}
	m.gain.Store(math.Float32bits(1))
	return m
}

// Start opens the default input device at the matched sample rate and
// begins the realtime capture loop.
func (m *MicrophoneInput) Start() error {
	if m.running.Load() {
		return nil
	}
	dev, err := portaudio.DefaultInputDevice()
	if err != nil {
		return fmt.Errorf("capture: default input device: %w", err)
	}
	m.buf = make([]float32, m.framesPer*m.channels)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: m.channels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(m.sampleRate),
		FramesPerBuffer: m.framesPer,
	}
	stream, err := portaudio.OpenStream(params, m.buf)
	if err != nil {
		return fmt.Errorf("capture: open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("capture: start stream: %w", err)
	}
	m.stream = stream
	m.running.Store(true)
	go m.readLoop()
	return nil
}

// Stop halts the capture loop and closes the input stream.
func (m *MicrophoneInput) Stop() error {
	if !m.running.CompareAndSwap(true, false) {
		return nil
	}
	if m.stream == nil {
		return nil
	}
	err := m.stream.Close()
	m.stream = nil
	return err
}

// readLoop is the realtime input callback equivalent: read a block,
// apply gain, measure peak level, push into the ring buffer. On overrun
// (the worker too slow) the part of the block that does not fit is
// dropped and counted: the older buffered samples are kept and the newest
// ones are lost. The loop never allocates.
func (m *MicrophoneInput) readLoop() {
	for m.running.Load() {
		if err := m.stream.Read(); err != nil {
			if m.running.Load() {
				m.dropped.Add(1)
			}
			continue
		}

		peak := applyGain(m.buf, math.Float32frombits(m.gain.Load()))
		m.level.Store(math.Float32bits(peak))

		written := m.ring.Write(m.buf)
		if written < len(m.buf) {
			m.dropped.Add(uint64(len(m.buf) - written))
		}
	}
}

// applyGain multiplies buf in place by gain and returns the peak absolute
// sample value, used both by the realtime loop and directly by tests.
func applyGain(buf []float32, gain float32) float32 {
	for i, s := range buf {
		buf[i] = s * gain
	}
	return analyze.Peak(buf)
}

// SetGain sets the linear input-gain multiplier applied in the capture loop.
func (m *MicrophoneInput) SetGain(g float32) {
	m.gain.Store(math.Float32bits(g))
}

// Gain returns the current input-gain multiplier.
func (m *MicrophoneInput) Gain() float32 {
	return math.Float32frombits(m.gain.Load())
}

// Level returns the most recent peak absolute input level, measured after
// the input gain is applied (so it can exceed 1 when the gain is above 1).
func (m *MicrophoneInput) Level() float32 {
	return math.Float32frombits(m.level.Load())
}

// Dropped returns the cumulative count of samples dropped due to overrun.
func (m *MicrophoneInput) Dropped() uint64 {
	return m.dropped.Load()
}

// Read drains up to len(dst) samples from the ring buffer for the
// recording worker. Returns the number of samples actually read.
func (m *MicrophoneInput) Read(dst []float32) int {
	return m.ring.Read(dst)
}

// Available reports how many samples the worker can currently read.
func (m *MicrophoneInput) Available() int {
	return m.ring.Available()
}

// SampleRate returns the configured capture sample rate.
func (m *MicrophoneInput) SampleRate() int { return m.sampleRate }

// Channels returns the configured capture channel count.
func (m *MicrophoneInput) Channels() int { return m.channels }
