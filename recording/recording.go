// Package recording implements the microphone-to-file capture pipeline:
// a worker goroutine drains a capture.MicrophoneInput's ring buffer into
// an encode.Encoder, anchored to the master timeline at the instant
// recording began.
package recording

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shaban/trackengine/capture"
	"github.com/shaban/trackengine/encode"
	"github.com/shaban/trackengine/internal/jobqueue"
	"github.com/shaban/trackengine/internal/telemetry"
)

// Quality maps to a target bitrate in bits/sec when no explicit bitrate
// is given.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

var qualityBitrate = map[Quality]int{
	QualityLow:    64000,
	QualityMedium: 128000,
	QualityHigh:   192000,
}

// Config configures a recording session.
type Config struct {
	SampleRate    int
	Channels      int
	Format        encode.Format
	Quality       Quality // used if Bitrate is 0
	Bitrate       int
	BitsPerSample int // WAV only; defaults to 16
	Dir           string
}

// Result describes the outcome of one recording session.
type Result struct {
	URI              string
	DurationMs       float64
	StartTimeMs      float64
	StartTimeSamples int64
	SampleRate       int
	Channels         int
	Format           encode.Format
	Bitrate          int
	FileSize         int64
	Success          bool
	ErrorMessage     string
}

// Pipeline owns one recording session's mic input, encoder, and worker.
type Pipeline struct {
	mic *capture.MicrophoneInput
	enc encode.Encoder
	cfg Config

	path             string
	startTimeSamples int64
	startedAt        time.Time

	q    *jobqueue.Queue
	done chan struct{}

	log *telemetry.Logger
}

// resolveBitrate returns cfg.Bitrate if set, otherwise the bitrate for
// cfg.Quality (defaulting to medium).
func resolveBitrate(cfg Config) int {
	if cfg.Bitrate != 0 {
		return cfg.Bitrate
	}
	q := cfg.Quality
	if q == "" {
		q = QualityMedium
	}
	return qualityBitrate[q]
}

// resolveBits returns cfg.BitsPerSample or the WAV default of 16.
func resolveBits(cfg Config) int {
	if cfg.BitsPerSample != 0 {
		return cfg.BitsPerSample
	}
	return 16
}

// resolvePath returns path unchanged if non-empty, otherwise an
// auto-generated name under cfg.Dir (or the system temp dir).
func resolvePath(path string, cfg Config) string {
	if path != "" {
		return path
	}
	ext := ".wav"
	if cfg.Format == encode.FormatAAC {
		ext = ".aac"
	}
	dir := cfg.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, fmt.Sprintf("recording_%s%s", uuid.NewString(), ext))
}

// Start begins a new recording session at path (or an auto-generated name
// under cfg.Dir), anchored to clockPosition (the MasterClock position at
// the instant recording begins).
func Start(path string, cfg Config, clockPosition int64, playing bool) (*Pipeline, error) {
	bitrate := resolveBitrate(cfg)
	bits := resolveBits(cfg)
	path = resolvePath(path, cfg)

	enc, err := encode.New(encode.Options{
		Format:        cfg.Format,
		SampleRate:    cfg.SampleRate,
		Channels:      cfg.Channels,
		BitsPerSample: bits,
		BitrateBps:    bitrate,
	})
	if err != nil {
		return nil, fmt.Errorf("recording: %w", err)
	}
	if err := enc.Open(path, encode.Options{
		Format: cfg.Format, SampleRate: cfg.SampleRate, Channels: cfg.Channels,
		BitsPerSample: bits, BitrateBps: bitrate,
	}); err != nil {
		return nil, fmt.Errorf("recording: open %s: %w", path, err)
	}

	mic := capture.New(cfg.SampleRate, cfg.Channels, 512)
	if err := mic.Start(); err != nil {
		enc.Close()
		return nil, fmt.Errorf("recording: start mic: %w", err)
	}

	start := int64(0)
	if playing {
		start = clockPosition
	}

	p := &Pipeline{
		mic:              mic,
		enc:              enc,
		cfg:              cfg,
		path:             path,
		startTimeSamples: start,
		startedAt:        time.Now(),
		q:                jobqueue.New(1),
		done:             make(chan struct{}),
		log:              telemetry.New("recording"),
	}
	p.log.Debug("recording started", "path", path, "sample_rate", cfg.SampleRate, "channels", cfg.Channels, "start_time_samples", start)
	p.q.Start()
	p.q.Enqueue(jobqueue.Func(p.drainLoop))
	return p, nil
}

// drainLoop is the single recording worker: drain the mic ring into the
// encoder until ctx is canceled by Stop/Close.
func (p *Pipeline) drainLoop(ctx context.Context) error {
	defer close(p.done)
	staging := make([]float32, 4096*p.cfg.Channels)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	var lastDropped uint64

	for {
		n := p.mic.Read(staging)
		if n > 0 {
			p.enc.Write(staging[:n])
			continue
		}
		if dropped := p.mic.Dropped(); dropped > lastDropped {
			p.log.Warn("mic ring buffer overrun, samples dropped", "total_dropped", dropped)
			lastDropped = dropped
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Stop finalizes the recording: signals the worker, joins, flushes
// remaining frames, closes the encoder and mic, and returns the result.
func (p *Pipeline) Stop() Result {
	p.q.Close()
	<-p.done

	// Drain anything left in the ring buffer after the worker exits.
	staging := make([]float32, 4096*p.cfg.Channels)
	for {
		n := p.mic.Read(staging)
		if n == 0 {
			break
		}
		p.enc.Write(staging[:n])
	}

	frames := p.enc.FramesWritten()
	closeErr := p.enc.Close()
	p.mic.Stop()

	res := Result{
		URI:              p.path,
		StartTimeSamples: p.startTimeSamples,
		StartTimeMs:      float64(p.startTimeSamples) * 1000.0 / float64(p.cfg.SampleRate),
		SampleRate:       p.cfg.SampleRate,
		Channels:         p.cfg.Channels,
		Format:           p.cfg.Format,
		FileSize:         p.enc.FileSize(),
		Success:          closeErr == nil,
	}
	if frames > 0 {
		res.DurationMs = float64(frames) * 1000.0 / float64(p.cfg.SampleRate)
	}
	if closeErr != nil {
		res.ErrorMessage = closeErr.Error()
		p.log.Warn("recording finished with error", "path", p.path, "err", closeErr)
	} else {
		p.log.Debug("recording finished", "path", p.path, "duration_ms", res.DurationMs, "file_size", res.FileSize)
	}
	return res
}

// Level returns the microphone's current peak input level.
func (p *Pipeline) Level() float32 { return p.mic.Level() }

// SetGain sets the input-gain multiplier on the underlying mic input.
func (p *Pipeline) SetGain(g float32) { p.mic.SetGain(g) }
