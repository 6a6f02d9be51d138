// Package extraction implements the offline, non-realtime rendering
// pipeline: pull-render one track or the full mix to a file, block by
// block, off the realtime thread, with cancellation and progress
// reporting.
package extraction

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/shaban/trackengine/encode"
	"github.com/shaban/trackengine/internal/jobqueue"
	"github.com/shaban/trackengine/internal/telemetry"
)

var log = telemetry.New("extraction")

// blockFrames is the render chunk size.
const blockFrames = 4096

// Source is the minimal surface extraction needs from either a single
// Track or a MultiTrackMixer, letting single-track and full-mix renders
// share one rendering loop.
type Source interface {
	Seek(frame int64) error
	ReadInto(dst []float32, frames int) int
	TotalFrames() int64
	Channels() int
}

// Result describes the outcome of one extraction render.
type Result struct {
	URI          string
	DurationMs   float64
	SampleRate   int
	Channels     int
	Format       encode.Format
	FileSize     int64
	Success      bool
	Cancelled    bool
	ErrorMessage string
}

// Job is one in-flight or completed extraction, identified by ID and
// individually cancellable.
type Job struct {
	ID     string
	cancel atomic.Bool
}

// Cancel requests the job stop at its next block boundary.
func (j *Job) Cancel() { j.cancel.Store(true) }

// Cancelled reports whether Cancel has been called.
func (j *Job) Cancelled() bool { return j.cancel.Load() }

// Pipeline serializes extraction jobs onto a single worker goroutine so
// rendering never competes with the realtime mix thread.
type Pipeline struct {
	q *jobqueue.Queue
}

// New starts the extraction worker.
func New() *Pipeline {
	p := &Pipeline{q: jobqueue.New(32)}
	p.q.Start()
	return p
}

// Close stops accepting new jobs and waits for the worker to drain.
func (p *Pipeline) Close() { p.q.Close() }

// Start enqueues a render of src to path in the given format, sample
// rate, and channel count, invoking progressCb at most once per block
// and done exactly once on completion. It returns a Job handle the
// caller may Cancel.
func (p *Pipeline) Start(id, path string, src Source, sampleRate, channels int, format encode.Format, progressCb func(frame, total int64), done func(Result)) (*Job, error) {
	job := &Job{ID: id}

	enc, err := encode.New(encode.Options{Format: format, SampleRate: sampleRate, Channels: channels, BitsPerSample: 16})
	if err != nil {
		return nil, fmt.Errorf("extraction: %w", err)
	}

	op := jobqueue.Func(func(ctx context.Context) error {
		res := render(job, path, src, enc, sampleRate, channels, format, progressCb)
		if done != nil {
			done(res)
		}
		return nil
	})
	if err := p.q.Enqueue(op); err != nil {
		return nil, fmt.Errorf("extraction: enqueue: %w", err)
	}
	return job, nil
}

func render(job *Job, path string, src Source, enc encode.Encoder, sampleRate, channels int, format encode.Format, progressCb func(frame, total int64)) Result {
	res := Result{URI: path, SampleRate: sampleRate, Channels: channels, Format: format}
	log.Debug("extraction started", "job_id", job.ID, "path", path)

	if err := src.Seek(0); err != nil {
		res.ErrorMessage = err.Error()
		log.Warn("extraction failed to seek source", "job_id", job.ID, "err", err)
		return res
	}
	if err := enc.Open(path, encode.Options{Format: format, SampleRate: sampleRate, Channels: channels, BitsPerSample: 16}); err != nil {
		res.ErrorMessage = err.Error()
		log.Warn("extraction failed to open encoder", "job_id", job.ID, "path", path, "err", err)
		return res
	}

	total := src.TotalFrames()
	staging := make([]float32, blockFrames*channels)
	var rendered int64

	for rendered < total {
		if job.Cancelled() {
			res.Cancelled = true
			log.Debug("extraction cancelled", "job_id", job.ID, "rendered", rendered, "total", total)
			break
		}
		want := int64(blockFrames)
		if remaining := total - rendered; remaining < want {
			want = remaining
		}
		n := src.ReadInto(staging, int(want))
		if n == 0 {
			break
		}
		enc.Write(staging[:n*channels])
		rendered += int64(n)
		if progressCb != nil {
			progressCb(rendered, total)
		}
	}

	frames := enc.FramesWritten()
	closeErr := enc.Close()
	if closeErr != nil {
		res.ErrorMessage = closeErr.Error()
	}
	if info, statErr := os.Stat(path); statErr == nil {
		res.FileSize = info.Size()
	}
	res.Success = closeErr == nil && !res.Cancelled
	if frames > 0 {
		res.DurationMs = float64(frames) * 1000.0 / float64(sampleRate)
	}
	if closeErr != nil {
		log.Warn("extraction finished with error", "job_id", job.ID, "path", path, "err", closeErr)
	} else {
		log.Debug("extraction finished", "job_id", job.ID, "path", path, "duration_ms", res.DurationMs, "cancelled", res.Cancelled)
	}
	return res
}
