// Package trackengine is the public entry point: AudioEngine composes a
// MasterClock, TimingManager, TransportController, MultiTrackMixer,
// OutputDriver, RecordingPipeline, and ExtractionPipeline behind a single
// control-plane façade, a pure-Go realtime mixing core with no native
// audio-framework dependency.
package trackengine

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shaban/trackengine/clock"
	"github.com/shaban/trackengine/encode"
	"github.com/shaban/trackengine/extraction"
	"github.com/shaban/trackengine/internal/config"
	"github.com/shaban/trackengine/internal/telemetry"
	"github.com/shaban/trackengine/output"
	"github.com/shaban/trackengine/recording"
	"github.com/shaban/trackengine/timing"
	"github.com/shaban/trackengine/transport"
)

const defaultFramesPerBuffer = 512

// AudioEngine is the single façade an embedder talks to. Initialize must
// be called once before any other method; Release tears it down.
type AudioEngine struct {
	log *telemetry.Logger

	sampleRate int
	maxTracks  int

	clockVal   *clock.MasterClock
	timingVal  *timing.Manager
	transport  *transport.Controller
	mixer      *MultiTrackMixer
	out        *output.Driver
	extraction *extraction.Pipeline

	tracksMu sync.Mutex
	tracks   map[string]*Track

	speed atomic.Uint32 // float32 bits, global playback speed, default 1.0

	recMu      sync.Mutex
	rec        *recording.Pipeline
	recDone    func(recording.Result)

	jobsMu sync.Mutex
	jobs   map[string]*extraction.Job
	jobSeq atomic.Uint64

	errMu      sync.Mutex
	errHandler ErrorHandlerFunc
	lastErr    *Error

	initialized atomic.Bool
}

// New constructs an uninitialized engine. Call Initialize before use.
func New() *AudioEngine {
	return &AudioEngine{
		tracks: make(map[string]*Track),
		jobs:   make(map[string]*extraction.Job),
		log:    telemetry.New("engine"),
	}
}

// Initialize creates the clock, timing manager, transport, mixer, output
// driver, and starts the extraction worker.
func (e *AudioEngine) Initialize(sampleRate, maxTracks int) error {
	return e.initialize(sampleRate, maxTracks, defaultFramesPerBuffer)
}

// InitializeFromConfig applies an EngineConfig loaded by internal/config
// (sample rate, track limit, and output buffer size) instead of hardcoded
// defaults.
func (e *AudioEngine) InitializeFromConfig(cfg config.EngineConfig) error {
	if err := cfg.Validate(); err != nil {
		return e.fail(newError(ErrInvalidArgument, "invalid engine config", err))
	}
	return e.initialize(cfg.SampleRate, cfg.MaxTracks, cfg.FramesPerBuffer)
}

func (e *AudioEngine) initialize(sampleRate, maxTracks, framesPerBuffer int) error {
	if sampleRate <= 0 || maxTracks <= 0 || framesPerBuffer <= 0 {
		return e.fail(newError(ErrInvalidArgument, "sample_rate, max_tracks, and frames_per_buffer must be positive", nil))
	}
	if e.initialized.Load() {
		return e.fail(newError(ErrInvalidState, "already initialized", nil))
	}

	e.sampleRate = sampleRate
	e.maxTracks = maxTracks
	e.clockVal = clock.New()
	e.timingVal = timing.New(sampleRate)
	e.transport = transport.New()
	e.mixer = NewMultiTrackMixer()
	e.extraction = extraction.New()
	e.speed.Store(math.Float32bits(1))

	e.out = output.New(sampleRate, framesPerBuffer, e.mixCallback)

	e.initialized.Store(true)
	e.log.Info("engine initialized", "sample_rate", sampleRate, "max_tracks", maxTracks, "frames_per_buffer", framesPerBuffer)
	return nil
}

// Release tears everything down in reverse order: cancels running
// extractions, stops playback, unloads tracks, closes the output.
func (e *AudioEngine) Release() {
	if !e.initialized.Load() {
		return
	}
	if e.extraction != nil {
		e.jobsMu.Lock()
		for _, job := range e.jobs {
			job.Cancel()
		}
		e.jobsMu.Unlock()
		e.extraction.Close()
	}
	e.Stop()
	e.UnloadAllTracks()
	if e.out != nil {
		e.out.Close()
	}
	e.initialized.Store(false)
}

// mixCallback is the output driver's MixFunc: mix the active tracks for
// this block, then advance the clock. Speed != 1 scales the clock advance
// so wall-clock-observable position tracks the global speed setting
// (see the stretch-semantics note on AudioEngine.SetSpeed).
func (e *AudioEngine) mixCallback(out []float32, frames int) {
	if !e.transport.IsPlaying() {
		for i := range out {
			out[i] = 0
		}
		return
	}
	pos := e.clockVal.Position()
	e.mixer.Mix(out, frames, pos)

	speed := math.Float32frombits(e.speed.Load())
	advance := int64(frames)
	if speed != 1 {
		advance = int64(math.Round(float64(frames) * float64(speed)))
	}
	e.clockVal.Advance(advance)
}

func (e *AudioEngine) fail(err *Error) error {
	e.errMu.Lock()
	e.lastErr = err
	handler := e.errHandler
	e.errMu.Unlock()
	if handler != nil {
		handler(err)
	}
	return err
}

func (e *AudioEngine) requireInitialized() error {
	if !e.initialized.Load() {
		return e.fail(newError(ErrNotInitialized, "engine not initialized", nil))
	}
	return nil
}

// --- Tracks -----------------------------------------------------------

// LoadTrack constructs a Track from path, attaches it to the mixer, and
// updates the cached duration.
func (e *AudioEngine) LoadTrack(id, path string, startMs float64) error {
	if err := e.requireInitialized(); err != nil {
		return err
	}
	if id == "" || path == "" {
		return e.fail(newError(ErrInvalidArgument, "id and path must be non-empty", nil))
	}

	e.tracksMu.Lock()
	if _, exists := e.tracks[id]; exists {
		e.tracksMu.Unlock()
		return e.fail(newError(ErrInvalidArgument, "track id already loaded: "+id, nil))
	}
	if len(e.tracks) >= e.maxTracks {
		e.tracksMu.Unlock()
		return e.fail(newError(ErrTrackLimitReached, "max_tracks reached", nil))
	}
	e.tracksMu.Unlock()

	t, err := LoadTrack(id, path, startMs, e.sampleRate)
	if err != nil {
		return e.fail(err.(*Error))
	}

	if pos := e.clockVal.Position(); pos > t.StartTimeSamples() {
		if seekErr := t.Seek(pos - t.StartTimeSamples()); seekErr != nil {
			t.Unload()
			return e.fail(seekErr.(*Error))
		}
	}

	e.tracksMu.Lock()
	e.tracks[id] = t
	e.tracksMu.Unlock()

	e.mixer.AddTrack(t, defaultFramesPerBuffer)
	e.recomputeDuration()
	return nil
}

// UnloadTrack removes and destroys the track with id.
func (e *AudioEngine) UnloadTrack(id string) error {
	if err := e.requireInitialized(); err != nil {
		return err
	}
	e.tracksMu.Lock()
	t, ok := e.tracks[id]
	if ok {
		delete(e.tracks, id)
	}
	e.tracksMu.Unlock()
	if !ok {
		return e.fail(newError(ErrTrackNotFound, "track not loaded: "+id, nil))
	}

	e.mixer.RemoveTrack(id)
	t.Unload()
	e.recomputeDuration()
	return nil
}

// UnloadAllTracks removes and destroys every loaded track. Idempotent.
func (e *AudioEngine) UnloadAllTracks() {
	e.tracksMu.Lock()
	ids := make([]string, 0, len(e.tracks))
	for id := range e.tracks {
		ids = append(ids, id)
	}
	e.tracksMu.Unlock()
	for _, id := range ids {
		e.UnloadTrack(id)
	}
}

// GetLoadedTrackIds returns the ids of every currently loaded track.
func (e *AudioEngine) GetLoadedTrackIds() []string {
	e.tracksMu.Lock()
	defer e.tracksMu.Unlock()
	ids := make([]string, 0, len(e.tracks))
	for id := range e.tracks {
		ids = append(ids, id)
	}
	return ids
}

func (e *AudioEngine) recomputeDuration() {
	e.tracksMu.Lock()
	var max int64
	for _, t := range e.tracks {
		end := t.StartTimeSamples() + t.TotalFrames()
		if end > max {
			max = end
		}
	}
	e.tracksMu.Unlock()
	e.timingVal.SetTotalFrames(max)
}

func (e *AudioEngine) trackByID(id string) (*Track, error) {
	e.tracksMu.Lock()
	defer e.tracksMu.Unlock()
	t, ok := e.tracks[id]
	if !ok {
		return nil, newError(ErrTrackNotFound, "track not loaded: "+id, nil)
	}
	return t, nil
}

// --- Transport ----------------------------------------------------------

// Play lazily starts the output and transitions to Playing.
func (e *AudioEngine) Play() error {
	if err := e.requireInitialized(); err != nil {
		return err
	}
	if !e.out.Healthy() {
		if err := e.out.Start(); err != nil {
			return e.fail(newError(ErrStreamError, "start output", err))
		}
	}
	e.transport.Play()
	return nil
}

// Pause transitions Playing into Paused, keeping the current position.
func (e *AudioEngine) Pause() error {
	if err := e.requireInitialized(); err != nil {
		return err
	}
	e.transport.Pause()
	return nil
}

// Stop transitions to Stopped and seeks to 0. Idempotent.
func (e *AudioEngine) Stop() error {
	if err := e.requireInitialized(); err != nil {
		return err
	}
	e.transport.Stop()
	return e.Seek(0)
}

// IsPlaying reports whether the transport is currently Playing.
func (e *AudioEngine) IsPlaying() bool { return e.transport.IsPlaying() }

// GetCurrentPosition returns the current timeline position in milliseconds.
func (e *AudioEngine) GetCurrentPosition() float64 {
	return e.timingVal.FramesToMs(e.clockVal.Position())
}

// GetDuration returns the cached total timeline duration in milliseconds.
func (e *AudioEngine) GetDuration() float64 { return e.timingVal.DurationMs() }

// Seek clamps ms to [0, duration], repositions the clock, and re-seeks
// every track to its local frame.
func (e *AudioEngine) Seek(ms float64) error {
	if err := e.requireInitialized(); err != nil {
		return err
	}
	if ms < 0 {
		ms = 0
	}
	duration := e.timingVal.DurationMs()
	if ms > duration {
		ms = duration
	}
	frame := e.timingVal.MsToFrames(ms)
	e.clockVal.SetPosition(frame)

	e.tracksMu.Lock()
	defer e.tracksMu.Unlock()
	for _, t := range e.tracks {
		local := frame - t.StartTimeSamples()
		if local < 0 {
			local = 0
		}
		if err := t.Seek(local); err != nil {
			return e.fail(err.(*Error))
		}
	}
	return nil
}

// --- Mixing / effects ---------------------------------------------------

// SetTrackVolume sets track id's linear volume.
func (e *AudioEngine) SetTrackVolume(id string, v float32) error {
	t, err := e.trackByID(id)
	if err != nil {
		return e.fail(err.(*Error))
	}
	t.SetVolume(v)
	return nil
}

// SetTrackMuted sets track id's mute state.
func (e *AudioEngine) SetTrackMuted(id string, muted bool) error {
	t, err := e.trackByID(id)
	if err != nil {
		return e.fail(err.(*Error))
	}
	t.SetMuted(muted)
	return nil
}

// SetTrackSolo sets track id's solo state.
func (e *AudioEngine) SetTrackSolo(id string, solo bool) error {
	t, err := e.trackByID(id)
	if err != nil {
		return e.fail(err.(*Error))
	}
	t.SetSolo(solo)
	return nil
}

// SetTrackPan sets track id's pan position.
func (e *AudioEngine) SetTrackPan(id string, pan float32) error {
	t, err := e.trackByID(id)
	if err != nil {
		return e.fail(err.(*Error))
	}
	t.SetPan(pan)
	return nil
}

// SetMasterVolume sets the mixer's master gain.
func (e *AudioEngine) SetMasterVolume(v float32) { e.mixer.SetMasterGain(v) }

// GetMasterVolume returns the mixer's master gain.
func (e *AudioEngine) GetMasterVolume() float32 { return e.mixer.MasterGain() }

// SetTrackPitch sets track id's pitch shift in semitones.
func (e *AudioEngine) SetTrackPitch(id string, semitones float64) error {
	t, err := e.trackByID(id)
	if err != nil {
		return e.fail(err.(*Error))
	}
	t.SetPitch(semitones)
	return nil
}

// GetTrackPitch returns track id's current pitch shift.
func (e *AudioEngine) GetTrackPitch(id string) (float64, error) {
	t, err := e.trackByID(id)
	if err != nil {
		return 0, e.fail(err.(*Error))
	}
	return t.Pitch(), nil
}

// SetTrackSpeed sets track id's playback-rate ratio.
func (e *AudioEngine) SetTrackSpeed(id string, rate float64) error {
	t, err := e.trackByID(id)
	if err != nil {
		return e.fail(err.(*Error))
	}
	t.SetStretch(rate)
	return nil
}

// GetTrackSpeed returns track id's current playback-rate ratio.
func (e *AudioEngine) GetTrackSpeed(id string) (float64, error) {
	t, err := e.trackByID(id)
	if err != nil {
		return 0, e.fail(err.(*Error))
	}
	return t.Stretch(), nil
}

// SetPitch broadcasts a pitch shift to every loaded track's effect unit.
func (e *AudioEngine) SetPitch(semitones float64) {
	e.tracksMu.Lock()
	defer e.tracksMu.Unlock()
	for _, t := range e.tracks {
		t.SetPitch(semitones)
	}
}

// SetSpeed broadcasts a playback-rate ratio to every track's effect unit
// AND scales how fast the master clock advances, so GetCurrentPosition
// reflects the new speed.
func (e *AudioEngine) SetSpeed(rate float64) {
	e.tracksMu.Lock()
	for _, t := range e.tracks {
		t.SetStretch(rate)
	}
	e.tracksMu.Unlock()
	e.speed.Store(math.Float32bits(float32(rate)))
}

// --- Recording -----------------------------------------------------------

// StartRecording begins capturing the microphone to path, anchoring the
// result's start_time_samples to the clock position if currently Playing.
func (e *AudioEngine) StartRecording(path string, cfg recording.Config, completion func(recording.Result)) error {
	if err := e.requireInitialized(); err != nil {
		return err
	}
	e.recMu.Lock()
	defer e.recMu.Unlock()
	if e.rec != nil {
		return e.fail(newError(ErrInvalidState, "already recording", nil))
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = e.sampleRate
	}
	if cfg.Channels == 0 {
		cfg.Channels = 2
	}

	r, err := recording.Start(path, cfg, e.clockVal.Position(), e.transport.IsPlaying())
	if err != nil {
		return e.fail(newError(ErrRecordingFailed, "start recording", err))
	}
	if !e.transport.IsPlaying() {
		e.transport.BeginRecording()
	}
	e.rec = r
	e.recDone = completion
	return nil
}

// StopRecording finalizes the in-flight recording, invokes the
// completion callback passed to StartRecording, and returns the result.
func (e *AudioEngine) StopRecording() recording.Result {
	e.recMu.Lock()
	defer e.recMu.Unlock()
	if e.rec == nil {
		return recording.Result{ErrorMessage: "not recording"}
	}
	res := e.rec.Stop()
	e.rec = nil
	if e.transport.Current() == transport.Recording {
		e.transport.Stop()
	}
	if e.recDone != nil {
		e.recDone(res)
		e.recDone = nil
	}
	return res
}

// IsRecording reports whether a recording session is in flight.
func (e *AudioEngine) IsRecording() bool {
	e.recMu.Lock()
	defer e.recMu.Unlock()
	return e.rec != nil
}

// GetInputLevel returns the current microphone peak level, or 0 if not recording.
func (e *AudioEngine) GetInputLevel() float32 {
	e.recMu.Lock()
	defer e.recMu.Unlock()
	if e.rec == nil {
		return 0
	}
	return e.rec.Level()
}

// SetRecordingVolume sets the input-gain multiplier on the in-flight recording.
func (e *AudioEngine) SetRecordingVolume(g float32) {
	e.recMu.Lock()
	defer e.recMu.Unlock()
	if e.rec != nil {
		e.rec.SetGain(g)
	}
}

// --- Extraction -----------------------------------------------------------

var extractionLog = telemetry.New("extraction-source")

// trackReadyPollInterval and trackReadyTimeout bound how long trackSource.ReadInto
// waits for the streaming thread to catch up before falling back to
// Track.ReadSamples's silence-padded behavior, so an extraction render
// that outpaces decode gets real samples instead of silence whenever the
// decoder can keep up within this budget.
const (
	trackReadyPollInterval = time.Millisecond
	trackReadyTimeout      = 500 * time.Millisecond
)

// trackSource adapts a Track to extraction.Source.
type trackSource struct{ t *Track }

func (s trackSource) Seek(frame int64) error { return s.t.Seek(frame) }

func (s trackSource) ReadInto(dst []float32, n int) int {
	needed := n * s.t.Channels
	deadline := time.Now().Add(trackReadyTimeout)
	for s.t.ring.Available() < needed && time.Now().Before(deadline) {
		time.Sleep(trackReadyPollInterval)
	}
	if s.t.ring.Available() < needed {
		extractionLog.Warn("extraction outpaced decode, padding with silence", "id", s.t.ID, "wanted", needed, "available", s.t.ring.Available())
	}
	return s.t.ReadSamples(dst, n)
}

func (s trackSource) TotalFrames() int64 { return s.t.TotalFrames() }
func (s trackSource) Channels() int      { return s.t.Channels }

// mixSource adapts the engine's mixer to extraction.Source for a full-mix render.
type mixSource struct {
	e *AudioEngine
	timelineStart int64
}

func (s *mixSource) Seek(frame int64) error {
	s.timelineStart = frame
	e := s.e
	e.tracksMu.Lock()
	defer e.tracksMu.Unlock()
	for _, t := range e.tracks {
		local := frame - t.StartTimeSamples()
		if local < 0 {
			local = 0
		}
		if err := t.Seek(local); err != nil {
			return err
		}
	}
	return nil
}

// ReadInto mixes one block across every loaded track. Unlike trackSource,
// it has no single ring buffer to wait on, so it doesn't apply
// trackSource's decode-readiness wait; a full-mix render that outpaces
// the slowest track's decoder gets that track's silence padding for the
// affected block.
func (s *mixSource) ReadInto(dst []float32, frames int) int {
	s.e.mixer.Mix(dst, frames, s.timelineStart)
	s.timelineStart += int64(frames)
	return frames
}

func (s *mixSource) TotalFrames() int64 { return s.e.timingVal.TotalFrames() }
func (s *mixSource) Channels() int      { return 2 }

// StartExtractTrack enqueues an offline render of track id to path.
func (e *AudioEngine) StartExtractTrack(id, path string, format encode.Format, progress func(frame, total int64), completion func(extraction.Result)) (string, error) {
	if err := e.requireInitialized(); err != nil {
		return "", err
	}
	if e.transport.IsPlaying() {
		return "", e.fail(newError(ErrInvalidState, "cannot extract while playing", nil))
	}
	t, err := e.trackByID(id)
	if err != nil {
		return "", e.fail(err.(*Error))
	}
	jobID := fmt.Sprintf("extract-%s-%d", id, e.nextJobSeq())
	job, err := e.extraction.Start(jobID, path, trackSource{t: t}, e.sampleRate, t.Channels, format, progress, e.wrapExtractionDone(jobID, completion))
	if err != nil {
		return "", e.fail(newError(ErrExtractionFailed, "start extraction", err))
	}
	e.registerJob(jobID, job)
	return jobID, nil
}

// StartExtractAll enqueues an offline render of the full mix to path.
func (e *AudioEngine) StartExtractAll(path string, format encode.Format, progress func(frame, total int64), completion func(extraction.Result)) (string, error) {
	if err := e.requireInitialized(); err != nil {
		return "", err
	}
	if e.transport.IsPlaying() {
		return "", e.fail(newError(ErrInvalidState, "cannot extract while playing", nil))
	}
	e.tracksMu.Lock()
	n := len(e.tracks)
	e.tracksMu.Unlock()
	if n == 0 {
		return "", e.fail(newError(ErrInvalidArgument, "no tracks loaded", nil))
	}
	jobID := fmt.Sprintf("extract-all-%d", e.nextJobSeq())
	src := &mixSource{e: e}
	job, err := e.extraction.Start(jobID, path, src, e.sampleRate, 2, format, progress, e.wrapExtractionDone(jobID, completion))
	if err != nil {
		return "", e.fail(newError(ErrExtractionFailed, "start extraction", err))
	}
	e.registerJob(jobID, job)
	return jobID, nil
}

func (e *AudioEngine) nextJobSeq() uint64 { return e.jobSeq.Add(1) }

func (e *AudioEngine) registerJob(id string, job *extraction.Job) {
	e.jobsMu.Lock()
	defer e.jobsMu.Unlock()
	e.jobs[id] = job
}

// wrapExtractionDone removes jobID from the running-job table once the
// render finishes, then forwards to the caller's completion callback.
func (e *AudioEngine) wrapExtractionDone(jobID string, completion func(extraction.Result)) func(extraction.Result) {
	return func(res extraction.Result) {
		e.jobsMu.Lock()
		delete(e.jobs, jobID)
		e.jobsMu.Unlock()
		if completion != nil {
			completion(res)
		}
	}
}

// CancelExtraction sets jobID's cancel flag if it is still running.
func (e *AudioEngine) CancelExtraction(jobID string) bool {
	e.jobsMu.Lock()
	defer e.jobsMu.Unlock()
	job, ok := e.jobs[jobID]
	if !ok {
		return false
	}
	job.Cancel()
	return true
}

// IsExtractionRunning reports whether jobID is still tracked as running.
func (e *AudioEngine) IsExtractionRunning(jobID string) bool {
	e.jobsMu.Lock()
	defer e.jobsMu.Unlock()
	_, ok := e.jobs[jobID]
	return ok
}

// --- Diagnostics -----------------------------------------------------------

// SetErrorCallback registers fn to be invoked synchronously on every
// control-plane failure.
func (e *AudioEngine) SetErrorCallback(fn ErrorHandlerFunc) {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	e.errHandler = fn
}

// GetLastErrorCode returns the kind of the most recent failure, or "" if none.
func (e *AudioEngine) GetLastErrorCode() ErrorKind {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	if e.lastErr == nil {
		return ""
	}
	return e.lastErr.Kind
}

// GetLastErrorMessage returns the most recent failure's message, or "" if none.
func (e *AudioEngine) GetLastErrorMessage() string {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	if e.lastErr == nil {
		return ""
	}
	return e.lastErr.Error()
}
