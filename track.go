package trackengine

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shaban/trackengine/decode"
	"github.com/shaban/trackengine/internal/telemetry"
	"github.com/shaban/trackengine/ringbuffer"
	"github.com/shaban/trackengine/stretch"
)

// streamBlockFrames is the chunk size the streaming thread decodes at a
// time.
const streamBlockFrames = 4096

// trackParams packs every control-thread-mutable scalar for a Track into
// one struct behind a single atomic.Pointer, so ReadSamples always
// observes a consistent snapshot instead of torn reads across fields.
type trackParams struct {
	volume float32
	pan    float32
	muted  bool
	solo   bool
}

// Track owns a Decoder, a RingBuffer, a streaming goroutine, and a
// TimeStretch unit. Track is safe for
// concurrent use: the control thread calls the setters and Seek; the
// realtime mixing thread calls only ReadSamples.
type Track struct {
	ID       string
	Path     string
	Channels int
	Format   decode.Format

	startTimeSamples atomic.Int64

	stretchUnit stretch.Unit

	dec  decode.Decoder
	ring *ringbuffer.RingBuffer

	params atomic.Pointer[trackParams]

	mu       sync.Mutex // guards streaming lifecycle only, never held by ReadSamples
	shutdown chan struct{}
	done     chan struct{}
	wake     chan struct{}

	scratch []float32 // ReadSamples de-interleave/stretch scratch

	log *telemetry.Logger
}

// LoadTrack opens path, allocates a ring buffer sized to at least one
// second of source audio, and starts the decode thread.
func LoadTrack(id, path string, startMs float64, sampleRate int) (*Track, error) {
	dec, err := decode.Open(path)
	if err != nil {
		return nil, newError(ErrDecoderOpenFailed, "open "+path, err)
	}
	format := dec.Format()

	capacity := format.SampleRate * format.Channels
	if capacity < format.Channels {
		capacity = format.Channels
	}

	t := &Track{
		ID:       id,
		Path:     path,
		Channels: format.Channels,
		Format:   format,
		dec:      dec,
		ring:     ringbuffer.New(capacity),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		wake:     make(chan struct{}, 1),
		log:      telemetry.New("track"),
	}
	t.params.Store(&trackParams{volume: 1})
	t.startTimeSamples.Store(int64(math.Round(startMs * float64(sampleRate) / 1000.0)))

	t.log.Debug("track loaded", "id", id, "path", path, "sample_rate", format.SampleRate, "channels", format.Channels)
	go t.streamLoop()
	return t, nil
}

// Unload signals the streaming goroutine to exit, joins it, and releases
// the decoder. Safe to call once.
func (t *Track) Unload() {
	t.mu.Lock()
	defer t.mu.Unlock()
	select {
	case <-t.shutdown:
		return // already unloaded
	default:
		close(t.shutdown)
	}
	<-t.done
	t.dec.Close()
}

// streamLoop is the per-track producer: decode a block, push it into the
// ring buffer, repeat. It never touches atomics ReadSamples depends on
// except through the ring buffer itself.
func (t *Track) streamLoop() {
	defer close(t.done)
	block := make([]float32, streamBlockFrames*t.Channels)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	ended := false

	for {
		select {
		case <-t.shutdown:
			return
		default:
		}

		if t.ring.FreeSpace() < len(block) {
			select {
			case <-t.shutdown:
				return
			case <-t.wake:
			case <-ticker.C:
			}
			continue
		}

		n, err := t.dec.Read(block)
		if n > 0 {
			// A short write here would mean FreeSpace lied between the
			// check above and now; impossible under single-producer use.
			t.ring.Write(block[:n*t.Channels])
		}
		if err != nil || n < streamBlockFrames {
			if !ended {
				ended = true
				if err != nil {
					t.log.Warn("decoder read error, stopping producer", "id", t.ID, "err", err)
				} else {
					t.log.Debug("decoder reached end of stream", "id", t.ID)
				}
			}
			// EOF or error: stop producing, idle until unload.
			select {
			case <-t.shutdown:
				return
			case <-ticker.C:
			}
		}
	}
}

func (t *Track) snapshotParams() trackParams {
	return *t.params.Load()
}

func (t *Track) mutateParams(f func(*trackParams)) {
	for {
		old := t.params.Load()
		next := *old
		f(&next)
		if t.params.CompareAndSwap(old, &next) {
			return
		}
	}
}

// SetVolume sets the linear gain applied in ReadSamples, clamped to [0,2].
func (t *Track) SetVolume(v float32) {
	if v < 0 {
		v = 0
	} else if v > 2 {
		v = 2
	}
	t.mutateParams(func(p *trackParams) { p.volume = v })
}

// Volume returns the current linear gain.
func (t *Track) Volume() float32 { return t.snapshotParams().volume }

// SetPan sets the equal-power pan position, clamped to [-1,1].
func (t *Track) SetPan(p float32) {
	if p < -1 {
		p = -1
	} else if p > 1 {
		p = 1
	}
	t.mutateParams(func(tp *trackParams) { tp.pan = p })
}

// Pan returns the current pan position.
func (t *Track) Pan() float32 { return t.snapshotParams().pan }

// SetMuted sets whether the track contributes silence to the mix.
func (t *Track) SetMuted(m bool) { t.mutateParams(func(p *trackParams) { p.muted = m }) }

// Muted reports the current mute state.
func (t *Track) Muted() bool { return t.snapshotParams().muted }

// SetSolo sets whether the track is in the mixer's solo set.
func (t *Track) SetSolo(s bool) { t.mutateParams(func(p *trackParams) { p.solo = s }) }

// Solo reports the current solo state.
func (t *Track) Solo() bool { return t.snapshotParams().solo }

// SetPitch sets the pitch shift in semitones, clamped to [-12,12].
func (t *Track) SetPitch(semitones float64) {
	if semitones < -12 {
		semitones = -12
	} else if semitones > 12 {
		semitones = 12
	}
	t.stretchUnit.SetPitch(semitones)
}

// Pitch returns the current pitch shift in semitones.
func (t *Track) Pitch() float64 { return t.stretchUnit.Pitch() }

// SetStretch sets the playback-rate ratio, clamped to [0.5,2.0].
func (t *Track) SetStretch(rate float64) {
	if rate < 0.5 {
		rate = 0.5
	} else if rate > 2.0 {
		rate = 2.0
	}
	t.stretchUnit.SetRate(rate)
}

// Stretch returns the current playback-rate ratio.
func (t *Track) Stretch() float64 { return t.stretchUnit.Rate() }

// StartTimeSamples returns the timeline frame at which this track begins.
func (t *Track) StartTimeSamples() int64 { return t.startTimeSamples.Load() }

// SetStartTimeSamples repositions the track's start time on the shared
// timeline. Control-thread only.
func (t *Track) SetStartTimeSamples(frame int64) { t.startTimeSamples.Store(frame) }

// TotalFrames reports the source's total frame count.
func (t *Track) TotalFrames() int64 { return t.Format.TotalFrames }

// Seek moves the track to localFrame (already translated from timeline
// coordinates by the caller). It pauses the streaming goroutine, resets
// the ring buffer and TimeStretch, reseeks the decoder, then resumes.
func (t *Track) Seek(localFrame int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if localFrame < 0 {
		localFrame = 0
	}
	if localFrame > t.Format.TotalFrames {
		localFrame = t.Format.TotalFrames
	}

	t.ring.Reset()
	if err := t.dec.Seek(localFrame); err != nil {
		return newError(ErrSeekFailed, "seek track "+t.ID, err)
	}
	t.stretchUnit.Reset()
	select {
	case t.wake <- struct{}{}:
	default:
	}
	return nil
}

// ReadSamples fills dst (interleaved, t.Channels channels, frames frames).
// Muted tracks emit silence; otherwise the ring buffer
// is drained (short reads padded with silence), run through TimeStretch
// if active, then volume and equal-power pan are applied. Called only
// from the realtime mixing thread; never allocates once scratch has
// grown to the largest requested block.
func (t *Track) ReadSamples(dst []float32, frames int) int {
	p := t.snapshotParams()
	need := frames * t.Channels
	if len(dst) < need {
		need = len(dst)
	}

	if p.muted {
		for i := 0; i < need; i++ {
			dst[i] = 0
		}
		return frames
	}

	if cap(t.scratch) < need {
		t.scratch = make([]float32, need)
	}
	raw := t.scratch[:need]

	n := t.ring.Read(raw)
	for i := n; i < need; i++ {
		raw[i] = 0 // underrun: pad with silence
	}

	select {
	case t.wake <- struct{}{}:
	default:
	}

	if t.stretchUnit.IsActive() {
		t.stretchUnit.Process(raw, frames, dst[:need], frames, t.Channels)
	} else {
		copy(dst[:need], raw)
	}

	leftGain := float32(math.Cos(float64(p.pan+1) * math.Pi / 4))
	rightGain := float32(math.Sin(float64(p.pan+1) * math.Pi / 4))

	if t.Channels == 2 {
		for i := 0; i+1 < need; i += 2 {
			dst[i] = dst[i] * p.volume * leftGain
			dst[i+1] = dst[i+1] * p.volume * rightGain
		}
	} else {
		for i := 0; i < need; i++ {
			dst[i] = dst[i] * p.volume
		}
	}

	for i := need; i < len(dst); i++ {
		dst[i] = 0
	}
	return frames
}

// isLoaded reports whether the track's decoder still holds an open source.
func (t *Track) isLoaded() bool {
	return t.dec != nil && t.dec.IsOpen()
}
