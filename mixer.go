package trackengine

import (
	"math"
	"sync"
	"sync/atomic"
)

// MultiTrackMixer holds the mutex-protected ordered set of loaded tracks
// and an atomic master gain, and performs the timeline-aware sum across
// all loaded tracks. Scratch is sized by AddTrack; Mix allocates only when
// a track's block (frames × channels) exceeds that scratch, and the
// allocation is not kept for later calls.
type MultiTrackMixer struct {
	mu         sync.Mutex
	tracks     []*Track
	masterGain atomic.Uint32 // float32 bits, default 1.0

	scratch []float32 // per-track contribution buffer, sized in AddTrack
}

// NewMultiTrackMixer returns an empty mixer at unity master gain.
func NewMultiTrackMixer() *MultiTrackMixer {
	m := &MultiTrackMixer{}
	m.SetMasterGain(1)
	return m
}

// AddTrack attaches t to the mix. The mixer holds a non-owning reference;
// the Track is destroyed by the caller only after RemoveTrack.
func (m *MultiTrackMixer) AddTrack(t *Track, maxBlockFrames int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracks = append(m.tracks, t)
	if need := maxBlockFrames * 2; cap(m.scratch) < need {
		m.scratch = make([]float32, need)
	}
}

// RemoveTrack detaches the track with id, if present.
func (m *MultiTrackMixer) RemoveTrack(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.tracks {
		if t.ID == id {
			m.tracks = append(m.tracks[:i], m.tracks[i+1:]...)
			return
		}
	}
}

// Tracks returns a snapshot copy of the currently attached tracks.
func (m *MultiTrackMixer) Tracks() []*Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Track, len(m.tracks))
	copy(out, m.tracks)
	return out
}

// SetMasterGain sets the linear master gain multiplier.
func (m *MultiTrackMixer) SetMasterGain(g float32) {
	m.masterGain.Store(math.Float32bits(g))
}

// MasterGain returns the current master gain.
func (m *MultiTrackMixer) MasterGain() float32 {
	return math.Float32frombits(m.masterGain.Load())
}

// Mix sums every eligible track into output (stereo interleaved, frames
// frames), applies master gain, and soft-clips to [-1, 1]. timelineStart
// is the MasterClock position at the start of this block.
func (m *MultiTrackMixer) Mix(output []float32, frames int, timelineStart int64) {
	need := frames * 2
	if len(output) < need {
		need = len(output)
	}
	for i := 0; i < need; i++ {
		output[i] = 0
	}

	m.mu.Lock()
	tracks := m.tracks
	scratch := m.scratch
	m.mu.Unlock()

	anySolo := false
	for _, t := range tracks {
		if t.Solo() {
			anySolo = true
			break
		}
	}

	for _, t := range tracks {
		if !t.isLoaded() || t.Muted() {
			continue
		}
		if anySolo && !t.Solo() {
			continue
		}

		trackFrame := timelineStart - t.StartTimeSamples()
		if trackFrame+int64(frames) <= 0 {
			continue // fully before this track's start
		}

		writeOffsetFrames := 0
		readFrames := frames
		if trackFrame < 0 {
			writeOffsetFrames = int(-trackFrame)
			readFrames = frames - writeOffsetFrames
		}
		if readFrames <= 0 {
			continue
		}

		contribNeed := readFrames * t.Channels
		if cap(scratch) < contribNeed {
			scratch = make([]float32, contribNeed)
		}
		buf := scratch[:contribNeed]
		t.ReadSamples(buf, readFrames)

		outBase := writeOffsetFrames * 2
		if t.Channels == 1 {
			for f := 0; f < readFrames; f++ {
				idx := outBase + f*2
				if idx+1 >= need {
					break
				}
				output[idx] += buf[f]
				output[idx+1] += buf[f]
			}
		} else {
			for f := 0; f < readFrames; f++ {
				idx := outBase + f*2
				src := f * 2
				if idx+1 >= need || src+1 >= len(buf) {
					break
				}
				output[idx] += buf[src]
				output[idx+1] += buf[src+1]
			}
		}
	}

	gain := m.MasterGain()
	for i := 0; i < need; i++ {
		v := output[i] * gain
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		output[i] = v
	}
}
