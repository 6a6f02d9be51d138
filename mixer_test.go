package trackengine

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shaban/trackengine/internal/analyze"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMixedTrack(t *testing.T, name string, channels, sampleRate, frames int, startMs float64) *Track {
	t.Helper()
	path := filepath.Join(t.TempDir(), name+".wav")
	writeTestTrackWav(t, path, channels, sampleRate, frames)
	tr, err := LoadTrack(name, path, startMs, sampleRate)
	require.NoError(t, err)
	waitForFrames(t, tr, frames*channels)
	return tr
}

func TestMixerSoftClipsOutOfRangeSum(t *testing.T) {
	mixer := NewMultiTrackMixer()
	a := newMixedTrack(t, "a", 2, 44100, 64, 0)
	b := newMixedTrack(t, "b", 2, 44100, 64, 0)
	defer a.Unload()
	defer b.Unload()
	a.SetVolume(2)
	b.SetVolume(2)
	mixer.AddTrack(a, 64)
	mixer.AddTrack(b, 64)

	out := make([]float32, 64*2)
	mixer.Mix(out, 64, 0)
	for _, v := range out {
		assert.LessOrEqual(t, v, float32(1.0))
		assert.GreaterOrEqual(t, v, float32(-1.0))
	}
}

func TestMixerSoloExcludesNonSoloTracks(t *testing.T) {
	mixer := NewMultiTrackMixer()
	a := newMixedTrack(t, "a", 1, 44100, 32, 0)
	b := newMixedTrack(t, "b", 1, 44100, 32, 0)
	defer a.Unload()
	defer b.Unload()
	mixer.AddTrack(a, 32)
	mixer.AddTrack(b, 32)

	a.SetSolo(true)
	out := make([]float32, 32*2)
	mixer.Mix(out, 32, 0)

	// b muted by solo: removing it from the mix should not change the sum.
	mixer.RemoveTrack("b")
	a.Seek(0)
	waitForFrames(t, a, 32)
	out2 := make([]float32, 32*2)
	mixer.Mix(out2, 32, 0)
	assert.InDeltaSlice(t, out, out2, 0.05)
}

func TestMixerSkipsTrackBeforeStart(t *testing.T) {
	mixer := NewMultiTrackMixer()
	a := newMixedTrack(t, "a", 1, 44100, 32, 1000) // starts 1s into the timeline
	defer a.Unload()
	mixer.AddTrack(a, 32)

	out := make([]float32, 32*2)
	mixer.Mix(out, 32, 0) // timeline at 0, well before the track's start
	for _, v := range out {
		assert.Equal(t, float32(0), v)
	}
}

func TestMixerMasterGainScalesOutput(t *testing.T) {
	mixer := NewMultiTrackMixer()
	a := newMixedTrack(t, "a", 1, 44100, 16, 0)
	defer a.Unload()
	mixer.AddTrack(a, 16)
	mixer.SetMasterGain(0)

	out := make([]float32, 16*2)
	mixer.Mix(out, 16, 0)
	for _, v := range out {
		assert.Equal(t, float32(0), v)
	}
}

func TestMixerConcurrentMixAndParamWritesDoNotRace(t *testing.T) {
	mixer := NewMultiTrackMixer()
	a := newMixedTrack(t, "a", 2, 44100, 4096, 0)
	defer a.Unload()
	mixer.AddTrack(a, 256)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		out := make([]float32, 256*2)
		for {
			select {
			case <-stop:
				return
			default:
				mixer.Mix(out, 256, 0)
			}
		}
	}()
	go func() {
		defer wg.Done()
		pan := float32(-1)
		for {
			select {
			case <-stop:
				return
			default:
				a.SetVolume(1.5)
				a.SetPan(pan)
				pan = -pan
			}
		}
	}()

	time.Sleep(50 * time.Millisecond)
	close(stop)
	wg.Wait()
}

func TestEqualPowerPanLawMagnitude(t *testing.T) {
	sampleRate := 8000
	for _, pan := range []float32{-1, -0.5, 0, 0.25, 1} {
		tr := newMixedTrack(t, "pan", 2, sampleRate, 64, 0)
		defer tr.Unload()
		tr.SetPan(pan)

		mixer := NewMultiTrackMixer()
		mixer.AddTrack(tr, 64)
		out := make([]float32, 64*2)
		mixer.Mix(out, 64, 0)

		left := make([]float32, 0, 64)
		right := make([]float32, 0, 64)
		for i := 0; i < len(out); i += 2 {
			left = append(left, out[i])
			right = append(right, out[i+1])
		}
		l, r := float64(analyze.Peak(left)), float64(analyze.Peak(right))
		assert.True(t, analyze.VerifyEqualPower(pan, 1.0, l, r, 0.02), "pan=%v l=%v r=%v", pan, l, r)
	}
}
