package trackengine

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/shaban/trackengine/encode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestTrackWav(t *testing.T, path string, channels, sampleRate, frames int) {
	t.Helper()
	enc := &encode.WavEncoder{}
	require.NoError(t, enc.Open(path, encode.Options{SampleRate: sampleRate, Channels: channels, BitsPerSample: 16}))
	buf := make([]float32, frames*channels)
	for i := range buf {
		buf[i] = 1 // constant unit amplitude, easy to assert on
	}
	require.True(t, enc.Write(buf))
	require.NoError(t, enc.Close())
}

func waitForFrames(t *testing.T, tr *Track, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for tr.ring.Available() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d samples, have %d", n, tr.ring.Available())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestTrackLoadAndReadSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.wav")
	writeTestTrackWav(t, path, 2, 44100, 200)

	tr, err := LoadTrack("t1", path, 0, 44100)
	require.NoError(t, err)
	defer tr.Unload()

	waitForFrames(t, tr, 200*2)

	dst := make([]float32, 200*2)
	n := tr.ReadSamples(dst, 200)
	assert.Equal(t, 200, n)
	// volume=1, pan=0 -> equal-power gain of 1/sqrt(2) on both channels
	assert.InDelta(t, math.Sqrt2/2, dst[0], 0.01)
	assert.InDelta(t, math.Sqrt2/2, dst[1], 0.01)
}

func TestTrackMutedProducesSilence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.wav")
	writeTestTrackWav(t, path, 1, 44100, 64)

	tr, err := LoadTrack("m1", path, 0, 44100)
	require.NoError(t, err)
	defer tr.Unload()
	tr.SetMuted(true)

	dst := make([]float32, 64)
	n := tr.ReadSamples(dst, 64)
	assert.Equal(t, 64, n)
	for _, v := range dst {
		assert.Equal(t, float32(0), v)
	}
}

func TestTrackPanLawEqualPower(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.wav")
	writeTestTrackWav(t, path, 2, 44100, 16)

	tr, err := LoadTrack("p1", path, 0, 44100)
	require.NoError(t, err)
	defer tr.Unload()
	waitForFrames(t, tr, 16*2)

	for _, pan := range []float32{-1, -0.5, 0, 0.5, 1} {
		tr.SetPan(pan)
		dst := make([]float32, 2)
		tr.ReadSamples(dst, 1)
		mag := math.Sqrt(float64(dst[0]*dst[0] + dst[1]*dst[1]))
		assert.InDelta(t, 1.0, mag, 0.02, "pan=%v", pan)
		tr.Seek(0)
		waitForFrames(t, tr, 2)
	}
}

func TestTrackSeekResetsPosition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.wav")
	writeTestTrackWav(t, path, 1, 44100, 1000)

	tr, err := LoadTrack("s1", path, 0, 44100)
	require.NoError(t, err)
	defer tr.Unload()
	waitForFrames(t, tr, 1000)

	require.NoError(t, tr.Seek(500))
	waitForFrames(t, tr, 1)
	assert.LessOrEqual(t, tr.ring.Available(), 500)
}

func TestTrackStartTimeSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "st.wav")
	writeTestTrackWav(t, path, 1, 44100, 10)
	tr, err := LoadTrack("st1", path, 1000, 44100)
	require.NoError(t, err)
	defer tr.Unload()
	assert.Equal(t, int64(44100), tr.StartTimeSamples())
}
