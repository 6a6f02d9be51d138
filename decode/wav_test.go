package decode

import (
	"path/filepath"
	"testing"

	"github.com/shaban/trackengine/encode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestWav(t *testing.T, path string, channels, sampleRate int, frames [][2]float32) {
	t.Helper()
	enc := &encode.WavEncoder{}
	require.NoError(t, enc.Open(path, encode.Options{SampleRate: sampleRate, Channels: channels, BitsPerSample: 16}))
	for _, f := range frames {
		if channels == 1 {
			require.True(t, enc.Write([]float32{f[0]}))
		} else {
			require.True(t, enc.Write([]float32{f[0], f[1]}))
		}
	}
	require.NoError(t, enc.Close())
}

func TestWavDecoderReadsWhatWasWritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.wav")
	frames := [][2]float32{{0, 0}, {1, -1}, {0.5, -0.5}, {0.25, 0.25}}
	writeTestWav(t, path, 2, 48000, frames)

	d := &WavDecoder{}
	require.NoError(t, d.Open(path))
	defer d.Close()

	assert.Equal(t, 48000, d.Format().SampleRate)
	assert.Equal(t, 2, d.Format().Channels)
	assert.Equal(t, int64(4), d.Format().TotalFrames)

	dst := make([]float32, 4*2)
	n, err := d.Read(dst)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.InDelta(t, 1.0, dst[2], 0.001)
	assert.InDelta(t, -1.0, dst[3], 0.001)
}

func TestWavDecoderSeek(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seek.wav")
	frames := make([][2]float32, 100)
	for i := range frames {
		frames[i] = [2]float32{float32(i) / 100, float32(i) / 100}
	}
	writeTestWav(t, path, 2, 44100, frames)

	d := &WavDecoder{}
	require.NoError(t, d.Open(path))
	defer d.Close()

	require.NoError(t, d.Seek(50))
	dst := make([]float32, 2)
	n, err := d.Read(dst)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.InDelta(t, 0.5, dst[0], 0.01)
}

func TestWavDecoderEOFShortRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.wav")
	writeTestWav(t, path, 1, 44100, [][2]float32{{0}, {0}, {0}})

	d := &WavDecoder{}
	require.NoError(t, d.Open(path))
	defer d.Close()

	dst := make([]float32, 10)
	n, _ := d.Read(dst)
	assert.Equal(t, 3, n, "fewer frames than requested signals end-of-stream")
}

func TestOpenSelectsDecoderByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pick.wav")
	writeTestWav(t, path, 1, 44100, [][2]float32{{0}})
	d, err := Open(path)
	require.NoError(t, err)
	defer d.Close()
	_, ok := d.(*WavDecoder)
	assert.True(t, ok)
}
