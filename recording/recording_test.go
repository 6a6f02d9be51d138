package recording

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/shaban/trackengine/encode"
	"github.com/stretchr/testify/assert"
)

func TestResolveBitrateUsesExplicitValue(t *testing.T) {
	assert.Equal(t, 256000, resolveBitrate(Config{Bitrate: 256000, Quality: QualityHigh}))
}

func TestResolveBitrateFallsBackToQuality(t *testing.T) {
	assert.Equal(t, 64000, resolveBitrate(Config{Quality: QualityLow}))
	assert.Equal(t, 128000, resolveBitrate(Config{Quality: QualityMedium}))
	assert.Equal(t, 192000, resolveBitrate(Config{Quality: QualityHigh}))
}

func TestResolveBitrateDefaultsToMediumWhenQualityUnset(t *testing.T) {
	assert.Equal(t, 128000, resolveBitrate(Config{}))
}

func TestResolveBitsDefaultsTo16(t *testing.T) {
	assert.Equal(t, 16, resolveBits(Config{}))
	assert.Equal(t, 24, resolveBits(Config{BitsPerSample: 24}))
}

func TestResolvePathKeepsExplicitPath(t *testing.T) {
	assert.Equal(t, "/tmp/foo.wav", resolvePath("/tmp/foo.wav", Config{}))
}

func TestResolvePathGeneratesNameUnderDir(t *testing.T) {
	dir := t.TempDir()
	path := resolvePath("", Config{Dir: dir, Format: encode.FormatWav})
	assert.True(t, strings.HasPrefix(path, filepath.Join(dir, "recording_")))
	assert.True(t, strings.HasSuffix(path, ".wav"))
}

func TestResolvePathUsesAACExtension(t *testing.T) {
	dir := t.TempDir()
	path := resolvePath("", Config{Dir: dir, Format: encode.FormatAAC})
	assert.True(t, strings.HasSuffix(path, ".aac"))
}
