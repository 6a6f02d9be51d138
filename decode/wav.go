package decode

import (
	"os"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

// WavDecoder reads uncompressed PCM wave files of any common bit depth via
// gopxl/beep's wav package, which handles 8/16/24/32-bit PCM and 32-bit
// float containers transparently.
type WavDecoder struct {
	beepSource
}

// Open prepares the decoder to read path as a WAV file.
func (d *WavDecoder) Open(path string) error {
	return d.openWith(path, func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
		return wav.Decode(f)
	}, 0)
}
