package decode

import (
	"os"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/mp3"
)

// Mp3Decoder reads MPEG-1 Layer III files via gopxl/beep's mp3 package.
// Seek granularity is frame-accurate only to the nearest MP3 frame
// boundary, a looser guarantee than the wav decoder's exact-sample seek.
type Mp3Decoder struct {
	beepSource
}

// Open prepares the decoder to read path as an MP3 file.
func (d *Mp3Decoder) Open(path string) error {
	return d.openWith(path, func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
		return mp3.Decode(f)
	}, 0)
}
