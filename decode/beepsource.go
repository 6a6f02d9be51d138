package decode

import (
	"os"
	"sync"

	"github.com/gopxl/beep"
)

// beepSource adapts a beep.StreamSeekCloser (from the wav or mp3 package)
// to the Decoder interface. beep always yields 2-channel [2]float64
// frames; for a mono source both channels are identical, so Read
// downmixes to the source's reported channel count by keeping the left
// channel only when Channels == 1.
type beepSource struct {
	mu     sync.Mutex
	file   *os.File
	stream beep.StreamSeekCloser
	format Format
	open   bool
}

func (b *beepSource) openWith(path string, decode func(*os.File) (beep.StreamSeekCloser, beep.Format, error), sourceChannels int) error {
	f, err := os.Open(path)
	if err != nil {
		return newOpenError(path, err)
	}
	stream, bf, err := decode(f)
	if err != nil {
		f.Close()
		return newOpenError(path, err)
	}
	ch := bf.NumChannels
	if sourceChannels > 0 {
		ch = sourceChannels
	}
	b.file = f
	b.stream = stream
	b.format = Format{
		SampleRate:  int(bf.SampleRate),
		Channels:    ch,
		TotalFrames: int64(stream.Len()),
	}
	b.open = true
	return nil
}

func (b *beepSource) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return nil
	}
	b.open = false
	err := b.stream.Close()
	if b.file != nil {
		b.file.Close()
	}
	return err
}

func (b *beepSource) Read(dst []float32) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return 0, errNotOpen
	}
	ch := b.format.Channels
	if ch < 1 {
		ch = 1
	}
	frames := len(dst) / ch
	buf := make([][2]float64, frames)
	n, _ := b.stream.Stream(buf)
	for i := 0; i < n; i++ {
		l, r := buf[i][0], buf[i][1]
		if ch == 1 {
			dst[i] = float32(l)
		} else {
			dst[i*2] = float32(l)
			dst[i*2+1] = float32(r)
		}
	}
	return n, nil
}

func (b *beepSource) Seek(frame int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return errNotOpen
	}
	if frame < 0 {
		frame = 0
	}
	if frame > int64(b.stream.Len()) {
		frame = int64(b.stream.Len())
	}
	return b.stream.Seek(int(frame))
}

func (b *beepSource) Format() Format { return b.format }

func (b *beepSource) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}
