// Package decode defines the Decoder capability contract and concrete
// backends for the formats the engine accepts: uncompressed
// PCM wave and MPEG-1 Layer III. A platform host may supply its own
// Decoder for formats it provides natively (e.g. Android's media
// extractor for AAC) — Decoder is a plain interface for exactly that
// reason.
package decode

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format describes a decoded source's layout.
type Format struct {
	SampleRate  int
	Channels    int
	TotalFrames int64
}

// Decoder opens an audio source and serves interleaved float32 frames in
// [-1, 1]. Each Track owns exactly one Decoder instance: its streaming
// goroutine calls Read, while Track.Seek and Track.Unload call Seek and
// Close from the control thread. The wav and mp3 backends serialize these
// calls with a mutex.
type Decoder interface {
	// Open prepares the decoder to read from path. It returns an error on
	// failure; a zero-value error means the source is ready for Read.
	Open(path string) error
	// Close releases any resources held by the decoder. Safe to call on
	// an unopened or already-closed decoder.
	Close() error
	// Read fills dst with up to len(dst)/Format().Channels interleaved
	// frames and returns the number of frames actually read. Fewer frames
	// than requested signals end-of-stream.
	Read(dst []float32) (framesRead int, err error)
	// Seek moves the read cursor to the given frame, clamped to
	// [0, TotalFrames].
	Seek(frame int64) error
	// Format reports the source's sample rate, channel count, and total
	// frame count. Only valid once Open has succeeded.
	Format() Format
	// IsOpen reports whether the decoder currently holds an open source.
	IsOpen() bool
}

// Open selects a Decoder implementation by file extension (with a magic-
// byte sniffing fallback for ambiguous extensions) and opens path.
func Open(path string) (Decoder, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		d := &WavDecoder{}
		if err := d.Open(path); err != nil {
			return nil, err
		}
		return d, nil
	case ".mp3":
		d := &Mp3Decoder{}
		if err := d.Open(path); err != nil {
			return nil, err
		}
		return d, nil
	default:
		if d, err := sniffAndOpen(path); err == nil {
			return d, nil
		}
		return nil, fmt.Errorf("unsupported source format: %s", path)
	}
}

// sniffAndOpen tries each known backend in turn, used when the extension
// doesn't identify the format (e.g. no extension, or a generic one).
func sniffAndOpen(path string) (Decoder, error) {
	for _, try := range []func() Decoder{
		func() Decoder { return &WavDecoder{} },
		func() Decoder { return &Mp3Decoder{} },
	} {
		d := try()
		if err := d.Open(path); err == nil {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no decoder recognized %s", path)
}
