// Package encode defines the Encoder capability contract and concrete
// backends: PCM wave and a minimal raw ADTS AAC framer. Real AAC/MP3
// psychoacoustic compression is typically a platform- or
// license-provided capability rather than something a pure-Go library
// bundles; the ADTS encoder here implements the container/framing
// contract with quantized PCM payloads rather than true AAC compression,
// matching how a host that lacks a bundled codec would defer to the
// platform's encoder.
package encode

import "fmt"

// Format names the output container/codec.
type Format string

const (
	FormatWav Format = "wav"
	FormatAAC Format = "aac" // raw ADTS-framed stream
)

// Options configures an Encoder at Open time.
type Options struct {
	Format        Format
	SampleRate    int
	Channels      int
	BitsPerSample int // WAV only: 16, 24, or 32. Defaults to 16.
	BitrateBps    int // AAC only: target bitrate in bits/sec.
}

// Encoder accepts interleaved float32 frames and writes them to an output
// file, converting to the target format's native sample representation
// (with saturating rounding for integer PCM) as it goes.
type Encoder interface {
	// Open creates (or truncates) path and prepares to accept frames.
	Open(path string, opts Options) error
	// Write appends len(src)/Channels interleaved frames. Returns false
	// if the write could not be completed (e.g. disk full).
	Write(src []float32) (ok bool)
	// Close finalizes container headers / drains any codec end-of-stream
	// and releases the output file.
	Close() error
	// FramesWritten returns the cumulative frame count written so far.
	FramesWritten() int64
	// FileSize returns the current size of the output file in bytes.
	FileSize() int64
}

// New constructs the Encoder implementation for opts.Format.
func New(opts Options) (Encoder, error) {
	switch opts.Format {
	case FormatWav, "":
		return &WavEncoder{}, nil
	case FormatAAC:
		return &AACEncoder{}, nil
	default:
		return nil, fmt.Errorf("encode: unsupported format %q", opts.Format)
	}
}
