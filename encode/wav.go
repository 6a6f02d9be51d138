package encode

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// WavEncoder writes PCM wave files incrementally: a 44-byte canonical
// header is written up front with placeholder sizes, samples are streamed
// out as they arrive, and Close seeks back to patch the RIFF and data
// chunk sizes once the final length is known.
//
// beep/wav's Encode only accepts a pull-model beep.Streamer and writes the
// whole file in one call, which doesn't fit this package's incremental
// Write/Close contract (a RecordingPipeline worker appends frames as they
// arrive from the microphone). The RIFF format itself is simple enough
// that hand-rolling the writer over the standard library is the better
// fit than adapting an API built for a different shape.
type WavEncoder struct {
	f             *os.File
	w             *bufio.Writer
	bitsPerSample int
	channels      int
	sampleRate    int
	dataBytes     int64
	framesWritten int64
}

const wavHeaderSize = 44

// Open creates path and writes a placeholder WAV header.
func (e *WavEncoder) Open(path string, opts Options) error {
	bits := opts.BitsPerSample
	if bits == 0 {
		bits = 16
	}
	if bits != 16 && bits != 24 && bits != 32 {
		return fmt.Errorf("encode: unsupported WAV bit depth %d", bits)
	}
	ch := opts.Channels
	if ch < 1 {
		ch = 1
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("encode: create %s: %w", path, err)
	}

	e.f = f
	e.bitsPerSample = bits
	e.channels = ch
	e.sampleRate = opts.SampleRate

	if err := e.writeHeader(0); err != nil {
		f.Close()
		return err
	}
	e.w = bufio.NewWriter(f)
	return nil
}

func (e *WavEncoder) writeHeader(dataBytes int64) error {
	byteRate := e.sampleRate * e.channels * (e.bitsPerSample / 8)
	blockAlign := e.channels * (e.bitsPerSample / 8)

	hdr := make([]byte, wavHeaderSize)
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(36+dataBytes))
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(hdr[22:24], uint16(e.channels))
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(e.sampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(hdr[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(hdr[34:36], uint16(e.bitsPerSample))
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], uint32(dataBytes))

	if _, err := e.f.WriteAt(hdr, 0); err != nil {
		return fmt.Errorf("encode: write wav header: %w", err)
	}
	if dataBytes == 0 {
		// Advance the file cursor past the header for the first write.
		_, err := e.f.Seek(wavHeaderSize, 0)
		return err
	}
	return nil
}

// Write converts src to the configured bit depth with saturating rounding
// and appends it to the output.
func (e *WavEncoder) Write(src []float32) bool {
	if e.w == nil {
		return false
	}
	for _, s := range src {
		if err := e.writeSample(s); err != nil {
			return false
		}
	}
	e.framesWritten += int64(len(src)) / int64(e.channels)
	return true
}

func (e *WavEncoder) writeSample(s float32) error {
	clamped := float64(s)
	if clamped > 1 {
		clamped = 1
	} else if clamped < -1 {
		clamped = -1
	}

	switch e.bitsPerSample {
	case 16:
		v := int16(math.Round(clamped * 32767))
		e.dataBytes += 2
		return binary.Write(e.w, binary.LittleEndian, v)
	case 24:
		iv := int32(math.Round(clamped * 8388607))
		buf := [3]byte{byte(iv), byte(iv >> 8), byte(iv >> 16)}
		e.dataBytes += 3
		_, err := e.w.Write(buf[:])
		return err
	case 32:
		v := int32(math.Round(clamped * 2147483647))
		e.dataBytes += 4
		return binary.Write(e.w, binary.LittleEndian, v)
	default:
		return fmt.Errorf("encode: unsupported bit depth %d", e.bitsPerSample)
	}
}

// Close flushes buffered samples and patches the RIFF/data chunk sizes.
func (e *WavEncoder) Close() error {
	if e.w == nil {
		return nil
	}
	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("encode: flush wav data: %w", err)
	}
	if err := e.writeHeader(e.dataBytes); err != nil {
		return err
	}
	e.w = nil
	return e.f.Close()
}

// FramesWritten returns the cumulative frame count written so far.
func (e *WavEncoder) FramesWritten() int64 { return e.framesWritten }

// FileSize returns the header plus data bytes written so far.
func (e *WavEncoder) FileSize() int64 { return wavHeaderSize + e.dataBytes }
