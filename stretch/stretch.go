// Package stretch implements the per-track pitch/rate effect: a small,
// allocation-free unit a realtime callback can drive every block without
// ever blocking on a mutex.
//
// True independent pitch/time control needs a phase vocoder; that is out of
// scope here. Instead Unit resamples each fixed-size
// block in place by a single combined ratio, folding both parameters
// together. It is a deliberate simplification, not an attempt at
// broadcast-quality pitch correction.
package stretch

import (
	"math"
	"sync/atomic"
)

// params names the two fixed-point fields, pitch (semitones ×1000) and
// rate−1 (×100000), that packParams stores as the high and low 32 bits of
// one uint64 so Process always observes a consistent pair, never a torn
// read of one field mid-update by the control thread. Storing rate as an
// offset from 1 makes the all-zero word read as identity.
type params struct {
	semitonesMilli int64
	rateMicro      int64
}

// Unit applies a combined pitch/rate effect to fixed-size blocks of
// interleaved float32 frames. The zero value is ready to use: identity
// (pitch 0, rate 1).
type Unit struct {
	packed  atomic.Uint64
	scratch []float32 // de-interleaved per-channel scratch, grown on demand
}

func packParams(semitones, rate float64) uint64 {
	s := int32(math.Round(semitones * 1000))
	r := int32(math.Round((rate - 1) * 100000))
	return uint64(uint32(s))<<32 | uint64(uint32(r))
}

func unpackParams(v uint64) (semitones, rate float64) {
	s := int32(v >> 32)
	r := int32(v & 0xFFFFFFFF)
	return float64(s) / 1000, 1 + float64(r)/100000
}

// SetPitch sets the pitch shift in semitones. Positive raises pitch.
func (u *Unit) SetPitch(semitones float64) {
	_, rate := unpackParams(u.packed.Load())
	u.packed.Store(packParams(semitones, rate))
}

// SetRate sets the playback-rate ratio. 1.0 is unchanged, >1 faster, <1 slower.
func (u *Unit) SetRate(rate float64) {
	semitones, _ := unpackParams(u.packed.Load())
	u.packed.Store(packParams(semitones, rate))
}

// Pitch returns the current pitch shift in semitones.
func (u *Unit) Pitch() float64 {
	semitones, _ := unpackParams(u.packed.Load())
	return semitones
}

// Rate returns the current playback-rate ratio.
func (u *Unit) Rate() float64 {
	_, rate := unpackParams(u.packed.Load())
	return rate
}

// IsActive reports whether the current parameters differ meaningfully from
// identity, so callers can skip Process entirely on the common case.
func (u *Unit) IsActive() bool {
	semitones, rate := unpackParams(u.packed.Load())
	return math.Abs(semitones) > 1e-6 || math.Abs(rate-1) > 1e-6
}

// Reset restores identity parameters (pitch 0, rate 1).
func (u *Unit) Reset() {
	u.packed.Store(packParams(0, 1))
}

// combinedRatio folds pitch (converted to a frequency ratio) and rate into
// the single step used to resample a block's content.
func combinedRatio(semitones, rate float64) float64 {
	pitchRatio := math.Pow(2, semitones/12)
	ratio := rate * pitchRatio
	if ratio <= 0 {
		ratio = 1
	}
	return ratio
}

// Process transforms input (interleaved, channels channels, inputFrames
// frames) into output (interleaved, same channel count, outputFrames
// frames) in place of a straight copy. In the baseline contract
// inputFrames == outputFrames: Process resamples the block's own content
// by the combined pitch/rate ratio and wraps at the block edge rather
// than drawing on any cross-call history, so it never allocates once
// scratch has grown to channels*inputFrames.
//
// If parameters are at identity, Process copies input to output unchanged
// (the short-circuit a realtime caller should prefer via IsActive first).
func (u *Unit) Process(input []float32, inputFrames int, output []float32, outputFrames, channels int) {
	semitones, rate := unpackParams(u.packed.Load())
	if math.Abs(semitones) <= 1e-6 && math.Abs(rate-1) <= 1e-6 {
		n := copy(output, input)
		for i := n; i < len(output); i++ {
			output[i] = 0
		}
		return
	}
	ratio := combinedRatio(semitones, rate)

	need := channels * inputFrames
	if cap(u.scratch) < need {
		u.scratch = make([]float32, need)
	}
	u.scratch = u.scratch[:need]

	for f := 0; f < outputFrames; f++ {
		// Virtual read position into the input block, wrapping so a
		// ratio != 1 never reads past the frames we actually have.
		srcPos := float64(f) * ratio
		srcPos = math.Mod(srcPos, float64(inputFrames))
		if srcPos < 0 {
			srcPos += float64(inputFrames)
		}
		i0 := int(srcPos)
		i1 := i0 + 1
		if i1 >= inputFrames {
			i1 = 0
		}
		frac := float32(srcPos - float64(i0))

		outBase := f * channels
		for c := 0; c < channels; c++ {
			if outBase+c >= len(output) {
				continue
			}
			a := input[i0*channels+c]
			b := input[i1*channels+c]
			output[outBase+c] = a + (b-a)*frac
		}
	}
}
