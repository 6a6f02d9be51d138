package analyze

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRMSOfSilenceIsZero(t *testing.T) {
	assert.Equal(t, 0.0, RMS(make([]float32, 16)))
}

func TestRMSOfConstantSignal(t *testing.T) {
	samples := make([]float32, 8)
	for i := range samples {
		samples[i] = 0.5
	}
	assert.InDelta(t, 0.5, RMS(samples), 1e-9)
}

func TestPeakFindsLargestMagnitude(t *testing.T) {
	assert.Equal(t, float32(0.9), Peak([]float32{0.1, -0.9, 0.3}))
}

func TestDbFSOfSilenceIsNegativeInfinity(t *testing.T) {
	assert.True(t, math.IsInf(DbFS(0), -1))
}

func TestDbFSOfUnityIsZero(t *testing.T) {
	assert.InDelta(t, 0.0, DbFS(1), 1e-9)
}

func TestEqualPowerGainsSumToUnityMagnitude(t *testing.T) {
	for _, pan := range []float32{-1, -0.3, 0, 0.3, 1} {
		l, r := EqualPowerGains(pan)
		mag := math.Sqrt(float64(l*l + r*r))
		assert.InDelta(t, 1.0, mag, 1e-6)
	}
}

func TestVerifyEqualPowerAcceptsExactMatch(t *testing.T) {
	l, r := EqualPowerGains(0.5)
	assert.True(t, VerifyEqualPower(0.5, 1.0, float64(l), float64(r), 1e-6))
}

func TestVerifyEqualPowerRejectsMismatch(t *testing.T) {
	assert.False(t, VerifyEqualPower(0, 1.0, 0.9, 0.9, 1e-6))
}
