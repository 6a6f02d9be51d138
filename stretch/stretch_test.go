package stretch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnitDefaultsToIdentity(t *testing.T) {
	var u Unit
	assert.False(t, u.IsActive())
	assert.Equal(t, 0.0, u.Pitch())
	assert.Equal(t, 1.0, u.Rate())
}

func TestSetPitchAndRateIndependent(t *testing.T) {
	var u Unit
	u.SetPitch(3)
	assert.Equal(t, 3.0, u.Pitch())
	assert.Equal(t, 1.0, u.Rate())

	u.SetRate(1.25)
	assert.Equal(t, 3.0, u.Pitch(), "setting rate must not disturb pitch")
	assert.Equal(t, 1.25, u.Rate())
	assert.True(t, u.IsActive())
}

func TestProcessIdentityCopiesThrough(t *testing.T) {
	var u Unit
	input := []float32{0.1, -0.2, 0.3, -0.4}
	output := make([]float32, 4)
	u.Process(input, 2, output, 2, 2)
	assert.Equal(t, input, output)
}

func TestProcessNonIdentityPreservesBlockSize(t *testing.T) {
	var u Unit
	u.SetRate(1.5)
	u.SetPitch(2)

	channels := 2
	frames := 64
	input := make([]float32, channels*frames)
	for i := range input {
		input[i] = float32(i%7) / 7
	}
	output := make([]float32, channels*frames)
	u.Process(input, frames, output, frames, channels)

	assert.NotEqual(t, input, output, "a non-identity ratio should alter block content")
	for _, v := range output {
		assert.GreaterOrEqual(t, v, float32(-1.01))
		assert.LessOrEqual(t, v, float32(1.01))
	}
}

func TestResetRestoresIdentity(t *testing.T) {
	var u Unit
	u.SetPitch(5)
	u.SetRate(2)
	u.Reset()
	assert.False(t, u.IsActive())
}

func TestCombinedRatioGuardsNonPositive(t *testing.T) {
	assert.Equal(t, 1.0, combinedRatio(0, 0))
	assert.Greater(t, combinedRatio(0, -1), 0.0)
}
