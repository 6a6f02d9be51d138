package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDriverStartsClosed(t *testing.T) {
	d := New(44100, 256, func(out []float32, frames int) {})
	assert.Equal(t, StateClosed, d.State())
	assert.False(t, d.Healthy())
}

func TestHealthyStatesExcludeClosedAndError(t *testing.T) {
	d := New(44100, 256, func(out []float32, frames int) {})

	d.state.Store(int32(StateStarted))
	assert.True(t, d.Healthy())

	d.state.Store(int32(StateStopped))
	assert.True(t, d.Healthy())

	d.state.Store(int32(StatePaused))
	assert.True(t, d.Healthy())

	d.state.Store(int32(StateClosed))
	assert.False(t, d.Healthy())

	d.state.Store(int32(StateErrorAfterClose))
	assert.False(t, d.Healthy())
}

func TestRecoveringFlagMakesDriverUnhealthy(t *testing.T) {
	d := New(44100, 256, func(out []float32, frames int) {})
	d.state.Store(int32(StateStarted))
	d.recovering.Store(true)
	assert.False(t, d.Healthy())
}

func TestCloseOnUnopenedDriverIsNoop(t *testing.T) {
	d := New(44100, 256, func(out []float32, frames int) {})
	assert.NoError(t, d.Close())
	assert.NoError(t, d.Stop())
}
