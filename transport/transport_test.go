package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultStateIsStopped(t *testing.T) {
	c := New()
	assert.Equal(t, Stopped, c.Current())
	assert.False(t, c.IsPlaying())
}

func TestPlayPauseResume(t *testing.T) {
	c := New()
	c.Play()
	assert.True(t, c.IsPlaying())
	c.Pause()
	assert.Equal(t, Paused, c.Current())
	c.Play()
	assert.Equal(t, Playing, c.Current())
}

func TestPauseFromStoppedIsNoOp(t *testing.T) {
	c := New()
	c.Pause()
	assert.Equal(t, Stopped, c.Current())
}

func TestStopIsIdempotent(t *testing.T) {
	c := New()
	c.Play()
	c.Stop()
	c.Stop()
	assert.Equal(t, Stopped, c.Current())
}

func TestBeginRecording(t *testing.T) {
	c := New()
	c.BeginRecording()
	assert.Equal(t, Recording, c.Current())
	assert.False(t, c.IsPlaying())
}
