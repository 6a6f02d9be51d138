package devices

import (
	"testing"

	"github.com/gordonklaus/portaudio"
	"github.com/stretchr/testify/assert"
)

func TestCanInputAndOutput(t *testing.T) {
	d := AudioDevice{InputChannelCount: 2, OutputChannelCount: 0}
	assert.True(t, d.CanInput())
	assert.False(t, d.CanOutput())
	assert.False(t, d.IsInputOutput())
}

func TestIsInputOutputRequiresBoth(t *testing.T) {
	d := AudioDevice{InputChannelCount: 2, OutputChannelCount: 2}
	assert.True(t, d.IsInputOutput())
}

func TestInputsAndOutputsFilter(t *testing.T) {
	devs := AudioDevices{
		{Name: "mic", InputChannelCount: 1},
		{Name: "speaker", OutputChannelCount: 2},
		{Name: "interface", InputChannelCount: 2, OutputChannelCount: 2},
	}
	assert.Len(t, devs.Inputs(), 2)
	assert.Len(t, devs.Outputs(), 2)
}

func TestProbeSampleRatesWithinWindow(t *testing.T) {
	info := &portaudio.DeviceInfo{DefaultSampleRate: 48000}
	rates := probeSampleRates(info)
	assert.Contains(t, rates, 44100)
	assert.Contains(t, rates, 48000)
	assert.Contains(t, rates, 96000)
}
