// Package devices enumerates audio input/output hardware using
// gordonklaus/portaudio's device query, which works identically on every
// platform portaudio supports.
package devices

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// AudioDevice is a single enumerated device's capabilities: name, channel
// counts, default-device flags, and a probed set of supported sample
// rates.
type AudioDevice struct {
	Name                 string
	Index                int
	InputChannelCount    int
	OutputChannelCount   int
	IsDefaultInput       bool
	IsDefaultOutput      bool
	SupportedSampleRates []int
	DefaultSampleRate    float64
}

// CanInput reports whether the device can capture audio.
func (a AudioDevice) CanInput() bool { return a.InputChannelCount > 0 }

// CanOutput reports whether the device can play audio.
func (a AudioDevice) CanOutput() bool { return a.OutputChannelCount > 0 }

// IsInputOutput reports whether the device does both.
func (a AudioDevice) IsInputOutput() bool { return a.CanInput() && a.CanOutput() }

// AudioDevices is a filterable slice of AudioDevice.
type AudioDevices []AudioDevice

// Inputs returns only devices that can capture audio.
func (d AudioDevices) Inputs() AudioDevices {
	var out AudioDevices
	for _, dev := range d {
		if dev.CanInput() {
			out = append(out, dev)
		}
	}
	return out
}

// Outputs returns only devices that can play audio.
func (d AudioDevices) Outputs() AudioDevices {
	var out AudioDevices
	for _, dev := range d {
		if dev.CanOutput() {
			out = append(out, dev)
		}
	}
	return out
}

// candidateSampleRates is the set of rates commonly supported by consumer
// and pro-audio interfaces; probed per device since portaudio only
// reports a single DefaultSampleRate.
var candidateSampleRates = []int{8000, 16000, 22050, 44100, 48000, 88200, 96000}

// Get returns every device portaudio can see, with a best-effort sample
// rate compatibility probe for each.
func Get() (AudioDevices, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("devices: initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("devices: enumerate: %w", err)
	}

	defaultIn, _ := portaudio.DefaultInputDevice()
	defaultOut, _ := portaudio.DefaultOutputDevice()

	out := make(AudioDevices, 0, len(infos))
	for i, info := range infos {
		d := AudioDevice{
			Name:                 info.Name,
			Index:                i,
			InputChannelCount:    info.MaxInputChannels,
			OutputChannelCount:   info.MaxOutputChannels,
			DefaultSampleRate:    info.DefaultSampleRate,
			SupportedSampleRates: probeSampleRates(info),
		}
		if defaultIn != nil && info.Name == defaultIn.Name {
			d.IsDefaultInput = true
		}
		if defaultOut != nil && info.Name == defaultOut.Name {
			d.IsDefaultOutput = true
		}
		out = append(out, d)
	}
	return out, nil
}

// probeSampleRates returns the subset of candidateSampleRates at or below
// twice info's default rate (there is no lower bound); portaudio's binding has no
// direct IsFormatSupported query, so this is a heuristic rather than an
// exact capability probe.
func probeSampleRates(info *portaudio.DeviceInfo) []int {
	var out []int
	for _, rate := range candidateSampleRates {
		if float64(rate) <= info.DefaultSampleRate*2 {
			out = append(out, rate)
		}
	}
	return out
}
