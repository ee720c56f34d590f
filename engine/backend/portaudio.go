package backend

import (
	"context"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// PortAudioDevice is a real local-device Device backed by
// github.com/gordonklaus/portaudio, the optional external collaborator
// spec.md §1 scopes out of the core ("backend enumeration and selection");
// it exists so cmd/bridge-demo has a real sink to drive the engine with,
// alongside the in-process synthetic device used in engine package tests.
// Uses PortAudio's blocking I/O API (stream.Write), matching the pull-based
// shape backend.Device expects: the caller fills a buffer via PullFrames
// and this type writes it out on its own pacing.
type PortAudioDevice struct {
	channels int
	stream   *portaudio.Stream
	out      []float32
}

func NewPortAudioDevice() *PortAudioDevice {
	return &PortAudioDevice{}
}

func (d *PortAudioDevice) Setup(ctx context.Context, sampleRate, channels, periodFrames int) (int, error) {
	if err := portaudio.Initialize(); err != nil {
		return 0, fmt.Errorf("portaudio: initialize: %w", err)
	}
	if periodFrames <= 0 {
		periodFrames = sampleRate / 50 // 20ms default period
	}
	d.channels = channels
	d.out = make([]float32, periodFrames*channels)

	stream, err := portaudio.OpenDefaultStream(0, channels, float64(sampleRate), periodFrames, &d.out)
	if err != nil {
		_ = portaudio.Terminate()
		return 0, fmt.Errorf("portaudio: open default stream: %w", err)
	}
	d.stream = stream

	// Reports the period the output buffer was allocated for, i.e. the
	// requested (or defaulted) period; a different size chosen by PortAudio
	// is not detected.
	return len(d.out) / channels, nil
}

func (d *PortAudioDevice) Start(ctx context.Context) error {
	return d.stream.Start()
}

func (d *PortAudioDevice) Stop(ctx context.Context) error {
	if d.stream == nil {
		return nil
	}
	if err := d.stream.Stop(); err != nil {
		return err
	}
	if err := d.stream.Close(); err != nil {
		return err
	}
	return portaudio.Terminate()
}

// PullFrames writes dst to the device, blocking until PortAudio is ready
// for the next period (spec.md §5 "neither callback may block" refers to
// the core engine's own pull path, not this outermost device adapter).
func (d *PortAudioDevice) PullFrames(dst []float32) error {
	copy(d.out, dst)
	return d.stream.Write()
}

func (d *PortAudioDevice) SupportsVolume() bool                      { return false }
func (d *PortAudioDevice) SetVolume(channels int, volume []uint16) error { return nil }
func (d *PortAudioDevice) SupportsMute() bool                         { return false }
func (d *PortAudioDevice) SetMute(mute bool) error                    { return nil }
func (d *PortAudioDevice) SupportsLatency() bool                      { return true }

func (d *PortAudioDevice) Latency() (int, error) {
	if d.stream == nil {
		return 0, fmt.Errorf("portaudio: stream not open")
	}
	info := d.stream.Info()
	return int(info.OutputLatency.Seconds() * float64(d.stream.SampleRate())), nil
}
