package backend

import "context"

// DiscardDevice is a synthetic Device that reports a fixed period size and
// throws its frames away, useful for cmd/bridge-demo and tests that want to
// exercise the engine's lifecycle without real hardware.
type DiscardDevice struct {
	periodFrames int
}

func NewDiscardDevice(periodFrames int) *DiscardDevice {
	return &DiscardDevice{periodFrames: periodFrames}
}

func (d *DiscardDevice) Setup(ctx context.Context, sampleRate, channels, periodFrames int) (int, error) {
	return d.periodFrames, nil
}

func (d *DiscardDevice) Start(ctx context.Context) error { return nil }
func (d *DiscardDevice) Stop(ctx context.Context) error  { return nil }

func (d *DiscardDevice) PullFrames(dst []float32) error {
	for i := range dst {
		dst[i] = 0
	}
	return nil
}

func (d *DiscardDevice) SupportsVolume() bool                          { return false }
func (d *DiscardDevice) SetVolume(channels int, volume []uint16) error { return nil }
func (d *DiscardDevice) SupportsMute() bool                            { return false }
func (d *DiscardDevice) SetMute(mute bool) error                       { return nil }
func (d *DiscardDevice) SupportsLatency() bool                         { return false }
func (d *DiscardDevice) Latency() (int, error)                         { return 0, nil }
