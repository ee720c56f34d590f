// Package backend defines the abstract playback/record device the engine
// drives (spec.md C8), grounded on the audioDev->playback/record function
// table and the audio_playbackVolume/Mute/audio_recordVolume/Mute cache-
// and-reapply pattern in the original audio.c this spec was distilled from.
// The engine never talks to a real sound card directly; cmd/bridge-demo
// supplies a concrete Device (e.g. backed by portaudio).
package backend

import "context"

// Device is the abstract playback sink the engine renders into. Volume and
// Mute are optional: a Device that doesn't support them should report so
// via SupportsVolume/SupportsMute so the engine can skip the call instead
// of erroring.
type Device interface {
	// Setup opens the device for sampleRate/channels and reports back the
	// device's actual period size in frames (spec.md §4.8's
	// `*maxPeriodFramesOut` out-parameter) — a concrete Device is free to
	// grant a different period than requested (e.g. PortAudio rounding to
	// its own buffer size), and the engine's target-latency policy (C5) and
	// start gate (C7) must use the real value, not the requested one.
	Setup(ctx context.Context, sampleRate, channels, periodFrames int) (maxPeriodFrames int, err error)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error

	// PullFrames is invoked once per device period; dst is sized for
	// periodFrames interleaved frames and must be filled completely.
	PullFrames(dst []float32) error

	SupportsVolume() bool
	SetVolume(channels int, volume []uint16) error

	SupportsMute() bool
	SetMute(mute bool) error

	// SupportsLatency reports whether Latency returns a meaningful value;
	// when false the engine's latency telemetry omits the device's own
	// reported queue delay (spec.md §13 latency telemetry).
	SupportsLatency() bool
	Latency() (frames int, err error)
}

// VolumeMuteCache mirrors the original's stored volume/mute state that gets
// reapplied to a device across a Stop/Start cycle (audio_playbackStart's
// "if a volume level was stored, set it before we return"). One cache
// belongs to the playback side and a separate one to the record side — the
// original had a bug where audio_recordStart reapplied the playback cache
// to the record device; this implementation keeps the two strictly
// separate (spec.md §13).
type VolumeMuteCache struct {
	haveVolume bool
	channels   int
	volume     []uint16

	haveMute bool
	mute     bool
}

// SetVolume records the requested volume and forwards it to dev if dev
// supports volume control.
func (c *VolumeMuteCache) SetVolume(dev Device, channels int, volume []uint16) error {
	c.channels = channels
	c.volume = append(c.volume[:0], volume...)
	c.haveVolume = true
	if dev == nil || !dev.SupportsVolume() {
		return nil
	}
	return dev.SetVolume(channels, volume)
}

// SetMute records the requested mute state and forwards it to dev if dev
// supports muting.
func (c *VolumeMuteCache) SetMute(dev Device, mute bool) error {
	c.mute = mute
	c.haveMute = true
	if dev == nil || !dev.SupportsMute() {
		return nil
	}
	return dev.SetMute(mute)
}

// Volume returns the cached volume vector, mainly for tests that want to
// assert two caches stayed independent without a capable device to probe.
func (c *VolumeMuteCache) Volume() []uint16 { return c.volume }

// Reapply pushes the cached volume/mute state to a freshly started device,
// matching the original's startup reapplication.
func (c *VolumeMuteCache) Reapply(dev Device) error {
	if dev == nil {
		return nil
	}
	if c.haveVolume && dev.SupportsVolume() {
		if err := dev.SetVolume(c.channels, c.volume); err != nil {
			return err
		}
	}
	if c.haveMute && dev.SupportsMute() {
		if err := dev.SetMute(c.mute); err != nil {
			return err
		}
	}
	return nil
}
