// Package pcm provides sample-format helpers shared by the network source
// transport and the playback engine: signed 16-bit <-> float32 widening,
// mono/stereo conversion and fixed-size frame assembly.
package pcm

import "time"

// Format describes one side of the bridge's framing: how many interleaved
// channels, at what sample rate, and (for sides driven by a fixed period)
// the nominal frame duration.
type Format struct {
	SampleRate int
	Channels   int
	FrameDur   time.Duration
}

func (f Format) FrameSamples() int {
	sr := f.SampleRate
	if sr < 1 {
		sr = 1
	}
	ch := f.Channels
	if ch < 1 {
		ch = 1
	}
	return int(float64(sr) * f.FrameDur.Seconds() * float64(ch))
}

// FrameBytesS16 returns the frame size in bytes for signed 16-bit samples.
func (f Format) FrameBytesS16() int {
	return f.FrameSamples() * 2
}

// FrameBytesF32 returns the frame size in bytes for float32 samples.
func (f Format) FrameBytesF32() int {
	return f.FrameSamples() * 4
}
