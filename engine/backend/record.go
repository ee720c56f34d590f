package backend

import (
	"fmt"
	"io"
)

// RecordSession is the symmetric mirror of the playback path: frames
// captured by the device flow back out to the network leg. The original
// wired this straight into a SIP/Telegram call leg; here it is modeled as
// a plain io.Writer since that signaling layer is out of scope (spec.md
// §1), and reconfigured only on a channel or sample-rate change, not on
// every period (spec.md §6).
type RecordSession struct {
	dst        io.Writer
	channels   int
	sampleRate int
}

func NewRecordSession(dst io.Writer) *RecordSession {
	return &RecordSession{dst: dst}
}

// Reconfigure is a no-op unless channels or sampleRate actually changed,
// matching the original's "only reconfigure on change" discipline.
func (r *RecordSession) Reconfigure(channels, sampleRate int) error {
	if r.channels == channels && r.sampleRate == sampleRate {
		return nil
	}
	r.channels = channels
	r.sampleRate = sampleRate
	return nil
}

// Write forwards captured PCM16 bytes to the network leg.
func (r *RecordSession) Write(frames []byte) error {
	if r.dst == nil {
		return nil
	}
	if _, err := r.dst.Write(frames); err != nil {
		return fmt.Errorf("backend: record write: %w", err)
	}
	return nil
}
