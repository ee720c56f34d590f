// Package ring implements the coupling buffer between the source thread and
// the sink thread (spec.md C1): an unbounded, frame-granular FIFO of
// interleaved float32 audio. It supports null-append (advance the write
// cursor with silence, no data copy) and null-consume (advance the read
// cursor, discarding data), mirroring ringbuffer_append/ringbuffer_consume
// in the original audio.c and the byte-FIFO shape of the teacher's
// PCMPlayoutBuffer (bridge/pcm/playout_buffer.go), generalized from
// PCM16 bytes to interleaved float32 frames.
package ring

import "sync"

// CouplingBuffer is a single-producer/single-consumer FIFO of audio frames
// (a frame is `channels` interleaved float32 samples). Producer and consumer
// may run on different goroutines concurrently; operations are linearized
// with a mutex, which is sufficient for the throughput this pipeline needs
// (one call per source/sink period, not per sample) — see DESIGN.md for why
// this is preferred over a hand-rolled lock-free ring here.
type CouplingBuffer struct {
	channels int

	mu         sync.Mutex
	buf        []float32 // valid data is buf[readOff:]
	readOff    int        // in samples, not frames
	frameCount int        // cached frame count, valid data len / channels
}

// NewCouplingBuffer creates a coupling buffer sized to hold at least
// initialFrames frames without reallocating. Capacity grows as needed but
// is never shrunk for the lifetime of the stream (spec.md §4.1).
func NewCouplingBuffer(channels, initialFrames int) *CouplingBuffer {
	if channels < 1 {
		channels = 1
	}
	if initialFrames < 1 {
		initialFrames = 1
	}
	return &CouplingBuffer{
		channels: channels,
		buf:      make([]float32, 0, initialFrames*channels),
	}
}

func (b *CouplingBuffer) Channels() int { return b.channels }

// Count returns the number of frames currently queued.
func (b *CouplingBuffer) Count() int {
	b.mu.Lock()
	n := b.frameCount
	b.mu.Unlock()
	return n
}

// Append adds nFrames to the buffer. If frames is nil, nFrames of silence
// are appended instead (the "null-append" of spec.md §4.1, used by the
// source-side PLL to slew on a large clock-error excursion).
func (b *CouplingBuffer) Append(frames []float32, nFrames int) {
	if nFrames <= 0 {
		return
	}
	need := nFrames * b.channels
	b.mu.Lock()
	defer b.mu.Unlock()

	b.compactLocked()
	if frames == nil {
		b.buf = append(b.buf, make([]float32, need)...)
	} else {
		n := need
		if n > len(frames) {
			n = len(frames)
		}
		b.buf = append(b.buf, frames[:n]...)
	}
	b.frameCount = (len(b.buf) - b.readOff) / b.channels
}

// Consume removes up to nFrames frames from the front of the buffer into
// dst. If dst is nil, the frames are discarded (the "null-consume" used for
// sink-side slew). Returns the number of frames actually consumed, which is
// less than nFrames only when the buffer underruns.
func (b *CouplingBuffer) Consume(dst []float32, nFrames int) int {
	if nFrames <= 0 {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	available := b.frameCount
	got := nFrames
	if got > available {
		got = available
	}
	n := got * b.channels
	if dst != nil && n > 0 {
		copy(dst, b.buf[b.readOff:b.readOff+n])
	}
	b.readOff += n
	b.frameCount -= got
	b.compactLocked()
	return got
}

// compactLocked slides remaining data to the front once the consumed prefix
// (dead space) is large enough to be worth reclaiming, bounding the amount
// of dead space without ever shrinking the underlying capacity.
func (b *CouplingBuffer) compactLocked() {
	if b.readOff == 0 {
		return
	}
	live := len(b.buf) - b.readOff
	const compactThreshold = 1 << 16 // samples
	if b.readOff < compactThreshold && b.readOff < live {
		// Dead space is small and smaller than live data: not worth it yet.
		return
	}
	copy(b.buf[:live], b.buf[b.readOff:])
	b.buf = b.buf[:live]
	b.readOff = 0
}
