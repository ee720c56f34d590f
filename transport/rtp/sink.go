package rtp

import (
	"fmt"

	msdk "github.com/livekit/media-sdk"

	"github.com/loopwire/adaptiveplayback/engine"
	"github.com/loopwire/adaptiveplayback/engine/pcm"
)

// sourceSink implements msdk.PCM16Writer (the same shape as the teacher's
// tgPlayoutSink, bridge/pipeline/tg_playout_sink.go) so the Opus decode
// chain can write into it directly; raw Decoder output (codecs.go) is fed
// through the same WriteSample path so there is a single frame-assembly and
// float conversion point regardless of codec.
type sourceSink struct {
	sampleRate   int
	inCh, outCh  int

	assembler    *pcm.F32Assembler
	frameSamples int
	stream       *engine.Stream
}

func newSourceSink(stream *engine.Stream, sampleRate, inCh, outCh, framesPerPeriod int) *sourceSink {
	if inCh <= 0 {
		inCh = 1
	}
	if outCh <= 0 {
		outCh = 1
	}
	return &sourceSink{
		sampleRate:   sampleRate,
		inCh:         inCh,
		outCh:        outCh,
		frameSamples: framesPerPeriod * outCh,
		assembler:    pcm.NewF32Assembler(framesPerPeriod * outCh),
		stream:       stream,
	}
}

func (s *sourceSink) String() string {
	return fmt.Sprintf("EngineSourceSink(%dHz %dch->%dch)", s.sampleRate, s.inCh, s.outCh)
}

func (s *sourceSink) SampleRate() int { return s.sampleRate }
func (s *sourceSink) Close() error    { return nil }

func (s *sourceSink) WriteSample(sample msdk.PCM16Sample) error {
	f32 := pcm.S16ToF32(nil, sample)
	if s.inCh != s.outCh {
		f32 = pcm.ConvertChannelsF32(nil, f32, s.inCh, s.outCh)
	}
	for _, frame := range s.assembler.Push(f32) {
		if err := s.stream.SubmitSourceData(frame, len(frame)/s.outCh); err != nil {
			return err
		}
	}
	return nil
}
