package rtp

import (
	"sync/atomic"
	"time"

	msdk "github.com/livekit/media-sdk"
	"github.com/livekit/protocol/logger"
	prtp "github.com/pion/rtp"
)

// silenceFiller detects RTP timestamp discontinuities (DTX/silence
// suppression) and synthesizes silence to fill the gap before the decoded
// audio reaches the sink, adapted from bridge/pipeline/silence_filler.go
// onto a raw Decoder (codecs.go) instead of a media-sdk codec handler.
type silenceFiller struct {
	maxGapFrames    int
	samplesPerFrame int
	sink            msdk.PCM16Writer
	log             logger.Logger

	lastSeq atomic.Uint64
	lastTS  atomic.Uint64
	packets atomic.Uint64
}

func newSilenceFiller(sink msdk.PCM16Writer, clockRate int, log logger.Logger) *silenceFiller {
	return &silenceFiller{
		maxGapFrames:    25,
		samplesPerFrame: clockRate / 50, // 20ms frames
		sink:            sink,
		log:             log,
	}
}

func (f *silenceFiller) HandleRTP(header *prtp.Header, decoded []int16) error {
	isDTX, missingFrames := f.isSilenceSuppression(header)
	if isDTX && missingFrames <= f.maxGapFrames*100 {
		if missingFrames <= f.maxGapFrames {
			for ; missingFrames > 0; missingFrames-- {
				if err := f.sink.WriteSample(make(msdk.PCM16Sample, f.samplesPerFrame)); err != nil {
					return err
				}
			}
		} else if f.log != nil && time.Now().Unix()%15 == 0 {
			f.log.Warnw("large RTP timestamp gap ignored", "gapFrames", missingFrames)
		}
	}
	return f.sink.WriteSample(decoded)
}

func (f *silenceFiller) isSilenceSuppression(header *prtp.Header) (bool, int) {
	packets := f.packets.Add(1)
	lastSeq := uint16(f.lastSeq.Swap(uint64(header.SequenceNumber)))
	lastTS := uint32(f.lastTS.Swap(uint64(header.Timestamp)))
	if packets == 1 {
		return false, 0
	}

	expectedSeq := lastSeq + 1
	expectedTS := lastTS + uint32(f.samplesPerFrame)

	if header.SequenceNumber-expectedSeq != 0 {
		return false, 0
	}

	tsDiff := header.Timestamp - expectedTS
	missedFrames := int(tsDiff) / f.samplesPerFrame
	if missedFrames == 0 {
		return false, 0
	}
	return true, missedFrames
}
