//go:build (opus || with_opus_c) && cgo

package rtp

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	msdk "github.com/livekit/media-sdk"
	msdkopus "github.com/livekit/media-sdk/opus"
	"github.com/livekit/protocol/logger"
	prtp "github.com/pion/rtp"

	"github.com/loopwire/adaptiveplayback/engine"
)

// OpusReceiver mirrors Receiver but decodes via media-sdk's libopus binding
// (adapted from bridge/lk_codecs_opus.go's decode-direction registration),
// since Opus decode is not something worth reimplementing when the
// teacher's stack already brings cgo bindings for it. Enable with
// `-tags opus` (requires libopus + pkg-config), matching the teacher.
type OpusReceiver struct {
	conn    net.PacketConn
	dec     msdk.WriteCloser[msdkopus.Sample]
	log     *slog.Logger
	readBuf []byte
}

func NewOpusReceiver(conn net.PacketConn, channels int, outFmt OutputFormat, stream *engine.Stream, log logger.Logger, appLog *slog.Logger) (*OpusReceiver, error) {
	if conn == nil {
		return nil, fmt.Errorf("rtp: nil connection")
	}
	sink := newSourceSink(stream, outFmt.SampleRate, channels, outFmt.Channels, outFmt.FramesPerPeriod)
	dec, err := msdkopus.Decode(sink, channels, log)
	if err != nil {
		return nil, fmt.Errorf("rtp: opus decoder: %w", err)
	}
	if appLog == nil {
		appLog = slog.Default()
	}
	return &OpusReceiver{conn: conn, dec: dec, log: appLog, readBuf: make([]byte, 1500)}, nil
}

func (r *OpusReceiver) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, _, err := r.conn.ReadFrom(r.readBuf)
		if err != nil {
			return fmt.Errorf("rtp: read: %w", err)
		}
		var pkt prtp.Packet
		if err := pkt.Unmarshal(r.readBuf[:n]); err != nil {
			r.log.Warn("dropping malformed RTP packet", "error", err)
			continue
		}
		if err := r.dec.WriteSample(msdkopus.Sample(pkt.Payload)); err != nil {
			r.log.Warn("opus decode failed", "error", err)
		}
	}
}
