package rtp

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	msdk "github.com/livekit/media-sdk"
	"github.com/livekit/protocol/logger"
	prtp "github.com/pion/rtp"

	"github.com/loopwire/adaptiveplayback/engine"
)

// Config configures a Receiver, grounded on bridge/pipeline's
// SipDecodeConfig shape but simplified to a single static payload-type
// mapping since there is no SDP negotiation in scope.
type Config struct {
	Conn         net.PacketConn
	PayloadType  PayloadType
	InputChannels int
	OutputFormat  OutputFormat
	Log           logger.Logger
	AppLog        *slog.Logger
}

type OutputFormat struct {
	SampleRate   int
	Channels     int
	FramesPerPeriod int
}

// Receiver reads RTP packets off a UDP socket, decodes them, fills DTX
// silence gaps, and drives an engine.Stream's source thread.
type Receiver struct {
	conn    net.PacketConn
	dec     Decoder
	filler  *silenceFiller
	log     *slog.Logger
	readBuf []byte
}

// NewReceiver builds a Receiver wired to feed stream (spec.md C4/C6 via
// engine.Stream.SubmitSourceData).
func NewReceiver(cfg Config, stream *engine.Stream) (*Receiver, error) {
	if cfg.Conn == nil {
		return nil, fmt.Errorf("rtp: nil connection")
	}
	dec, err := NewDecoder(cfg.PayloadType)
	if err != nil {
		return nil, err
	}

	sink := newSourceSink(stream, cfg.OutputFormat.SampleRate, cfg.InputChannels, cfg.OutputFormat.Channels, cfg.OutputFormat.FramesPerPeriod)

	appLog := cfg.AppLog
	if appLog == nil {
		appLog = slog.Default()
	}

	return &Receiver{
		conn:    cfg.Conn,
		dec:     dec,
		filler:  newSilenceFiller(sink, dec.ClockRate(), cfg.Log),
		log:     appLog,
		readBuf: make([]byte, 1500),
	}, nil
}

// Run reads packets until ctx is canceled or the connection errors.
func (r *Receiver) Run(ctx context.Context) error {
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

		decoded, err := r.dec.Decode(pkt.Payload)
		if err != nil {
			r.log.Warn("codec decode failed, dropping packet", "error", err)
			continue
		}

		if err := r.filler.HandleRTP(&pkt.Header, msdk.PCM16Sample(decoded)); err != nil {
			r.log.Warn("source sink write failed", "error", err)
		}
	}
}
