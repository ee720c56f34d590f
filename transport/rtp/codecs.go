// Package rtp adapts a network RTP source into the engine's source-thread
// entry point (engine.Stream.SubmitSourceData), grounded on the teacher's
// bridge/pipeline RTP decode chain (bridge/pipeline/sip_decode.go,
// rtp_adapter.go, silence_filler.go, tg_playout_sink.go) and codec
// registration (bridge/lk_codecs.go, lk_codecs_opus.go), generalized from a
// SIP-to-Telegram bridge onto a single source-to-engine path.
//
// Unlike the teacher, which registers codecs into livekit/media-sdk's SDP
// negotiation registry, this package decodes its static-payload RTP codecs
// (PCMU, PCMA, G722) directly with the codec libraries the teacher's dependency set pulls in
// but never exercises (github.com/zaf/g711, github.com/gotranspile/g722),
// since there is no SDP negotiation surface here (spec.md's scope excludes
// signaling) — only a fixed, configured payload-type-to-codec mapping.
package rtp

import (
	"fmt"

	"github.com/gotranspile/g722"
	"github.com/zaf/g711"

	"github.com/loopwire/adaptiveplayback/engine/pcm"
)

// PayloadType identifies the RTP static/dynamic payload type carried by a
// source stream (RFC 3551 §6 for the static PCMU/PCMA/G722 assignments).
type PayloadType uint8

const (
	PayloadPCMU PayloadType = 0
	PayloadPCMA PayloadType = 8
	PayloadG722 PayloadType = 9
)

// Decoder converts one RTP payload into PCM16 samples at the codec's decoded
// sample rate, which ClockRate reports (8kHz for PCMU/PCMA, 16kHz for G722).
type Decoder interface {
	Decode(payload []byte) ([]int16, error)
	ClockRate() int
}

type pcmuDecoder struct{}

func (pcmuDecoder) ClockRate() int { return 8000 }
func (pcmuDecoder) Decode(payload []byte) ([]int16, error) {
	return pcm.BytesToS16LE(nil, g711.DecodeUlaw(payload)), nil
}

type pcmaDecoder struct{}

func (pcmaDecoder) ClockRate() int { return 8000 }
func (pcmaDecoder) Decode(payload []byte) ([]int16, error) {
	return pcm.BytesToS16LE(nil, g711.DecodeAlaw(payload)), nil
}

type g722Decoder struct {
	dec *g722.Decoder
}

func newG722Decoder() *g722Decoder {
	return &g722Decoder{dec: g722.NewDecoder(g722.Rate64000, 0)}
}

func (d *g722Decoder) ClockRate() int { return 16000 }
func (d *g722Decoder) Decode(payload []byte) ([]int16, error) {
	return d.dec.Decode(payload), nil
}

// NewDecoder builds the Decoder registered for a given static payload type.
func NewDecoder(pt PayloadType) (Decoder, error) {
	switch pt {
	case PayloadPCMU:
		return pcmuDecoder{}, nil
	case PayloadPCMA:
		return pcmaDecoder{}, nil
	case PayloadG722:
		return newG722Decoder(), nil
	default:
		return nil, fmt.Errorf("rtp: unsupported payload type %d", pt)
	}
}
