package rtp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loopwire/adaptiveplayback/engine/pcm"
)

func TestNewDecoderDispatchesByPayloadType(t *testing.T) {
	for _, pt := range []PayloadType{PayloadPCMU, PayloadPCMA, PayloadG722} {
		dec, err := NewDecoder(pt)
		require.NoError(t, err)
		require.NotNil(t, dec)
		require.Greater(t, dec.ClockRate(), 0)
	}
}

func TestNewDecoderRejectsUnknownPayloadType(t *testing.T) {
	_, err := NewDecoder(PayloadType(99))
	require.Error(t, err)
}

func TestBytesToS16LEUnpacksLittleEndian(t *testing.T) {
	in := []byte{0x00, 0x01, 0xff, 0x7f}
	out := pcm.BytesToS16LE(nil, in)
	require.Equal(t, []int16{0x0100, 0x7fff}, out)
}
