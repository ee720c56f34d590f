package pcm

import "encoding/binary"

// S16ToF32 widens interleaved signed 16-bit samples to interleaved float32
// samples in the [-1, 1) range. dst is grown if its capacity is too small.
func S16ToF32(dst []float32, src []int16) []float32 {
	if cap(dst) < len(src) {
		dst = make([]float32, len(src))
	} else {
		dst = dst[:len(src)]
	}
	for i, s := range src {
		dst[i] = float32(s) / 32768.0
	}
	return dst
}

// F32ToS16 narrows interleaved float32 samples back to signed 16-bit,
// clamping to the representable range.
func F32ToS16(dst []int16, src []float32) []int16 {
	if cap(dst) < len(src) {
		dst = make([]int16, len(src))
	} else {
		dst = dst[:len(src)]
	}
	for i, s := range src {
		v := s * 32768.0
		switch {
		case v > 32767:
			v = 32767
		case v < -32768:
			v = -32768
		}
		dst[i] = int16(v)
	}
	return dst
}

// BytesToS16LE unpacks little-endian PCM16 bytes into int16 samples.
func BytesToS16LE(dst []int16, src []byte) []int16 {
	n := len(src) / 2
	if cap(dst) < n {
		dst = make([]int16, n)
	} else {
		dst = dst[:n]
	}
	for i := 0; i < n; i++ {
		dst[i] = int16(binary.LittleEndian.Uint16(src[i*2 : i*2+2]))
	}
	return dst
}

// S16LEToBytes packs int16 samples into little-endian PCM16 bytes.
func S16LEToBytes(dst []byte, src []int16) []byte {
	need := len(src) * 2
	if cap(dst) < need {
		dst = make([]byte, need)
	} else {
		dst = dst[:need]
	}
	for i, s := range src {
		binary.LittleEndian.PutUint16(dst[i*2:i*2+2], uint16(s))
	}
	return dst
}

// DownmixStereoToMonoF32 averages interleaved L/R float32 pairs into mono.
// Returns the number of mono samples written to dst.
func DownmixStereoToMonoF32(dst []float32, src []float32) int {
	nPairs := len(src) / 2
	if len(dst) < nPairs {
		nPairs = len(dst)
	}
	for i := 0; i < nPairs; i++ {
		dst[i] = (src[i*2] + src[i*2+1]) / 2
	}
	return nPairs
}

// UpmixMonoToStereoF32 duplicates mono float32 samples into interleaved
// stereo (L=R). Returns the number of stereo samples (L+R pairs) written.
func UpmixMonoToStereoF32(dst []float32, src []float32) int {
	n := len(src)
	if len(dst) < n*2 {
		n = len(dst) / 2
	}
	for i := 0; i < n; i++ {
		dst[i*2] = src[i]
		dst[i*2+1] = src[i]
	}
	return n
}

// ConvertChannelsF32 converts inCh-channel interleaved float32 frames to
// outCh-channel. Stereo->mono averages L/R and mono->stereo duplicates;
// other conversions copy the first input channel into every output channel.
func ConvertChannelsF32(dst []float32, src []float32, inCh, outCh int) []float32 {
	if inCh <= 0 {
		inCh = 1
	}
	if outCh <= 0 {
		outCh = 1
	}
	if inCh == outCh {
		if cap(dst) < len(src) {
			dst = make([]float32, len(src))
		} else {
			dst = dst[:len(src)]
		}
		copy(dst, src)
		return dst
	}
	if inCh == 2 && outCh == 1 {
		n := len(src) / 2
		if cap(dst) < n {
			dst = make([]float32, n)
		} else {
			dst = dst[:n]
		}
		DownmixStereoToMonoF32(dst, src)
		return dst
	}
	if inCh == 1 && outCh == 2 {
		n := len(src) * 2
		if cap(dst) < n {
			dst = make([]float32, n)
		} else {
			dst = dst[:n]
		}
		UpmixMonoToStereoF32(dst, src)
		return dst
	}
	frames := len(src) / inCh
	n := frames * outCh
	if cap(dst) < n {
		dst = make([]float32, n)
	} else {
		dst = dst[:n]
	}
	for f := 0; f < frames; f++ {
		v := src[f*inCh]
		for c := 0; c < outCh; c++ {
			dst[f*outCh+c] = v
		}
	}
	return dst
}
