// Package clock implements the second-order phase-locked loop that tracks
// each side's wall-clock timing (spec.md C3 sink-side, C4 source-side),
// grounded directly on the PlaybackDeviceData/PlaybackSpiceData structs and
// playbackPullFrames/audio_playbackData clock sections of the original
// audio.c this spec was distilled from.
package clock

import "math"

// Params are the PLL's tunable constants (spec.md §9 Open Question (b)).
type Params struct {
	SampleRate    int
	BandwidthHz   float64 // loop bandwidth, default 0.05 Hz
	SlewThreshold float64 // seconds; |error| at/above this triggers a slew
}

func (p Params) sampleRateOrDefault() float64 {
	if p.SampleRate <= 0 {
		return 1
	}
	return float64(p.SampleRate)
}

func recomputeCoeffs(periodSec, bandwidthHz float64) (b, c float64) {
	omega := 2 * math.Pi * bandwidthHz * periodSec
	return math.Sqrt2 * omega, omega * omega
}

// SinkState tracks the local playback device's clock (spec.md C3). It is
// touched only by the sink thread; the source thread only ever sees the
// Ticks it publishes.
type SinkState struct {
	Params

	PeriodFrames int
	PeriodSec    float64
	NextTime     int64
	NextPosition int64
	B, C         float64
}

func NewSinkState(p Params) *SinkState {
	return &SinkState{Params: p}
}

// Update advances the sink clock on arrival of a period of `frames` at
// monotonic time `now` (ns). It returns the number of buffered frames to
// discard from the coupling buffer to correct a large clock-error
// excursion (spec.md §4.3 "same-period tick, slew"); the caller is
// responsible for performing that discard (engine.Stream owns the ring).
func (s *SinkState) Update(now int64, frames int) (slewFrames int, slewed bool) {
	if frames != s.PeriodFrames {
		newPeriodSec := float64(frames) / s.sampleRateOrDefault()
		if s.PeriodFrames == 0 {
			s.NextTime = now + int64(newPeriodSec*1e9)
		} else {
			// Double-buffering correction: the device is still playing the
			// previous period's buffer, so advance by the OLD period.
			s.NextTime += int64(s.PeriodSec * 1e9)
		}
		s.PeriodFrames = frames
		s.PeriodSec = newPeriodSec
		s.NextPosition += int64(frames)
		s.B, s.C = recomputeCoeffs(s.PeriodSec, s.BandwidthHz)
		return 0, false
	}

	errSec := float64(now-s.NextTime) * 1e-9
	if math.Abs(errSec) >= s.SlewThreshold {
		slewFrames = int(math.Round(errSec * s.sampleRateOrDefault()))
		s.PeriodSec = float64(frames) / s.sampleRateOrDefault()
		s.NextTime = now + int64(s.PeriodSec*1e9)
		s.NextPosition += int64(slewFrames + frames)
		return slewFrames, true
	}

	s.NextTime += int64((s.B*errSec + s.PeriodSec) * 1e9)
	s.PeriodSec += s.C * errSec
	s.NextPosition += int64(frames)
	return 0, false
}

// SourceState tracks the network source's clock (spec.md C4). It is
// touched only by the source thread.
type SourceState struct {
	Params

	PeriodFrames int
	PeriodSec    float64
	NextTime     int64
	NextPosition int64
	B, C         float64
}

func NewSourceState(p Params) *SourceState {
	return &SourceState{Params: p}
}

// Update advances the source clock on arrival of a period of `frames` at
// monotonic time `now` (ns). It returns the exported (curTime, curPosition)
// pair used by the offset estimator (spec.md C5), plus the number of
// silence frames the caller must append to the coupling buffer to correct a
// slew (spec.md §4.4).
func (s *SourceState) Update(now int64, frames int) (curTime, curPosition int64, slewFrames int, slewed bool) {
	periodChanged := frames != s.PeriodFrames
	init := s.PeriodFrames == 0
	s.PeriodFrames = frames

	if periodChanged {
		if init {
			s.NextTime = now
		}
		curTime = s.NextTime
		curPosition = s.NextPosition

		s.PeriodSec = float64(frames) / s.sampleRateOrDefault()
		s.NextTime += int64(s.PeriodSec * 1e9)
		s.B, s.C = recomputeCoeffs(s.PeriodSec, s.BandwidthHz)
		return curTime, curPosition, 0, false
	}

	errSec := float64(now-s.NextTime) * 1e-9
	if math.Abs(errSec) >= s.SlewThreshold {
		slewFrames = int(math.Round(errSec * s.sampleRateOrDefault()))
		curTime = now
		curPosition = s.NextPosition + int64(slewFrames)

		s.PeriodSec = float64(frames) / s.sampleRateOrDefault()
		s.NextTime = now + int64(s.PeriodSec*1e9)
		s.NextPosition = curPosition
		return curTime, curPosition, slewFrames, true
	}

	curTime = s.NextTime
	curPosition = s.NextPosition
	s.NextTime += int64((s.B*errSec + s.PeriodSec) * 1e9)
	s.PeriodSec += s.C * errSec
	return curTime, curPosition, 0, false
}
