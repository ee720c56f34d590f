// Package engine implements the adaptive playback clock-recovery pipeline:
// the coupling buffer, tick queue, dual PLL clock trackers, offset
// estimator, PI rate controller and sinc resampler driver, and the stream
// lifecycle state machine that wires them together (spec.md §2 C1-C8),
// grounded on the source/sink drift-control flow of the teacher's
// bridge/media_bridge.go MediaBridge and the two-thread callback design of
// the original audio.c this spec was distilled from.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/loopwire/adaptiveplayback/engine/backend"
	"github.com/loopwire/adaptiveplayback/engine/clock"
	"github.com/loopwire/adaptiveplayback/engine/offset"
	"github.com/loopwire/adaptiveplayback/engine/resample"
	"github.com/loopwire/adaptiveplayback/engine/ring"
)

// State is the stream lifecycle state (spec.md §3 Lifecycle, §4.7 C7).
type State int32

const (
	StateStop State = iota
	StateSetup
	StateRun
	StateDrain
)

func (s State) String() string {
	switch s {
	case StateStop:
		return "stop"
	case StateSetup:
		return "setup"
	case StateRun:
		return "run"
	case StateDrain:
		return "drain"
	default:
		return "unknown"
	}
}

const cacheLinePadding = 64

// paddedSinkClock isolates the sink-side PLL state on its own cache lines
// so the sink thread's writes never false-share with the source thread's
// paddedSourceClock (spec.md §5, testable property 6).
type paddedSinkClock struct {
	clock.SinkState
	_ [cacheLinePadding]byte
}

type paddedSourceClock struct {
	clock.SourceState
	_ [cacheLinePadding]byte
}

// Stream is one logical playback session (spec.md §3). It is not safe to
// use Stream concurrently with Stop from more than one goroutine;
// SubmitSourceData and the sink pull path may run concurrently with each
// other (that is the whole point) but not with lifecycle transitions.
type Stream struct {
	cfg      Config
	log      *slog.Logger
	device   backend.Device
	resample *resample.Controller

	channels              int
	deviceMaxPeriodFrames int
	sourcePeriodFrames    int

	state atomic.Int32

	buf   *ring.CouplingBuffer
	ticks tickQueue

	sink   paddedSinkClock
	source paddedSourceClock
	off    *offset.Estimator

	devLast, devNext Tick
	haveDevTick      bool

	playbackVolume backend.VolumeMuteCache
	recordVolume   backend.VolumeMuteCache

	lastStatsLog           time.Time
	lastActualOffsetFrames float64
	latencies              latencyRing
}

// ErrBackendUnavailable is returned by NewStream when no device could be
// set up (spec.md §7 BackendUnavailable).
var ErrBackendUnavailable = errors.New("engine: backend unavailable")

// NewStream constructs and sets up a stream against dev, entering SETUP
// (spec.md §4.7). It tears down nothing: Stream has no restart operation,
// and a previously constructed Stream is not stopped by building a new one.
func NewStream(ctx context.Context, cfg Config, dev backend.Device, log *slog.Logger) (*Stream, error) {
	if dev == nil {
		return nil, ErrBackendUnavailable
	}
	if log == nil {
		log = slog.Default()
	}

	quality := resample.QualityFromString(cfg.ResamplerQuality)
	rc, err := resample.NewController(cfg.RateControlKp, cfg.RateControlKi, cfg.Channels, quality)
	if err != nil {
		return nil, fmt.Errorf("engine: resampler init failure: %w", err)
	}

	s := &Stream{
		cfg:      cfg,
		log:      log,
		device:   dev,
		resample: rc,
		channels: cfg.Channels,
		buf:      ring.NewCouplingBuffer(cfg.Channels, cfg.SampleRate), // >=1s capacity
		off:      offset.NewEstimator(cfg.SampleRate, 0),
		sink: paddedSinkClock{SinkState: clock.SinkState{Params: clock.Params{
			SampleRate:    cfg.SampleRate,
			BandwidthHz:   cfg.PLLBandwidthHz,
			SlewThreshold: cfg.ClockSlewThreshold.Seconds(),
		}}},
		source: paddedSourceClock{SourceState: clock.SourceState{Params: clock.Params{
			SampleRate:    cfg.SampleRate,
			BandwidthHz:   cfg.PLLBandwidthHz,
			SlewThreshold: cfg.ClockSlewThreshold.Seconds(),
		}}},
	}

	maxPeriod, err := s.setupDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: device setup failure: %w", err)
	}
	s.deviceMaxPeriodFrames = maxPeriod
	s.off.DeviceMaxPeriodFrames = maxPeriod
	s.off.JitterMarginMs = cfg.NetworkJitterMargin.Seconds() * 1000
	s.off.DeviceJitterFactor = cfg.DeviceJitterFactor

	s.state.Store(int32(StateSetup))
	return s, nil
}

func (s *Stream) setupDevice(ctx context.Context) (int, error) {
	maxPeriod, err := s.device.Setup(ctx, s.cfg.SampleRate, s.cfg.Channels, 0)
	if err != nil {
		return 0, err
	}
	if maxPeriod <= 0 {
		maxPeriod = s.cfg.SampleRate / 50 // 20ms fallback if the device reports nothing
	}
	if err := s.playbackVolume.Reapply(s.device); err != nil {
		s.log.Warn("failed to reapply cached playback volume/mute", "error", err)
	}
	return maxPeriod, nil
}

// State returns the current lifecycle state.
func (s *Stream) State() State { return State(s.state.Load()) }

// SubmitSourceData is the source thread's entry point (spec.md §6
// audio_playbackData). in is PCM16 interleaved samples converted to
// float32 by the caller (engine/pcm); frames is the number of frames in
// the period. Data submitted while the stream is stopped or draining is
// dropped without effect on state (spec.md §4.7, testable property 5).
func (s *Stream) SubmitSourceData(in []float32, frames int) error {
	st := s.State()
	if st != StateSetup && st != StateRun {
		return nil
	}
	if frames <= 0 {
		return nil
	}

	now := nowNanos()
	s.sourcePeriodFrames = frames

	s.devLast, s.devNext, s.haveDevTick = s.drainTicks(s.devLast, s.devNext, s.haveDevTick)

	curTime, curPosition, slewFrames, slewed := s.source.Update(now, frames)
	if slewed {
		s.buf.Append(nil, slewFrames)
	}

	offsetErrorForThisTick, actualOffsetFrames := s.off.Update(curTime, curPosition, s.currentDeviceTicks(), s.source.B, s.source.C)
	s.lastActualOffsetFrames = actualOffsetFrames

	err := s.resample.Process(in, frames, offsetErrorForThisTick, s.source.PeriodSec, func(out []float32, n int) {
		s.buf.Append(out, n)
		s.source.NextPosition += int64(n)
	})
	if err != nil {
		s.log.Warn("resample period failed, discarding period", "error", err)
		return nil // ResamplerRuntimeFailure: discard period, stream continues (spec.md §7)
	}

	if st == StateSetup {
		gate := s.cfg.StartupPrefillPeriods*s.sourcePeriodFrames + s.cfg.StartupPrefillPeriods*s.deviceMaxPeriodFrames
		if s.buf.Count() >= gate {
			if err := s.transitionToRun(); err != nil {
				return fmt.Errorf("engine: start failed: %w", err)
			}
		}
	}

	s.maybeLogStats(curPosition)
	return nil
}

func (s *Stream) drainTicks(last, next Tick, have bool) (Tick, Tick, bool) {
	newLast, newNext, _ := s.ticks.drain(last, next)
	// A real sink tick always has PeriodFrames > 0, so newLast holding one
	// means a full pair of ticks has been observed.
	return newLast, newNext, have || newLast.PeriodFrames > 0
}

func (s *Stream) currentDeviceTicks() offset.DeviceTicks {
	return offset.DeviceTicks{
		LastTime:     s.devLast.NextTime,
		LastPosition: s.devLast.NextPosition,
		NextTime:     s.devNext.NextTime,
		NextPosition: s.devNext.NextPosition,
		PeriodFrames: s.devNext.PeriodFrames,
		Valid:        s.haveDevTick,
	}
}

func (s *Stream) transitionToRun() error {
	if err := s.device.Start(context.Background()); err != nil {
		return err
	}
	s.state.Store(int32(StateRun))
	return nil
}

// PullSinkFrames is the sink thread's entry point (spec.md §4.2/§4.7). dst
// is filled with exactly len(dst)/channels frames. In DRAIN, once the
// buffer empties, the stream transitions to STOP and tears itself down; that
// call leaves dst untouched.
func (s *Stream) PullSinkFrames(dst []float32) error {
	frames := len(dst) / s.channels
	if frames <= 0 {
		return nil
	}

	st := s.State()
	if st == StateDrain && s.buf.Count() == 0 {
		return s.teardown()
	}

	got := s.buf.Consume(dst, frames)
	if got < frames {
		for i := got * s.channels; i < len(dst); i++ {
			dst[i] = 0
		}
	}

	now := nowNanos()
	slewFrames, slewed := s.sink.Update(now, frames)
	if slewed {
		s.buf.Consume(nil, slewFrames)
	}

	if err := s.ticks.push(Tick{
		PeriodFrames: s.sink.PeriodFrames,
		NextTime:     s.sink.NextTime,
		NextPosition: s.sink.NextPosition,
	}); err != nil {
		// TickQueueOverflow (spec.md §7): the source thread stalled for more
		// than 16 sink periods. The sink never blocks on this; the dropped
		// tick is simply lost and the source will catch up on its next pull.
		s.log.Warn("tick queue overflow", "error", err)
	}

	return nil
}

// Stop schedules a drain (spec.md §6 audio_playbackStop): the sink keeps
// pulling until the coupling buffer empties, at which point it tears down.
func (s *Stream) Stop() {
	for {
		cur := State(s.state.Load())
		if cur == StateStop || cur == StateDrain {
			return
		}
		if s.state.CompareAndSwap(int32(cur), int32(StateDrain)) {
			return
		}
	}
}

func (s *Stream) teardown() error {
	s.state.Store(int32(StateStop))
	return s.device.Stop(context.Background())
}

// SetVolume caches and forwards a volume vector (spec.md §4.8, §6
// audio_playbackVolume).
func (s *Stream) SetVolume(channels int, volume []uint16) error {
	return s.playbackVolume.SetVolume(s.device, channels, volume)
}

// SetMute caches and forwards the mute flag (spec.md §6 audio_playbackMute).
func (s *Stream) SetMute(mute bool) error {
	return s.playbackVolume.SetMute(s.device, mute)
}

// SetRecordVolume caches and forwards a record-side volume vector. Kept on
// a cache strictly separate from playbackVolume — the original's bug was
// reapplying the playback cache here (spec.md §9 Open Question (a), §13).
func (s *Stream) SetRecordVolume(channels int, volume []uint16) error {
	return s.recordVolume.SetVolume(s.device, channels, volume)
}

// SetRecordMute caches and forwards the record-side mute flag, again using
// recordVolume rather than playbackVolume.
func (s *Stream) SetRecordMute(mute bool) error {
	return s.recordVolume.SetMute(s.device, mute)
}

// latencyFrames mirrors the original's audio.c telemetry computation:
// latencyFrames = actualOffset, plus the backend's own reported queue delay
// when it can provide one (spec.md §13 supplemented features).
func (s *Stream) latencyFrames() float64 {
	latencyFrames := s.lastActualOffsetFrames
	if s.device.SupportsLatency() {
		if backendFrames, err := s.device.Latency(); err != nil {
			s.log.Warn("failed to read device latency", "error", err)
		} else {
			latencyFrames += float64(backendFrames)
		}
	}
	return latencyFrames
}

func (s *Stream) maybeLogStats(curPosition int64) {
	now := time.Now()
	if now.Sub(s.lastStatsLog) < 5*time.Second {
		return
	}
	s.lastStatsLog = now
	s.latencies.push(float32(s.latencyFrames()) * 1000 / float32(s.cfg.SampleRate))
	s.log.Debug("clock recovery stats",
		"offsetError", s.off.OffsetError,
		"actualOffsetFrames", s.lastActualOffsetFrames,
		"sourcePosition", curPosition,
		"bufferedFrames", s.buf.Count(),
	)
}

func nowNanos() int64 {
	return time.Now().UnixNano()
}
