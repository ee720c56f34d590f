package engine

import (
	"context"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/loopwire/adaptiveplayback/engine/resample"
)

type fakeDevice struct {
	maxPeriodFrames int
	started         bool
	stopped         bool
}

func (f *fakeDevice) Setup(ctx context.Context, sampleRate, channels, periodFrames int) (int, error) {
	return f.maxPeriodFrames, nil
}
func (f *fakeDevice) Start(ctx context.Context) error { f.started = true; return nil }
func (f *fakeDevice) Stop(ctx context.Context) error  { f.stopped = true; return nil }
func (f *fakeDevice) PullFrames(dst []float32) error  { return nil }
func (f *fakeDevice) SupportsVolume() bool            { return false }
func (f *fakeDevice) SetVolume(int, []uint16) error   { return nil }
func (f *fakeDevice) SupportsMute() bool              { return false }
func (f *fakeDevice) SetMute(bool) error              { return nil }
func (f *fakeDevice) SupportsLatency() bool           { return false }
func (f *fakeDevice) Latency() (int, error)           { return 0, nil }

type identityResampler struct{}

func (identityResampler) Process(ratio float64, in, out []float32) (used, generated int, err error) {
	n := len(in)
	if n > len(out) {
		n = len(out)
	}
	copy(out[:n], in[:n])
	return n, n, nil
}

func newTestStream(t *testing.T) (*Stream, *fakeDevice) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Channels = 1
	cfg.SampleRate = 48000
	dev := &fakeDevice{maxPeriodFrames: 1024}
	s, err := NewStream(context.Background(), cfg, dev, nil)
	require.NoError(t, err)
	s.resample = resample.NewControllerWithResampler(cfg.RateControlKp, cfg.RateControlKi, 1, identityResampler{})
	return s, dev
}

func TestStreamStartsInSetup(t *testing.T) {
	s, _ := newTestStream(t)
	require.Equal(t, StateSetup, s.State())
}

func TestStreamDropsDataWhileStopped(t *testing.T) {
	s, dev := newTestStream(t)
	s.state.Store(int32(StateStop))
	err := s.SubmitSourceData(make([]float32, 960), 960)
	require.NoError(t, err)
	require.Equal(t, 0, s.buf.Count())
	require.False(t, dev.started)
}

func TestStreamTransitionsToRunAfterStartGate(t *testing.T) {
	s, dev := newTestStream(t)
	gate := s.cfg.StartupPrefillPeriods*960 + s.cfg.StartupPrefillPeriods*1024

	for i := 0; i < 20 && s.State() == StateSetup; i++ {
		err := s.SubmitSourceData(make([]float32, 960), 960)
		require.NoError(t, err)
		if s.buf.Count() >= gate {
			require.Equal(t, StateRun, s.State())
			require.True(t, dev.started)
			return
		}
		require.False(t, dev.started, "device must not start before the gate is met")
	}
	t.Fatal("stream never reached RUN")
}

func TestStreamStartGateHonorsConfiguredPrefillPeriods(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Channels = 1
	cfg.SampleRate = 48000
	cfg.StartupPrefillPeriods = 1
	dev := &fakeDevice{maxPeriodFrames: 1024}
	s, err := NewStream(context.Background(), cfg, dev, nil)
	require.NoError(t, err)
	s.resample = resample.NewControllerWithResampler(cfg.RateControlKp, cfg.RateControlKi, 1, identityResampler{})

	gate := cfg.StartupPrefillPeriods*960 + cfg.StartupPrefillPeriods*1024
	require.Equal(t, 960+1024, gate, "a 1x prefill gate must be half the default 2x gate")

	reachedRun := false
	for i := 0; i < 20 && s.State() == StateSetup; i++ {
		require.NoError(t, s.SubmitSourceData(make([]float32, 960), 960))
		if s.buf.Count() >= gate {
			require.Equal(t, StateRun, s.State())
			reachedRun = true
			break
		}
	}
	require.True(t, reachedRun, "stream never reached RUN with a 1x prefill gate")
}

func TestStreamDrainThenStopOnEmptyBuffer(t *testing.T) {
	s, dev := newTestStream(t)
	require.NoError(t, s.SubmitSourceData(make([]float32, 960), 960))
	s.Stop()
	require.Equal(t, StateDrain, s.State())

	dst := make([]float32, s.buf.Count())
	if len(dst) > 0 {
		require.NoError(t, s.PullSinkFrames(dst))
	}
	require.NoError(t, s.PullSinkFrames(nil))
	require.Equal(t, StateDrain, s.State())

	require.NoError(t, s.PullSinkFrames([]float32{0}))
	require.Equal(t, StateStop, s.State())
	require.True(t, dev.stopped)
}

func TestStreamStopIsIdempotent(t *testing.T) {
	s, _ := newTestStream(t)
	s.Stop()
	s.Stop()
	require.Equal(t, StateDrain, s.State())
}

type volumeCapableDevice struct {
	fakeDevice
	playbackVolume []uint16
	recordVolume   []uint16
}

func (f *volumeCapableDevice) SupportsVolume() bool { return true }
func (f *volumeCapableDevice) SetVolume(channels int, volume []uint16) error {
	// The fake can't tell playback from record calls apart by itself; the
	// test instead asserts on the two VolumeMuteCache values directly.
	f.playbackVolume = append([]uint16(nil), volume...)
	return nil
}

func TestRecordVolumeCacheStaysSeparateFromPlayback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Channels = 1
	dev := &volumeCapableDevice{}
	s, err := NewStream(context.Background(), cfg, dev, nil)
	require.NoError(t, err)

	require.NoError(t, s.SetVolume(1, []uint16{80}))
	require.NoError(t, s.SetRecordVolume(1, []uint16{20}))

	require.Equal(t, []uint16{80}, s.playbackVolume.Volume())
	require.Equal(t, []uint16{20}, s.recordVolume.Volume())
}

func TestCacheLineSeparationBetweenSinkAndSourceClocks(t *testing.T) {
	s, _ := newTestStream(t)
	sinkAddr := uintptr(unsafe.Pointer(&s.sink))
	sourceAddr := uintptr(unsafe.Pointer(&s.source))
	diff := sourceAddr - sinkAddr
	require.GreaterOrEqual(t, diff, uintptr(cacheLinePadding))
}
