package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeDevice struct {
	volume      []uint16
	volumeCalls int
	mute        bool
	muteCalls   int
}

func (f *fakeDevice) Setup(ctx context.Context, sampleRate, channels, periodFrames int) (int, error) {
	return periodFrames, nil
}
func (f *fakeDevice) Start(ctx context.Context) error                                        { return nil }
func (f *fakeDevice) Stop(ctx context.Context) error                                          { return nil }
func (f *fakeDevice) PullFrames(dst []float32) error                                          { return nil }
func (f *fakeDevice) SupportsVolume() bool                                                    { return true }
func (f *fakeDevice) SetVolume(channels int, volume []uint16) error {
	f.volume = append([]uint16(nil), volume...)
	f.volumeCalls++
	return nil
}
func (f *fakeDevice) SupportsMute() bool { return true }
func (f *fakeDevice) SetMute(mute bool) error {
	f.mute = mute
	f.muteCalls++
	return nil
}
func (f *fakeDevice) SupportsLatency() bool        { return false }
func (f *fakeDevice) Latency() (int, error)        { return 0, nil }

func TestVolumeMuteCacheForwardsToDevice(t *testing.T) {
	var c VolumeMuteCache
	dev := &fakeDevice{}
	require.NoError(t, c.SetVolume(dev, 2, []uint16{50, 60}))
	require.NoError(t, c.SetMute(dev, true))
	require.Equal(t, []uint16{50, 60}, dev.volume)
	require.True(t, dev.mute)
}

func TestVolumeMuteCacheReappliesOnRestart(t *testing.T) {
	var c VolumeMuteCache
	dev1 := &fakeDevice{}
	require.NoError(t, c.SetVolume(dev1, 1, []uint16{77}))
	require.NoError(t, c.SetMute(dev1, true))

	dev2 := &fakeDevice{}
	require.NoError(t, c.Reapply(dev2))
	require.Equal(t, []uint16{77}, dev2.volume)
	require.True(t, dev2.mute)
}

func TestVolumeMuteCacheSkipsNilDevice(t *testing.T) {
	var c VolumeMuteCache
	require.NoError(t, c.SetVolume(nil, 1, []uint16{10}))
	require.NoError(t, c.SetMute(nil, false))
}

func TestPlaybackAndRecordCachesStaySeparate(t *testing.T) {
	var playback, record VolumeMuteCache
	devPlayback := &fakeDevice{}
	devRecord := &fakeDevice{}

	require.NoError(t, playback.SetVolume(devPlayback, 1, []uint16{100}))
	require.NoError(t, record.SetVolume(devRecord, 1, []uint16{5}))

	require.NoError(t, playback.Reapply(devPlayback))
	require.NoError(t, record.Reapply(devRecord))

	require.Equal(t, []uint16{100}, devPlayback.volume)
	require.Equal(t, []uint16{5}, devRecord.volume)
}
