package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTickQueuePushDrainFIFO(t *testing.T) {
	var q tickQueue
	require.NoError(t, q.push(Tick{PeriodFrames: 1, NextTime: 10, NextPosition: 100}))
	require.NoError(t, q.push(Tick{PeriodFrames: 1, NextTime: 20, NextPosition: 200}))

	last, next, got := q.drain(Tick{}, Tick{})
	require.True(t, got)
	require.Equal(t, int64(10), last.NextTime)
	require.Equal(t, int64(20), next.NextTime)
}

func TestTickQueueDrainCarriesStateAcrossCalls(t *testing.T) {
	var q tickQueue
	require.NoError(t, q.push(Tick{NextTime: 10}))
	last, next, got := q.drain(Tick{}, Tick{})
	require.True(t, got)
	require.Equal(t, int64(0), last.NextTime)
	require.Equal(t, int64(10), next.NextTime)

	require.NoError(t, q.push(Tick{NextTime: 20}))
	last, next, got = q.drain(last, next)
	require.True(t, got)
	require.Equal(t, int64(10), last.NextTime)
	require.Equal(t, int64(20), next.NextTime)
}

func TestTickQueueDrainNoNewTicksIsNoop(t *testing.T) {
	var q tickQueue
	last, next, got := q.drain(Tick{NextTime: 5}, Tick{NextTime: 6})
	require.False(t, got)
	require.Equal(t, int64(5), last.NextTime)
	require.Equal(t, int64(6), next.NextTime)
}

func TestTickQueueOverflow(t *testing.T) {
	var q tickQueue
	for i := 0; i < tickQueueSlots; i++ {
		require.NoError(t, q.push(Tick{NextTime: int64(i)}))
	}
	err := q.push(Tick{NextTime: 999})
	require.ErrorIs(t, err, ErrTickQueueOverflow)
}
