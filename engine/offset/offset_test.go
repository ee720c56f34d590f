package offset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEstimatorReturnsZeroBeforeFirstTick(t *testing.T) {
	e := NewEstimator(48000, 960)
	got, actual := e.Update(1000, 100, DeviceTicks{}, 0.1, 0.01)
	require.Equal(t, 0.0, got)
	require.Equal(t, 0.0, actual)
}

func TestEstimatorComputesOffsetFromInterpolatedDevicePosition(t *testing.T) {
	e := NewEstimator(48000, 960)
	dt := DeviceTicks{
		LastTime:     0,
		LastPosition: 0,
		NextTime:     20_000_000,
		NextPosition: 960,
		PeriodFrames: 960,
		Valid:        true,
	}
	// First call returns the pre-update (zero) offset and primes the filter.
	first, actual := e.Update(10_000_000, 480, dt, 0.1, 0.01)
	require.Equal(t, 0.0, first)
	require.NotEqual(t, 0.0, e.OffsetError)
	require.Equal(t, actual, e.LastActualOffsetFrames)
	// Source position 480 against an interpolated device position of 480.
	require.Equal(t, 0.0, actual)
}

func TestEstimatorTransitionalCorrectionWhenPeriodBelowMax(t *testing.T) {
	eA := NewEstimator(48000, 960)
	eB := NewEstimator(48000, 960)
	dtFull := DeviceTicks{LastTime: 0, LastPosition: 0, NextTime: 20_000_000, NextPosition: 960, PeriodFrames: 960, Valid: true}
	dtReduced := dtFull
	dtReduced.PeriodFrames = 480

	eA.Update(10_000_000, 5000, dtFull, 0.1, 0.01)
	eB.Update(10_000_000, 5000, dtReduced, 0.1, 0.01)

	require.NotEqual(t, eA.OffsetError, eB.OffsetError)
}

func TestEstimatorActualOffsetHoldsLastValueWithoutValidTicks(t *testing.T) {
	e := NewEstimator(48000, 960)
	dt := DeviceTicks{LastTime: 0, LastPosition: 0, NextTime: 20_000_000, NextPosition: 960, PeriodFrames: 960, Valid: true}

	_, first := e.Update(10_000_000, 480, dt, 0.1, 0.01)
	require.Equal(t, 0.0, first) // 480 - interpolated 480

	// Same tick pair again (no new tick drained means dt is unchanged): the
	// offset is still measured afresh for the new curTime/curPosition.
	_, second := e.Update(10_500_000, 500, dt, 0.1, 0.01)
	require.NotEqual(t, first, second, "a new curTime/curPosition still measures a fresh actual offset against the same tick pair")

	stale := DeviceTicks{Valid: false}
	_, third := e.Update(11_000_000, 520, stale, 0.1, 0.01)
	require.Equal(t, second, third, "an invalid tick must hold the last measured actual offset rather than reporting zero")
}
