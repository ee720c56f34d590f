// Package offset implements the source/sink position offset estimator
// (spec.md C5), grounded on the target-latency and offset-filtering section
// of playbackPullFrames in the original audio.c this spec was distilled
// from (the interpolated device-position measurement, the 13ms jitter
// margin plus 1.1x device-jitter multiplier, the transitional correction
// for an in-progress period-size reduction, and the second-order filter
// reusing the source PLL's own b/c coefficients).
package offset

// Estimator tracks the filtered offset error between the source and sink
// positions, used to drive the PI rate controller (spec.md C6).
type Estimator struct {
	SampleRate            int
	DeviceMaxPeriodFrames int
	JitterMarginMs        float64 // default 13ms
	DeviceJitterFactor    float64 // default 1.1

	OffsetError         float64
	OffsetErrorIntegral float64

	// LastActualOffsetFrames is the most recently measured raw offset
	// (source position minus interpolated sink position, in frames) before
	// any filtering — the quantity the original feeds into its latency
	// telemetry graph (audio.c's `actualOffset`), distinct from the
	// filtered OffsetError the PI controller consumes.
	LastActualOffsetFrames float64
}

func NewEstimator(sampleRate, deviceMaxPeriodFrames int) *Estimator {
	return &Estimator{
		SampleRate:            sampleRate,
		DeviceMaxPeriodFrames: deviceMaxPeriodFrames,
		JitterMarginMs:        13,
		DeviceJitterFactor:    1.1,
	}
}

// DeviceTicks bundles the two most recent sink clock ticks used to
// interpolate the sink's position at the source's current time (spec.md §3
// TickQueue, drained by the engine's tick queue drain).
type DeviceTicks struct {
	LastTime     int64
	LastPosition int64
	NextTime     int64
	NextPosition int64
	PeriodFrames int
	Valid        bool // false until at least one tick pair has been observed
}

// Update folds in one source-side tick. It returns the offset error to use
// for THIS tick's PI controller input (the value computed on the previous
// call), matching the original's use of the pre-update offsetError before
// refining it with the newly measured sample. b and c are the source PLL's
// current loop-filter coefficients (spec.md §4.4) — the offset filter reuses
// them rather than carrying its own bandwidth. The second return value is
// the raw measured offset in frames (source position minus interpolated
// sink position), the quantity the original's latency telemetry graph
// reports — unlike offsetErrorForThisTick it is NOT filtered. It is measured
// afresh on every call with a valid tick pair (even an unchanged one), and
// holds its previous value when dt is not Valid or its two tick times are equal.
func (e *Estimator) Update(curTime, curPosition int64, dt DeviceTicks, b, c float64) (offsetErrorForThisTick, actualOffsetFrames float64) {
	offsetErrorForThisTick = e.OffsetError
	if !dt.Valid || dt.NextTime == dt.LastTime {
		return offsetErrorForThisTick, e.LastActualOffsetFrames
	}

	devPosition := float64(dt.LastPosition) +
		float64(dt.NextPosition-dt.LastPosition)*
			(float64(curTime-dt.LastTime)/float64(dt.NextTime-dt.LastTime))

	target := e.JitterMarginMs*float64(e.SampleRate)/1000.0 +
		float64(e.DeviceMaxPeriodFrames)*e.DeviceJitterFactor
	if dt.PeriodFrames < e.DeviceMaxPeriodFrames {
		target += float64(e.DeviceMaxPeriodFrames - dt.PeriodFrames)
	}

	actualOffset := float64(curPosition) - devPosition
	e.LastActualOffsetFrames = actualOffset
	actualOffsetError := -(actualOffset - target)

	errv := actualOffsetError - e.OffsetError
	e.OffsetError += b*errv + e.OffsetErrorIntegral
	e.OffsetErrorIntegral += c * errv

	return offsetErrorForThisTick, actualOffset
}
