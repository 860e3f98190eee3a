package detect

import "math"

// DefaultSpan is the EWMA smoothing span in days.
const DefaultSpan = 14

// Baseline is the smoothed expectation and residual spread for one
// (entity, metric) series. Recomputed per detection call, never cached.
type Baseline struct {
	Expected float64
	Spread   float64
}

// EstimateBaseline runs the EWMA recurrence over a date-ordered series:
// level_0 = x_0, then level_t = alpha*x_t + (1-alpha)*level_{t-1} with
// alpha = 2/(span+1). Expected is the final level. Spread is the
// Bessel-corrected standard deviation of the per-point residuals
// x_t - level_t, or 0 when fewer than two points exist. ok is false for an
// empty series, meaning the caller has no baseline to score against.
//
// The residual at each point uses the level that has already absorbed that
// point, not a one-step-ahead forecast.
func EstimateBaseline(values []float64, span int) (Baseline, bool) {
	if len(values) == 0 {
		return Baseline{}, false
	}
	if span <= 0 {
		span = DefaultSpan
	}
	alpha := 2.0 / (float64(span) + 1.0)

	level := values[0]
	resid := make([]float64, len(values))
	for i := 1; i < len(values); i++ {
		level = alpha*values[i] + (1-alpha)*level
		resid[i] = values[i] - level
	}
	return Baseline{Expected: level, Spread: sampleStdDev(resid)}, true
}

// sampleStdDev is the ddof=1 standard deviation; 0 when n < 2.
func sampleStdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
