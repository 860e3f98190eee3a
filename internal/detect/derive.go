package detect

import "github.com/sells-group/ads-radar/internal/model"

// safeRate divides n by d, defining a zero denominator as 0 rather than
// NaN, Inf, or an error.
func safeRate(n, d float64) float64 {
	if d == 0 {
		return 0
	}
	return n / d
}

// Derive computes the rate metrics for a single daily row. Total function:
// rows with zero impressions, clicks, or cost get 0 rates.
func Derive(m model.DailyMetric) model.DerivedMetric {
	return model.DerivedMetric{
		DailyMetric: m,
		CTR:         safeRate(float64(m.Clicks), float64(m.Impressions)),
		CPC:         safeRate(m.Cost, float64(m.Clicks)),
		CVR:         safeRate(m.Conversions, float64(m.Clicks)),
		ROAS:        safeRate(m.ConvValue, m.Cost),
	}
}

// DeriveAll applies Derive to every row, preserving order.
func DeriveAll(rows []model.DailyMetric) []model.DerivedMetric {
	out := make([]model.DerivedMetric, len(rows))
	for i, r := range rows {
		out[i] = Derive(r)
	}
	return out
}
