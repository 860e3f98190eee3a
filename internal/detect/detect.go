// Package detect implements the anomaly engine: rate derivation, EWMA
// baseline estimation, z-score gating, and multi-day range scanning.
package detect

import (
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/ads-radar/internal/model"
)

// ScoredMetrics is the fixed signal set evaluated per entity, in output
// order: spend, engagement, conversion efficiency. CPC and ROAS are derived
// but not scored; they move with the scored three and would double-report.
var ScoredMetrics = []model.Metric{model.MetricCost, model.MetricCTR, model.MetricCVR}

// MinImpressions is the volume floor. Entities below this traffic level on
// the evaluation day are never flagged: their ratios are numerically
// unstable and z-scores on them are noise.
const MinImpressions = 200

const (
	// DefaultMinZ is the |z| threshold an observation must clear.
	DefaultMinZ = 2.0
	// DefaultLookback is the history window length in days.
	DefaultLookback = 28
)

// Detector scores a day's observations against EWMA baselines built from a
// trailing history window. Stateless between calls.
type Detector struct {
	span           int
	minImpressions int64
}

// NewDetector creates a Detector with the given smoothing span.
func NewDetector(span int) *Detector {
	if span <= 0 {
		span = DefaultSpan
	}
	return &Detector{span: span, minImpressions: MinImpressions}
}

// Detect compares each entity's observation for day against the baseline
// built from its history rows and returns the anomalies found. Entities
// with no history or no row for the day are skipped, as are metrics whose
// baseline has zero spread. Output order is deterministic: entities sorted
// by key, metrics in ScoredMetrics order.
func (d *Detector) Detect(day time.Time, history, today []model.DailyMetric, minZ float64) []model.Anomaly {
	if minZ <= 0 {
		minZ = DefaultMinZ
	}

	groups := groupByEntity(history)
	observed := firstByEntity(today)

	out := []model.Anomaly{}
	for _, g := range groups {
		row, ok := observed[g.key]
		if !ok {
			continue
		}
		obs := Derive(row)
		hist := DeriveAll(g.rows)
		windowStart := g.rows[0].Date
		windowEnd := g.rows[len(g.rows)-1].Date

		for _, metric := range ScoredMetrics {
			base, ok := EstimateBaseline(series(hist, metric), d.span)
			if !ok || base.Spread == 0 {
				continue
			}
			value := obs.Value(metric)
			z := (value - base.Expected) / base.Spread
			if math.Abs(z) < minZ || obs.Impressions < d.minImpressions {
				continue
			}

			direction := model.DirectionDown
			if z > 0 {
				direction = model.DirectionUp
			}
			out = append(out, model.Anomaly{
				EntityType:  model.EntityTypeAdGroup,
				EntityID:    g.key.AdGroupID,
				Metric:      metric,
				Direction:   direction,
				ZScore:      round(z, 3),
				Observed:    round(value, 6),
				Expected:    round(base.Expected, 6),
				WindowStart: windowStart,
				WindowEnd:   windowEnd,
				CustomerID:  g.key.CustomerID,
				CampaignID:  g.key.CampaignID,
				AdGroupID:   g.key.AdGroupID,
				Date:        day,
			})
		}
	}

	zap.L().Debug("detect: day scored",
		zap.Time("day", day),
		zap.Int("entities", len(groups)),
		zap.Int("anomalies", len(out)),
	)
	return out
}

// entityGroup is one entity's history rows sorted by date.
type entityGroup struct {
	key  model.EntityKey
	rows []model.DailyMetric
}

// groupByEntity partitions rows into per-entity groups ordered by key, each
// group's rows sorted ascending by date.
func groupByEntity(rows []model.DailyMetric) []entityGroup {
	byKey := make(map[model.EntityKey][]model.DailyMetric)
	for _, r := range rows {
		k := r.Key()
		byKey[k] = append(byKey[k], r)
	}

	groups := make([]entityGroup, 0, len(byKey))
	for k, rs := range byKey {
		sort.SliceStable(rs, func(i, j int) bool { return rs[i].Date.Before(rs[j].Date) })
		groups = append(groups, entityGroup{key: k, rows: rs})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].key.Less(groups[j].key) })
	return groups
}

// firstByEntity indexes rows by entity key, keeping the first row seen when
// an entity has duplicates for the day.
func firstByEntity(rows []model.DailyMetric) map[model.EntityKey]model.DailyMetric {
	out := make(map[model.EntityKey]model.DailyMetric, len(rows))
	for _, r := range rows {
		k := r.Key()
		if _, ok := out[k]; !ok {
			out[k] = r
		}
	}
	return out
}

// series extracts one metric's values from derived rows, preserving order.
func series(rows []model.DerivedMetric, metric model.Metric) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.Value(metric)
	}
	return out
}

// round rounds x to the given number of decimal places, half away from zero.
func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
