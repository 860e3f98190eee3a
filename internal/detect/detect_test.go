package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ads-radar/internal/model"
)

var testKey = model.EntityKey{
	CustomerID: "1234567890",
	CampaignID: "campaign_12345",
	AdGroupID:  "adgroup_11111",
}

func day(offset int) time.Time {
	base := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, offset)
}

// steadyHistory builds days of history for key with cost alternating around
// 80 (±5) and all other counters constant, so only the cost series carries
// variance.
func steadyHistory(key model.EntityKey, days int) []model.DailyMetric {
	rows := make([]model.DailyMetric, 0, days)
	for i := 0; i < days; i++ {
		cost := 75.0
		if i%2 == 1 {
			cost = 85.0
		}
		rows = append(rows, model.DailyMetric{
			Date:        day(i - days),
			CustomerID:  key.CustomerID,
			CampaignID:  key.CampaignID,
			AdGroupID:   key.AdGroupID,
			Impressions: 1000,
			Clicks:      40,
			Cost:        cost,
			Conversions: 1.6,
			ConvValue:   80,
		})
	}
	return rows
}

func todayRow(key model.EntityKey, cost float64, impressions int64) model.DailyMetric {
	return model.DailyMetric{
		Date:        day(0),
		CustomerID:  key.CustomerID,
		CampaignID:  key.CampaignID,
		AdGroupID:   key.AdGroupID,
		Impressions: impressions,
		Clicks:      40,
		Cost:        cost,
		Conversions: 1.6,
		ConvValue:   80,
	}
}

func TestDetect_CostSpikeReported(t *testing.T) {
	d := NewDetector(DefaultSpan)
	history := steadyHistory(testKey, 28)
	today := []model.DailyMetric{todayRow(testKey, 500, 1000)}

	got := d.Detect(day(0), history, today, 2.0)
	require.Len(t, got, 1)

	a := got[0]
	assert.Equal(t, model.EntityTypeAdGroup, a.EntityType)
	assert.Equal(t, testKey.AdGroupID, a.EntityID)
	assert.Equal(t, model.MetricCost, a.Metric)
	assert.Equal(t, model.DirectionUp, a.Direction)
	assert.Greater(t, a.ZScore, 10.0)
	assert.Equal(t, 500.0, a.Observed)
	assert.Equal(t, day(-28), a.WindowStart)
	assert.Equal(t, day(-1), a.WindowEnd)
	assert.Equal(t, day(0), a.Date)
	assert.Equal(t, testKey.CustomerID, a.CustomerID)
	assert.Equal(t, testKey.CampaignID, a.CampaignID)
}

func TestDetect_SmallMoveNotReported(t *testing.T) {
	d := NewDetector(DefaultSpan)
	history := steadyHistory(testKey, 28)
	today := []model.DailyMetric{todayRow(testKey, 82, 1000)}

	got := d.Detect(day(0), history, today, 2.0)
	assert.Empty(t, got)
}

func TestDetect_VolumeFloorSuppresses(t *testing.T) {
	d := NewDetector(DefaultSpan)
	history := steadyHistory(testKey, 28)

	// Same extreme cost, but only 150 impressions today.
	got := d.Detect(day(0), history, []model.DailyMetric{todayRow(testKey, 500, 150)}, 2.0)
	assert.Empty(t, got, "below the volume floor nothing is flagged")

	// Control: with traffic the spike is reported.
	got = d.Detect(day(0), history, []model.DailyMetric{todayRow(testKey, 500, 1000)}, 2.0)
	assert.Len(t, got, 1)
}

func TestDetect_ZeroVarianceHistoryExcluded(t *testing.T) {
	d := NewDetector(DefaultSpan)

	// Perfectly flat history: every metric has zero spread.
	history := make([]model.DailyMetric, 28)
	for i := range history {
		history[i] = todayRow(testKey, 80, 1000)
		history[i].Date = day(i - 28)
	}

	got := d.Detect(day(0), history, []model.DailyMetric{todayRow(testKey, 10000, 1000)}, 2.0)
	assert.Empty(t, got, "constant history carries no signal, however extreme today is")
}

func TestDetect_NoHistoryOrNoTodaySkipped(t *testing.T) {
	d := NewDetector(DefaultSpan)
	history := steadyHistory(testKey, 28)

	// Entity present today but absent from history.
	other := model.EntityKey{CustomerID: "9", CampaignID: "c", AdGroupID: "g"}
	got := d.Detect(day(0), history, []model.DailyMetric{todayRow(other, 500, 1000)}, 2.0)
	assert.Empty(t, got)

	// Entity present in history but absent today.
	got = d.Detect(day(0), history, nil, 2.0)
	assert.Empty(t, got)
}

func TestDetect_DirectionDown(t *testing.T) {
	d := NewDetector(DefaultSpan)
	history := steadyHistory(testKey, 28)

	got := d.Detect(day(0), history, []model.DailyMetric{todayRow(testKey, 1, 1000)}, 2.0)
	require.Len(t, got, 1)
	assert.Equal(t, model.DirectionDown, got[0].Direction)
	assert.Negative(t, got[0].ZScore)
}

func TestDetect_MinZMonotonicity(t *testing.T) {
	d := NewDetector(DefaultSpan)
	history := steadyHistory(testKey, 28)
	today := []model.DailyMetric{todayRow(testKey, 500, 1000)}

	loose := d.Detect(day(0), history, today, 2.0)
	strict := d.Detect(day(0), history, today, 200.0)

	// Raising min_z can only shrink the result set.
	assert.LessOrEqual(t, len(strict), len(loose))
	for _, s := range strict {
		found := false
		for _, l := range loose {
			if s.EntityID == l.EntityID && s.Metric == l.Metric {
				found = true
			}
		}
		assert.True(t, found, "strict result missing from loose set")
	}
}

func TestDetect_DeterministicOrder(t *testing.T) {
	d := NewDetector(DefaultSpan)

	k1 := model.EntityKey{CustomerID: "1", CampaignID: "a", AdGroupID: "g1"}
	k2 := model.EntityKey{CustomerID: "1", CampaignID: "a", AdGroupID: "g2"}

	// Feed history for g2 before g1; output must still be sorted by key.
	history := append(steadyHistory(k2, 28), steadyHistory(k1, 28)...)
	today := []model.DailyMetric{
		todayRow(k2, 500, 1000),
		todayRow(k1, 500, 1000),
	}

	got := d.Detect(day(0), history, today, 2.0)
	require.Len(t, got, 2)
	assert.Equal(t, "g1", got[0].EntityID)
	assert.Equal(t, "g2", got[1].EntityID)
}

func TestDetect_SparseHistoryWindowBounds(t *testing.T) {
	d := NewDetector(DefaultSpan)

	// History only on days -20..-5: windows reflect observed dates, not the
	// nominal lookback boundaries.
	var history []model.DailyMetric
	for i := -20; i <= -5; i++ {
		cost := 75.0
		if i%2 == 0 {
			cost = 85.0
		}
		r := todayRow(testKey, cost, 1000)
		r.Date = day(i)
		history = append(history, r)
	}

	got := d.Detect(day(0), history, []model.DailyMetric{todayRow(testKey, 500, 1000)}, 2.0)
	require.NotEmpty(t, got)
	assert.Equal(t, day(-20), got[0].WindowStart)
	assert.Equal(t, day(-5), got[0].WindowEnd)
}

func TestDetect_RoundsOutput(t *testing.T) {
	d := NewDetector(DefaultSpan)
	history := steadyHistory(testKey, 28)

	got := d.Detect(day(0), history, []model.DailyMetric{todayRow(testKey, 123.4567890123, 1000)}, 2.0)
	require.Len(t, got, 1)

	a := got[0]
	assert.Equal(t, a.ZScore, round(a.ZScore, 3))
	assert.Equal(t, a.Observed, round(a.Observed, 6))
	assert.Equal(t, a.Expected, round(a.Expected, 6))
}

func TestDetect_DuplicateTodayRowsFirstWins(t *testing.T) {
	d := NewDetector(DefaultSpan)
	history := steadyHistory(testKey, 28)
	today := []model.DailyMetric{
		todayRow(testKey, 500, 1000),
		todayRow(testKey, 80, 1000),
	}

	got := d.Detect(day(0), history, today, 2.0)
	require.Len(t, got, 1)
	assert.Equal(t, 500.0, got[0].Observed)
}

func TestGroupByEntity_SortsRowsByDate(t *testing.T) {
	rows := []model.DailyMetric{
		{CustomerID: "1", CampaignID: "a", AdGroupID: "g", Date: day(-1), Cost: 3},
		{CustomerID: "1", CampaignID: "a", AdGroupID: "g", Date: day(-3), Cost: 1},
		{CustomerID: "1", CampaignID: "a", AdGroupID: "g", Date: day(-2), Cost: 2},
	}
	groups := groupByEntity(rows)
	require.Len(t, groups, 1)
	assert.Equal(t, []float64{1, 2, 3}, []float64{
		groups[0].rows[0].Cost, groups[0].rows[1].Cost, groups[0].rows[2].Cost,
	})
}

func TestRound(t *testing.T) {
	assert.Equal(t, 1.235, round(1.23456, 3))
	assert.Equal(t, -1.235, round(-1.23456, 3))
	assert.Equal(t, 0.123457, round(0.123456789, 6))
}
