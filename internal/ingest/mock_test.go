package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ads-radar/internal/model"
)

var anomalyDay = time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

func TestMockSource_Deterministic(t *testing.T) {
	src := NewMockSource(42, time.Time{})
	day := anomalyDay.AddDate(0, 0, -7)

	a, err := src.FetchDaily(context.Background(), day)
	require.NoError(t, err)
	b, err := src.FetchDaily(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, a, b, "same seed and day must produce identical rows")

	other := NewMockSource(43, time.Time{})
	c, err := other.FetchDaily(context.Background(), day)
	require.NoError(t, err)
	assert.NotEqual(t, a, c, "different seeds must diverge")
}

func TestMockSource_NormalDayShape(t *testing.T) {
	src := NewMockSource(42, anomalyDay)
	day := anomalyDay.AddDate(0, 0, -1)

	rows, err := src.FetchDaily(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	seen := map[string]bool{}
	for _, r := range rows {
		seen[r.AdGroupID] = true
		assert.Equal(t, "1234567890", r.CustomerID)
		assert.Equal(t, day, r.Date)
		assert.GreaterOrEqual(t, r.Impressions, int64(800))
		assert.Less(t, r.Impressions, int64(1200))
		ctr := float64(r.Clicks) / float64(r.Impressions)
		assert.InDelta(t, 0.04, ctr, 0.012, "ctr within the 3-5%% band")
		assert.Positive(t, r.Cost)
		assert.Positive(t, r.Conversions)
		assert.Positive(t, r.ConvValue)
	}
	for _, id := range []string{"adgroup_11111", "adgroup_22222", "adgroup_33333", "adgroup_44444"} {
		assert.True(t, seen[id], id)
	}
}

func TestMockSource_InjectionDay(t *testing.T) {
	src := NewMockSource(42, anomalyDay)

	rows, err := src.FetchDaily(context.Background(), anomalyDay)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	byGroup := map[string]model.DailyMetric{}
	for _, r := range rows {
		byGroup[r.AdGroupID] = r
	}

	healthy := byGroup["adgroup_11111"]
	assert.Equal(t, 80.0, healthy.Cost)
	assert.Equal(t, int64(40), healthy.Clicks)

	assert.Equal(t, 500.0, byGroup["adgroup_22222"].Cost, "cost spike")
	assert.Equal(t, int64(10), byGroup["adgroup_33333"].Clicks, "ctr collapse")
	assert.Equal(t, 0.2, byGroup["adgroup_44444"].Conversions, "conversion drop")
}

func TestMockSource_NoInjectionWhenUnset(t *testing.T) {
	src := NewMockSource(42, time.Time{})

	rows, err := src.FetchDaily(context.Background(), anomalyDay)
	require.NoError(t, err)
	for _, r := range rows {
		assert.NotEqual(t, 500.0, r.Cost)
	}
}

func TestMockSource_NormalizesTime(t *testing.T) {
	src := NewMockSource(42, anomalyDay)

	noon := anomalyDay.Add(12 * time.Hour)
	rows, err := src.FetchDaily(context.Background(), noon)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, anomalyDay, rows[0].Date, "timestamps truncate to the day")
	assert.Equal(t, 500.0, rows[1].Cost, "injection still triggers off-midnight")
}
