package ingest

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/sells-group/ads-radar/internal/dates"
	"github.com/sells-group/ads-radar/internal/model"
)

// MockSource generates a deterministic synthetic account: four ad groups
// under two campaigns for one customer. Historical days vary within
// realistic bands; on AnomalyDay it emits one healthy ad group plus a cost
// spike, a CTR collapse, and a conversion drop, so the full pipeline can be
// exercised without live credentials.
//
// Rows are a pure function of (Seed, day, entity index): the generator
// builds a fresh rand.Rand per entity per call and holds no state between
// calls.
type MockSource struct {
	Seed       int64
	AnomalyDay time.Time // zero value disables injection

	entities []model.EntityKey
}

// NewMockSource creates a MockSource over the default synthetic entities.
func NewMockSource(seed int64, anomalyDay time.Time) *MockSource {
	return &MockSource{
		Seed:       seed,
		AnomalyDay: anomalyDay,
		entities: []model.EntityKey{
			{CustomerID: "1234567890", CampaignID: "campaign_12345", AdGroupID: "adgroup_11111"},
			{CustomerID: "1234567890", CampaignID: "campaign_12345", AdGroupID: "adgroup_22222"},
			{CustomerID: "1234567890", CampaignID: "campaign_67890", AdGroupID: "adgroup_33333"},
			{CustomerID: "1234567890", CampaignID: "campaign_67890", AdGroupID: "adgroup_44444"},
		},
	}
}

// FetchDaily returns one row per entity for the given day.
func (s *MockSource) FetchDaily(_ context.Context, day time.Time) ([]model.DailyMetric, error) {
	day = dates.Day(day)
	inject := !s.AnomalyDay.IsZero() && day.Equal(dates.Day(s.AnomalyDay))

	rows := make([]model.DailyMetric, 0, len(s.entities))
	for i, e := range s.entities {
		if inject {
			rows = append(rows, anomalousRow(e, day, i))
			continue
		}
		rows = append(rows, s.normalRow(e, day, i))
	}
	return rows, nil
}

// normalRow draws a plausible baseline day: 800-1200 impressions, 3-5% CTR,
// $1.50-2.50 CPC, 3-5% CVR, $40-60 per conversion.
func (s *MockSource) normalRow(e model.EntityKey, day time.Time, i int) model.DailyMetric {
	rng := rand.New(rand.NewSource(s.Seed + dayOrdinal(day) + int64(i)))

	impressions := 800 + rng.Int63n(400)
	clicks := int64(float64(impressions) * uniform(rng, 0.03, 0.05))
	cost := round2(float64(clicks) * uniform(rng, 1.5, 2.5))
	conversions := round2(float64(clicks) * uniform(rng, 0.03, 0.05))
	convValue := round2(conversions * uniform(rng, 40, 60))

	return model.DailyMetric{
		Date:        day,
		CustomerID:  e.CustomerID,
		CampaignID:  e.CampaignID,
		AdGroupID:   e.AdGroupID,
		Impressions: impressions,
		Clicks:      clicks,
		Cost:        cost,
		Conversions: conversions,
		ConvValue:   convValue,
	}
}

// anomalousRow emits the demonstration set for the injection day: entity 0
// is healthy, 1 spikes cost, 2 collapses CTR, 3 drops conversions.
func anomalousRow(e model.EntityKey, day time.Time, i int) model.DailyMetric {
	row := model.DailyMetric{
		Date:        day,
		CustomerID:  e.CustomerID,
		CampaignID:  e.CampaignID,
		AdGroupID:   e.AdGroupID,
		Impressions: 1000,
		Clicks:      40,
		Cost:        80.0,
		Conversions: 1.8,
		ConvValue:   90.0,
	}
	switch i {
	case 1:
		row.Cost = 500.0
		row.Conversions = 1.5
		row.ConvValue = 75.0
	case 2:
		row.Clicks = 10
		row.Cost = 25.0
		row.Conversions = 0.4
		row.ConvValue = 20.0
	case 3:
		row.Conversions = 0.2
		row.ConvValue = 10.0
	}
	return row
}

// dayOrdinal folds a date into the per-day seed component as yyyymmdd.
func dayOrdinal(day time.Time) int64 {
	return int64(day.Year()*10000 + int(day.Month())*100 + day.Day())
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
