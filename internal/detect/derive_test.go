package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/ads-radar/internal/model"
)

func TestDerive(t *testing.T) {
	m := Derive(model.DailyMetric{
		Impressions: 1000,
		Clicks:      40,
		Cost:        80,
		Conversions: 1.8,
		ConvValue:   90,
	})
	assert.InDelta(t, 0.04, m.CTR, 1e-9)
	assert.InDelta(t, 2.0, m.CPC, 1e-9)
	assert.InDelta(t, 0.045, m.CVR, 1e-9)
	assert.InDelta(t, 1.125, m.ROAS, 1e-9)
}

func TestDerive_ZeroDenominators(t *testing.T) {
	tests := []struct {
		name string
		in   model.DailyMetric
	}{
		{"all zero", model.DailyMetric{}},
		{"no impressions", model.DailyMetric{Clicks: 5, Cost: 10, Conversions: 1, ConvValue: 20}},
		{"no clicks", model.DailyMetric{Impressions: 100, Cost: 10, Conversions: 1, ConvValue: 20}},
		{"no cost", model.DailyMetric{Impressions: 100, Clicks: 5, Conversions: 1, ConvValue: 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Derive(tt.in)
			if tt.in.Impressions == 0 {
				assert.Zero(t, m.CTR, "ctr must be exactly 0, not NaN")
			}
			if tt.in.Clicks == 0 {
				assert.Zero(t, m.CPC)
				assert.Zero(t, m.CVR)
			}
			if tt.in.Cost == 0 {
				assert.Zero(t, m.ROAS)
			}
		})
	}
}

func TestDeriveAll_PreservesOrder(t *testing.T) {
	rows := []model.DailyMetric{
		{Impressions: 100, Clicks: 10},
		{Impressions: 200, Clicks: 10},
	}
	out := DeriveAll(rows)
	assert.Len(t, out, 2)
	assert.InDelta(t, 0.1, out[0].CTR, 1e-9)
	assert.InDelta(t, 0.05, out[1].CTR, 1e-9)
}
