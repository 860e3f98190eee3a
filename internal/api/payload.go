package api

import (
	"github.com/sells-group/ads-radar/internal/dates"
	"github.com/sells-group/ads-radar/internal/model"
)

// AnomalyPayload is the wire form of an anomaly, with calendar dates
// flattened to YYYY-MM-DD.
type AnomalyPayload struct {
	ID          string  `json:"id,omitempty"`
	EntityType  string  `json:"entity_type"`
	EntityID    string  `json:"entity_id"`
	Metric      string  `json:"metric"`
	Direction   string  `json:"direction"`
	ZScore      float64 `json:"zscore"`
	Observed    float64 `json:"observed"`
	Expected    float64 `json:"expected"`
	WindowStart string  `json:"window_start"`
	WindowEnd   string  `json:"window_end"`
	CustomerID  string  `json:"customer_id"`
	CampaignID  string  `json:"campaign_id"`
	AdGroupID   string  `json:"ad_group_id"`
	Date        string  `json:"date"`
}

// NewAnomalyPayload converts a model anomaly to its wire form.
func NewAnomalyPayload(a model.Anomaly) AnomalyPayload {
	return AnomalyPayload{
		ID:          a.ID,
		EntityType:  a.EntityType,
		EntityID:    a.EntityID,
		Metric:      string(a.Metric),
		Direction:   string(a.Direction),
		ZScore:      a.ZScore,
		Observed:    a.Observed,
		Expected:    a.Expected,
		WindowStart: dates.Format(a.WindowStart),
		WindowEnd:   dates.Format(a.WindowEnd),
		CustomerID:  a.CustomerID,
		CampaignID:  a.CampaignID,
		AdGroupID:   a.AdGroupID,
		Date:        dates.Format(a.Date),
	}
}

// NewAnomalyPayloads converts a slice, always returning a non-nil slice so
// empty results marshal as [] rather than null.
func NewAnomalyPayloads(as []model.Anomaly) []AnomalyPayload {
	out := make([]AnomalyPayload, len(as))
	for i, a := range as {
		out[i] = NewAnomalyPayload(a)
	}
	return out
}
