package model

import "time"

// Metric identifies one of the daily performance series tracked per ad group.
type Metric string

const (
	MetricCost Metric = "cost"
	MetricCTR  Metric = "ctr"
	MetricCVR  Metric = "cvr"
	MetricCPC  Metric = "cpc"
	MetricROAS Metric = "roas"
)

// Direction indicates which side of the baseline an observation landed on.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// EntityKey identifies the ad-group-level unit that metrics are grouped and
// scored at.
type EntityKey struct {
	CustomerID string `json:"customer_id"`
	CampaignID string `json:"campaign_id"`
	AdGroupID  string `json:"ad_group_id"`
}

// Less orders keys lexicographically by customer, campaign, then ad group.
func (k EntityKey) Less(o EntityKey) bool {
	if k.CustomerID != o.CustomerID {
		return k.CustomerID < o.CustomerID
	}
	if k.CampaignID != o.CampaignID {
		return k.CampaignID < o.CampaignID
	}
	return k.AdGroupID < o.AdGroupID
}

// DailyMetric is one observed row of raw daily counters for an ad group.
// Date carries no time component (UTC midnight); counters are non-negative.
type DailyMetric struct {
	Date        time.Time `json:"date"`
	CustomerID  string    `json:"customer_id"`
	CampaignID  string    `json:"campaign_id"`
	AdGroupID   string    `json:"ad_group_id"`
	Impressions int64     `json:"impressions"`
	Clicks      int64     `json:"clicks"`
	Cost        float64   `json:"cost"`
	Conversions float64   `json:"conversions"`
	ConvValue   float64   `json:"conv_value"`
}

// Key returns the grouping key for the row.
func (m DailyMetric) Key() EntityKey {
	return EntityKey{
		CustomerID: m.CustomerID,
		CampaignID: m.CampaignID,
		AdGroupID:  m.AdGroupID,
	}
}

// DerivedMetric extends a raw row with its computed rate metrics.
type DerivedMetric struct {
	DailyMetric
	CTR  float64 `json:"ctr"`
	CPC  float64 `json:"cpc"`
	CVR  float64 `json:"cvr"`
	ROAS float64 `json:"roas"`
}

// Value returns the named metric's value for this row. Unknown metrics
// return 0.
func (m DerivedMetric) Value(metric Metric) float64 {
	switch metric {
	case MetricCost:
		return m.Cost
	case MetricCTR:
		return m.CTR
	case MetricCVR:
		return m.CVR
	case MetricCPC:
		return m.CPC
	case MetricROAS:
		return m.ROAS
	}
	return 0
}
