package model

import "time"

// EntityTypeAdGroup is the only entity type the detector reports at.
const EntityTypeAdGroup = "ad_group"

// Anomaly is one flagged (entity, metric) deviation for a detection day.
// WindowStart and WindowEnd are the earliest and latest history dates the
// baseline actually saw; Date is the evaluation day the observation belongs
// to and the key the storage layer replaces on.
type Anomaly struct {
	ID          string    `json:"id,omitempty"`
	EntityType  string    `json:"entity_type"`
	EntityID    string    `json:"entity_id"`
	Metric      Metric    `json:"metric"`
	Direction   Direction `json:"direction"`
	ZScore      float64   `json:"zscore"`
	Observed    float64   `json:"observed"`
	Expected    float64   `json:"expected"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	CustomerID  string    `json:"customer_id"`
	CampaignID  string    `json:"campaign_id"`
	AdGroupID   string    `json:"ad_group_id"`
	Date        time.Time `json:"date"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}
