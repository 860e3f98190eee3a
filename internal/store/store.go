// Package store persists daily metric rows and detected anomalies. Both
// tables use delete-then-insert per day so re-running ingest or detection
// for the same date is idempotent.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ads-radar/internal/config"
	"github.com/sells-group/ads-radar/internal/model"
)

// Store defines the persistence interface for the radar.
type Store interface {
	// Daily metrics
	ReplaceDailyMetrics(ctx context.Context, day time.Time, rows []model.DailyMetric) error
	MetricsOn(ctx context.Context, day time.Time) ([]model.DailyMetric, error)
	// MetricsBetween returns rows with start <= date < end.
	MetricsBetween(ctx context.Context, start, end time.Time) ([]model.DailyMetric, error)

	// Anomalies. ReplaceAnomalies returns the stored copies with IDs and
	// created_at assigned.
	ReplaceAnomalies(ctx context.Context, day time.Time, anomalies []model.Anomaly) ([]model.Anomaly, error)
	AnomaliesOn(ctx context.Context, day time.Time) ([]model.Anomaly, error)
	// GetAnomaly returns (nil, nil) when the id is unknown.
	GetAnomaly(ctx context.Context, id string) (*model.Anomaly, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open constructs the configured backend. The caller is responsible for
// running Migrate.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, nil)
	case "", "sqlite":
		return NewSQLite(cfg.Path)
	}
	return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
}
