// Package ingest supplies the raw daily rows the detector scores. The core
// engine does not care where rows come from, only that the schema and units
// match.
package ingest

import (
	"context"
	"time"

	"github.com/sells-group/ads-radar/internal/model"
)

// Source fetches all daily metric rows for one calendar date.
type Source interface {
	FetchDaily(ctx context.Context, day time.Time) ([]model.DailyMetric, error)
}
