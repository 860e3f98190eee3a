package detect

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/ads-radar/internal/dates"
	"github.com/sells-group/ads-radar/internal/model"
)

// Loader supplies stored daily rows for detection windows.
type Loader interface {
	// MetricsBetween returns rows with start <= date < end.
	MetricsBetween(ctx context.Context, start, end time.Time) ([]model.DailyMetric, error)
	// MetricsOn returns rows for exactly the given day.
	MetricsOn(ctx context.Context, day time.Time) ([]model.DailyMetric, error)
}

// scanWorkers bounds concurrent per-day detection in a range scan.
const scanWorkers = 4

// Scanner runs the detector over a span of evaluation dates.
type Scanner struct {
	detector *Detector
	loader   Loader
	lookback int
}

// NewScanner creates a Scanner that builds each day's baseline from the
// preceding lookbackDays of stored rows.
func NewScanner(detector *Detector, loader Loader, lookbackDays int) *Scanner {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookback
	}
	return &Scanner{detector: detector, loader: loader, lookback: lookbackDays}
}

// Scan evaluates every date in [start, end] and concatenates the results in
// date order. Each day is scored independently against the history window
// [d-lookback, d) — never including d itself — so a range scan yields
// exactly the union of single-day scans for the same dates. Days are
// scored on a bounded worker group; results are slotted by index, keeping
// output order identical to sequential execution.
func (s *Scanner) Scan(ctx context.Context, start, end time.Time, minZ float64) ([]model.Anomaly, error) {
	days := dates.Range(start, end)
	perDay := make([][]model.Anomaly, len(days))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(scanWorkers)
	for i, day := range days {
		g.Go(func() error {
			history, err := s.loader.MetricsBetween(ctx, day.AddDate(0, 0, -s.lookback), day)
			if err != nil {
				return eris.Wrapf(err, "detect: load history before %s", dates.Format(day))
			}
			today, err := s.loader.MetricsOn(ctx, day)
			if err != nil {
				return eris.Wrapf(err, "detect: load rows for %s", dates.Format(day))
			}
			if len(history) == 0 || len(today) == 0 {
				return nil
			}
			perDay[i] = s.detector.Detect(day, history, today, minZ)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := []model.Anomaly{}
	for _, anomalies := range perDay {
		out = append(out, anomalies...)
	}

	zap.L().Info("detect: range scan complete",
		zap.String("start", dates.Format(start)),
		zap.String("end", dates.Format(end)),
		zap.Int("days", len(days)),
		zap.Int("anomalies", len(out)),
	)
	return out, nil
}
