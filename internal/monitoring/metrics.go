// Package monitoring exposes prometheus instrumentation for the ingest and
// detection paths.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sells-group/ads-radar/internal/model"
)

var (
	// RowsIngested counts daily metric rows written to the store.
	RowsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ads_radar",
		Name:      "rows_ingested_total",
		Help:      "Daily metric rows written to the store.",
	}, []string{"source"})

	// AnomaliesDetected counts flagged anomalies by metric and direction.
	AnomaliesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ads_radar",
		Name:      "anomalies_detected_total",
		Help:      "Anomalies flagged by the detector.",
	}, []string{"metric", "direction"})

	// DetectionRuns counts detection invocations.
	DetectionRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ads_radar",
		Name:      "detection_runs_total",
		Help:      "Detection runs executed.",
	})

	// DetectionDuration tracks how long detection runs take.
	DetectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ads_radar",
		Name:      "detection_duration_seconds",
		Help:      "Wall time per detection run.",
		Buckets:   prometheus.DefBuckets,
	})
)

// ObserveDetection records one completed detection run.
func ObserveDetection(anomalies []model.Anomaly, took time.Duration) {
	DetectionRuns.Inc()
	DetectionDuration.Observe(took.Seconds())
	for _, a := range anomalies {
		AnomaliesDetected.WithLabelValues(string(a.Metric), string(a.Direction)).Inc()
	}
}
