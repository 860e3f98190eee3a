// Package api exposes the radar over HTTP: ingest, detection, range scans,
// and anomaly explanations.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/ads-radar/internal/config"
	"github.com/sells-group/ads-radar/internal/dates"
	"github.com/sells-group/ads-radar/internal/detect"
	"github.com/sells-group/ads-radar/internal/explain"
	"github.com/sells-group/ads-radar/internal/ingest"
	"github.com/sells-group/ads-radar/internal/monitoring"
	"github.com/sells-group/ads-radar/internal/store"
)

// Server bundles the collaborators behind the HTTP surface.
type Server struct {
	store    store.Store
	source   ingest.Source
	detector *detect.Detector
	scanner  *detect.Scanner
	minZ     float64
	lookback int
	now      func() time.Time
}

// NewServer wires the API over a store and a metrics source.
func NewServer(st store.Store, src ingest.Source, cfg config.DetectConfig) *Server {
	detector := detect.NewDetector(cfg.Span)
	lookback := cfg.LookbackDays
	if lookback <= 0 {
		lookback = detect.DefaultLookback
	}
	minZ := cfg.MinZ
	if minZ <= 0 {
		minZ = detect.DefaultMinZ
	}
	return &Server{
		store:    st,
		source:   src,
		detector: detector,
		scanner:  detect.NewScanner(detector, st, lookback),
		minZ:     minZ,
		lookback: lookback,
		now:      time.Now,
	}
}

// Router builds the chi router for the server.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/ingest", s.handleIngest)
	r.Get("/anomalies", s.handleAnomalies)
	r.Get("/anomalies/range", s.handleRange)
	r.Post("/explain", s.handleExplain)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// handleIngest fetches one day of rows from the source and replaces that
// day's stored rows.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	day, err := dates.Parse(r.URL.Query().Get("date"), s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD, today, or yesterday")
		return
	}

	rows, err := s.source.FetchDaily(r.Context(), day)
	if err != nil {
		s.serverError(w, "ingest: fetch daily metrics", err)
		return
	}
	if err := s.store.ReplaceDailyMetrics(r.Context(), day, rows); err != nil {
		s.serverError(w, "ingest: replace daily metrics", err)
		return
	}
	monitoring.RowsIngested.WithLabelValues("api").Add(float64(len(rows)))

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"date":   dates.Format(day),
		"rows":   len(rows),
	})
}

// handleAnomalies runs single-day detection, persists the result for the
// day (delete-then-insert), and returns the stored records.
func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	day, err := dates.Parse(r.URL.Query().Get("date"), s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD, today, or yesterday")
		return
	}
	minZ, ok := s.parseMinZ(w, r)
	if !ok {
		return
	}

	history, err := s.store.MetricsBetween(r.Context(), day.AddDate(0, 0, -s.lookback), day)
	if err != nil {
		s.serverError(w, "anomalies: load history", err)
		return
	}
	today, err := s.store.MetricsOn(r.Context(), day)
	if err != nil {
		s.serverError(w, "anomalies: load day", err)
		return
	}
	if len(history) == 0 || len(today) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{
			"date":      dates.Format(day),
			"anomalies": []AnomalyPayload{},
		})
		return
	}

	started := time.Now()
	detected := s.detector.Detect(day, history, today, minZ)
	monitoring.ObserveDetection(detected, time.Since(started))

	stored, err := s.store.ReplaceAnomalies(r.Context(), day, detected)
	if err != nil {
		s.serverError(w, "anomalies: persist", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":      dates.Format(day),
		"anomalies": NewAnomalyPayloads(stored),
	})
}

// handleRange scans every date in the requested span. Accepts start+end, or
// end+days counting back from end inclusive. Results are not persisted.
func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	end, err := dates.Parse(q.Get("end"), s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end date")
		return
	}

	var start time.Time
	switch {
	case q.Get("start") != "":
		if start, err = dates.Parse(q.Get("start"), s.now()); err != nil {
			writeError(w, http.StatusBadRequest, "invalid start date")
			return
		}
	case q.Get("days") != "":
		n, err := strconv.Atoi(q.Get("days"))
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		start = end.AddDate(0, 0, -(n - 1))
	default:
		writeError(w, http.StatusBadRequest, "start or days is required")
		return
	}
	if start.After(end) {
		writeError(w, http.StatusBadRequest, "start is after end")
		return
	}
	minZ, ok := s.parseMinZ(w, r)
	if !ok {
		return
	}

	started := time.Now()
	anomalies, err := s.scanner.Scan(r.Context(), start, end, minZ)
	if err != nil {
		s.serverError(w, "anomalies: range scan", err)
		return
	}
	monitoring.ObserveDetection(anomalies, time.Since(started))

	writeJSON(w, http.StatusOK, map[string]any{
		"start":     dates.Format(start),
		"end":       dates.Format(end),
		"anomalies": NewAnomalyPayloads(anomalies),
	})
}

// handleExplain looks up a stored anomaly and returns its playbook.
func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AnomalyID string `json:"anomaly_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AnomalyID == "" {
		writeError(w, http.StatusBadRequest, "anomaly_id is required")
		return
	}

	a, err := s.store.GetAnomaly(r.Context(), req.AnomalyID)
	if err != nil {
		s.serverError(w, "explain: load anomaly", err)
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "anomaly not found")
		return
	}

	advice := explain.Explain(*a)
	writeJSON(w, http.StatusOK, map[string]any{
		"anomaly_id": a.ID,
		"summary":    advice.Summary,
		"actions":    advice.Actions,
	})
}

// parseMinZ reads min_z from the query, defaulting to the configured
// threshold. Writes a 400 and returns ok=false on malformed input.
func (s *Server) parseMinZ(w http.ResponseWriter, r *http.Request) (float64, bool) {
	raw := r.URL.Query().Get("min_z")
	if raw == "" {
		return s.minZ, true
	}
	minZ, err := strconv.ParseFloat(raw, 64)
	if err != nil || minZ <= 0 {
		writeError(w, http.StatusBadRequest, "min_z must be a positive number")
		return 0, false
	}
	return minZ, true
}

func (s *Server) serverError(w http.ResponseWriter, msg string, err error) {
	zap.L().Error(msg, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
