package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/ads-radar/internal/dates"
	"github.com/sells-group/ads-radar/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS metrics_daily (
	id          TEXT PRIMARY KEY,
	date        TEXT NOT NULL,
	customer_id TEXT NOT NULL,
	campaign_id TEXT NOT NULL,
	ad_group_id TEXT NOT NULL,
	impressions INTEGER NOT NULL DEFAULT 0,
	clicks      INTEGER NOT NULL DEFAULT 0,
	cost        REAL NOT NULL DEFAULT 0,
	conversions REAL NOT NULL DEFAULT 0,
	conv_value  REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS anomalies (
	id           TEXT PRIMARY KEY,
	detected_on  TEXT NOT NULL,
	entity_type  TEXT NOT NULL,
	entity_id    TEXT NOT NULL,
	metric       TEXT NOT NULL,
	direction    TEXT NOT NULL,
	zscore       REAL NOT NULL,
	observed     REAL NOT NULL,
	expected     REAL NOT NULL,
	window_start TEXT NOT NULL,
	window_end   TEXT NOT NULL,
	customer_id  TEXT NOT NULL,
	campaign_id  TEXT NOT NULL,
	ad_group_id  TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_metrics_daily_date ON metrics_daily(date);
CREATE INDEX IF NOT EXISTS idx_metrics_daily_entity ON metrics_daily(customer_id, campaign_id, ad_group_id);
CREATE INDEX IF NOT EXISTS idx_anomalies_detected_on ON anomalies(detected_on);
CREATE INDEX IF NOT EXISTS idx_anomalies_entity_id ON anomalies(entity_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ReplaceDailyMetrics(ctx context.Context, day time.Time, rows []model.DailyMetric) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace metrics")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM metrics_daily WHERE date = ?`, dates.Format(day),
	); err != nil {
		return eris.Wrapf(err, "sqlite: clear metrics for %s", dates.Format(day))
	}

	for _, r := range rows {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO metrics_daily
				(id, date, customer_id, campaign_id, ad_group_id, impressions, clicks, cost, conversions, conv_value)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), dates.Format(r.Date),
			r.CustomerID, r.CampaignID, r.AdGroupID,
			r.Impressions, r.Clicks, r.Cost, r.Conversions, r.ConvValue,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert metric row for %s", r.AdGroupID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit replace metrics")
}

func (s *SQLiteStore) MetricsOn(ctx context.Context, day time.Time) ([]model.DailyMetric, error) {
	return s.queryMetrics(ctx,
		`SELECT date, customer_id, campaign_id, ad_group_id, impressions, clicks, cost, conversions, conv_value
		 FROM metrics_daily WHERE date = ? ORDER BY customer_id, campaign_id, ad_group_id`,
		dates.Format(day),
	)
}

func (s *SQLiteStore) MetricsBetween(ctx context.Context, start, end time.Time) ([]model.DailyMetric, error) {
	return s.queryMetrics(ctx,
		`SELECT date, customer_id, campaign_id, ad_group_id, impressions, clicks, cost, conversions, conv_value
		 FROM metrics_daily WHERE date >= ? AND date < ?
		 ORDER BY date, customer_id, campaign_id, ad_group_id`,
		dates.Format(start), dates.Format(end),
	)
}

func (s *SQLiteStore) queryMetrics(ctx context.Context, query string, args ...any) ([]model.DailyMetric, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query metrics")
	}
	defer rows.Close()

	var out []model.DailyMetric
	for rows.Next() {
		var m model.DailyMetric
		var day string
		if err := rows.Scan(&day, &m.CustomerID, &m.CampaignID, &m.AdGroupID,
			&m.Impressions, &m.Clicks, &m.Cost, &m.Conversions, &m.ConvValue); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan metric row")
		}
		if m.Date, err = time.Parse(dates.Layout, day); err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse metric date %q", day)
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate metrics")
}

func (s *SQLiteStore) ReplaceAnomalies(ctx context.Context, day time.Time, anomalies []model.Anomaly) ([]model.Anomaly, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin replace anomalies")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM anomalies WHERE detected_on = ?`, dates.Format(day),
	); err != nil {
		return nil, eris.Wrapf(err, "sqlite: clear anomalies for %s", dates.Format(day))
	}

	now := time.Now().UTC()
	stored := make([]model.Anomaly, len(anomalies))
	for i, a := range anomalies {
		a.ID = uuid.New().String()
		a.Date = dates.Day(day)
		a.CreatedAt = now
		_, err := tx.ExecContext(ctx,
			`INSERT INTO anomalies
				(id, detected_on, entity_type, entity_id, metric, direction, zscore, observed, expected,
				 window_start, window_end, customer_id, campaign_id, ad_group_id, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, dates.Format(day), a.EntityType, a.EntityID, string(a.Metric), string(a.Direction),
			a.ZScore, a.Observed, a.Expected,
			dates.Format(a.WindowStart), dates.Format(a.WindowEnd),
			a.CustomerID, a.CampaignID, a.AdGroupID, now,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert anomaly for %s", a.EntityID)
		}
		stored[i] = a
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit replace anomalies")
	}
	return stored, nil
}

func (s *SQLiteStore) AnomaliesOn(ctx context.Context, day time.Time) ([]model.Anomaly, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, detected_on, entity_type, entity_id, metric, direction, zscore, observed, expected,
		        window_start, window_end, customer_id, campaign_id, ad_group_id, created_at
		 FROM anomalies WHERE detected_on = ? ORDER BY customer_id, campaign_id, ad_group_id, metric`,
		dates.Format(day),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query anomalies")
	}
	defer rows.Close()

	var out []model.Anomaly
	for rows.Next() {
		a, err := scanSQLiteAnomaly(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate anomalies")
}

func (s *SQLiteStore) GetAnomaly(ctx context.Context, id string) (*model.Anomaly, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, detected_on, entity_type, entity_id, metric, direction, zscore, observed, expected,
		        window_start, window_end, customer_id, campaign_id, ad_group_id, created_at
		 FROM anomalies WHERE id = ?`,
		id,
	)
	a, err := scanSQLiteAnomaly(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSQLiteAnomaly(row scannable) (*model.Anomaly, error) {
	var a model.Anomaly
	var detectedOn, windowStart, windowEnd string
	err := row.Scan(&a.ID, &detectedOn, &a.EntityType, &a.EntityID, &a.Metric, &a.Direction,
		&a.ZScore, &a.Observed, &a.Expected,
		&windowStart, &windowEnd, &a.CustomerID, &a.CampaignID, &a.AdGroupID, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan anomaly")
	}

	for _, f := range []struct {
		dst *time.Time
		src string
	}{
		{&a.Date, detectedOn},
		{&a.WindowStart, windowStart},
		{&a.WindowEnd, windowEnd},
	} {
		t, err := time.Parse(dates.Layout, f.src)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: parse anomaly date %q", f.src)
		}
		*f.dst = t
	}
	return &a, nil
}
