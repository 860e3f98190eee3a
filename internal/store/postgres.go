package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/ads-radar/internal/dates"
	"github.com/sells-group/ads-radar/internal/model"
)

// pgxPool is the subset of pgxpool.Pool the store uses. Satisfied by
// pgxmock.PgxPoolIface in tests.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool pgxPool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS metrics_daily (
	id          TEXT PRIMARY KEY,
	date        DATE NOT NULL,
	customer_id TEXT NOT NULL,
	campaign_id TEXT NOT NULL,
	ad_group_id TEXT NOT NULL,
	impressions BIGINT NOT NULL DEFAULT 0,
	clicks      BIGINT NOT NULL DEFAULT 0,
	cost        DOUBLE PRECISION NOT NULL DEFAULT 0,
	conversions DOUBLE PRECISION NOT NULL DEFAULT 0,
	conv_value  DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS anomalies (
	id           TEXT PRIMARY KEY,
	detected_on  DATE NOT NULL,
	entity_type  TEXT NOT NULL,
	entity_id    TEXT NOT NULL,
	metric       TEXT NOT NULL,
	direction    TEXT NOT NULL,
	zscore       DOUBLE PRECISION NOT NULL,
	observed     DOUBLE PRECISION NOT NULL,
	expected     DOUBLE PRECISION NOT NULL,
	window_start DATE NOT NULL,
	window_end   DATE NOT NULL,
	customer_id  TEXT NOT NULL,
	campaign_id  TEXT NOT NULL,
	ad_group_id  TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_metrics_daily_date ON metrics_daily(date);
CREATE INDEX IF NOT EXISTS idx_metrics_daily_entity ON metrics_daily(customer_id, campaign_id, ad_group_id);
CREATE INDEX IF NOT EXISTS idx_anomalies_detected_on ON anomalies(detected_on);
CREATE INDEX IF NOT EXISTS idx_anomalies_entity_id ON anomalies(entity_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) ReplaceDailyMetrics(ctx context.Context, day time.Time, rows []model.DailyMetric) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace metrics")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`DELETE FROM metrics_daily WHERE date = $1`, dates.Day(day),
	); err != nil {
		return eris.Wrapf(err, "postgres: clear metrics for %s", dates.Format(day))
	}

	for _, r := range rows {
		_, err := tx.Exec(ctx,
			`INSERT INTO metrics_daily
				(id, date, customer_id, campaign_id, ad_group_id, impressions, clicks, cost, conversions, conv_value)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			uuid.New().String(), dates.Day(r.Date),
			r.CustomerID, r.CampaignID, r.AdGroupID,
			r.Impressions, r.Clicks, r.Cost, r.Conversions, r.ConvValue,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert metric row for %s", r.AdGroupID)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace metrics")
}

func (s *PostgresStore) MetricsOn(ctx context.Context, day time.Time) ([]model.DailyMetric, error) {
	return s.queryMetrics(ctx,
		`SELECT date, customer_id, campaign_id, ad_group_id, impressions, clicks, cost, conversions, conv_value
		 FROM metrics_daily WHERE date = $1 ORDER BY customer_id, campaign_id, ad_group_id`,
		dates.Day(day),
	)
}

func (s *PostgresStore) MetricsBetween(ctx context.Context, start, end time.Time) ([]model.DailyMetric, error) {
	return s.queryMetrics(ctx,
		`SELECT date, customer_id, campaign_id, ad_group_id, impressions, clicks, cost, conversions, conv_value
		 FROM metrics_daily WHERE date >= $1 AND date < $2
		 ORDER BY date, customer_id, campaign_id, ad_group_id`,
		dates.Day(start), dates.Day(end),
	)
}

func (s *PostgresStore) queryMetrics(ctx context.Context, query string, args ...any) ([]model.DailyMetric, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query metrics")
	}
	defer rows.Close()

	var out []model.DailyMetric
	for rows.Next() {
		var m model.DailyMetric
		if err := rows.Scan(&m.Date, &m.CustomerID, &m.CampaignID, &m.AdGroupID,
			&m.Impressions, &m.Clicks, &m.Cost, &m.Conversions, &m.ConvValue); err != nil {
			return nil, eris.Wrap(err, "postgres: scan metric row")
		}
		m.Date = dates.Day(m.Date)
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate metrics")
}

func (s *PostgresStore) ReplaceAnomalies(ctx context.Context, day time.Time, anomalies []model.Anomaly) ([]model.Anomaly, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin replace anomalies")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`DELETE FROM anomalies WHERE detected_on = $1`, dates.Day(day),
	); err != nil {
		return nil, eris.Wrapf(err, "postgres: clear anomalies for %s", dates.Format(day))
	}

	now := time.Now().UTC()
	stored := make([]model.Anomaly, len(anomalies))
	for i, a := range anomalies {
		a.ID = uuid.New().String()
		a.Date = dates.Day(day)
		a.CreatedAt = now
		_, err := tx.Exec(ctx,
			`INSERT INTO anomalies
				(id, detected_on, entity_type, entity_id, metric, direction, zscore, observed, expected,
				 window_start, window_end, customer_id, campaign_id, ad_group_id, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			a.ID, dates.Day(day), a.EntityType, a.EntityID, string(a.Metric), string(a.Direction),
			a.ZScore, a.Observed, a.Expected,
			dates.Day(a.WindowStart), dates.Day(a.WindowEnd),
			a.CustomerID, a.CampaignID, a.AdGroupID, now,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: insert anomaly for %s", a.EntityID)
		}
		stored[i] = a
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit replace anomalies")
	}
	return stored, nil
}

func (s *PostgresStore) AnomaliesOn(ctx context.Context, day time.Time) ([]model.Anomaly, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, detected_on, entity_type, entity_id, metric, direction, zscore, observed, expected,
		        window_start, window_end, customer_id, campaign_id, ad_group_id, created_at
		 FROM anomalies WHERE detected_on = $1 ORDER BY customer_id, campaign_id, ad_group_id, metric`,
		dates.Day(day),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query anomalies")
	}
	defer rows.Close()

	var out []model.Anomaly
	for rows.Next() {
		a, err := scanPostgresAnomaly(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate anomalies")
}

func (s *PostgresStore) GetAnomaly(ctx context.Context, id string) (*model.Anomaly, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, detected_on, entity_type, entity_id, metric, direction, zscore, observed, expected,
		        window_start, window_end, customer_id, campaign_id, ad_group_id, created_at
		 FROM anomalies WHERE id = $1`,
		id,
	)
	a, err := scanPostgresAnomaly(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func scanPostgresAnomaly(row pgx.Row) (*model.Anomaly, error) {
	var a model.Anomaly
	err := row.Scan(&a.ID, &a.Date, &a.EntityType, &a.EntityID, &a.Metric, &a.Direction,
		&a.ZScore, &a.Observed, &a.Expected,
		&a.WindowStart, &a.WindowEnd, &a.CustomerID, &a.CampaignID, &a.AdGroupID, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan anomaly")
	}
	a.Date = dates.Day(a.Date)
	a.WindowStart = dates.Day(a.WindowStart)
	a.WindowEnd = dates.Day(a.WindowEnd)
	return &a, nil
}
