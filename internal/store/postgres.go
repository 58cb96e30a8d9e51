package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/carlot/internal/db"
	"github.com/sells-group/carlot/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
	nowFunc func() time.Time
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

	pgxCfg.MaxConns = 4
	pgxCfg.MinConns = 1
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			pgxCfg.MaxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			pgxCfg.MinConns = poolCfg.MinConns
		}
	}
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
	return newPostgresStore(pool), nil
}

func newPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close, nowFunc: time.Now}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS ingest_runs (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL DEFAULT '',
	records     INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS inquiries (
	id             TEXT PRIMARY KEY,
	car_id         TEXT NOT NULL,
	user_id        BIGINT,
	contact_method TEXT NOT NULL,
	status         TEXT NOT NULL,
	error          TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS vehicles (
	listing_key TEXT PRIMARY KEY,
	id          TEXT NOT NULL,
	brand       TEXT NOT NULL,
	model       TEXT NOT NULL,
	price       DOUBLE PRECISION,
	payload     JSONB NOT NULL,
	last_run_id TEXT NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS price_points (
	run_id      TEXT NOT NULL,
	listing_key TEXT NOT NULL,
	car_id      TEXT NOT NULL,
	price       DOUBLE PRECISION,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_ingest_runs_started ON ingest_runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_inquiries_created ON inquiries(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_price_points_listing ON price_points(listing_key, recorded_at DESC);
`

var (
	vehicleColumns    = []string{"listing_key", "id", "brand", "model", "price", "payload", "last_run_id", "updated_at"}
	pricePointColumns = []string{"run_id", "listing_key", "car_id", "price", "recorded_at"}
)

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) RecordIngest(ctx context.Context, run model.IngestRun) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ingest_runs (id, source, records, skipped, status, error, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.Source, run.Records, run.Skipped, string(run.Status), run.Error, run.StartedAt, run.FinishedAt,
	)
	return eris.Wrapf(err, "postgres: insert ingest run %s", run.ID)
}

func (s *PostgresStore) ListIngestRuns(ctx context.Context, limit int) ([]model.IngestRun, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, source, records, skipped, status, error, started_at, finished_at
		 FROM ingest_runs ORDER BY started_at DESC LIMIT $1`,
		listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list ingest runs")
	}
	defer rows.Close()

	var runs []model.IngestRun
	for rows.Next() {
		var (
			r      model.IngestRun
			status string
		)
		if err := rows.Scan(&r.ID, &r.Source, &r.Records, &r.Skipped, &status, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan ingest run")
		}
		r.Status = model.IngestStatus(status)
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list ingest runs iterate")
}

func (s *PostgresStore) SaveInquiry(ctx context.Context, inq model.StoredInquiry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO inquiries (id, car_id, user_id, contact_method, status, error, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		inq.ID, inq.CarID, inq.UserID, string(inq.ContactMethod), string(inq.Status), inq.Error, inq.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert inquiry %s", inq.ID)
}

func (s *PostgresStore) ListInquiries(ctx context.Context, limit int) ([]model.StoredInquiry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, car_id, user_id, contact_method, status, error, created_at
		 FROM inquiries ORDER BY created_at DESC LIMIT $1`,
		listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list inquiries")
	}
	defer rows.Close()

	var out []model.StoredInquiry
	for rows.Next() {
		var (
			inq            model.StoredInquiry
			method, status string
		)
		if err := rows.Scan(&inq.ID, &inq.CarID, &inq.UserID, &method, &status, &inq.Error, &inq.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan inquiry")
		}
		inq.ContactMethod = model.ContactMethod(method)
		inq.Status = model.InquiryStatus(status)
		out = append(out, inq)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list inquiries iterate")
}

// SaveInventory upserts the listing mirror by listing key and appends one
// price point per listing.
func (s *PostgresStore) SaveInventory(ctx context.Context, runID string, vehicles []model.Vehicle) (int64, error) {
	if len(vehicles) == 0 {
		return 0, nil
	}

	vehicles, keys := distinctListings(vehicles)
	now := s.nowFunc().UTC()
	mirror := make([][]any, len(vehicles))
	points := make([][]any, len(vehicles))
	for i, v := range vehicles {
		payload, err := json.Marshal(v)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: marshal vehicle %s", v.ID)
		}
		mirror[i] = []any{keys[i], v.ID, v.Brand, v.Model, v.Price, payload, runID, now}
		points[i] = []any{runID, keys[i], v.ID, v.Price, now}
	}

	n, err := db.Upsert(ctx, s.pool, db.UpsertSpec{
		Table:   "vehicles",
		Columns: vehicleColumns,
		Keys:    []string{"listing_key"},
	}, mirror)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: save inventory")
	}

	if _, err := db.CopyRows(ctx, s.pool, "price_points", pricePointColumns, points); err != nil {
		return 0, eris.Wrap(err, "postgres: save price points")
	}
	return n, nil
}

func (s *PostgresStore) PriceHistory(ctx context.Context, listingKey string, limit int) ([]model.PricePoint, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT run_id, listing_key, car_id, price, recorded_at FROM price_points
		 WHERE listing_key = $1 ORDER BY recorded_at DESC LIMIT $2`,
		listingKey, listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: price history")
	}
	defer rows.Close()

	var out []model.PricePoint
	for rows.Next() {
		var p model.PricePoint
		if err := rows.Scan(&p.RunID, &p.ListingKey, &p.CarID, &p.Price, &p.RecordedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan price point")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: price history iterate")
}
