package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/carlot/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db      *sql.DB
	nowFunc func() time.Time
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
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, nowFunc: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS ingest_runs (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL DEFAULT '',
	records     INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS inquiries (
	id             TEXT PRIMARY KEY,
	car_id         TEXT NOT NULL,
	user_id        INTEGER,
	contact_method TEXT NOT NULL,
	status         TEXT NOT NULL,
	error          TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS vehicles (
	listing_key TEXT PRIMARY KEY,
	id          TEXT NOT NULL,
	brand       TEXT NOT NULL,
	model       TEXT NOT NULL,
	price       REAL,
	payload     TEXT NOT NULL,
	last_run_id TEXT NOT NULL,
	updated_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS price_points (
	run_id      TEXT NOT NULL,
	listing_key TEXT NOT NULL,
	car_id      TEXT NOT NULL,
	price       REAL,
	recorded_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ingest_runs_started ON ingest_runs(started_at);
CREATE INDEX IF NOT EXISTS idx_inquiries_created ON inquiries(created_at);
CREATE INDEX IF NOT EXISTS idx_price_points_listing ON price_points(listing_key, recorded_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) RecordIngest(ctx context.Context, run model.IngestRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingest_runs (id, source, records, skipped, status, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.Records, run.Skipped, string(run.Status), run.Error,
		run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert ingest run %s", run.ID)
}

func (s *SQLiteStore) ListIngestRuns(ctx context.Context, limit int) ([]model.IngestRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, records, skipped, status, error, started_at, finished_at
		 FROM ingest_runs ORDER BY started_at DESC LIMIT ?`,
		listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list ingest runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.IngestRun
	for rows.Next() {
		var (
			r      model.IngestRun
			status string
		)
		if err := rows.Scan(&r.ID, &r.Source, &r.Records, &r.Skipped, &status, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan ingest run")
		}
		r.Status = model.IngestStatus(status)
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list ingest runs iterate")
}

func (s *SQLiteStore) SaveInquiry(ctx context.Context, inq model.StoredInquiry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO inquiries (id, car_id, user_id, contact_method, status, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inq.ID, inq.CarID, inq.UserID, string(inq.ContactMethod), string(inq.Status), inq.Error, inq.CreatedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert inquiry %s", inq.ID)
}

func (s *SQLiteStore) ListInquiries(ctx context.Context, limit int) ([]model.StoredInquiry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, car_id, user_id, contact_method, status, error, created_at
		 FROM inquiries ORDER BY created_at DESC LIMIT ?`,
		listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list inquiries")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.StoredInquiry
	for rows.Next() {
		var (
			inq            model.StoredInquiry
			userID         sql.NullInt64
			method, status string
		)
		if err := rows.Scan(&inq.ID, &inq.CarID, &userID, &method, &status, &inq.Error, &inq.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan inquiry")
		}
		if userID.Valid {
			id := userID.Int64
			inq.UserID = &id
		}
		inq.ContactMethod = model.ContactMethod(method)
		inq.Status = model.InquiryStatus(status)
		out = append(out, inq)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list inquiries iterate")
}

func (s *SQLiteStore) SaveInventory(ctx context.Context, runID string, vehicles []model.Vehicle) (int64, error) {
	if len(vehicles) == 0 {
		return 0, nil
	}
	vehicles, keys := distinctListings(vehicles)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin inventory tx")
	}
	defer tx.Rollback() //nolint:errcheck

	upsert, err := tx.PrepareContext(ctx,
		`INSERT INTO vehicles (listing_key, id, brand, model, price, payload, last_run_id, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(listing_key) DO UPDATE SET
			id = excluded.id, brand = excluded.brand, model = excluded.model, price = excluded.price,
			payload = excluded.payload, last_run_id = excluded.last_run_id, updated_at = excluded.updated_at`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare vehicle upsert")
	}
	defer upsert.Close() //nolint:errcheck

	point, err := tx.PrepareContext(ctx,
		`INSERT INTO price_points (run_id, listing_key, car_id, price, recorded_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare price point")
	}
	defer point.Close() //nolint:errcheck

	now := s.nowFunc().UTC()
	for i, v := range vehicles {
		payload, err := json.Marshal(v)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: marshal vehicle %s", v.ID)
		}
		if _, err := upsert.ExecContext(ctx, keys[i], v.ID, v.Brand, v.Model, v.Price, string(payload), runID, now); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert vehicle %s", v.ID)
		}
		if _, err := point.ExecContext(ctx, runID, keys[i], v.ID, v.Price, now); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert price point %s", v.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit inventory")
	}
	return int64(len(vehicles)), nil
}

func (s *SQLiteStore) PriceHistory(ctx context.Context, listingKey string, limit int) ([]model.PricePoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, listing_key, car_id, price, recorded_at FROM price_points
		 WHERE listing_key = ? ORDER BY recorded_at DESC LIMIT ?`,
		listingKey, listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: price history")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.PricePoint
	for rows.Next() {
		var (
			p     model.PricePoint
			price sql.NullFloat64
		)
		if err := rows.Scan(&p.RunID, &p.ListingKey, &p.CarID, &price, &p.RecordedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan price point")
		}
		if price.Valid {
			v := price.Float64
			p.Price = &v
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: price history iterate")
}
