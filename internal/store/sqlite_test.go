package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/carlot/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "carlot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	assert.NoError(t, s.Migrate(context.Background()))
}

func TestSQLite_IngestRuns(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordIngest(ctx, model.IngestRun{
		ID: "run-1", Source: "https://a", Records: 10, Skipped: 1, Status: model.IngestStatusOK,
		StartedAt: base, FinishedAt: base.Add(2 * time.Second),
	}))
	require.NoError(t, s.RecordIngest(ctx, model.IngestRun{
		ID: "run-2", Source: "https://b", Status: model.IngestStatusFailed, Error: "all sources failed",
		StartedAt: base.Add(time.Hour), FinishedAt: base.Add(time.Hour + time.Second),
	}))

	runs, err := s.ListIngestRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-2", runs[0].ID, "newest first")
	assert.Equal(t, model.IngestStatusFailed, runs[0].Status)
	assert.Equal(t, "all sources failed", runs[0].Error)

	assert.Equal(t, 10, runs[1].Records)
	assert.Equal(t, 1, runs[1].Skipped)
	assert.True(t, base.Equal(runs[1].StartedAt))
	assert.Equal(t, 2*time.Second, runs[1].Duration())

	limited, err := s.ListIngestRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLite_DuplicateIngestRun(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	run := model.IngestRun{ID: "dup", Status: model.IngestStatusOK, StartedAt: time.Now(), FinishedAt: time.Now()}

	require.NoError(t, s.RecordIngest(ctx, run))
	err := s.RecordIngest(ctx, run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert ingest run dup")
}

func TestSQLite_Inquiries(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	uid := int64(42)

	require.NoError(t, s.SaveInquiry(ctx, model.StoredInquiry{
		ID: "inq-1", CarID: "car_1", UserID: &uid, ContactMethod: model.ContactTelegram,
		Status: model.InquirySent, CreatedAt: base,
	}))
	require.NoError(t, s.SaveInquiry(ctx, model.StoredInquiry{
		ID: "inq-2", CarID: "car_3", ContactMethod: model.ContactWhatsApp,
		Status: model.InquiryFailed, Error: "relay down", CreatedAt: base.Add(time.Minute),
	}))

	got, err := s.ListInquiries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "inq-2", got[0].ID)
	assert.Nil(t, got[0].UserID)
	assert.Equal(t, model.InquiryFailed, got[0].Status)
	assert.Equal(t, "relay down", got[0].Error)

	require.NotNil(t, got[1].UserID)
	assert.Equal(t, int64(42), *got[1].UserID)
	assert.Equal(t, model.ContactTelegram, got[1].ContactMethod)
}

// stepClock returns a clock that advances by a minute on every call.
func stepClock(start time.Time) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(time.Minute)
		return now
	}
}

func TestSQLite_Inventory(t *testing.T) {
	s := newTestSQLite(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.nowFunc = stepClock(base)
	ctx := context.Background()

	p1, p2 := 8_500_000.0, 8_000_000.0
	rio := model.Vehicle{ID: "car_1", Brand: "Kia", Model: "Rio", Price: &p1}
	x5 := model.Vehicle{ID: "car_2", Brand: "BMW", Model: "X5"}
	n, err := s.SaveInventory(ctx, "run-1", []model.Vehicle{rio, x5})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rio.Price = &p2
	_, err = s.SaveInventory(ctx, "run-2", []model.Vehicle{rio})
	require.NoError(t, err)

	hist, err := s.PriceHistory(ctx, rio.ListingKey(), 0)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "run-2", hist[0].RunID)
	assert.Equal(t, rio.ListingKey(), hist[0].ListingKey)
	assert.Equal(t, "car_1", hist[0].CarID)
	assert.True(t, hist[0].RecordedAt.Equal(base.Add(time.Minute)))
	assert.True(t, hist[1].RecordedAt.Equal(base))
	assert.InDelta(t, p2, *hist[0].Price, 1e-9)
	assert.InDelta(t, p1, *hist[1].Price, 1e-9)

	hist, err = s.PriceHistory(ctx, x5.ListingKey(), 0)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Nil(t, hist[0].Price)

	var mirrored int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vehicles`).Scan(&mirrored))
	assert.Equal(t, 2, mirrored)

	var lastRun string
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT last_run_id FROM vehicles WHERE listing_key = ?`, rio.ListingKey()).Scan(&lastRun))
	assert.Equal(t, "run-2", lastRun)
}

func TestSQLite_InventoryRowsShift(t *testing.T) {
	s := newTestSQLite(t)
	s.nowFunc = stepClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	year := 2021
	sonataPrice, solarisPrice, newPrice := 25_000_000.0, 9_000_000.0, 40_000_000.0
	sonata := model.Vehicle{ID: "car_1", Brand: "Hyundai", Model: "Sonata", Year: &year, Price: &sonataPrice}
	solaris := model.Vehicle{ID: "car_2", Brand: "Hyundai", Model: "Solaris", Price: &solarisPrice}

	_, err := s.SaveInventory(ctx, "run-1", []model.Vehicle{sonata, solaris})
	require.NoError(t, err)

	// A new row inserted at the top shifts every row-based ID down by one.
	tahoe := model.Vehicle{ID: "car_1", Brand: "Chevrolet", Model: "Tahoe", Price: &newPrice}
	sonata.ID, solaris.ID = "car_2", "car_3"
	_, err = s.SaveInventory(ctx, "run-2", []model.Vehicle{tahoe, sonata, solaris})
	require.NoError(t, err)

	hist, err := s.PriceHistory(ctx, sonata.ListingKey(), 0)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	for _, p := range hist {
		assert.InDelta(t, sonataPrice, *p.Price, 1e-9)
	}
	assert.Equal(t, "car_2", hist[0].CarID)
	assert.Equal(t, "car_1", hist[1].CarID)

	hist, err = s.PriceHistory(ctx, tahoe.ListingKey(), 0)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.InDelta(t, newPrice, *hist[0].Price, 1e-9)

	var payload string
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT payload FROM vehicles WHERE listing_key = ?`, sonata.ListingKey()).Scan(&payload))
	assert.Contains(t, payload, `"model":"Sonata"`)

	var mirrored int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vehicles`).Scan(&mirrored))
	assert.Equal(t, 3, mirrored)
}

func TestSQLite_InventoryDuplicateListing(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	price := 1_000_000.0
	v := model.Vehicle{ID: "car_1", Brand: "Lada", Model: "Vesta", Price: &price}
	dup := v
	dup.ID = "car_2"

	n, err := s.SaveInventory(ctx, "run-1", []model.Vehicle{v, dup})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	hist, err := s.PriceHistory(ctx, v.ListingKey(), 0)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "car_1", hist[0].CarID)
}

func TestSQLite_SaveInventoryEmpty(t *testing.T) {
	s := newTestSQLite(t)
	n, err := s.SaveInventory(context.Background(), "run", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
