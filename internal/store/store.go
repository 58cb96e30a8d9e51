// Package store keeps the audit trail: ingestion runs, inquiries and a
// mirror of the listings with their price history.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/carlot/internal/config"
	"github.com/sells-group/carlot/internal/model"
)

// DefaultListLimit caps list queries when the caller passes no limit.
const DefaultListLimit = 50

// Store defines the persistence interface.
type Store interface {
	// Ingestion history
	RecordIngest(ctx context.Context, run model.IngestRun) error
	ListIngestRuns(ctx context.Context, limit int) ([]model.IngestRun, error)

	// Inquiries
	SaveInquiry(ctx context.Context, inq model.StoredInquiry) error
	ListInquiries(ctx context.Context, limit int) ([]model.StoredInquiry, error)

	// Listing mirror, keyed by model.Vehicle.ListingKey
	SaveInventory(ctx context.Context, runID string, vehicles []model.Vehicle) (int64, error)
	PriceHistory(ctx context.Context, listingKey string, limit int) ([]model.PricePoint, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the store selected by cfg.Driver and migrates it.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "sqlite":
		s, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL, nil)
	case "none", "":
		return Nop{}, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

// distinctListings drops repeated listing keys, keeping the first row.
func distinctListings(vehicles []model.Vehicle) ([]model.Vehicle, []string) {
	seen := make(map[string]struct{}, len(vehicles))
	out := make([]model.Vehicle, 0, len(vehicles))
	keys := make([]string, 0, len(vehicles))
	for _, v := range vehicles {
		k := v.ListingKey()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
		keys = append(keys, k)
	}
	return out, keys
}

// Nop discards writes and lists nothing.
type Nop struct{}

func (Nop) RecordIngest(context.Context, model.IngestRun) error { return nil }

func (Nop) ListIngestRuns(context.Context, int) ([]model.IngestRun, error) { return nil, nil }

func (Nop) SaveInquiry(context.Context, model.StoredInquiry) error { return nil }

func (Nop) ListInquiries(context.Context, int) ([]model.StoredInquiry, error) { return nil, nil }

func (Nop) SaveInventory(context.Context, string, []model.Vehicle) (int64, error) { return 0, nil }

func (Nop) PriceHistory(context.Context, string, int) ([]model.PricePoint, error) { return nil, nil }

func (Nop) Migrate(context.Context) error { return nil }

func (Nop) Close() error { return nil }
