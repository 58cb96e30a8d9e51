package model

import "time"

// IngestStatus represents the outcome of an inventory ingestion attempt.
type IngestStatus string

const (
	IngestStatusOK     IngestStatus = "ok"
	IngestStatusEmpty  IngestStatus = "empty"
	IngestStatusFailed IngestStatus = "failed"
)

// IngestRun records one non-cached ingestion attempt.
type IngestRun struct {
	ID         string       `json:"id"`
	Source     string       `json:"source"`
	Records    int          `json:"records"`
	Skipped    int          `json:"skipped"`
	Status     IngestStatus `json:"status"`
	Error      string       `json:"error,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// Duration returns how long the attempt took.
func (r IngestRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// PricePoint is a listing's price as seen by one ingestion run. CarID is the
// row-based ID the listing had in that run.
type PricePoint struct {
	RunID      string    `json:"run_id"`
	ListingKey string    `json:"listing_key"`
	CarID      string    `json:"car_id"`
	Price      *float64  `json:"price"`
	RecordedAt time.Time `json:"recorded_at"`
}
