// Package monitoring watches feed and relay health and posts webhook alerts
// when failures pile up.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/carlot/internal/model"
)

// Snapshot holds a point-in-time view of storefront health.
type Snapshot struct {
	// Ingest runs within the lookback window.
	IngestTotal    int     `json:"ingest_total"`
	IngestOK       int     `json:"ingest_ok"`
	IngestEmpty    int     `json:"ingest_empty"`
	IngestFailed   int     `json:"ingest_failed"`
	IngestFailRate float64 `json:"ingest_fail_rate"`
	// FailureStreak counts consecutive failed runs, newest first, regardless
	// of the window.
	FailureStreak int        `json:"failure_streak"`
	LastError     string     `json:"last_error,omitempty"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	LatestEmpty   bool       `json:"latest_empty"`

	// Inquiries within the lookback window.
	InquiryTotal    int     `json:"inquiry_total"`
	InquiryFailed   int     `json:"inquiry_failed"`
	InquiryFailRate float64 `json:"inquiry_fail_rate"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// History is the audit trail the collector reads.
type History interface {
	ListIngestRuns(ctx context.Context, limit int) ([]model.IngestRun, error)
	ListInquiries(ctx context.Context, limit int) ([]model.StoredInquiry, error)
}

const historyLimit = 10000

// Collector gathers snapshots from the audit store.
type Collector struct {
	history History
	nowFunc func() time.Time
}

// NewCollector creates a new snapshot collector.
func NewCollector(h History) *Collector {
	return &Collector{history: h, nowFunc: time.Now}
}

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	now := c.nowFunc().UTC()
	snap := &Snapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.history.ListIngestRuns(ctx, historyLimit)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list ingest runs")
	}

	streakOpen := true
	for i, r := range runs {
		if i == 0 {
			snap.LatestEmpty = r.Status == model.IngestStatusEmpty
			if r.Status == model.IngestStatusFailed {
				snap.LastError = r.Error
			}
		}
		if streakOpen {
			if r.Status == model.IngestStatusFailed {
				snap.FailureStreak++
			} else {
				streakOpen = false
			}
		}
		if r.Status == model.IngestStatusOK && snap.LastSuccessAt == nil {
			t := r.FinishedAt
			snap.LastSuccessAt = &t
		}

		if r.StartedAt.Before(cutoff) {
			continue
		}
		snap.IngestTotal++
		switch r.Status {
		case model.IngestStatusOK:
			snap.IngestOK++
		case model.IngestStatusEmpty:
			snap.IngestEmpty++
		case model.IngestStatusFailed:
			snap.IngestFailed++
		}
	}
	if snap.IngestTotal > 0 {
		snap.IngestFailRate = float64(snap.IngestFailed) / float64(snap.IngestTotal)
	}

	inqs, err := c.history.ListInquiries(ctx, historyLimit)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list inquiries")
	}
	for _, q := range inqs {
		if q.CreatedAt.Before(cutoff) {
			continue
		}
		snap.InquiryTotal++
		if q.Status == model.InquiryFailed {
			snap.InquiryFailed++
		}
	}
	if snap.InquiryTotal > 0 {
		snap.InquiryFailRate = float64(snap.InquiryFailed) / float64(snap.InquiryTotal)
	}

	return snap, nil
}
