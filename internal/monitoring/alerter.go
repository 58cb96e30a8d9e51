package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/carlot/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertFeedFailureRate    AlertType = "feed_failure_rate"
	AlertFeedFailureStreak  AlertType = "feed_failure_streak"
	AlertFeedEmpty          AlertType = "feed_empty"
	AlertInquiryFailureRate AlertType = "inquiry_failure_rate"
)

// Minimum sample sizes before a rate alert can fire.
const (
	minIngestSample  = 3
	minInquirySample = 5
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a Snapshot against configured thresholds and sends
// alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	var alerts []Alert
	now := snap.CollectedAt

	if snap.IngestTotal >= minIngestSample && snap.IngestFailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertFeedFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Inventory feed failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d runs in last %dh)",
				snap.IngestFailRate*100, a.cfg.FailureRateThreshold*100,
				snap.IngestFailed, snap.IngestTotal, snap.LookbackHours,
			),
			Details: map[string]any{
				"failure_rate": snap.IngestFailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.IngestFailed,
				"total":        snap.IngestTotal,
			},
			Timestamp: now,
		})
	}

	if a.cfg.FailureStreak > 0 && snap.FailureStreak >= a.cfg.FailureStreak {
		details := map[string]any{
			"streak":     snap.FailureStreak,
			"last_error": snap.LastError,
		}
		if snap.LastSuccessAt != nil {
			details["last_success_at"] = snap.LastSuccessAt
		}
		alerts = append(alerts, Alert{
			Type:      AlertFeedFailureStreak,
			Severity:  "critical",
			Message:   fmt.Sprintf("Inventory feed failed %d times in a row; buyers may be seeing stale or no listings", snap.FailureStreak),
			Details:   details,
			Timestamp: now,
		})
	}

	if snap.LatestEmpty {
		alerts = append(alerts, Alert{
			Type:      AlertFeedEmpty,
			Severity:  "medium",
			Message:   "Latest inventory load returned no vehicles; check the spreadsheet",
			Timestamp: now,
		})
	}

	if snap.InquiryTotal >= minInquirySample && snap.InquiryFailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertInquiryFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Inquiry delivery failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d in last %dh)",
				snap.InquiryFailRate*100, a.cfg.FailureRateThreshold*100,
				snap.InquiryFailed, snap.InquiryTotal, snap.LookbackHours,
			),
			Details: map[string]any{
				"failure_rate": snap.InquiryFailRate,
				"failed":       snap.InquiryFailed,
				"total":        snap.InquiryTotal,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
