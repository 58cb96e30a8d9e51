// Package relay sends buyer inquiries to the manager-facing message relay.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/carlot/internal/model"
	"github.com/sells-group/carlot/internal/resilience"
)

const (
	// DefaultBaseURL is the relay backend host.
	DefaultBaseURL = "https://tgappbackend-e4rk.onrender.com"
	// DefaultPath is the inquiry endpoint on the relay backend.
	DefaultPath = "/api/webapp/contact"
)

// Client submits inquiries.
type Client interface {
	// Submit delivers one inquiry. Every failure is a *SubmissionError.
	Submit(ctx context.Context, inq model.Inquiry) error
}

// Response is the relay's reply body.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithPath overrides the inquiry endpoint path.
func WithPath(path string) Option {
	return func(c *httpClient) {
		c.path = path
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithBreaker puts submissions behind cb.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *httpClient) {
		c.breaker = cb
	}
}

type httpClient struct {
	baseURL string
	path    string
	http    *http.Client
	breaker *resilience.CircuitBreaker
}

// NewClient creates a relay client. Submissions are never retried
// automatically so a manager never receives the same inquiry twice.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: DefaultBaseURL,
		path:    DefaultPath,
		http:    &http.Client{Timeout: 20 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = NewBreaker(0, 0)
	}
	return c
}

// NewBreaker returns a breaker that trips only on network failures and
// server-side statuses.
func NewBreaker(threshold int, resetTimeout time.Duration) *resilience.CircuitBreaker {
	return resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:             "relay",
		FailureThreshold: threshold,
		ResetTimeout:     resetTimeout,
		ShouldTrip: func(err error) bool {
			var se *SubmissionError
			if errors.As(err, &se) {
				return se.Network || se.StatusCode >= http.StatusInternalServerError
			}
			return err != nil
		},
	})
}

func (c *httpClient) Submit(ctx context.Context, inq model.Inquiry) error {
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.post(ctx, inq)
	})

	switch {
	case err == nil:
		submissionsTotal.WithLabelValues("sent").Inc()
		zap.L().Info("relay: inquiry sent",
			zap.String("car_id", inq.Car.ID),
			zap.String("contact_method", string(inq.ContactMethod)),
		)
		return nil
	case errors.Is(err, resilience.ErrCircuitOpen):
		submissionsTotal.WithLabelValues("rejected").Inc()
		return &SubmissionError{
			Message: "The contact service is temporarily unavailable. Try again in a moment.",
			Err:     err,
		}
	default:
		submissionsTotal.WithLabelValues("failed").Inc()
		zap.L().Warn("relay: inquiry failed",
			zap.String("car_id", inq.Car.ID),
			zap.Error(err),
		)
		var se *SubmissionError
		if errors.As(err, &se) {
			return se
		}
		return &SubmissionError{Message: "Sending failed.", Err: err}
	}
}

func (c *httpClient) post(ctx context.Context, inq model.Inquiry) error {
	payload, err := json.Marshal(inq)
	if err != nil {
		return &SubmissionError{Message: "Sending failed.", Err: eris.Wrap(err, "relay: marshal inquiry")}
	}

	url := c.baseURL + c.path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return &SubmissionError{Message: "Sending failed.", Err: eris.Wrap(err, "relay: create request")}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &SubmissionError{
			Network: true,
			Message: "No connection to the server. Check the connection and try again.",
			Err:     eris.Wrap(err, "relay: request"),
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return &SubmissionError{Network: true, Message: "Sending failed.", Err: eris.Wrap(err, "relay: read body")}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, body)
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return &SubmissionError{
			StatusCode: resp.StatusCode,
			Message:    "The server returned an invalid response.",
			Err:        eris.Wrap(err, "relay: unmarshal response"),
		}
	}
	if !out.Success {
		msg := out.Error
		if msg == "" {
			msg = "Sending failed."
		}
		return &SubmissionError{StatusCode: resp.StatusCode, Message: msg}
	}
	return nil
}
