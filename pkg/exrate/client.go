// Package exrate fetches USD-based exchange rates for the price selector.
package exrate

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/carlot/internal/money"
	"github.com/sells-group/carlot/internal/resilience"
)

// Client fetches the latest rate table.
type Client interface {
	// Latest returns units of each supported currency per one USD. Currencies
	// the feed omits keep their default rate.
	Latest(ctx context.Context) (money.Table, error)
}

// LatestResponse is the exchange-rate feed payload.
type LatestResponse struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRetry overrides the retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	retry   resilience.RetryConfig
}

// NewClient creates an exchange-rate client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: "https://api.exchangerate-api.com",
		http:    &http.Client{Timeout: 10 * time.Second},
		retry:   resilience.DefaultRetryConfig().WithAttempts(2),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Latest(ctx context.Context) (money.Table, error) {
	resp, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*LatestResponse, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		return nil, eris.Wrap(err, "exrate: latest")
	}

	table := money.DefaultTable()
	for _, cur := range money.AllCurrencies() {
		if cur == money.Reference {
			continue
		}
		if r, ok := resp.Rates[string(cur)]; ok && r > 0 {
			table[cur] = r
		}
	}
	return table, nil
}

func (c *httpClient) fetch(ctx context.Context) (*LatestResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v4/latest/"+string(money.Reference), nil)
	if err != nil {
		return nil, eris.Wrap(err, "exrate: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "exrate: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, eris.Wrap(err, "exrate: read body")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("exrate: unexpected status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var out LatestResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "exrate: unmarshal response")
	}
	if len(out.Rates) == 0 {
		return nil, eris.New("exrate: response has no rates")
	}
	return &out, nil
}
