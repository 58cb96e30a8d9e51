// Package translate turns Korean listing descriptions into Russian through
// the public gtx translation endpoint.
package translate

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/rotisserie/eris"

	"github.com/sells-group/carlot/internal/resilience"
)

// Client translates one text.
type Client interface {
	Translate(ctx context.Context, text string) (string, error)
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

// WithLanguages sets the source and target language codes.
func WithLanguages(source, target string) Option {
	return func(c *httpClient) {
		c.source = source
		c.target = target
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
	source  string
	target  string
	http    *http.Client
	retry   resilience.RetryConfig
}

// NewClient creates a translation client (ko → ru by default).
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: "https://translate.googleapis.com",
		source:  "ko",
		target:  "ru",
		http:    &http.Client{Timeout: 10 * time.Second},
		retry:   resilience.DefaultRetryConfig().WithAttempts(2),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ContainsHangul reports whether s has any Korean letters.
func ContainsHangul(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Hangul, r) {
			return true
		}
	}
	return false
}

func (c *httpClient) Translate(ctx context.Context, text string) (string, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (string, error) {
		return c.fetch(ctx, text)
	})
}

func (c *httpClient) fetch(ctx context.Context, text string) (string, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", c.source)
	q.Set("tl", c.target)
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/translate_a/single?"+q.Encode(), nil)
	if err != nil {
		return "", eris.Wrap(err, "translate: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "translate: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", eris.Wrap(err, "translate: read body")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("translate: unexpected status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return "", resilience.NewTransientError(err, resp.StatusCode)
		}
		return "", err
	}

	return parseSegments(body)
}

// parseSegments joins the translated sentence segments. The payload is a
// nested array: [[["translated","original",...],...],...].
func parseSegments(body []byte) (string, error) {
	var top []json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return "", eris.Wrap(err, "translate: unmarshal response")
	}
	if len(top) == 0 {
		return "", eris.New("translate: empty response")
	}

	var segments [][]any
	if err := json.Unmarshal(top[0], &segments); err != nil {
		return "", eris.Wrap(err, "translate: unmarshal segments")
	}

	var b strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		if s, ok := seg[0].(string); ok {
			b.WriteString(s)
		}
	}
	if b.Len() == 0 {
		return "", eris.New("translate: no translated text")
	}
	return b.String(), nil
}
