package translate

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

// Translator never fails: text it cannot translate comes back unchanged.
type Translator interface {
	Translate(ctx context.Context, text string) string
}

// Cached translates Korean text through a Client and remembers every
// outcome, including fallbacks to the original.
type Cached struct {
	client Client
	cache  *expirable.LRU[string, string]
}

// NewCached wraps client with an LRU of size entries that expire after ttl.
func NewCached(client Client, size int, ttl time.Duration) *Cached {
	if size <= 0 {
		size = 1024
	}
	return &Cached{
		client: client,
		cache:  expirable.NewLRU[string, string](size, nil, ttl),
	}
}

// Translate implements Translator.
func (c *Cached) Translate(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	if out, ok := c.cache.Get(text); ok {
		return out
	}

	out := text
	if ContainsHangul(text) {
		translated, err := c.client.Translate(ctx, text)
		switch {
		case err != nil:
			zap.L().Warn("translate: falling back to original", zap.Error(err))
		default:
			out = translated
		}
	}

	c.cache.Add(text, out)
	return out
}

// Len is the number of cached entries.
func (c *Cached) Len() int {
	return c.cache.Len()
}

// Passthrough is a Translator that returns text unchanged.
type Passthrough struct{}

// Translate implements Translator.
func (Passthrough) Translate(_ context.Context, text string) string {
	return text
}
