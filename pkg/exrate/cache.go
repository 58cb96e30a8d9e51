package exrate

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/carlot/internal/money"
)

// DefaultTTL is how long a fetched table is reused.
const DefaultTTL = time.Hour

// failureBackoff spaces out refetches after a failed refresh.
const failureBackoff = time.Minute

// Cache serves the last good rate table, refreshing it after the TTL.
// Fetch failures keep the previous table. The network call runs outside the
// lock: the caller that starts a refresh waits for it, while everyone else
// gets the previous table.
type Cache struct {
	client Client
	ttl    time.Duration

	mu          sync.Mutex
	table       money.Table
	updatedAt   time.Time
	lastAttempt time.Time
	refreshing  bool

	nowFunc func() time.Time
}

// NewCache creates a cache that starts from defaults (money.DefaultTable when nil).
func NewCache(client Client, ttl time.Duration, defaults money.Table) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	table := money.DefaultTable()
	for cur, r := range defaults {
		if r > 0 {
			table[cur] = r
		}
	}
	return &Cache{client: client, ttl: ttl, table: table, nowFunc: time.Now}
}

// Table returns the current rates, refreshing them first when stale.
// The result is a copy the caller may keep.
func (c *Cache) Table(ctx context.Context) money.Table {
	c.mu.Lock()
	now := c.nowFunc()
	stale := c.updatedAt.IsZero() || now.Sub(c.updatedAt) >= c.ttl
	if !stale || c.refreshing || (!c.lastAttempt.IsZero() && now.Sub(c.lastAttempt) < failureBackoff) {
		defer c.mu.Unlock()
		return c.table.Clone()
	}
	c.beginRefreshLocked()
	c.mu.Unlock()

	_ = c.fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.table.Clone()
}

// Refresh fetches a new table regardless of age.
func (c *Cache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.beginRefreshLocked()
	c.mu.Unlock()
	return c.fetch(ctx)
}

// UpdatedAt returns when the table was last fetched; zero while on defaults.
func (c *Cache) UpdatedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updatedAt
}

func (c *Cache) beginRefreshLocked() {
	c.refreshing = true
	c.lastAttempt = c.nowFunc()
}

func (c *Cache) fetch(ctx context.Context) error {
	table, err := c.client.Latest(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshing = false
	if err != nil {
		zap.L().Warn("exrate: keeping previous rates", zap.Error(err))
		return err
	}
	c.table = table
	c.updatedAt = c.nowFunc()
	zap.L().Debug("exrate: rates updated",
		zap.Float64("rub", table[money.RUB]),
		zap.Float64("eur", table[money.EUR]),
		zap.Float64("krw", table[money.KRW]),
	)
	return nil
}
