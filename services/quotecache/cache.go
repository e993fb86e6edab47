// Package quotecache serves daily candle history from memory, refreshing a
// symbol from the market-data provider once its entry is older than the
// freshness window.
package quotecache

import (
	"context"
	"sync"
	"time"

	"stockwatch_backend/services/marketdata"
)

// DefaultTTL is the freshness window for cached candle history.
const DefaultTTL = 60 * time.Second

// HistoryRange is the span of daily candles fetched on a cache miss.
const HistoryRange = "1y"

type entry struct {
	fetchedAt time.Time
	candles   []marketdata.Candle
}

// Cache maps symbols to recently fetched daily candle history. Entries are
// only ever overwritten on refresh, never evicted.
type Cache struct {
	mu       sync.RWMutex
	entries  map[string]entry
	provider marketdata.Provider
	ttl      time.Duration
	now      func() time.Time
}

// New creates a cache backed by the given provider with the default
// freshness window.
func New(provider marketdata.Provider) *Cache {
	return NewWithClock(provider, DefaultTTL, time.Now)
}

// NewWithClock creates a cache with an explicit TTL and clock, for tests.
func NewWithClock(provider marketdata.Provider, ttl time.Duration, now func() time.Time) *Cache {
	return &Cache{
		entries:  make(map[string]entry),
		provider: provider,
		ttl:      ttl,
		now:      now,
	}
}

// GetOrFetch returns the cached daily history for symbol while its entry is
// fresh, otherwise fetches one year of daily candles from the provider and
// stores the result. A provider failure is returned to the caller and leaves
// any stale entry in place.
func (c *Cache) GetOrFetch(ctx context.Context, symbol string) ([]marketdata.Candle, error) {
	t := c.now()

	c.mu.RLock()
	e, ok := c.entries[symbol]
	c.mu.RUnlock()
	if ok && t.Sub(e.fetchedAt) < c.ttl {
		return e.candles, nil
	}

	candles, err := c.provider.FetchCandles(ctx, symbol, HistoryRange, "1d")
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[symbol] = entry{fetchedAt: t, candles: candles}
	c.mu.Unlock()

	return candles, nil
}

// Len returns the number of cached symbols.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
