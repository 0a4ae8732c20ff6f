package oracle

import (
	"context"
	"math/big"
	"sync"
	"time"
)

// CachedFeed reuses the last upstream quote for up to maxAge.
type CachedFeed struct {
	upstream PriceFeed
	maxAge   time.Duration
	nowFn    func() time.Time

	mu       sync.Mutex
	price    *big.Int
	observed time.Time
}

// NewCachedFeed wraps upstream with a max-age cache.
func NewCachedFeed(upstream PriceFeed, maxAge time.Duration) *CachedFeed {
	return &CachedFeed{upstream: upstream, maxAge: maxAge, nowFn: time.Now}
}

// SetNowFunc overrides the clock. Intended for tests.
func (c *CachedFeed) SetNowFunc(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if now == nil {
		now = time.Now
	}
	c.nowFn = now
}

// CurrentPrice implements PriceFeed. Upstream failures are returned as-is and
// never served from a stale cache.
func (c *CachedFeed) CurrentPrice(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.nowFn()
	if c.price != nil && now.Sub(c.observed) < c.maxAge {
		return new(big.Int).Set(c.price), nil
	}
	price, err := c.upstream.CurrentPrice(ctx)
	if err != nil {
		return nil, err
	}
	c.price = new(big.Int).Set(price)
	c.observed = now
	return price, nil
}
