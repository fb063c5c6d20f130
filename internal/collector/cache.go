package collector

import (
	"context"
	"time"

	"SizingSignal/internal/cache"
	"SizingSignal/internal/model"
)

// CachedFetcher serves price history and market cap from TTL stores before asking the
// wrapped sources. Failures are never cached.
type CachedFetcher struct {
	history    Fetcher
	marketCap  MarketCapFetcher
	histories  *cache.Store[model.PriceSeries]
	marketCaps *cache.Store[*float64]
}

// NewCachedFetcher wraps history and marketCap with stores of the given TTL.
func NewCachedFetcher(history Fetcher, marketCap MarketCapFetcher, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{
		history:    history,
		marketCap:  marketCap,
		histories:  cache.New[model.PriceSeries](ttl),
		marketCaps: cache.New[*float64](ttl),
	}
}

// WithClock sets the time source of both stores.
func (c *CachedFetcher) WithClock(now func() time.Time) *CachedFetcher {
	c.histories.WithClock(now)
	c.marketCaps.WithClock(now)
	return c
}

func (c *CachedFetcher) Name() string { return "cached-" + c.history.Name() }

func (c *CachedFetcher) FetchPriceHistory(ctx context.Context, ticker string) (model.PriceSeries, error) {
	if s, ok := c.histories.Get(ticker); ok {
		return s, nil
	}
	s, err := c.history.FetchPriceHistory(ctx, ticker)
	if err != nil {
		return model.PriceSeries{}, err
	}
	c.histories.Set(ticker, s)
	return s, nil
}

func (c *CachedFetcher) FetchMarketCap(ctx context.Context, ticker string) (*float64, error) {
	if c.marketCap == nil {
		return nil, nil
	}
	if v, ok := c.marketCaps.Get(ticker); ok {
		return v, nil
	}
	v, err := c.marketCap.FetchMarketCap(ctx, ticker)
	if err != nil {
		return nil, err
	}
	c.marketCaps.Set(ticker, v)
	return v, nil
}

// Purge drops expired entries from both stores.
func (c *CachedFetcher) Purge() int {
	return c.histories.Purge() + c.marketCaps.Purge()
}
