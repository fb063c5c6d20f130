package collector

import (
	"context"

	"SizingSignal/internal/model"
)

// Fetcher returns the full daily close history of a ticker.
type Fetcher interface {
	FetchPriceHistory(ctx context.Context, ticker string) (model.PriceSeries, error)
	Name() string
}

// MarketCapFetcher returns the current market capitalization of a ticker, or nil when
// the source has none.
type MarketCapFetcher interface {
	FetchMarketCap(ctx context.Context, ticker string) (*float64, error)
}
