package collector

import (
	"context"
	"fmt"
	"net/http"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/equity"
)

// EquityMarketCap looks market cap up through the finance-go equity quote.
type EquityMarketCap struct {
	get func(symbol string) (*finance.Equity, error)
}

// NewEquityMarketCap creates a MarketCapFetcher backed by finance-go. finance-go keeps a
// package-level client; timeout replaces its default so a quote abandoned by
// FetchMarketCap ends within the same bound.
func NewEquityMarketCap(timeout time.Duration) *EquityMarketCap {
	if timeout > 0 {
		finance.SetHTTPClient(&http.Client{Timeout: timeout})
	}
	return &EquityMarketCap{get: equity.Get}
}

type equityResult struct {
	q   *finance.Equity
	err error
}

// FetchMarketCap returns nil when the quote has no market cap. On ctx expiry it returns
// at once; the quote goroutine runs on until the client timeout.
func (m *EquityMarketCap) FetchMarketCap(ctx context.Context, ticker string) (*float64, error) {
	ch := make(chan equityResult, 1)
	go func() {
		q, err := m.get(ticker)
		ch <- equityResult{q: q, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("equity quote %s: %w", ticker, res.err)
		}
		if res.q == nil || res.q.MarketCap <= 0 {
			return nil, nil
		}
		v := float64(res.q.MarketCap)
		return &v, nil
	}
}
