package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"SizingSignal/internal/model"
)

// RESTFetcher implements Fetcher and MarketCapFetcher against a bar/profile REST API.
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	http    *throttledClient
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey string, opts HTTPOptions) *RESTFetcher {
	return &RESTFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		http:    newThrottledClient(opts),
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restBar is the expected JSON shape of a daily bar.
type restBar struct {
	Timestamp int64   `json:"timestamp"`
	Close     float64 `json:"close"`
}

// FetchPriceHistory requests every available daily bar (limit=0).
func (f *RESTFetcher) FetchPriceHistory(ctx context.Context, ticker string) (model.PriceSeries, error) {
	endpoint := fmt.Sprintf("%s/api/v1/bars/daily?symbol=%s&limit=0", f.BaseURL, url.QueryEscape(ticker))
	body, err := f.http.get(ctx, endpoint, f.header())
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("%w: fetch bars %s: %v", model.ErrDataUnavailable, ticker, err)
	}

	var bars []restBar
	if err := json.Unmarshal(body, &bars); err != nil {
		return model.PriceSeries{}, fmt.Errorf("%w: decode bars %s: %v", model.ErrDataUnavailable, ticker, err)
	}
	points := make([]model.PricePoint, 0, len(bars))
	for _, b := range bars {
		if b.Close <= 0 {
			continue
		}
		y, m, d := time.Unix(b.Timestamp, 0).UTC().Date()
		points = append(points, model.PricePoint{Date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Close: b.Close})
	}
	return buildSeries(ticker, points)
}

// FetchMarketCap reads market_cap from the profile endpoint. A null field is not an error.
func (f *RESTFetcher) FetchMarketCap(ctx context.Context, ticker string) (*float64, error) {
	endpoint := fmt.Sprintf("%s/api/v1/profile?symbol=%s", f.BaseURL, url.QueryEscape(ticker))
	body, err := f.http.get(ctx, endpoint, f.header())
	if err != nil {
		return nil, fmt.Errorf("fetch profile %s: %w", ticker, err)
	}
	var result struct {
		MarketCap *float64 `json:"market_cap"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", ticker, err)
	}
	return result.MarketCap, nil
}

func (f *RESTFetcher) header() http.Header {
	h := http.Header{}
	if f.APIKey != "" {
		h.Set("Authorization", "Bearer "+f.APIKey)
	}
	return h
}
