package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"SizingSignal/internal/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using the Yahoo Finance chart API.
type YahooFetcher struct {
	BaseURL   string
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
	http      *throttledClient
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(opts HTTPOptions) *YahooFetcher {
	return &YahooFetcher{
		BaseURL: yahooBaseURL,
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
		http: newThrottledClient(opts),
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				GMTOffset int `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchPriceHistory downloads the full daily history of ticker.
func (f *YahooFetcher) FetchPriceHistory(ctx context.Context, ticker string) (model.PriceSeries, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=max",
		f.BaseURL, url.PathEscape(f.yahooSymbol(ticker)))

	body, err := f.http.get(ctx, u, http.Header{"User-Agent": {"Mozilla/5.0"}})
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("%w: yahoo %s: %v", model.ErrDataUnavailable, ticker, err)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return model.PriceSeries{}, fmt.Errorf("%w: yahoo decode %s: %v", model.ErrDataUnavailable, ticker, err)
	}
	if chart.Chart.Error != nil {
		return model.PriceSeries{}, fmt.Errorf("%w: yahoo api error: %s", model.ErrDataUnavailable, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return model.PriceSeries{}, fmt.Errorf("%w: yahoo: no data returned for %s", model.ErrDataUnavailable, ticker)
	}

	result := chart.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close
	loc := time.FixedZone("exchange", result.Meta.GMTOffset)

	points := make([]model.PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil || *closes[i] <= 0 {
			continue // null bars (holidays etc.)
		}
		y, m, d := time.Unix(ts, 0).In(loc).Date()
		points = append(points, model.PricePoint{
			Date:  time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
			Close: *closes[i],
		})
	}
	return buildSeries(ticker, points)
}

// buildSeries sorts points, keeps the last close of any repeated date, and rejects an
// empty result.
func buildSeries(ticker string, points []model.PricePoint) (model.PriceSeries, error) {
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	series := model.PriceSeries{Ticker: ticker, Points: make([]model.PricePoint, 0, len(points))}
	for _, p := range points {
		n := len(series.Points)
		if n > 0 && series.Points[n-1].Date.Equal(p.Date) {
			series.Points[n-1] = p
			continue
		}
		series.Points = append(series.Points, p)
	}
	if series.Len() == 0 {
		return model.PriceSeries{}, fmt.Errorf("%w: no closes for %s", model.ErrDataUnavailable, ticker)
	}
	return series, nil
}
