package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SizingSignal/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Series     map[string]model.PriceSeries
	MarketCaps map[string]float64
	Errors     map[string]error
	Delay      time.Duration

	mu    sync.Mutex
	calls map[string]int
}

// NewMockFetcher creates an empty MockFetcher.
func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		Series:     map[string]model.PriceSeries{},
		MarketCaps: map[string]float64{},
		Errors:     map[string]error{},
	}
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchPriceHistory(ctx context.Context, ticker string) (model.PriceSeries, error) {
	m.record(ticker)
	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return model.PriceSeries{}, ctx.Err()
		case <-time.After(m.Delay):
		}
	}
	if err, ok := m.Errors[ticker]; ok {
		return model.PriceSeries{}, err
	}
	s, ok := m.Series[ticker]
	if !ok || s.Len() == 0 {
		return model.PriceSeries{}, fmt.Errorf("%w: mock has no series for %s", model.ErrDataUnavailable, ticker)
	}
	return s, nil
}

func (m *MockFetcher) FetchMarketCap(_ context.Context, ticker string) (*float64, error) {
	v, ok := m.MarketCaps[ticker]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

// Calls returns how many history fetches ticker received.
func (m *MockFetcher) Calls(ticker string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[ticker]
}

func (m *MockFetcher) record(ticker string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[ticker]++
}

// BusinessDaySeries lays closes out on consecutive weekdays starting at start.
func BusinessDaySeries(ticker string, start time.Time, closes []float64) model.PriceSeries {
	s := model.PriceSeries{Ticker: ticker, Points: make([]model.PricePoint, 0, len(closes))}
	d := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	for _, c := range closes {
		for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			d = d.AddDate(0, 0, 1)
		}
		s.Points = append(s.Points, model.PricePoint{Date: d, Close: c})
		d = d.AddDate(0, 0, 1)
	}
	return s
}

// ConstantCloses returns n copies of v.
func ConstantCloses(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
