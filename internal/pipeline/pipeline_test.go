package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SizingSignal/internal/collector"
	"SizingSignal/internal/model"
	"SizingSignal/internal/request"
	"SizingSignal/internal/strategy"
)

var start = time.Date(2021, time.January, 4, 0, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return time.Date(2022, time.March, 1, 0, 0, 0, 0, time.UTC) }

func newPipeline(f *collector.MockFetcher) *Pipeline {
	return New(f, f, strategy.NewEngine(strategy.DefaultWeights), Options{
		MaxConcurrency: 3,
		FetchTimeout:   time.Second,
		Now:            fixedNow,
	})
}

func req(tickers []string, values []float64, h model.Horizon) request.Request {
	return request.Request{Tickers: tickers, Values: values, Horizon: h}
}

func wiggly(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100*(1+0.0005*float64(i)) + 3*math.Sin(float64(i)/7)
	}
	return closes
}

func TestRun_ConstantSeriesEndToEnd(t *testing.T) {
	f := collector.NewMockFetcher()
	f.Series["FLAT"] = collector.BusinessDaySeries("FLAT", start, collector.ConstantCloses(300, 100))

	table, err := newPipeline(f).Run(context.Background(), req([]string{"FLAT"}, []float64{1000}, model.HorizonDaily))
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)

	row := table.Rows[0]
	assert.Equal(t, 100.0, row.MovingAverages[model.MAKey{Period: 100, Horizon: model.HorizonDaily}])
	assert.Equal(t, 100.0, row.MovingAverages[model.MAKey{Period: 200, Horizon: model.HorizonDaily}])
	assert.Equal(t, 0.0, row.SpreadFromPeak)
	assert.Nil(t, row.MarketCap)

	for _, h := range model.Horizons {
		st := row.Stats[h]
		assert.Equal(t, 0.0, st.LastReturn, h)
		assert.Equal(t, 0.0, st.WorstReturn, h)
		assert.Equal(t, 0.0, st.StdDev, h)
		assert.True(t, math.IsNaN(st.RiskAdjustedReturn), h)
	}

	fv := row.Features[model.HorizonDaily]
	require.Len(t, fv, model.FeatureCount)
	for i, v := range fv {
		if i == model.FeatureRiskAdjustedReturn {
			assert.True(t, math.IsNaN(v))
			continue
		}
		assert.InDelta(t, 0.0, v, 1e-9, model.FeatureNames[i])
	}
}

func TestRun_AllHorizonsDefinedWithLongHistory(t *testing.T) {
	f := collector.NewMockFetcher()
	f.Series["LONG"] = collector.BusinessDaySeries("LONG", start.AddDate(-4, 0, 0), wiggly(1100))
	f.MarketCaps["LONG"] = math.Exp(20)

	table, err := newPipeline(f).Run(context.Background(), req([]string{"LONG"}, []float64{1000}, model.HorizonYearly))
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)

	row := table.Rows[0]
	for _, h := range model.Horizons {
		fv := row.Features[h]
		for i, v := range fv {
			assert.False(t, math.IsNaN(v), "%s %s", h, model.FeatureNames[i])
		}
		assert.False(t, math.IsNaN(row.Investments[h]), h)
	}
	assert.InDelta(t, 0.2, row.Features[model.HorizonDaily][model.FeatureLogMarketCap], 1e-12)

	e := strategy.NewEngine(strategy.DefaultWeights)
	assert.InDelta(t, e.Size(row.Features[model.HorizonMonthly], 1000), row.Investments[model.HorizonMonthly], 1e-9)
}

func TestRun_ShortHistoryExcluded(t *testing.T) {
	f := collector.NewMockFetcher()
	f.Series["SHORT"] = collector.BusinessDaySeries("SHORT", start, collector.ConstantCloses(199, 50))

	table, err := newPipeline(f).Run(context.Background(), req([]string{"SHORT"}, []float64{1000}, model.HorizonDaily))
	require.NoError(t, err)
	assert.True(t, table.Empty())
	require.Len(t, table.Skipped, 1)
	assert.Equal(t, "SHORT", table.Skipped[0].Ticker)
}

func TestRun_YearlyLookbackMissingExcluded(t *testing.T) {
	f := collector.NewMockFetcher()
	f.Series["YOUNG"] = collector.BusinessDaySeries("YOUNG", start, wiggly(230))

	table, err := newPipeline(f).Run(context.Background(), req([]string{"YOUNG"}, []float64{1000}, model.HorizonDaily))
	require.NoError(t, err)
	assert.Empty(t, table.Rows)
}

func TestRun_FetchErrorDropsOnlyThatTicker(t *testing.T) {
	f := collector.NewMockFetcher()
	f.Series["GOOD"] = collector.BusinessDaySeries("GOOD", start, wiggly(300))
	f.Errors["BAD"] = errors.New("connection reset")

	table, err := newPipeline(f).Run(context.Background(),
		req([]string{"BAD", "GOOD"}, []float64{500, 1000}, model.HorizonWeekly))
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "GOOD", table.Rows[0].Ticker)
	assert.Equal(t, 1000.0, table.Rows[0].PositionValue)

	projected := table.Project(model.HorizonWeekly)
	require.Len(t, projected, 1)
	assert.Equal(t, table.Rows[0].Investments[model.HorizonWeekly], projected[0].Amount)
	assert.Equal(t, "Weekly Investment", model.ColumnName(table.Horizon))
}

func TestRun_PreservesInputOrder(t *testing.T) {
	f := collector.NewMockFetcher()
	tickers := []string{"E", "D", "C", "B", "A", "F"}
	values := []float64{1, 2, 3, 4, 5, 6}
	for _, tk := range tickers {
		f.Series[tk] = collector.BusinessDaySeries(tk, start, wiggly(300))
	}
	delete(f.Series, "C")

	table, err := newPipeline(f).Run(context.Background(), req(tickers, values, model.HorizonMonthly))
	require.NoError(t, err)

	var got []string
	for _, r := range table.Rows {
		got = append(got, r.Ticker)
	}
	assert.Equal(t, []string{"E", "D", "B", "A", "F"}, got)
}

func TestRun_RejectsMismatchedInputBeforeFetching(t *testing.T) {
	f := collector.NewMockFetcher()
	f.Series["A"] = collector.BusinessDaySeries("A", start, wiggly(300))

	_, err := newPipeline(f).Run(context.Background(), req([]string{"A", "B"}, []float64{1}, model.HorizonDaily))
	assert.ErrorIs(t, err, model.ErrInvalidRequest)
	assert.Equal(t, 0, f.Calls("A"))
}

func TestRun_SlowFetchTimesOut(t *testing.T) {
	f := collector.NewMockFetcher()
	f.Series["SLOW"] = collector.BusinessDaySeries("SLOW", start, wiggly(300))
	f.Delay = 200 * time.Millisecond

	p := New(f, f, strategy.NewEngine(strategy.DefaultWeights), Options{FetchTimeout: 20 * time.Millisecond, Now: fixedNow})
	table, err := p.Run(context.Background(), req([]string{"SLOW"}, []float64{1}, model.HorizonDaily))
	require.NoError(t, err)
	assert.Empty(t, table.Rows)
}

func TestAnalyze_Deterministic(t *testing.T) {
	f := collector.NewMockFetcher()
	f.Series["A"] = collector.BusinessDaySeries("A", start, wiggly(400))
	p := newPipeline(f)

	a, err := p.Analyze(context.Background(), "A", 1000)
	require.NoError(t, err)
	b, err := p.Analyze(context.Background(), "A", 1000)
	require.NoError(t, err)
	assert.Equal(t, a.Trend, b.Trend)
	assert.Equal(t, a.Investments[model.HorizonDaily], b.Investments[model.HorizonDaily])

	_, err = p.Analyze(context.Background(), "MISSING", 1000)
	assert.ErrorIs(t, err, model.ErrDataUnavailable)
}
