// Package pipeline turns a batch of tickers and position values into a summary table of
// suggested investment amounts.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"SizingSignal/internal/calculator"
	"SizingSignal/internal/collector"
	"SizingSignal/internal/model"
	"SizingSignal/internal/request"
	"SizingSignal/internal/strategy"
	"SizingSignal/internal/workers"
)

// maHorizons are the series moving averages are computed over.
var maHorizons = []model.Horizon{model.HorizonDaily, model.HorizonWeekly, model.HorizonMonthly}

// Options tunes a Pipeline.
type Options struct {
	MAWindows      []int
	MaxConcurrency int
	FetchTimeout   time.Duration
	Now            func() time.Time
}

// Pipeline scores tickers independently and collects the survivors in input order.
type Pipeline struct {
	history   collector.Fetcher
	marketCap collector.MarketCapFetcher
	engine    *strategy.Engine
	opts      Options
}

// New creates a Pipeline. marketCap may be nil.
func New(history collector.Fetcher, marketCap collector.MarketCapFetcher, engine *strategy.Engine, opts Options) *Pipeline {
	if len(opts.MAWindows) == 0 {
		opts.MAWindows = calculator.DefaultMAWindows
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 4
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{history: history, marketCap: marketCap, engine: engine, opts: opts}
}

type outcome struct {
	suggestion *model.InvestmentSuggestion
	err        error
}

// Run validates req, scores every ticker and returns the table. Per-ticker failures drop
// that ticker and never fail the batch; an empty table is a valid result.
func (p *Pipeline) Run(ctx context.Context, req request.Request) (*model.SummaryTable, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	log.Info().
		Int("tickers", len(req.Tickers)).
		Str("horizon", string(req.Horizon)).
		Msg("running signal pipeline")

	outcomes := make([]outcome, len(req.Tickers))
	pool := workers.NewPool(ctx, p.opts.MaxConcurrency)
	pool.Start()

	for i := range req.Tickers {
		i := i
		if err := pool.Submit(func(ctx context.Context) error {
			s, err := p.Analyze(ctx, req.Tickers[i], req.Values[i])
			outcomes[i] = outcome{suggestion: s, err: err}
			return err
		}); err != nil {
			outcomes[i] = outcome{err: err}
		}
	}
	pool.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline cancelled: %w", err)
	}

	table := &model.SummaryTable{Horizon: req.Horizon, GeneratedAt: p.opts.Now()}
	for i, o := range outcomes {
		ticker := req.Tickers[i]
		if o.err == nil && o.suggestion == nil {
			o.err = errors.New("not processed")
		}
		if o.err != nil {
			log.Warn().Str("ticker", ticker).Err(o.err).Msg("skipping ticker")
			table.Skipped = append(table.Skipped, model.SkippedTicker{Ticker: ticker, Reason: o.err.Error()})
			continue
		}
		table.Rows = append(table.Rows, *o.suggestion)
	}

	log.Info().
		Int("rows", len(table.Rows)).
		Int("skipped", len(table.Skipped)).
		Msg("signal pipeline finished")
	return table, nil
}

// Analyze fetches and scores a single ticker.
func (p *Pipeline) Analyze(ctx context.Context, ticker string, positionValue float64) (*model.InvestmentSuggestion, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.opts.FetchTimeout)
	defer cancel()

	series, err := p.history.FetchPriceHistory(fetchCtx, ticker)
	if err != nil {
		if !errors.Is(err, model.ErrDataUnavailable) {
			err = fmt.Errorf("%w: %v", model.ErrDataUnavailable, err)
		}
		return nil, err
	}
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDataUnavailable, err)
	}
	if need := calculator.MaxWindow(p.opts.MAWindows); series.Len() < need {
		return nil, fmt.Errorf("%w: %s has %d closes, need %d", model.ErrInsufficientHistory, ticker, series.Len(), need)
	}

	marketCap := p.fetchMarketCap(fetchCtx, ticker)

	trend, err := calculator.FitTrendlines(series, p.opts.Now())
	if err != nil {
		return nil, err
	}

	mas := model.MovingAverageSet{}
	for _, h := range maHorizons {
		closes := calculator.Resample(series, h).Closes()
		for k, v := range calculator.MovingAverages(closes, p.opts.MAWindows, h) {
			mas[k] = v
		}
	}

	stats := make(map[model.Horizon]model.HorizonStats, len(model.Horizons))
	for _, h := range model.Horizons {
		st, err := calculator.ComputeHorizonStats(series, h)
		if err != nil {
			return nil, err
		}
		stats[h] = st
	}

	closes := series.Closes()
	latest := series.Last().Close
	ath, err := calculator.AllTimeHigh(closes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDataUnavailable, err)
	}
	spread, err := calculator.SpreadFromPeak(latest, ath)
	if err != nil {
		return nil, err
	}

	snap := &strategy.Snapshot{
		LatestClose:    latest,
		AllTimeHigh:    ath,
		MarketCap:      marketCap,
		Trend:          trend,
		MovingAverages: mas,
		Stats:          stats,
	}
	features, investments, err := p.engine.Evaluate(snap, positionValue)
	if err != nil {
		return nil, err
	}

	return &model.InvestmentSuggestion{
		Ticker:         ticker,
		PositionValue:  positionValue,
		LatestClose:    latest,
		AllTimeHigh:    ath,
		SpreadFromPeak: spread,
		MarketCap:      marketCap,
		Trend:          trend,
		MovingAverages: mas,
		Stats:          stats,
		Features:       features,
		Investments:    investments,
	}, nil
}

// fetchMarketCap is best-effort: any failure degrades to nil.
func (p *Pipeline) fetchMarketCap(ctx context.Context, ticker string) *float64 {
	if p.marketCap == nil {
		return nil
	}
	mc, err := p.marketCap.FetchMarketCap(ctx, ticker)
	if err != nil {
		log.Debug().Str("ticker", ticker).Err(err).Msg("market cap unavailable")
		return nil
	}
	return mc
}
