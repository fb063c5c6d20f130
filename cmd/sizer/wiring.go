package main

import (
	"github.com/rs/zerolog/log"

	"SizingSignal/internal/collector"
	"SizingSignal/internal/config"
	"SizingSignal/internal/pipeline"
	"SizingSignal/internal/recorder"
	"SizingSignal/internal/strategy"
)

// buildPipeline wires the configured data source behind the TTL cache.
func buildPipeline(cfg *config.Config) (*pipeline.Pipeline, *strategy.Engine, *collector.CachedFetcher) {
	opts := collector.HTTPOptions{
		Proxy:          cfg.Proxy,
		Timeout:        cfg.DataSource.Timeout,
		RequestsPerSec: float64(cfg.DataSource.RequestsPerSecond),
	}

	var (
		history   collector.Fetcher
		marketCap collector.MarketCapFetcher
	)
	switch cfg.DataSource.Provider {
	case "rest":
		rf := collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, opts)
		history, marketCap = rf, rf
	default:
		history, marketCap = collector.NewYahooFetcher(opts), collector.NewEquityMarketCap(cfg.Pipeline.FetchTimeout)
	}

	cached := collector.NewCachedFetcher(history, marketCap, cfg.Cache.TTL)
	log.Info().
		Str("data_source", cached.Name()).
		Dur("cache_ttl", cfg.Cache.TTL).
		Msg("data source ready")

	engine := strategy.NewEngine(cfg.FeatureWeights())
	p := pipeline.New(cached, cached, engine, pipeline.Options{
		MaxConcurrency: cfg.Pipeline.MaxConcurrency,
		FetchTimeout:   cfg.Pipeline.FetchTimeout,
	})
	return p, engine, cached
}

// openRecorder falls back to the noop recorder when SQLite is not configured or fails.
func openRecorder(cfg *config.Config) (recorder.Recorder, *recorder.SQLiteRecorder) {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder(), nil
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
	if err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder(), nil
	}
	return sr, sr
}
