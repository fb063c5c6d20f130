package strategy

import (
	"fmt"
	"math"

	"SizingSignal/internal/calculator"
	"SizingSignal/internal/model"
)

// Snapshot is everything the feature composer reads for one ticker.
type Snapshot struct {
	LatestClose    float64
	AllTimeHigh    float64
	MarketCap      *float64
	Trend          model.TrendlineResult
	MovingAverages model.MovingAverageSet
	Stats          map[model.Horizon]model.HorizonStats
}

// DefaultMASource maps each horizon to the series its MA proximities are read from.
// Daily and weekly use the daily averages; monthly and yearly use the weekly ones.
var DefaultMASource = map[model.Horizon]model.Horizon{
	model.HorizonDaily:   model.HorizonDaily,
	model.HorizonWeekly:  model.HorizonDaily,
	model.HorizonMonthly: model.HorizonWeekly,
	model.HorizonYearly:  model.HorizonWeekly,
}

// Composer builds feature vectors.
type Composer struct {
	MASource map[model.Horizon]model.Horizon
}

// NewComposer creates a Composer with DefaultMASource.
func NewComposer() *Composer {
	return &Composer{MASource: DefaultMASource}
}

// Compose assembles the 8-feature vector for horizon h.
func (c *Composer) Compose(h model.Horizon, s *Snapshot) (model.FeatureVector, error) {
	var fv model.FeatureVector

	stats, ok := s.Stats[h]
	if !ok {
		return fv, fmt.Errorf("no %s statistics", h)
	}

	src := h
	if mapped, ok := c.MASource[h]; ok {
		src = mapped
	}

	ma100, err := calculator.RelativeDistance(maValue(s.MovingAverages, 100, src), s.LatestClose)
	if err != nil {
		return fv, fmt.Errorf("MA100%s proximity: %w", src, err)
	}
	ma200, err := calculator.RelativeDistance(maValue(s.MovingAverages, 200, src), s.LatestClose)
	if err != nil {
		return fv, fmt.Errorf("MA200%s proximity: %w", src, err)
	}
	trend, err := calculator.RelativeDistance(s.Trend.P2, s.LatestClose)
	if err != nil {
		return fv, fmt.Errorf("trendline proximity: %w", err)
	}
	spread, err := calculator.SpreadFromPeak(s.LatestClose, s.AllTimeHigh)
	if err != nil {
		return fv, err
	}

	fv[model.FeatureMA100Proximity] = ma100
	fv[model.FeatureMA200Proximity] = ma200
	fv[model.FeatureTrendProximity] = trend
	fv[model.FeatureRiskAdjustedReturn] = stats.RiskAdjustedReturn
	fv[model.FeatureLogMarketCap] = LogMarketCap(s.MarketCap)
	fv[model.FeatureInverseSpread] = -spread
	fv[model.FeatureWorstMinusLast] = stats.WorstReturn - stats.LastReturn
	fv[model.FeatureVolatilityMinusLast] = stats.StdDev - stats.LastReturn
	return fv, nil
}

// LogMarketCap scales market cap as ln(cap)/100. Missing or non-positive caps are 0.
func LogMarketCap(marketCap *float64) float64 {
	if marketCap == nil || *marketCap <= 0 {
		return 0
	}
	return math.Log(*marketCap) / 100
}

// maValue returns NaN when the average was never computed.
func maValue(set model.MovingAverageSet, period int, h model.Horizon) float64 {
	v, ok := set[model.MAKey{Period: period, Horizon: h}]
	if !ok {
		return math.NaN()
	}
	return v
}
