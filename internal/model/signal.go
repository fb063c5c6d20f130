package model

import (
	"fmt"
	"strings"
	"time"
)

// Horizon is the time granularity features are computed at.
type Horizon string

const (
	HorizonDaily   Horizon = "daily"
	HorizonWeekly  Horizon = "weekly"
	HorizonMonthly Horizon = "monthly"
	HorizonYearly  Horizon = "yearly"
)

// Horizons lists every horizon in display order.
var Horizons = []Horizon{HorizonDaily, HorizonWeekly, HorizonMonthly, HorizonYearly}

// ParseHorizon accepts a horizon name in any case.
func ParseHorizon(s string) (Horizon, error) {
	h := Horizon(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Horizons {
		if h == known {
			return h, nil
		}
	}
	return "", fmt.Errorf("%w: unknown horizon %q", ErrInvalidRequest, s)
}

// Title returns the capitalized name, e.g. "Weekly".
func (h Horizon) Title() string {
	if h == "" {
		return ""
	}
	return strings.ToUpper(string(h[:1])) + string(h[1:])
}

// TrendlineResult holds the three trendline projections at the evaluation date.
type TrendlineResult struct {
	P1 float64 // full series
	P2 float64 // last half
	P3 float64 // last half of the last half
}

// HorizonStats bundles return statistics for one horizon.
type HorizonStats struct {
	LastReturn         float64
	WorstReturn        float64
	StdDev             float64
	GeoMeanReturn      float64
	RiskAdjustedReturn float64
}

// MAKey identifies a moving average by window length and the series it ran over.
type MAKey struct {
	Period  int
	Horizon Horizon
}

// Label renders the key as "MA100daily".
func (k MAKey) Label() string {
	return fmt.Sprintf("MA%d%s", k.Period, k.Horizon)
}

// MovingAverageSet maps a key to the latest trailing mean. NaN marks an undefined average.
type MovingAverageSet map[MAKey]float64

// FeatureCount is the fixed length of a feature vector.
const FeatureCount = 8

// Feature vector positions.
const (
	FeatureMA100Proximity = iota
	FeatureMA200Proximity
	FeatureTrendProximity
	FeatureRiskAdjustedReturn
	FeatureLogMarketCap
	FeatureInverseSpread
	FeatureWorstMinusLast
	FeatureVolatilityMinusLast
)

// FeatureNames lists the features in vector order.
var FeatureNames = [FeatureCount]string{
	"MA100 proximity",
	"MA200 proximity",
	"Trendline proximity",
	"Risk-adjusted return",
	"Log market cap",
	"Inverse spread from peak",
	"Worst minus last return",
	"Volatility minus last return",
}

// FeatureVector is the fixed-order input to the sizing formula.
type FeatureVector [FeatureCount]float64

// Weights scales each feature. The sum is not constrained.
type Weights [FeatureCount]float64

// FeatureContribution is one weighted term of the sizing sum.
type FeatureContribution struct {
	Name     string
	Raw      float64
	Weight   float64
	Weighted float64
}

// InvestmentSuggestion is the full per-ticker result.
type InvestmentSuggestion struct {
	Ticker         string
	PositionValue  float64
	LatestClose    float64
	AllTimeHigh    float64
	SpreadFromPeak float64
	MarketCap      *float64
	Trend          TrendlineResult
	MovingAverages MovingAverageSet
	Stats          map[Horizon]HorizonStats
	Features       map[Horizon]FeatureVector
	Investments    map[Horizon]float64
}

// SkippedTicker records why a ticker was left out of a summary.
type SkippedTicker struct {
	Ticker string
	Reason string
}

// SummaryTable is the ordered result of one pipeline run.
type SummaryTable struct {
	Horizon     Horizon
	Rows        []InvestmentSuggestion
	Skipped     []SkippedTicker
	GeneratedAt time.Time
}

// ProjectedRow is a ticker with its investment amount for one horizon.
type ProjectedRow struct {
	Ticker string
	Amount float64
}

// ColumnName returns the amount column header, e.g. "Daily Investment".
func ColumnName(h Horizon) string {
	return h.Title() + " Investment"
}

// Project selects the investment column for h.
func (t *SummaryTable) Project(h Horizon) []ProjectedRow {
	rows := make([]ProjectedRow, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = ProjectedRow{Ticker: r.Ticker, Amount: r.Investments[h]}
	}
	return rows
}

// Empty reports whether no ticker survived.
func (t *SummaryTable) Empty() bool { return len(t.Rows) == 0 }
