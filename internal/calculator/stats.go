package calculator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"SizingSignal/internal/model"
)

// TradingDaysPerYear scales daily volatility to yearly.
const TradingDaysPerYear = 252

// LastReturnLookback is the number of trading days the last return of each horizon
// spans on the daily series. Daily uses the last daily return.
var LastReturnLookback = map[model.Horizon]int{
	model.HorizonWeekly:  5,
	model.HorizonMonthly: 21,
	model.HorizonYearly:  TradingDaysPerYear,
}

// PeriodReturns returns the period-over-period percent change. The first element is NaN.
func PeriodReturns(closes []float64) []float64 {
	returns := make([]float64, len(closes))
	for i := range closes {
		if i == 0 {
			returns[i] = math.NaN()
			continue
		}
		returns[i] = closes[i]/closes[i-1] - 1
	}
	return returns
}

// ComputeHorizonStats derives the return statistics of h from the daily series.
func ComputeHorizonStats(daily model.PriceSeries, h model.Horizon) (model.HorizonStats, error) {
	closes := daily.Closes()
	if len(closes) == 0 {
		return model.HorizonStats{}, fmt.Errorf("%w: %s: empty price series", model.ErrDataUnavailable, daily.Ticker)
	}

	periodCloses := closes
	if h != model.HorizonDaily {
		periodCloses = Resample(daily, h).Closes()
	}
	returns := PeriodReturns(periodCloses)

	var stats model.HorizonStats
	stats.WorstReturn = minDefined(returns)
	stats.StdDev = sampleStdDev(returns)
	stats.GeoMeanReturn = geometricMean(returns)

	if h == model.HorizonDaily {
		stats.LastReturn = returns[len(returns)-1]
	} else {
		last, err := LookbackReturn(closes, LastReturnLookback[h])
		if err != nil {
			return model.HorizonStats{}, fmt.Errorf("%s %s last return: %w", daily.Ticker, h, err)
		}
		stats.LastReturn = last
	}

	if h == model.HorizonYearly {
		stats.StdDev = sampleStdDev(PeriodReturns(closes)) * math.Sqrt(TradingDaysPerYear)
	}

	stats.RiskAdjustedReturn = RiskAdjusted(stats.GeoMeanReturn, stats.StdDev)
	return stats, nil
}

// LookbackReturn is the ratio of the latest close to the close days trading days
// earlier, minus one.
func LookbackReturn(closes []float64, days int) (float64, error) {
	if days <= 0 || len(closes) < days+1 {
		return 0, fmt.Errorf("%w: need %d closes, have %d", model.ErrInsufficientHistory, days+1, len(closes))
	}
	n := len(closes)
	return closes[n-1]/closes[n-1-days] - 1, nil
}

// RiskAdjusted divides the geometric mean return by volatility. Zero or undefined
// volatility gives NaN.
func RiskAdjusted(geoMean, stdDev float64) float64 {
	if stdDev == 0 || math.IsNaN(stdDev) {
		return math.NaN()
	}
	return geoMean / stdDev
}

// geometricMean compounds every return after the first and takes the len(returns)-th
// root, counting the undefined first period.
func geometricMean(returns []float64) float64 {
	if len(returns) == 0 {
		return math.NaN()
	}
	prod := 1.0
	for _, r := range returns[1:] {
		prod *= 1 + r
	}
	return math.Pow(prod, 1/float64(len(returns))) - 1
}

func defined(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func minDefined(values []float64) float64 {
	d := defined(values)
	if len(d) == 0 {
		return math.NaN()
	}
	return floats.Min(d)
}

func sampleStdDev(values []float64) float64 {
	d := defined(values)
	if len(d) < 2 {
		return math.NaN()
	}
	return stat.StdDev(d, nil)
}
