package calculator

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"SizingSignal/internal/model"
)

// FitTrendlines fits least-squares lines of close against calendar-day offset over the
// whole series, its last half, and the last half of that half, then evaluates each at
// today.
func FitTrendlines(series model.PriceSeries, today time.Time) (model.TrendlineResult, error) {
	n := series.Len()
	if n == 0 {
		return model.TrendlineResult{}, fmt.Errorf("%w: %s: empty price series", model.ErrDataUnavailable, series.Ticker)
	}

	first := series.Points[0].Date
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, p := range series.Points {
		xs[i] = float64(DaysBetween(first, p.Date))
		ys[i] = p.Close
	}
	x := float64(DaysBetween(first, today))

	half := tailLength(n, n/2)
	quarter := tailLength(n, (n/2)/2)

	return model.TrendlineResult{
		P1: project(xs, ys, x),
		P2: project(xs[n-half:], ys[n-half:], x),
		P3: project(xs[n-quarter:], ys[n-quarter:], x),
	}, nil
}

// tailLength maps an empty tail to the whole series, as slicing from offset -0 does.
func tailLength(n, k int) int {
	if k <= 0 {
		return n
	}
	return k
}

func project(xs, ys []float64, x float64) float64 {
	intercept, slope := fitLine(xs, ys)
	return intercept + slope*x
}

// fitLine returns (intercept, slope). With fewer than two distinct x values the line is
// flat through the mean.
func fitLine(xs, ys []float64) (float64, float64) {
	if len(xs) < 2 || xs[0] == xs[len(xs)-1] {
		return stat.Mean(ys, nil), 0
	}
	return stat.LinearRegression(xs, ys, nil, false)
}

// DaysBetween counts calendar days from the date of a to the date of b.
func DaysBetween(a, b time.Time) int {
	da := civilDate(a)
	db := civilDate(b)
	return int(db.Sub(da).Hours() / 24)
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
