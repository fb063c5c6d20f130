package calculator

import (
	"errors"
	"math"

	"SizingSignal/internal/model"
)

// DefaultMAWindows are the moving-average lengths the signal uses.
var DefaultMAWindows = []int{100, 200}

// SMA computes the simple moving average of the last period prices.
func SMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, model.ErrInsufficientHistory
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// MovingAverages returns the latest trailing SMA for every window, keyed by the
// horizon label of the series. Windows longer than the series map to NaN.
func MovingAverages(prices []float64, windows []int, h model.Horizon) model.MovingAverageSet {
	set := make(model.MovingAverageSet, len(windows))
	for _, w := range windows {
		ma, err := SMA(prices, w)
		if err != nil {
			ma = math.NaN()
		}
		set[model.MAKey{Period: w, Horizon: h}] = ma
	}
	return set
}

// MaxWindow returns the largest window, or 0 for none.
func MaxWindow(windows []int) int {
	m := 0
	for _, w := range windows {
		if w > m {
			m = w
		}
	}
	return m
}
