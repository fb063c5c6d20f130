package calculator

import (
	"errors"
	"fmt"
	"math"

	"SizingSignal/internal/model"
)

// AllTimeHigh scans the whole history and returns the highest close.
func AllTimeHigh(closes []float64) (float64, error) {
	if len(closes) == 0 {
		return 0, errors.New("no closes provided")
	}
	high := math.Inf(-1)
	for _, c := range closes {
		if c > high {
			high = c
		}
	}
	return high, nil
}

// SpreadFromPeak returns how far current sits relative to peak (0 at the peak, negative
// below it).
func SpreadFromPeak(current, peak float64) (float64, error) {
	if peak == 0 {
		return 0, fmt.Errorf("%w: all-time high is zero", model.ErrDegenerateFit)
	}
	return current/peak - 1, nil
}
