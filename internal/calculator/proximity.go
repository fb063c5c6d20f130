package calculator

import (
	"fmt"
	"math"

	"SizingSignal/internal/model"
)

// RelativeDistance returns (reference - actual) / reference: positive when actual is
// below the reference level. An undefined reference yields NaN; a zero reference is a
// degenerate fit.
func RelativeDistance(reference, actual float64) (float64, error) {
	if math.IsNaN(reference) {
		return math.NaN(), nil
	}
	if reference == 0 {
		return 0, fmt.Errorf("%w: reference level is zero", model.ErrDegenerateFit)
	}
	return (reference - actual) / reference, nil
}
