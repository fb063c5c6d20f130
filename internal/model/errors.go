package model

import "errors"

var (
	// ErrDataUnavailable means a fetch failed or returned no data.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrInsufficientHistory means the series is shorter than a required window or lookback.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrDegenerateFit means a ratio would divide by a zero reference level.
	ErrDegenerateFit = errors.New("degenerate fit")
	// ErrInvalidRequest rejects a whole batch before any ticker is processed.
	ErrInvalidRequest = errors.New("invalid request")
)
