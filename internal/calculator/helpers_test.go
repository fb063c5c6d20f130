package calculator

import (
	"time"

	"SizingSignal/internal/model"
)

var day0 = time.Date(2023, time.January, 2, 0, 0, 0, 0, time.UTC) // a Monday

// calendarSeries places one close on each consecutive calendar day from day0.
func calendarSeries(closes ...float64) model.PriceSeries {
	s := model.PriceSeries{Ticker: "TEST"}
	for i, c := range closes {
		s.Points = append(s.Points, model.PricePoint{Date: day0.AddDate(0, 0, i), Close: c})
	}
	return s
}

// businessSeries places closes on weekdays only, starting at day0.
func businessSeries(closes ...float64) model.PriceSeries {
	s := model.PriceSeries{Ticker: "TEST"}
	d := day0
	for _, c := range closes {
		for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			d = d.AddDate(0, 0, 1)
		}
		s.Points = append(s.Points, model.PricePoint{Date: d, Close: c})
		d = d.AddDate(0, 0, 1)
	}
	return s
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
