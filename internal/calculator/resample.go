package calculator

import (
	"time"

	"SizingSignal/internal/model"
)

// Resample keeps the last close of every calendar period of h, labeled by the period's
// first day. Weeks run Monday to Sunday. Periods with no observations are omitted.
func Resample(series model.PriceSeries, h model.Horizon) model.PriceSeries {
	if h == model.HorizonDaily || series.Len() == 0 {
		return series
	}

	out := model.PriceSeries{Ticker: series.Ticker}
	var current model.PricePoint
	started := false

	for _, p := range series.Points {
		start := PeriodStart(p.Date, h)
		if !started {
			current = model.PricePoint{Date: start, Close: p.Close}
			started = true
			continue
		}
		if !start.Equal(current.Date) {
			out.Points = append(out.Points, current)
			current = model.PricePoint{Date: start, Close: p.Close}
		} else {
			current.Close = p.Close
		}
	}
	out.Points = append(out.Points, current)
	return out
}

// PeriodStart returns the first day of the period of h containing t.
func PeriodStart(t time.Time, h model.Horizon) time.Time {
	d := civilDate(t)
	switch h {
	case model.HorizonWeekly:
		offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
		return d.AddDate(0, 0, -offset)
	case model.HorizonMonthly:
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	case model.HorizonYearly:
		return time.Date(d.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return d
	}
}
