package collector

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"StockForecast/internal/model"
)

// ErrFetch is returned when a provider call fails or returns no usable bars.
var ErrFetch = errors.New("fetch failed")

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchDailyBars returns daily bars with start <= date <= end.
	FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error)
	// FetchLatestBar returns the most recent daily bar.
	FetchLatestBar(ctx context.Context, symbol string) (model.OHLCV, error)
	Name() string
}

// Normalize sorts bars ascending by calendar date, keeps the last bar seen for a
// repeated date and drops bars with no usable prices.
func Normalize(bars []model.OHLCV) []model.OHLCV {
	byDate := make(map[time.Time]model.OHLCV, len(bars))
	for _, b := range bars {
		if !usable(b) {
			continue
		}
		b.Date = model.CalendarDate(b.Date)
		if math.IsNaN(b.Volume) || math.IsInf(b.Volume, 0) {
			b.Volume = 0
		}
		byDate[b.Date] = b
	}

	out := make([]model.OHLCV, 0, len(byDate))
	for _, b := range byDate {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func usable(b model.OHLCV) bool {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return !(b.Open == 0 && b.High == 0 && b.Low == 0 && b.Close == 0)
}

// inRange reports whether d falls in [start, end] by calendar date.
func inRange(d, start, end time.Time) bool {
	d = model.CalendarDate(d)
	return !d.Before(model.CalendarDate(start)) && !d.After(model.CalendarDate(end))
}
