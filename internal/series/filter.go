// Package series slices price history to the forecast window.
package series

import (
	"sort"
	"time"

	"StockForecast/internal/model"
)

// DaysPerYear is the fixed year length used for windows and horizons.
const DaysPerYear = 365

// Cutoff returns the first calendar date kept for a window of years ending at now.
func Cutoff(years int, now time.Time) time.Time {
	return model.CalendarDate(now).AddDate(0, 0, -years*DaysPerYear)
}

// Filter returns the contiguous tail of bars dated on or after Cutoff(years, now).
// bars must be sorted ascending. The result shares the backing array.
func Filter(bars []model.OHLCV, years int, now time.Time) []model.OHLCV {
	if len(bars) == 0 {
		return []model.OHLCV{}
	}
	cutoff := Cutoff(years, now)
	i := sort.Search(len(bars), func(i int) bool { return !bars[i].Date.Before(cutoff) })
	return bars[i:]
}

// HorizonDays converts a horizon in years to days.
func HorizonDays(years int) int { return years * DaysPerYear }
