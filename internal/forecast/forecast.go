// Package forecast fits an additive trend plus seasonality model to a daily
// close series and extends it over a horizon.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"StockForecast/internal/model"
)

// ErrFitting is returned when a model cannot be fit to the training rows.
var ErrFitting = errors.New("forecast fitting failed")

// Fitter fits a Model to training rows.
type Fitter interface {
	Fit(ctx context.Context, rows []model.TrainingRow) (Model, error)
}

// Model predicts the training dates and each calendar day of a horizon.
type Model interface {
	Predict(horizonDays int) (*model.ForecastResult, error)
}

// TrainingTable maps bars to {DS: Date, Y: Close} rows sorted by date with
// one row per calendar date.
func TrainingTable(bars []model.OHLCV) []model.TrainingRow {
	rows := make([]model.TrainingRow, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, model.TrainingRow{DS: model.CalendarDate(b.Date), Y: b.Close})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].DS.Before(rows[j].DS) })

	out := rows[:0]
	for _, r := range rows {
		if n := len(out); n > 0 && out[n-1].DS.Equal(r.DS) {
			out[n-1] = r
			continue
		}
		out = append(out, r)
	}
	return out
}

// Forecast fits rows and predicts horizonDays past the last date.
func Forecast(ctx context.Context, f Fitter, rows []model.TrainingRow, horizonDays int) (*model.ForecastResult, error) {
	m, err := f.Fit(ctx, rows)
	if err != nil {
		return nil, err
	}
	res, err := m.Predict(horizonDays)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	return res, nil
}

// FutureDates returns the horizonDays calendar days following last.
func FutureDates(last time.Time, horizonDays int) []time.Time {
	last = model.CalendarDate(last)
	out := make([]time.Time, horizonDays)
	for i := range out {
		out[i] = last.AddDate(0, 0, i+1)
	}
	return out
}
