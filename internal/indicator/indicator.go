// Package indicator computes the technical summary shown next to a forecast.
package indicator

import (
	"errors"
	"math"

	"StockForecast/internal/model"
)

// TradingDaysPerYear bounds the 52-week range lookback.
const TradingDaysPerYear = 252

var ErrNotEnoughData = errors.New("not enough data")

// SMA returns the simple moving average of the last period values.
func SMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period {
		return 0, ErrNotEnoughData
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period), nil
}

// RSI computes the Wilder-smoothed relative strength index over period.
// It needs at least period+1 values.
func RSI(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period+1 {
		return 0, ErrNotEnoughData
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		if d := values[i] - values[i-1]; d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	p := float64(period)
	for i := period + 1; i < len(values); i++ {
		gain, loss := 0.0, 0.0
		if d := values[i] - values[i-1]; d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
	}

	if avgLoss == 0 {
		return 100, nil
	}
	return 100 - 100/(1+avgGain/avgLoss), nil
}

// Range52Week returns the highest high and lowest low of the last
// TradingDaysPerYear bars.
func Range52Week(bars []model.OHLCV) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, ErrNotEnoughData
	}
	start := max(len(bars)-TradingDaysPerYear, 0)
	high, low = math.Inf(-1), math.Inf(1)
	for _, b := range bars[start:] {
		high = math.Max(high, b.High)
		low = math.Min(low, b.Low)
	}
	return high, low, nil
}

// Closes extracts the close of each bar.
func Closes(bars []model.OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Summary is a snapshot of the loaded history and where the forecast ends.
// Pointer fields are nil when the history is too short to compute them.
type Summary struct {
	LastDate       string   `json:"last_date"`
	LastClose      float64  `json:"last_close"`
	High52w        float64  `json:"high_52w"`
	Low52w         float64  `json:"low_52w"`
	SMA50          *float64 `json:"sma_50,omitempty"`
	SMA200         *float64 `json:"sma_200,omitempty"`
	RSI14          *float64 `json:"rsi_14,omitempty"`
	ForecastDate   string   `json:"forecast_date,omitempty"`
	ForecastYhat   *float64 `json:"forecast_yhat,omitempty"`
	ForecastChange *float64 `json:"forecast_change_pct,omitempty"`
}

// Summarize builds a Summary from the full history and an optional forecast.
// It returns nil for an empty history.
func Summarize(bars []model.OHLCV, res *model.ForecastResult) *Summary {
	if len(bars) == 0 {
		return nil
	}
	last := bars[len(bars)-1]
	s := &Summary{LastDate: last.Date.Format(model.DateLayout), LastClose: last.Close}
	s.High52w, s.Low52w, _ = Range52Week(bars)

	closes := Closes(bars)
	if v, err := SMA(closes, 50); err == nil {
		s.SMA50 = &v
	}
	if v, err := SMA(closes, 200); err == nil {
		s.SMA200 = &v
	}
	if v, err := RSI(closes, 14); err == nil {
		s.RSI14 = &v
	}
	if p, ok := res.Last(); ok {
		yhat := p.Yhat
		s.ForecastDate = p.Date.Format(model.DateLayout)
		s.ForecastYhat = &yhat
		if last.Close != 0 {
			chg := (yhat - last.Close) / last.Close * 100
			s.ForecastChange = &chg
		}
	}
	return s
}
