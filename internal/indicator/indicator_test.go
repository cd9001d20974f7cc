package indicator

import (
	"errors"
	"math"
	"testing"
	"time"

	"StockForecast/internal/model"
)

func TestSMA(t *testing.T) {
	got, err := SMA([]float64{1, 2, 3, 4, 5}, 3)
	if err != nil || got != 4 {
		t.Errorf("SMA = %v, %v; want 4", got, err)
	}
	if _, err := SMA([]float64{1, 2}, 3); !errors.Is(err, ErrNotEnoughData) {
		t.Errorf("short input err = %v", err)
	}
	if _, err := SMA([]float64{1}, 0); err == nil {
		t.Error("zero period accepted")
	}
}

func TestRSI(t *testing.T) {
	rising := make([]float64, 30)
	for i := range rising {
		rising[i] = float64(i)
	}
	if got, _ := RSI(rising, 14); got != 100 {
		t.Errorf("RSI of rising series = %v, want 100", got)
	}

	alternating := make([]float64, 31)
	for i := range alternating {
		alternating[i] = 10 + float64(i%2)
	}
	got, err := RSI(alternating, 14)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-50) > 5 {
		t.Errorf("RSI of alternating series = %v, want about 50", got)
	}
	if _, err := RSI(rising[:14], 14); !errors.Is(err, ErrNotEnoughData) {
		t.Errorf("short input err = %v", err)
	}
}

func bars(n int) []model.OHLCV {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make([]model.OHLCV, n)
	for i := range out {
		c := 100 + float64(i)
		out[i] = model.OHLCV{Date: start.AddDate(0, 0, i), Open: c, High: c + 2, Low: c - 2, Close: c}
	}
	return out
}

func TestRange52Week(t *testing.T) {
	high, low, err := Range52Week(bars(300))
	if err != nil {
		t.Fatal(err)
	}
	// Only the last 252 bars count: closes 148..399.
	if high != 401 || low != 146 {
		t.Errorf("range = %v..%v, want 146..401", low, high)
	}
	if _, _, err := Range52Week(nil); err == nil {
		t.Error("empty input accepted")
	}
}

func TestSummarize(t *testing.T) {
	if Summarize(nil, nil) != nil {
		t.Error("empty history should give nil")
	}

	s := Summarize(bars(30), nil)
	if s.LastClose != 129 || s.LastDate != "2023-01-31" {
		t.Errorf("last = %v on %s", s.LastClose, s.LastDate)
	}
	if s.SMA50 != nil || s.SMA200 != nil {
		t.Error("SMA computed without enough history")
	}
	if s.RSI14 == nil || *s.RSI14 != 100 {
		t.Errorf("RSI14 = %v", s.RSI14)
	}
	if s.ForecastYhat != nil {
		t.Error("forecast fields set without a forecast")
	}

	res := &model.ForecastResult{Points: []model.ForecastPoint{
		{Date: time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), Yhat: 141.9},
	}}
	s = Summarize(bars(210), res)
	if s.SMA200 == nil || *s.SMA200 != 209.5 {
		t.Errorf("SMA200 = %v", s.SMA200)
	}
	if s.ForecastChange == nil || math.Abs(*s.ForecastChange-(141.9-309)/309*100) > 1e-9 {
		t.Errorf("ForecastChange = %v", s.ForecastChange)
	}
	if s.ForecastDate != "2023-03-01" {
		t.Errorf("ForecastDate = %s", s.ForecastDate)
	}
}
