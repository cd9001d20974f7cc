package collector

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"StockForecast/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Symbols present in Bars are served from it; other symbols are synthesized
// when Generate is set and rejected otherwise.
type MockFetcher struct {
	Bars     map[string][]model.OHLCV
	Generate bool
	Err      error
	Now      func() time.Time

	mu    sync.Mutex
	calls []string
}

func (m *MockFetcher) Name() string { return "mock" }

// Calls returns the symbols requested so far, in order.
func (m *MockFetcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MockFetcher) record(symbol string) {
	m.mu.Lock()
	m.calls = append(m.calls, symbol)
	m.mu.Unlock()
}

func (m *MockFetcher) series(symbol string) ([]model.OHLCV, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if bars, ok := m.Bars[symbol]; ok {
		return bars, nil
	}
	if m.Generate {
		now := time.Now()
		if m.Now != nil {
			now = m.Now()
		}
		return GenerateBars(symbol, model.CalendarDate(now), 3650), nil
	}
	return nil, fmt.Errorf("mock: unknown symbol %s", symbol)
}

func (m *MockFetcher) FetchDailyBars(_ context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error) {
	m.record(symbol)
	all, err := m.series(symbol)
	if err != nil {
		return nil, err
	}
	out := make([]model.OHLCV, 0, len(all))
	for _, b := range all {
		if inRange(b.Date, start, end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *MockFetcher) FetchLatestBar(_ context.Context, symbol string) (model.OHLCV, error) {
	m.record(symbol)
	all, err := m.series(symbol)
	if err != nil {
		return model.OHLCV{}, err
	}
	if len(all) == 0 {
		return model.OHLCV{}, fmt.Errorf("mock: no bars for %s", symbol)
	}
	return all[len(all)-1], nil
}

// GenerateBars builds a deterministic weekday series ending at end and spanning
// the given number of calendar days. The level and drift depend on the symbol.
func GenerateBars(symbol string, end time.Time, days int) []model.OHLCV {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	seed := h.Sum32()
	base := 20 + float64(seed%400)
	drift := 0.0002 + float64(seed%7)*0.0001

	end = model.CalendarDate(end)
	start := end.AddDate(0, 0, -days)
	bars := make([]model.OHLCV, 0, days)
	for i := 0; i <= days; i++ {
		d := start.AddDate(0, 0, i)
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		p := base * math.Exp(drift*float64(i)) * (1 + 0.05*math.Sin(2*math.Pi*float64(d.YearDay())/365.25))
		bars = append(bars, model.OHLCV{
			Date:   d,
			Open:   p * 0.995,
			High:   p * 1.01,
			Low:    p * 0.99,
			Close:  p,
			Volume: 1_000_000 + float64(seed%1000)*1000,
		})
	}
	return bars
}
