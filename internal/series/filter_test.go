package series

import (
	"testing"
	"time"

	"StockForecast/internal/collector"
	"StockForecast/internal/model"
)

func daily(start time.Time, n int) []model.OHLCV {
	bars := make([]model.OHLCV, n)
	for i := range bars {
		bars[i] = model.OHLCV{Date: start.AddDate(0, 0, i), Close: float64(i + 1)}
	}
	return bars
}

func TestFilter(t *testing.T) {
	now := time.Date(2024, 6, 3, 18, 0, 0, 0, time.UTC)
	bars := daily(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), 1250)

	tests := []struct {
		years int
		cut   string
	}{
		{1, "2023-06-04"},
		{2, "2022-06-04"},
		{3, "2021-06-04"},
	}
	for _, tt := range tests {
		got := Filter(bars, tt.years, now)
		if len(got) == 0 {
			t.Fatalf("Filter(%d) empty", tt.years)
		}
		if d := got[0].Date.Format(model.DateLayout); d != tt.cut {
			t.Errorf("Filter(%d) first date = %s, want %s", tt.years, d, tt.cut)
		}
		if got[len(got)-1] != bars[len(bars)-1] {
			t.Errorf("Filter(%d) dropped the latest bar", tt.years)
		}
		for _, b := range got {
			if b.Date.Before(Cutoff(tt.years, now)) {
				t.Errorf("Filter(%d) kept %s before cutoff", tt.years, b.Date.Format(model.DateLayout))
			}
		}
	}
}

func TestFilterBoundaryInclusive(t *testing.T) {
	now := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	cut := Cutoff(1, now)
	bars := []model.OHLCV{{Date: cut.AddDate(0, 0, -1)}, {Date: cut}, {Date: cut.AddDate(0, 0, 1)}}
	got := Filter(bars, 1, now)
	if len(got) != 2 || !got[0].Date.Equal(cut) {
		t.Errorf("boundary bar not kept: %+v", got)
	}
}

func TestFilterEmpty(t *testing.T) {
	got := Filter(nil, 1, time.Now())
	if got == nil || len(got) != 0 {
		t.Errorf("Filter(nil) = %v, want empty non-nil", got)
	}
	old := daily(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), 10)
	if got := Filter(old, 1, time.Now()); len(got) != 0 {
		t.Errorf("stale bars kept: %d", len(got))
	}
}

func TestHorizonDays(t *testing.T) {
	if HorizonDays(1) != 365 || HorizonDays(10) != 3650 {
		t.Errorf("HorizonDays = %d/%d", HorizonDays(1), HorizonDays(10))
	}
}

func TestFilterMaxHorizonKeepsLookbackWindow(t *testing.T) {
	now := time.Date(2024, 6, 3, 18, 0, 0, 0, time.UTC)
	l := collector.NewLoader(&collector.MockFetcher{}, nil, nil)
	l.SetClock(func() time.Time { return now })
	start, end := l.Window()

	bars := daily(start, int(end.Sub(start).Hours()/24)+1)
	if last := bars[len(bars)-1].Date; !last.Equal(end) {
		t.Fatalf("fixture ends %s, want %s", last.Format(model.DateLayout), end.Format(model.DateLayout))
	}
	got := Filter(bars, 10, now)
	if len(got) != len(bars) {
		t.Errorf("Filter(10) kept %d of %d bars", len(got), len(bars))
	}
	if len(bars) != collector.LookbackDays+1 {
		t.Errorf("window holds %d days, want %d", len(bars), collector.LookbackDays+1)
	}
}
