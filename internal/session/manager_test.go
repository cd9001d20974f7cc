package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"StockForecast/internal/collector"
	"StockForecast/internal/model"
	"StockForecast/internal/registry"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager() (*Manager, *clock) {
	mock := &collector.MockFetcher{Bars: map[string][]model.OHLCV{
		"TSLA": {{Date: time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC), Open: 1, High: 1, Low: 1, Close: 180}},
	}}
	c := &clock{t: time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)}
	m := NewManager(mock, Options{IdleTTL: time.Hour}, nil)
	m.SetClock(c.now)
	return m, c
}

func TestSessionsAreIsolated(t *testing.T) {
	m, _ := newTestManager()
	a, b := m.New(), m.New()
	if a.ID == b.ID {
		t.Fatal("sessions share an id")
	}

	a.Lock()
	if _, err := a.AddTicker(context.Background(), "tsla"); err != nil {
		t.Fatalf("AddTicker: %v", err)
	}
	a.Unlock()

	if !a.Registry.Contains("TSLA") {
		t.Error("session a missing TSLA")
	}
	if b.Registry.Contains("TSLA") {
		t.Error("TSLA leaked into session b")
	}
	if a.Loader == b.Loader {
		t.Error("sessions share a loader")
	}
}

func TestAddTickerInvalid(t *testing.T) {
	m, _ := newTestManager()
	s := m.New()
	if _, err := s.AddTicker(context.Background(), "ZZZZZZ"); !errors.Is(err, registry.ErrInvalidTicker) {
		t.Errorf("error = %v, want ErrInvalidTicker", err)
	}
}

func TestGetOrCreate(t *testing.T) {
	m, _ := newTestManager()
	s, created := m.GetOrCreate("")
	if !created {
		t.Error("empty id should create")
	}
	again, created := m.GetOrCreate(s.ID)
	if created || again != s {
		t.Error("known id should return the same session")
	}
	if _, created := m.GetOrCreate("not-a-session"); !created {
		t.Error("unknown id should create")
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

func TestSweep(t *testing.T) {
	m, c := newTestManager()
	idle := m.New()
	c.advance(45 * time.Minute)
	active := m.New()
	c.advance(30 * time.Minute)
	m.Get(active.ID)

	if n := m.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if _, ok := m.Get(idle.ID); ok {
		t.Error("idle session survived")
	}
	if _, ok := m.Get(active.ID); !ok {
		t.Error("active session was swept")
	}
}

func TestFlashIsOneShot(t *testing.T) {
	m, _ := newTestManager()
	s := m.New()
	s.SetFlash(FlashWarning, "already there")
	if f := s.TakeFlash(); f == nil || f.Kind != FlashWarning {
		t.Fatalf("TakeFlash = %+v", f)
	}
	if f := s.TakeFlash(); f != nil {
		t.Errorf("second TakeFlash = %+v, want nil", f)
	}
}

func TestLookbackDaysReachesLoader(t *testing.T) {
	m := NewManager(&collector.MockFetcher{}, Options{LookbackDays: 365}, nil)
	start, end := m.New().Loader.Window()
	if got := end.Sub(start); got != 365*24*time.Hour {
		t.Errorf("window = %v, want 365 days", got)
	}

	m = NewManager(&collector.MockFetcher{}, Options{}, nil)
	start, end = m.New().Loader.Window()
	if got, want := end.Sub(start), collector.LookbackDays*24*time.Hour; got != want {
		t.Errorf("default window = %v, want %v", got, want)
	}
}
