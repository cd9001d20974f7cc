package collector

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"StockForecast/internal/model"
)

// LookbackDays is the default history window requested for every ticker.
const LookbackDays = 3650

// Loader fetches price history through a Fetcher and memoizes it in a Cache.
type Loader struct {
	fetcher Fetcher
	cache   Cache
	log     *slog.Logger
	now     func() time.Time

	lookbackDays int

	fetches atomic.Int64
	hits    atomic.Int64
}

// NewLoader creates a Loader. A nil cache gets an unbounded MemoryCache.
func NewLoader(fetcher Fetcher, cache Cache, log *slog.Logger) *Loader {
	if cache == nil {
		cache = NewMemoryCache(0)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Loader{
		fetcher: fetcher,
		cache:   cache,
		log:     log.With("component", "loader", "provider", fetcher.Name()),
		now:     time.Now,

		lookbackDays: LookbackDays,
	}
}

// SetLookbackDays changes the history window. Non-positive values are ignored.
func (l *Loader) SetLookbackDays(days int) {
	if days > 0 {
		l.lookbackDays = days
	}
}

// SetClock overrides the time source used to compute the lookback window.
func (l *Loader) SetClock(now func() time.Time) { l.now = now }

// Window returns the [start, end] calendar dates requested by Load.
func (l *Loader) Window() (time.Time, time.Time) {
	end := model.CalendarDate(l.now())
	return end.AddDate(0, 0, -l.lookbackDays), end
}

// CacheKey identifies one load request.
func CacheKey(ticker string, start, end time.Time) string {
	return fmt.Sprintf("%s|%s|%s", ticker, start.Format(model.DateLayout), end.Format(model.DateLayout))
}

// Load returns the daily history of ticker over the lookback window. Repeated
// calls within the same day are served from the cache.
func (l *Loader) Load(ctx context.Context, ticker string) (*model.PriceSeries, error) {
	start, end := l.Window()
	key := CacheKey(ticker, start, end)
	if s, ok := l.cache.Get(key); ok {
		l.hits.Add(1)
		l.log.Debug("cache hit", "ticker", ticker, "bars", s.Len())
		return s, nil
	}

	l.log.Info("loading data", "ticker", ticker, "start", start.Format(model.DateLayout), "end", end.Format(model.DateLayout))
	began := time.Now()
	l.fetches.Add(1)
	bars, err := l.fetcher.FetchDailyBars(ctx, ticker, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrFetch, l.fetcher.Name(), ticker, err)
	}
	bars = Normalize(bars)
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s %s: no bars in window", ErrFetch, l.fetcher.Name(), ticker)
	}

	s := &model.PriceSeries{
		Symbol:    ticker,
		Bars:      bars,
		Start:     start,
		End:       end,
		Source:    l.fetcher.Name(),
		FetchedAt: l.now(),
	}
	l.cache.Put(key, s)
	l.log.Info("loading data done", "ticker", ticker, "bars", len(bars), "elapsed", time.Since(began).Round(time.Millisecond))
	return s, nil
}

// Validate reports whether the provider returns at least one recent bar for
// ticker. Any error counts as invalid.
func (l *Loader) Validate(ctx context.Context, ticker string) bool {
	l.fetches.Add(1)
	bar, err := l.fetcher.FetchLatestBar(ctx, ticker)
	if err != nil {
		l.log.Debug("validate failed", "ticker", ticker, "error", err)
		return false
	}
	if bar.Date.IsZero() || bar.Close == 0 {
		l.log.Debug("validate empty", "ticker", ticker)
		return false
	}
	return true
}

// Fetches returns the number of provider calls made.
func (l *Loader) Fetches() int64 { return l.fetches.Load() }

// Hits returns the number of loads served from the cache.
func (l *Loader) Hits() int64 { return l.hits.Load() }

// CacheLen returns the number of cached series.
func (l *Loader) CacheLen() int { return l.cache.Len() }
