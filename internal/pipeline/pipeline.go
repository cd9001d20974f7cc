// Package pipeline runs one interaction: pick a ticker, load its history,
// keep the last N years and forecast N years ahead.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"StockForecast/internal/collector"
	"StockForecast/internal/forecast"
	"StockForecast/internal/model"
	"StockForecast/internal/recorder"
	"StockForecast/internal/registry"
	"StockForecast/internal/series"
	"StockForecast/internal/session"
)

// ErrBadHorizon is returned for a forecast horizon outside [1, MaxYears].
var ErrBadHorizon = errors.New("forecast horizon out of range")

const (
	MinYears     = 1
	MaxYears     = 10
	DefaultYears = 1
)

// Stage names the step a Diagnostic came from.
type Stage string

const (
	StageInput    Stage = "input"
	StageRegistry Stage = "registry"
	StageLoad     Stage = "load"
	StageForecast Stage = "forecast"
	StageInternal Stage = "internal"
)

// Diagnostic is a failed stage reported to the user instead of aborting.
type Diagnostic struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (d *Diagnostic) Error() string { return fmt.Sprintf("%s: %s", d.Stage, d.Message) }
func (d *Diagnostic) Unwrap() error { return d.Err }

// Request selects the ticker and horizon. An empty Ticker means the registry default.
type Request struct {
	Ticker string
	Years  int
}

// Result holds whatever stages completed. Diagnostic is set when a stage failed.
type Result struct {
	Ticker        string
	Years         int
	Tickers       []string
	Series        *model.PriceSeries
	Filtered      []model.OHLCV
	Forecast      *model.ForecastResult
	Diagnostic    *Diagnostic
	CacheHit      bool
	FetchDuration time.Duration
	FitDuration   time.Duration
}

// OK reports whether every stage succeeded.
func (r *Result) OK() bool { return r.Diagnostic == nil }

// Runner executes the pipeline for a session.
type Runner struct {
	fitter   forecast.Fitter
	recorder recorder.Recorder
	maxYears int
	now      func() time.Time
	log      *slog.Logger
}

// NewRunner creates a Runner. maxYears caps the horizon below MaxYears when
// positive; rec may be nil.
func NewRunner(fitter forecast.Fitter, rec recorder.Recorder, maxYears int, log *slog.Logger) *Runner {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if maxYears <= 0 || maxYears > MaxYears {
		maxYears = MaxYears
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		fitter:   fitter,
		recorder: rec,
		maxYears: maxYears,
		now:      time.Now,
		log:      log.With("component", "pipeline"),
	}
}

// SetClock overrides the time source used for the filter window.
func (r *Runner) SetClock(now func() time.Time) { r.now = now }

// MaxYears returns the largest accepted horizon.
func (r *Runner) MaxYears() int { return r.maxYears }

// Run executes the pipeline with the session locked. It never returns an
// error: failures end up in Result.Diagnostic.
func (r *Runner) Run(ctx context.Context, sess *session.Session, req Request) (res *Result) {
	sess.Lock()
	defer sess.Unlock()

	res = &Result{Years: req.Years, Tickers: sess.Registry.All()}
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("pipeline panic", "session", sess.ID, "panic", p)
			res.Diagnostic = &Diagnostic{Stage: StageInternal, Message: fmt.Sprint(p)}
		}
		r.record(sess, res)
	}()

	if req.Years < MinYears || req.Years > r.maxYears {
		res.Diagnostic = &Diagnostic{
			Stage:   StageInput,
			Message: fmt.Sprintf("years of prediction must be between %d and %d, got %d", MinYears, r.maxYears, req.Years),
			Err:     ErrBadHorizon,
		}
		return res
	}

	ticker := registry.Normalize(req.Ticker)
	if ticker == "" {
		ticker = sess.Registry.Default()
	}
	res.Ticker = ticker
	if !sess.Registry.Contains(ticker) {
		res.Diagnostic = &Diagnostic{
			Stage:   StageRegistry,
			Message: fmt.Sprintf("%s is not in the ticker list; add it first", ticker),
			Err:     registry.ErrInvalidTicker,
		}
		return res
	}

	fetchesBefore := sess.Loader.Fetches()
	began := time.Now()
	s, err := sess.Loader.Load(ctx, ticker)
	res.FetchDuration = time.Since(began)
	res.CacheHit = sess.Loader.Fetches() == fetchesBefore
	if err != nil {
		res.Diagnostic = &Diagnostic{Stage: StageLoad, Message: fmt.Sprintf("could not load data for %s: %v", ticker, err), Err: err}
		return res
	}
	res.Series = s
	res.Filtered = series.Filter(s.Bars, req.Years, r.now())

	began = time.Now()
	fc, err := forecast.Forecast(ctx, r.fitter, forecast.TrainingTable(res.Filtered), series.HorizonDays(req.Years))
	res.FitDuration = time.Since(began)
	if err != nil {
		res.Diagnostic = &Diagnostic{Stage: StageForecast, Message: fmt.Sprintf("could not forecast %s: %v", ticker, err), Err: err}
		return res
	}
	res.Forecast = fc

	r.log.Info("pipeline done",
		"session", sess.ID,
		"ticker", ticker,
		"years", req.Years,
		"bars", len(res.Filtered),
		"points", len(fc.Points),
		"cache_hit", res.CacheHit,
		"fetch", res.FetchDuration.Round(time.Millisecond),
		"fit", res.FitDuration.Round(time.Millisecond),
	)
	return res
}

func (r *Runner) record(sess *session.Session, res *Result) {
	evt := &recorder.RunEvent{
		SessionID: sess.ID,
		Ticker:    res.Ticker,
		Years:     res.Years,
		Bars:      len(res.Filtered),
		FetchMs:   res.FetchDuration.Milliseconds(),
		FitMs:     res.FitDuration.Milliseconds(),
	}
	if res.Series != nil {
		evt.Provider = res.Series.Source
	}
	if res.Forecast != nil {
		evt.Points = len(res.Forecast.Points)
		if last, ok := res.Forecast.Last(); ok {
			evt.LastDate, evt.LastYhat = last.Date, last.Yhat
		}
	}
	if d := res.Diagnostic; d != nil {
		evt.Stage, evt.Error = string(d.Stage), d.Message
		r.log.Warn("pipeline stage failed", "session", sess.ID, "ticker", res.Ticker, "stage", d.Stage, "error", d.Message)
	}
	if err := r.recorder.RecordRun(evt); err != nil {
		r.log.Error("record run", "error", err)
	}
}

// AddTicker adds candidate to the session registry and returns the flash
// message describing the outcome.
func (r *Runner) AddTicker(ctx context.Context, sess *session.Session, candidate string) (string, session.Flash) {
	sess.Lock()
	defer sess.Unlock()

	ticker, err := sess.AddTicker(ctx, candidate)
	outcome := "added"
	flash := session.Flash{Kind: session.FlashSuccess, Message: fmt.Sprintf("Ticker %s added successfully.", ticker)}
	switch {
	case err == nil:
	case errors.Is(err, registry.ErrEmptyTicker):
		outcome = "empty"
		flash = session.Flash{Kind: session.FlashError, Message: "Please enter a ticker symbol."}
	case errors.Is(err, registry.ErrAlreadyPresent):
		outcome = "already_present"
		flash = session.Flash{Kind: session.FlashWarning, Message: fmt.Sprintf("Ticker %s is already in the list.", ticker)}
	default:
		outcome = "invalid"
		flash = session.Flash{Kind: session.FlashError, Message: fmt.Sprintf("Invalid ticker symbol %s. Please enter a valid ticker.", ticker)}
	}
	sess.SetFlash(flash.Kind, flash.Message)

	if rerr := r.recorder.RecordTicker(&recorder.TickerEvent{SessionID: sess.ID, Ticker: ticker, Outcome: outcome}); rerr != nil {
		r.log.Error("record ticker", "error", rerr)
	}
	r.log.Info("add ticker", "session", sess.ID, "ticker", ticker, "outcome", outcome)
	return ticker, flash
}

// Classify maps a pipeline error to a short kind for API responses.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBadHorizon):
		return "bad_horizon"
	case errors.Is(err, registry.ErrInvalidTicker):
		return "invalid_ticker"
	case errors.Is(err, collector.ErrFetch):
		return "fetch"
	case errors.Is(err, forecast.ErrFitting):
		return "fitting"
	default:
		return "internal"
	}
}
