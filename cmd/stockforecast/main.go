package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"StockForecast/internal/collector"
	"StockForecast/internal/config"
	"StockForecast/internal/forecast"
	"StockForecast/internal/logging"
	"StockForecast/internal/pipeline"
	"StockForecast/internal/recorder"
	"StockForecast/internal/series"
	"StockForecast/internal/session"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app is the wiring shared by every subcommand.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	fetcher collector.Fetcher
}

func newRootCmd() *cobra.Command {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	a := &app{}

	root := &cobra.Command{
		Use:           "stockforecast",
		Short:         "Forecast daily stock closes and browse them in a web page",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// A missing .env is fine; real environment variables still apply.
			_ = godotenv.Load()

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config validation: %w", err)
			}
			a.cfg = cfg
			a.log = logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
			logging.SetDefault(a.log)

			a.fetcher, err = newFetcher(cfg)
			if err != nil {
				return err
			}
			a.log.Debug("data source ready", "provider", a.fetcher.Name())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", cfgPath, "path to the YAML config file")

	root.AddCommand(newServeCmd(a), newForecastCmd(a), newValidateCmd(a))
	return root
}

// newFetcher picks the market-data provider named in the config.
func newFetcher(cfg *config.Config) (collector.Fetcher, error) {
	ds := cfg.DataSource
	switch ds.Provider {
	case "yahoo":
		return collector.NewYahooFetcher(cfg.Proxy), nil
	case "alpaca":
		return collector.NewAlpacaFetcher(ds.Alpaca.APIKey, ds.Alpaca.APISecret, ds.Alpaca.DataURL, ds.Alpaca.Feed), nil
	case "csv":
		return collector.NewCSVFetcher(ds.CSVDir), nil
	case "mock":
		return &collector.MockFetcher{Generate: true}, nil
	default:
		return nil, fmt.Errorf("unsupported data provider %q", ds.Provider)
	}
}

func (a *app) sessionOptions() session.Options {
	return session.Options{
		Baseline:        a.cfg.Tickers.Baseline,
		DefaultTicker:   a.cfg.Tickers.Default,
		CacheMaxEntries: a.cfg.Session.CacheMaxEntries,
		IdleTTL:         a.cfg.Session.IdleTTL,
		LookbackDays:    a.cfg.Forecast.LookbackYears * series.DaysPerYear,
	}
}

func (a *app) newRunner(rec recorder.Recorder) *pipeline.Runner {
	f := a.cfg.Forecast
	fitter := forecast.NewAdditive(forecast.Options{
		Changepoints:          f.Changepoints,
		ChangepointPriorScale: f.ChangepointPriorScale,
		SeasonalityPriorScale: f.SeasonalityPriorScale,
		IntervalWidth:         f.IntervalWidth,
	}, a.log)
	return pipeline.NewRunner(fitter, rec, f.MaxYears, a.log)
}

// openRecorder falls back to the noop recorder when SQLite is not configured
// or cannot be opened.
func (a *app) openRecorder() recorder.Recorder {
	if a.cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(a.cfg.Database.SQLitePath, a.log)
	if err != nil {
		a.log.Warn("init sqlite recorder failed, using noop", "error", err)
		return recorder.NewNoopRecorder()
	}
	return sr
}
