package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"StockForecast/internal/chart"
	"StockForecast/internal/export"
	"StockForecast/internal/indicator"
	"StockForecast/internal/pipeline"
	"StockForecast/internal/registry"
	"StockForecast/internal/report"
	"StockForecast/internal/session"
)

func newForecastCmd(a *app) *cobra.Command {
	var (
		ticker string
		years  int
		out    string
	)
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast one ticker and print the tail tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.forecast(cmd, ticker, years, out)
		},
	}
	cmd.Flags().StringVarP(&ticker, "ticker", "t", "", "ticker symbol (default from config)")
	cmd.Flags().IntVarP(&years, "years", "y", pipeline.DefaultYears, "years of prediction")
	cmd.Flags().StringVarP(&out, "out", "o", "", "directory for PNG charts and Parquet exports")
	return cmd
}

func (a *app) forecast(cmd *cobra.Command, ticker string, years int, out string) error {
	ctx := cmd.Context()
	rec := a.openRecorder()
	defer rec.Close()

	runner := a.newRunner(rec)
	sess := session.NewManager(a.fetcher, a.sessionOptions(), a.log).New()

	// Tickers outside the baseline go through the same validation as the UI.
	if ticker != "" && !sess.Registry.Contains(registry.Normalize(ticker)) {
		if _, flash := runner.AddTicker(ctx, sess, ticker); flash.Kind == session.FlashError {
			return fmt.Errorf("%s", flash.Message)
		}
	}

	res := runner.Run(ctx, sess, pipeline.Request{Ticker: ticker, Years: years})
	w := cmd.OutOrStdout()
	if res.Series != nil {
		fmt.Fprintf(w, "%s raw data (%d bars, source %s)\n", res.Ticker, len(res.Filtered), res.Series.Source)
		if err := report.WriteRaw(w, report.RawTail(res.Filtered, report.TailRows)); err != nil {
			return err
		}
	}
	if res.Forecast != nil {
		fmt.Fprintf(w, "\n%s forecast, %d year(s)\n", res.Ticker, years)
		if err := report.WriteForecast(w, report.ForecastTail(res.Forecast, report.TailRows)); err != nil {
			return err
		}
	}
	if res.Series != nil {
		printSummary(w, indicator.Summarize(res.Series.Bars, res.Forecast))
	}
	if out != "" && res.Series != nil {
		if err := a.writeOutputs(w, out, res); err != nil {
			return err
		}
	}
	if res.Diagnostic != nil {
		return res.Diagnostic
	}
	return nil
}

type pngFile struct {
	name  string
	write func(io.Writer) error
}

func (a *app) writeOutputs(w io.Writer, dir string, res *pipeline.Result) error {
	paths, err := export.WriteFiles(dir, res.Ticker, res.Filtered, res.Forecast)
	if err != nil {
		return err
	}

	pngs := []pngFile{
		{res.Ticker + "_raw.png", func(f io.Writer) error { return chart.WriteRawPNG(f, res.Ticker, res.Filtered) }},
	}
	if res.Forecast != nil {
		pngs = append(pngs,
			pngFile{res.Ticker + "_forecast.png", func(f io.Writer) error {
				return chart.WriteForecastPNG(f, res.Ticker, res.Filtered, res.Forecast)
			}},
			pngFile{res.Ticker + "_components.png", func(f io.Writer) error { return chart.WriteComponentsPNG(f, res.Forecast) }},
		)
	}
	for _, p := range pngs {
		path := filepath.Join(dir, p.name)
		if err := writeFile(path, p.write); err != nil {
			return err
		}
		paths = append(paths, path)
	}

	fmt.Fprintln(w)
	for _, p := range paths {
		fmt.Fprintf(w, "wrote %s\n", p)
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func printSummary(w io.Writer, s *indicator.Summary) {
	if s == nil {
		return
	}
	fmt.Fprintf(w, "\nlast close %.2f on %s, 52-week range %.2f-%.2f", s.LastClose, s.LastDate, s.Low52w, s.High52w)
	if s.SMA200 != nil {
		fmt.Fprintf(w, ", SMA200 %.2f", *s.SMA200)
	}
	if s.RSI14 != nil {
		fmt.Fprintf(w, ", RSI14 %.1f", *s.RSI14)
	}
	fmt.Fprintln(w)
	if s.ForecastYhat != nil && s.ForecastChange != nil {
		fmt.Fprintf(w, "forecast %.2f on %s (%+.1f%%)\n", *s.ForecastYhat, s.ForecastDate, *s.ForecastChange)
	}
}
