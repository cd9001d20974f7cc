package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"StockForecast/internal/model"
)

// AlpacaFetcher implements Fetcher using the Alpaca market-data v2 API.
type AlpacaFetcher struct {
	client *marketdata.Client
	feed   string
}

// NewAlpacaFetcher creates a fetcher for the given credentials. An empty dataURL
// uses the SDK default; feed is "iex" or "sip".
func NewAlpacaFetcher(apiKey, apiSecret, dataURL, feed string) *AlpacaFetcher {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	if feed == "" {
		feed = "iex"
	}
	return &AlpacaFetcher{
		client: marketdata.NewClient(opts),
		feed:   feed,
	}
}

func (f *AlpacaFetcher) Name() string { return "alpaca" }

func (f *AlpacaFetcher) FetchDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	alpacaBars, err := f.client.GetBars(strings.ToUpper(symbol), marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     model.CalendarDate(start),
		End:       model.CalendarDate(end).AddDate(0, 0, 1),
		Feed:      marketdata.Feed(f.feed),
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca GetBars: %w", err)
	}

	bars := make([]model.OHLCV, 0, len(alpacaBars))
	for _, ab := range alpacaBars {
		// Daily bars are stamped at midnight New York time.
		date := model.CalendarDate(ab.Timestamp.In(newYork))
		if !inRange(date, start, end) {
			continue
		}
		bars = append(bars, model.OHLCV{
			Date:   date,
			Open:   ab.Open,
			High:   ab.High,
			Low:    ab.Low,
			Close:  ab.Close,
			Volume: float64(ab.Volume),
		})
	}
	return Normalize(bars), nil
}

func (f *AlpacaFetcher) FetchLatestBar(ctx context.Context, symbol string) (model.OHLCV, error) {
	end := time.Now()
	bars, err := f.FetchDailyBars(ctx, symbol, end.AddDate(0, 0, -10), end)
	if err != nil {
		return model.OHLCV{}, err
	}
	if len(bars) == 0 {
		return model.OHLCV{}, fmt.Errorf("alpaca: no bars for %s", symbol)
	}
	return bars[len(bars)-1], nil
}

var newYork = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*60*60)
	}
	return loc
}()
