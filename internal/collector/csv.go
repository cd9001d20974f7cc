package collector

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"StockForecast/internal/model"
)

// CSVFetcher reads daily bars from <Dir>/<SYMBOL>.csv files. The header row
// names the columns: Date, Open, High, Low, Close and optionally Volume.
type CSVFetcher struct {
	Dir string
}

// NewCSVFetcher creates an offline fetcher rooted at dir.
func NewCSVFetcher(dir string) *CSVFetcher {
	return &CSVFetcher{Dir: dir}
}

func (f *CSVFetcher) Name() string { return "csv" }

func (f *CSVFetcher) FetchDailyBars(_ context.Context, symbol string, start, end time.Time) ([]model.OHLCV, error) {
	all, err := f.readAll(symbol)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, b := range all {
		if inRange(b.Date, start, end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *CSVFetcher) FetchLatestBar(_ context.Context, symbol string) (model.OHLCV, error) {
	all, err := f.readAll(symbol)
	if err != nil {
		return model.OHLCV{}, err
	}
	if len(all) == 0 {
		return model.OHLCV{}, fmt.Errorf("csv: no rows for %s", symbol)
	}
	return all[len(all)-1], nil
}

func (f *CSVFetcher) readAll(symbol string) ([]model.OHLCV, error) {
	// Symbols are validated upstream, this only keeps the path inside Dir.
	name := filepath.Base(strings.ToUpper(symbol)) + ".csv"
	path := filepath.Join(f.Dir, name)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("csv %s has no data rows", path)
	}

	cols := parseHeader(records[0])
	for _, required := range []string{"date", "open", "high", "low", "close"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("csv %s: missing column %q", path, required)
		}
	}

	bars := make([]model.OHLCV, 0, len(records)-1)
	for _, row := range records[1:] {
		bar, err := parseRow(row, cols)
		if err != nil {
			continue // skip unparsable rows
		}
		bars = append(bars, bar)
	}
	return Normalize(bars), nil
}

// parseHeader maps lower-cased column names to their index.
func parseHeader(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		cols[h] = i
	}
	return cols
}

var csvDateLayouts = []string{model.DateLayout, "2006/01/02", time.RFC3339, "2006-01-02 15:04:05"}

func parseRow(row []string, cols map[string]int) (model.OHLCV, error) {
	field := func(name string) (string, bool) {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return "", false
		}
		return strings.TrimSpace(row[i]), true
	}
	num := func(name string) (float64, error) {
		s, ok := field(name)
		if !ok {
			return 0, fmt.Errorf("missing %s", name)
		}
		return strconv.ParseFloat(s, 64)
	}

	var bar model.OHLCV
	ds, _ := field("date")
	var err error
	for _, layout := range csvDateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, ds); err == nil {
			bar.Date = model.CalendarDate(t)
			break
		}
	}
	if err != nil {
		return bar, fmt.Errorf("parse date %q: %w", ds, err)
	}

	if bar.Open, err = num("open"); err != nil {
		return bar, err
	}
	if bar.High, err = num("high"); err != nil {
		return bar, err
	}
	if bar.Low, err = num("low"); err != nil {
		return bar, err
	}
	if bar.Close, err = num("close"); err != nil {
		return bar, err
	}
	if _, ok := cols["volume"]; ok {
		if v, err := num("volume"); err == nil {
			bar.Volume = v
		}
	}
	return bar, nil
}
