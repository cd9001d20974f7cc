// Package export writes price history and forecasts as Parquet files.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"StockForecast/internal/model"
)

// BarRecord is the Parquet schema for daily bars.
type BarRecord struct {
	Symbol string  `parquet:"symbol"`
	Date   int64   `parquet:"date,timestamp(millisecond)"` // Unix ms, UTC midnight
	Open   float64 `parquet:"open"`
	High   float64 `parquet:"high"`
	Low    float64 `parquet:"low"`
	Close  float64 `parquet:"close"`
	Volume float64 `parquet:"volume"`
}

// ForecastRecord is the Parquet schema for forecast points.
type ForecastRecord struct {
	Symbol     string  `parquet:"symbol"`
	Date       int64   `parquet:"ds,timestamp(millisecond)"`
	Yhat       float64 `parquet:"yhat"`
	Lower      float64 `parquet:"yhat_lower"`
	Upper      float64 `parquet:"yhat_upper"`
	Trend      float64 `parquet:"trend"`
	Weekly     float64 `parquet:"weekly"`
	Yearly     float64 `parquet:"yearly"`
	Historical bool    `parquet:"historical"`
}

// BarRecords converts bars to Parquet rows.
func BarRecords(symbol string, bars []model.OHLCV) []BarRecord {
	out := make([]BarRecord, len(bars))
	for i, b := range bars {
		out[i] = BarRecord{
			Symbol: symbol,
			Date:   b.Date.UnixMilli(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}
	return out
}

// ForecastRecords converts a forecast result to Parquet rows.
func ForecastRecords(symbol string, res *model.ForecastResult) []ForecastRecord {
	if res == nil {
		return nil
	}
	out := make([]ForecastRecord, len(res.Points))
	for i, p := range res.Points {
		out[i] = ForecastRecord{
			Symbol:     symbol,
			Date:       p.Date.UnixMilli(),
			Yhat:       p.Yhat,
			Lower:      p.Lower,
			Upper:      p.Upper,
			Trend:      p.Trend,
			Weekly:     p.Weekly,
			Yearly:     p.Yearly,
			Historical: p.Historical,
		}
	}
	return out
}

// WriteBars streams bars to w as a Parquet file.
func WriteBars(w io.Writer, symbol string, bars []model.OHLCV) error {
	if err := parquet.Write(w, BarRecords(symbol, bars)); err != nil {
		return fmt.Errorf("write bars parquet: %w", err)
	}
	return nil
}

// WriteForecast streams a forecast to w as a Parquet file.
func WriteForecast(w io.Writer, symbol string, res *model.ForecastResult) error {
	if err := parquet.Write(w, ForecastRecords(symbol, res)); err != nil {
		return fmt.Errorf("write forecast parquet: %w", err)
	}
	return nil
}

// WriteFiles stores <dir>/<SYMBOL>_raw.parquet and <dir>/<SYMBOL>_forecast.parquet
// and returns their paths.
func WriteFiles(dir, symbol string, bars []model.OHLCV, res *model.ForecastResult) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	raw := filepath.Join(dir, symbol+"_raw.parquet")
	if err := parquet.WriteFile(raw, BarRecords(symbol, bars)); err != nil {
		return nil, fmt.Errorf("write %s: %w", raw, err)
	}
	paths := []string{raw}
	if res != nil {
		fc := filepath.Join(dir, symbol+"_forecast.parquet")
		if err := parquet.WriteFile(fc, ForecastRecords(symbol, res)); err != nil {
			return paths, fmt.Errorf("write %s: %w", fc, err)
		}
		paths = append(paths, fc)
	}
	return paths, nil
}
