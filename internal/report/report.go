// Package report builds the tail tables shown under each chart.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"StockForecast/internal/model"
)

// TailRows is the number of rows shown in each table.
const TailRows = 5

// RawRow is one displayed price bar.
type RawRow struct {
	Date   string          `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// ForecastRow is one displayed forecast day.
type ForecastRow struct {
	Date  string          `json:"ds"`
	Yhat  decimal.Decimal `json:"yhat"`
	Lower decimal.Decimal `json:"yhat_lower"`
	Upper decimal.Decimal `json:"yhat_upper"`
	Trend decimal.Decimal `json:"trend"`
}

func price(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

// RawTail returns the last n bars as display rows.
func RawTail(bars []model.OHLCV, n int) []RawRow {
	if n >= 0 && len(bars) > n {
		bars = bars[len(bars)-n:]
	}
	rows := make([]RawRow, len(bars))
	for i, b := range bars {
		rows[i] = RawRow{
			Date:   b.Date.Format(model.DateLayout),
			Open:   price(b.Open),
			High:   price(b.High),
			Low:    price(b.Low),
			Close:  price(b.Close),
			Volume: int64(b.Volume),
		}
	}
	return rows
}

// ForecastTail returns the last n forecast points as display rows.
func ForecastTail(res *model.ForecastResult, n int) []ForecastRow {
	points := res.Tail(n)
	rows := make([]ForecastRow, len(points))
	for i, p := range points {
		rows[i] = ForecastRow{
			Date:  p.Date.Format(model.DateLayout),
			Yhat:  price(p.Yhat),
			Lower: price(p.Lower),
			Upper: price(p.Upper),
			Trend: price(p.Trend),
		}
	}
	return rows
}

// WriteRaw prints rows as an aligned text table.
func WriteRaw(w io.Writer, rows []RawRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Date\tOpen\tHigh\tLow\tClose\tVolume\t")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t\n",
			r.Date, r.Open.StringFixed(2), r.High.StringFixed(2), r.Low.StringFixed(2), r.Close.StringFixed(2), r.Volume)
	}
	return tw.Flush()
}

// WriteForecast prints rows as an aligned text table.
func WriteForecast(w io.Writer, rows []ForecastRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "ds\tyhat\tyhat_lower\tyhat_upper\ttrend\t")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
			r.Date, r.Yhat.StringFixed(2), r.Lower.StringFixed(2), r.Upper.StringFixed(2), r.Trend.StringFixed(2))
	}
	return tw.Flush()
}
