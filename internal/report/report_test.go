package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"StockForecast/internal/model"
)

func TestRawTail(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var bars []model.OHLCV
	for i := 0; i < 8; i++ {
		bars = append(bars, model.OHLCV{Date: start.AddDate(0, 0, i), Open: 1.005, High: 2, Low: 0.5, Close: 100.129 + float64(i), Volume: 1e6})
	}
	rows := RawTail(bars, TailRows)
	if len(rows) != 5 {
		t.Fatalf("len = %d, want 5", len(rows))
	}
	if rows[0].Date != "2024-01-04" || rows[4].Date != "2024-01-08" {
		t.Errorf("dates = %s..%s", rows[0].Date, rows[4].Date)
	}
	if got := rows[4].Close.StringFixed(2); got != "107.13" {
		t.Errorf("close = %s, want 107.13", got)
	}

	short := RawTail(bars[:2], TailRows)
	if len(short) != 2 {
		t.Errorf("short tail len = %d", len(short))
	}
}

func TestForecastTailAndText(t *testing.T) {
	res := &model.ForecastResult{}
	for i := 0; i < 7; i++ {
		res.Points = append(res.Points, model.ForecastPoint{
			Date: time.Date(2025, 1, 1+i, 0, 0, 0, 0, time.UTC), Yhat: 10.456, Lower: 9, Upper: 12, Trend: 10,
		})
	}
	rows := ForecastTail(res, TailRows)
	if len(rows) != 5 || rows[4].Date != "2025-01-07" {
		t.Fatalf("rows = %+v", rows)
	}

	var buf bytes.Buffer
	if err := WriteForecast(&buf, rows); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "yhat_lower") || !strings.Contains(out, "10.46") {
		t.Errorf("unexpected table:\n%s", out)
	}
	if lines := strings.Count(out, "\n"); lines != 6 {
		t.Errorf("lines = %d, want 6", lines)
	}

	buf.Reset()
	if err := WriteRaw(&buf, RawTail([]model.OHLCV{{Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Close: 3}}, TailRows)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "3.00") {
		t.Errorf("raw table missing close:\n%s", buf.String())
	}
}
