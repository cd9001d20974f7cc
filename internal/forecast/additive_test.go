package forecast

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"StockForecast/internal/model"
)

var start = time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)

// linearRows returns one row per calendar day rising linearly from lo to hi.
func linearRows(days int, lo, hi float64) []model.TrainingRow {
	rows := make([]model.TrainingRow, days)
	for i := range rows {
		rows[i] = model.TrainingRow{
			DS: start.AddDate(0, 0, i),
			Y:  lo + (hi-lo)*float64(i)/float64(days-1),
		}
	}
	return rows
}

// noisyRows is a weekday-only series with a trend, a yearly cycle and
// deterministic jitter.
func noisyRows(days int) []model.TrainingRow {
	var rows []model.TrainingRow
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i)
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		y := 50 + 0.03*float64(i) + 4*math.Sin(2*math.Pi*float64(i)/365.25) + 1.5*math.Sin(float64(i)*1.7)
		rows = append(rows, model.TrainingRow{DS: d, Y: y})
	}
	return rows
}

func TestFitRejectsTooFewRows(t *testing.T) {
	a := NewAdditive(DefaultOptions(), nil)
	for _, rows := range [][]model.TrainingRow{
		nil,
		{{DS: start, Y: 1}},
		{{DS: start, Y: 1}, {DS: start, Y: 2}},
	} {
		if _, err := a.Fit(context.Background(), rows); !errors.Is(err, ErrFitting) {
			t.Errorf("Fit(%d rows) error = %v, want ErrFitting", len(rows), err)
		}
	}
}

func TestFitRejectsNonFinite(t *testing.T) {
	rows := linearRows(30, 1, 2)
	rows[10].Y = math.NaN()
	if _, err := NewAdditive(DefaultOptions(), nil).Fit(context.Background(), rows); !errors.Is(err, ErrFitting) {
		t.Errorf("error = %v, want ErrFitting", err)
	}
}

func TestFitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewAdditive(DefaultOptions(), nil).Fit(ctx, linearRows(30, 1, 2)); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestLinearTrendRecovered(t *testing.T) {
	const days = 3 * 365
	rows := linearRows(days, 100, 200)
	res, err := Forecast(context.Background(), NewAdditive(DefaultOptions(), nil), rows, 365)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}

	if got, want := len(res.Points), days+365; got != want {
		t.Fatalf("len(Points) = %d, want %d", got, want)
	}
	last, _ := res.Last()
	if want := rows[days-1].DS.AddDate(0, 0, 365); !last.Date.Equal(want) {
		t.Errorf("last date = %s, want %s", last.Date.Format(model.DateLayout), want.Format(model.DateLayout))
	}

	slope := 100.0 / float64(days-1)
	wantEnd := 200 + slope*365
	if math.Abs(last.Yhat-wantEnd)/wantEnd > 0.01 {
		t.Errorf("extrapolated yhat = %.2f, want about %.2f", last.Yhat, wantEnd)
	}
	for i, r := range rows {
		p := res.Points[i]
		if !p.Historical || !p.Date.Equal(r.DS) {
			t.Fatalf("point %d = %+v, want historical on %s", i, p, r.DS)
		}
		if math.Abs(p.Yhat-r.Y) > 0.5 {
			t.Errorf("in-sample yhat[%d] = %.3f, want %.3f", i, p.Yhat, r.Y)
			break
		}
	}
	if !res.Yearly || !res.Weekly {
		t.Errorf("seasonalities weekly=%v yearly=%v, want both for 3y history", res.Weekly, res.Yearly)
	}
	if res.IntervalWidth != 0.8 || res.HorizonDays != 365 {
		t.Errorf("result meta = %v/%d", res.IntervalWidth, res.HorizonDays)
	}
}

func TestLongGrowthSeriesFitsInSample(t *testing.T) {
	// Ten years of weekday closes compounding 0.05% a day, about 6x overall.
	var rows []model.TrainingRow
	for i := 0; i <= 3650; i++ {
		d := start.AddDate(0, 0, i)
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		rows = append(rows, model.TrainingRow{DS: d, Y: 20 * math.Exp(0.0005*float64(i))})
	}
	res, err := Forecast(context.Background(), NewAdditive(DefaultOptions(), nil), rows, 365)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}

	var worst float64
	worstAt := 0
	for i, r := range rows {
		if e := math.Abs(res.Points[i].Yhat-r.Y) / r.Y; e > worst {
			worst, worstAt = e, i
		}
	}
	if worst > 0.05 {
		t.Errorf("max relative in-sample error = %.3f on %s, want <= 0.05",
			worst, rows[worstAt].DS.Format(model.DateLayout))
	}
}

func TestNoiseVariance(t *testing.T) {
	if got := noiseVariance(linearRows(50, 1, 2), 2); got != minNoiseVar {
		t.Errorf("linear series noise = %g, want floor %g", got, minNoiseVar)
	}
	var rows []model.TrainingRow
	for i := 0; i < 1000; i++ {
		y := 1.0
		if i%2 == 1 {
			y = -1
		}
		rows = append(rows, model.TrainingRow{DS: start.AddDate(0, 0, i), Y: 10 + 0.1*y})
	}
	// Alternating +-0.1 gives second differences of +-0.4: 0.16/6 in units of the scale.
	if got, want := noiseVariance(rows, 1), 0.16/6; math.Abs(got-want) > 1e-9 {
		t.Errorf("noise = %g, want %g", got, want)
	}
}

func TestIntervalsAndComponents(t *testing.T) {
	rows := noisyRows(2*365 + 10)
	res, err := Forecast(context.Background(), NewAdditive(DefaultOptions(), nil), rows, 180)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}

	var firstFuture, lastFuture model.ForecastPoint
	seenFuture := false
	for i, p := range res.Points {
		if p.Lower > p.Yhat || p.Yhat > p.Upper {
			t.Fatalf("point %d: band [%v, %v] excludes yhat %v", i, p.Lower, p.Upper, p.Yhat)
		}
		if sum := p.Trend + p.Weekly + p.Yearly; math.Abs(sum-p.Yhat) > 1e-9*math.Max(1, math.Abs(p.Yhat)) {
			t.Fatalf("point %d: components sum %v != yhat %v", i, sum, p.Yhat)
		}
		if i > 0 && !p.Date.After(res.Points[i-1].Date) {
			t.Fatalf("point %d not strictly after previous", i)
		}
		if !p.Historical {
			if !seenFuture {
				firstFuture, seenFuture = p, true
			}
			lastFuture = p
		}
	}
	if !seenFuture {
		t.Fatal("no future points")
	}
	if w0, w1 := firstFuture.Upper-firstFuture.Lower, lastFuture.Upper-lastFuture.Lower; w1 < w0 {
		t.Errorf("band narrowed over the horizon: %v -> %v", w0, w1)
	}
	if !res.Weekly || !res.Yearly {
		t.Errorf("weekly=%v yearly=%v, want both", res.Weekly, res.Yearly)
	}
}

func TestShortHistorySeasonalities(t *testing.T) {
	tests := []struct {
		days           int
		weekly, yearly bool
	}{
		{10, false, false},
		{20, true, false},
		{400, true, false},
		{731, true, true},
	}
	for _, tt := range tests {
		res, err := Forecast(context.Background(), NewAdditive(DefaultOptions(), nil), linearRows(tt.days, 10, 20), 7)
		if err != nil {
			t.Fatalf("days=%d: %v", tt.days, err)
		}
		if res.Weekly != tt.weekly || res.Yearly != tt.yearly {
			t.Errorf("days=%d: weekly=%v yearly=%v, want %v/%v", tt.days, res.Weekly, res.Yearly, tt.weekly, tt.yearly)
		}
		for _, p := range res.Points {
			if !tt.weekly && p.Weekly != 0 {
				t.Fatalf("days=%d: weekly component %v without weekly seasonality", tt.days, p.Weekly)
			}
		}
	}
}

func TestTwoPointsFit(t *testing.T) {
	rows := []model.TrainingRow{{DS: start, Y: 10}, {DS: start.AddDate(0, 0, 1), Y: 12}}
	res, err := Forecast(context.Background(), NewAdditive(DefaultOptions(), nil), rows, 2)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	last, _ := res.Last()
	if math.Abs(last.Yhat-16) > 1e-6 {
		t.Errorf("yhat = %v, want 16", last.Yhat)
	}
}

func TestZeroSeries(t *testing.T) {
	res, err := Forecast(context.Background(), NewAdditive(DefaultOptions(), nil), linearRows(30, 0, 0), 5)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	for _, p := range res.Points {
		if math.Abs(p.Yhat) > 1e-9 {
			t.Fatalf("yhat = %v, want 0", p.Yhat)
		}
	}
}

func TestTrainingTable(t *testing.T) {
	bars := []model.OHLCV{
		{Date: start.AddDate(0, 0, 2), Close: 3},
		{Date: start, Close: 1},
		{Date: start.Add(5 * time.Hour), Close: 2},
	}
	rows := TrainingTable(bars)
	if len(rows) != 2 {
		t.Fatalf("len = %d, want 2", len(rows))
	}
	if !rows[0].DS.Equal(start) || rows[0].Y != 2 || rows[1].Y != 3 {
		t.Errorf("rows = %+v", rows)
	}
}

func TestPredictNegativeHorizon(t *testing.T) {
	m, err := NewAdditive(DefaultOptions(), nil).Fit(context.Background(), linearRows(30, 1, 2))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Predict(-1); err == nil {
		t.Error("Predict(-1) succeeded")
	}
}
