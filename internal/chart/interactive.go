// Package chart renders price history and forecasts as interactive echarts
// snippets and static PNG images.
package chart

import (
	"fmt"
	"html/template"
	"math"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/render"

	"StockForecast/internal/model"
)

// AssetsHost serves echarts.min.js for pages embedding snippets.
const AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

const (
	colorOpen     = "#1f77b4"
	colorClose    = "#ff7f0e"
	colorForecast = "#0072B2"
	colorBand     = "#9ecae1"
	colorActual   = "#222222"
)

// Snippet is a chart split into the fragments a page template embeds.
type Snippet struct {
	Element template.HTML
	Script  template.HTML
}

// Render turns any echarts chart into a Snippet.
func Render(c render.Renderer) Snippet {
	s := c.RenderSnippet()
	return Snippet{Element: template.HTML(s.Element), Script: template.HTML(s.Script)}
}

func baseOptions(id, title, subtitle string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			Width:   "100%",
			Height:  "420px",
			ChartID: id,
		}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "30px"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	}
}

func withRangeSlider() charts.GlobalOpts {
	return charts.WithDataZoomOpts(
		opts.DataZoom{Type: "slider", Start: 0, End: 100},
		opts.DataZoom{Type: "inside", Start: 0, End: 100},
	)
}

// RawData plots Open and Close over time with a range slider. Empty bars give
// an empty chart.
func RawData(symbol string, bars []model.OHLCV) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(append(baseOptions("raw_chart", "Time Series data with Rangeslider", symbol+" Raw data"),
		withRangeSlider())...)

	dates := make([]string, len(bars))
	open := make([]opts.LineData, len(bars))
	closes := make([]opts.LineData, len(bars))
	for i, b := range bars {
		dates[i] = b.Date.Format(model.DateLayout)
		open[i] = opts.LineData{Value: round(b.Open)}
		closes[i] = opts.LineData{Value: round(b.Close)}
	}
	line.SetXAxis(dates).
		AddSeries("stock_open", open, lineStyle(colorOpen)).
		AddSeries("stock_close", closes, lineStyle(colorClose))
	return line
}

// Forecast plots actual closes, the predicted value and the uncertainty band.
func Forecast(symbol string, history []model.OHLCV, res *model.ForecastResult, years int) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(append(baseOptions("forecast_chart",
		fmt.Sprintf("Forecast plot for %d year%s", years, plural(years)),
		fmt.Sprintf("%s Forecast over the next %d year%s", symbol, years, plural(years))),
		withRangeSlider())...)
	if res == nil {
		return line
	}

	actual := make(map[time.Time]float64, len(history))
	for _, b := range history {
		actual[b.Date] = b.Close
	}

	n := len(res.Points)
	dates := make([]string, n)
	obs := make([]opts.LineData, n)
	yhat := make([]opts.LineData, n)
	lower := make([]opts.LineData, n)
	band := make([]opts.LineData, n)
	for i, p := range res.Points {
		dates[i] = p.Date.Format(model.DateLayout)
		if v, ok := actual[p.Date]; ok {
			obs[i] = opts.LineData{Value: round(v)}
		} else {
			obs[i] = opts.LineData{Value: "-"}
		}
		yhat[i] = opts.LineData{Value: round(p.Yhat)}
		lower[i] = opts.LineData{Value: round(p.Lower)}
		band[i] = opts.LineData{Value: round(p.Upper - p.Lower)}
	}

	// The band is drawn as lower plus a stacked, shaded width series.
	line.SetXAxis(dates).
		AddSeries("yhat_lower", lower,
			charts.WithLineChartOpts(opts.LineChart{Stack: "band", ShowSymbol: opts.Bool(false)}),
			charts.WithLineStyleOpts(opts.LineStyle{Opacity: opts.Float(0)})).
		AddSeries("interval", band,
			charts.WithLineChartOpts(opts.LineChart{Stack: "band", ShowSymbol: opts.Bool(false)}),
			charts.WithLineStyleOpts(opts.LineStyle{Opacity: opts.Float(0)}),
			charts.WithAreaStyleOpts(opts.AreaStyle{Color: colorBand, Opacity: opts.Float(0.4)})).
		AddSeries("yhat", yhat, lineStyle(colorForecast)).
		AddSeries("actual", obs,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true), Symbol: "circle", SymbolSize: 2}),
			charts.WithLineStyleOpts(opts.LineStyle{Opacity: opts.Float(0)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: colorActual}))
	return line
}

// Components returns one panel per fitted component: trend, then weekly and
// yearly when the model used them.
func Components(symbol string, res *model.ForecastResult, years int) []*charts.Line {
	if res == nil {
		return nil
	}
	subtitle := fmt.Sprintf("%s Forecast Trends in %d year%s", symbol, years, plural(years))

	trend := charts.NewLine()
	trend.SetGlobalOptions(baseOptions("components_trend", "trend", subtitle)...)
	dates := make([]string, len(res.Points))
	values := make([]opts.LineData, len(res.Points))
	for i, p := range res.Points {
		dates[i] = p.Date.Format(model.DateLayout)
		values[i] = opts.LineData{Value: round(p.Trend)}
	}
	trend.SetXAxis(dates).AddSeries("trend", values, lineStyle(colorForecast))
	out := []*charts.Line{trend}

	if res.Weekly {
		labels, vals := WeeklyProfile(res)
		weekly := charts.NewLine()
		weekly.SetGlobalOptions(baseOptions("components_weekly", "weekly", "Day of week")...)
		weekly.SetXAxis(labels).AddSeries("weekly", lineData(vals), lineStyle(colorForecast))
		out = append(out, weekly)
	}
	if res.Yearly {
		labels, vals := YearlyProfile(res)
		yearly := charts.NewLine()
		yearly.SetGlobalOptions(baseOptions("components_yearly", "yearly", "Day of year")...)
		yearly.SetXAxis(labels).AddSeries("yearly", lineData(vals), lineStyle(colorForecast))
		out = append(out, yearly)
	}
	return out
}

// WeeklyProfile returns the weekly component for Sunday through Saturday.
// Days the result never covers are NaN.
func WeeklyProfile(res *model.ForecastResult) ([]string, []float64) {
	labels := make([]string, 7)
	vals := make([]float64, 7)
	for d := range vals {
		labels[d] = time.Weekday(d).String()
		vals[d] = math.NaN()
	}
	for _, p := range res.Points {
		vals[p.Date.Weekday()] = p.Weekly
	}
	return labels, vals
}

// YearlyProfile returns the yearly component for each day of a non-leap year
// labelled "Jan 02" and so on. Days the result never covers are NaN.
func YearlyProfile(res *model.ForecastResult) ([]string, []float64) {
	ref := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	index := make(map[string]int, 365)
	labels := make([]string, 365)
	vals := make([]float64, 365)
	for i := range labels {
		labels[i] = ref.AddDate(0, 0, i).Format("Jan 02")
		index[labels[i]] = i
		vals[i] = math.NaN()
	}
	for _, p := range res.Points {
		if i, ok := index[p.Date.Format("Jan 02")]; ok {
			vals[i] = p.Yearly
		}
	}
	return labels, vals
}

func lineData(vals []float64) []opts.LineData {
	out := make([]opts.LineData, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) {
			out[i] = opts.LineData{Value: "-"}
			continue
		}
		out[i] = opts.LineData{Value: round(v)}
	}
	return out
}

func lineStyle(color string) charts.SeriesOpts {
	return func(s *charts.SingleSeries) {
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)})(s)
		charts.WithLineStyleOpts(opts.LineStyle{Color: color, Width: 1.5})(s)
	}
}

func round(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
