package chart

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/fogleman/gg"

	"StockForecast/internal/model"
)

const (
	pngWidth       = 1000
	pngHeight      = 500
	panelHeight    = 260
	padding        = 56
	pngTitleOffset = 24
)

var (
	bgColor     = color.White
	axisColor   = color.RGBA{R: 120, G: 120, B: 120, A: 255}
	gridColor   = color.RGBA{R: 235, G: 235, B: 235, A: 255}
	textColor   = color.Black
	yhatColor   = color.RGBA{R: 0, G: 114, B: 178, A: 255}
	bandColor   = color.RGBA{R: 0, G: 114, B: 178, A: 60}
	actualColor = color.RGBA{R: 20, G: 20, B: 20, A: 255}
)

// panel maps data coordinates into a pixel rectangle.
type panel struct {
	dc              *gg.Context
	left, top, w, h float64
	n               int
	minY, maxY      float64
}

func newPanel(dc *gg.Context, top, height float64, n int, series ...[]float64) *panel {
	p := &panel{
		dc:   dc,
		left: padding,
		top:  top + pngTitleOffset,
		w:    float64(dc.Width()) - 2*padding,
		h:    height - pngTitleOffset - padding/2,
		n:    n,
		minY: math.Inf(1),
		maxY: math.Inf(-1),
	}
	for _, s := range series {
		for _, v := range s {
			if math.IsNaN(v) {
				continue
			}
			p.minY = math.Min(p.minY, v)
			p.maxY = math.Max(p.maxY, v)
		}
	}
	if math.IsInf(p.minY, 1) {
		p.minY, p.maxY = 0, 1
	}
	if p.maxY-p.minY < 1e-9 {
		p.minY -= 1
		p.maxY += 1
	}
	pad := (p.maxY - p.minY) * 0.05
	p.minY -= pad
	p.maxY += pad
	return p
}

func (p *panel) x(i int) float64 {
	if p.n <= 1 {
		return p.left
	}
	return p.left + p.w*float64(i)/float64(p.n-1)
}

func (p *panel) y(v float64) float64 {
	return p.top + p.h*(1-(v-p.minY)/(p.maxY-p.minY))
}

func (p *panel) frame(title, firstLabel, lastLabel string) {
	dc := p.dc
	dc.SetColor(gridColor)
	dc.SetLineWidth(1)
	for i := 1; i < 4; i++ {
		y := p.top + p.h*float64(i)/4
		dc.DrawLine(p.left, y, p.left+p.w, y)
		dc.Stroke()
	}
	dc.SetColor(axisColor)
	dc.DrawRectangle(p.left, p.top, p.w, p.h)
	dc.Stroke()

	dc.SetColor(textColor)
	dc.DrawStringAnchored(title, p.left, p.top-8, 0, 0)
	dc.DrawStringAnchored(formatTick(p.maxY), p.left-6, p.top, 1, 0.5)
	dc.DrawStringAnchored(formatTick(p.minY), p.left-6, p.top+p.h, 1, 0.5)
	dc.DrawStringAnchored(firstLabel, p.left, p.top+p.h+14, 0, 0.5)
	dc.DrawStringAnchored(lastLabel, p.left+p.w, p.top+p.h+14, 1, 0.5)
}

func (p *panel) line(vals []float64, c color.Color, width float64) {
	dc := p.dc
	dc.SetColor(c)
	dc.SetLineWidth(width)
	started := false
	for i, v := range vals {
		if math.IsNaN(v) {
			if started {
				dc.Stroke()
			}
			started = false
			continue
		}
		if !started {
			dc.MoveTo(p.x(i), p.y(v))
			started = true
			continue
		}
		dc.LineTo(p.x(i), p.y(v))
	}
	if started {
		dc.Stroke()
	}
}

func (p *panel) band(lower, upper []float64, c color.Color) {
	if len(lower) == 0 {
		return
	}
	dc := p.dc
	dc.SetColor(c)
	dc.MoveTo(p.x(0), p.y(upper[0]))
	for i := 1; i < len(upper); i++ {
		dc.LineTo(p.x(i), p.y(upper[i]))
	}
	for i := len(lower) - 1; i >= 0; i-- {
		dc.LineTo(p.x(i), p.y(lower[i]))
	}
	dc.ClosePath()
	dc.Fill()
}

func (p *panel) dots(vals []float64, c color.Color) {
	dc := p.dc
	dc.SetColor(c)
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		dc.DrawCircle(p.x(i), p.y(v), 1)
		dc.Fill()
	}
}

func formatTick(v float64) string {
	switch a := math.Abs(v); {
	case a >= 1000:
		return fmt.Sprintf("%.0f", v)
	case a >= 10:
		return fmt.Sprintf("%.1f", v)
	default:
		return fmt.Sprintf("%.3f", v)
	}
}

func newCanvas(height int) *gg.Context {
	dc := gg.NewContext(pngWidth, height)
	dc.SetColor(bgColor)
	dc.Clear()
	return dc
}

func dateLabels(res *model.ForecastResult) (string, string) {
	if res == nil || len(res.Points) == 0 {
		return "", ""
	}
	return res.Points[0].Date.Format(model.DateLayout), res.Points[len(res.Points)-1].Date.Format(model.DateLayout)
}

// WriteRawPNG draws Open and Close prices as a PNG image.
func WriteRawPNG(w io.Writer, symbol string, bars []model.OHLCV) error {
	dc := newCanvas(pngHeight)
	open := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	for i, b := range bars {
		open[i], closes[i] = b.Open, b.Close
	}
	p := newPanel(dc, 0, pngHeight, len(bars), open, closes)
	first, last := "", ""
	if len(bars) > 0 {
		first, last = bars[0].Date.Format(model.DateLayout), bars[len(bars)-1].Date.Format(model.DateLayout)
	}
	p.frame(symbol+" Raw data", first, last)
	p.line(open, color.RGBA{R: 31, G: 119, B: 180, A: 255}, 1)
	p.line(closes, color.RGBA{R: 255, G: 127, B: 14, A: 255}, 1)
	return dc.EncodePNG(w)
}

// WriteForecastPNG draws the forecast with its uncertainty band and the
// observed closes as dots.
func WriteForecastPNG(w io.Writer, symbol string, history []model.OHLCV, res *model.ForecastResult) error {
	if res == nil {
		return fmt.Errorf("no forecast to draw")
	}
	actual := make(map[int64]float64, len(history))
	for _, b := range history {
		actual[b.Date.Unix()] = b.Close
	}

	n := len(res.Points)
	yhat := make([]float64, n)
	lower := make([]float64, n)
	upper := make([]float64, n)
	obs := make([]float64, n)
	for i, pt := range res.Points {
		yhat[i], lower[i], upper[i] = pt.Yhat, pt.Lower, pt.Upper
		obs[i] = math.NaN()
		if v, ok := actual[pt.Date.Unix()]; ok {
			obs[i] = v
		}
	}

	dc := newCanvas(pngHeight)
	p := newPanel(dc, 0, pngHeight, n, lower, upper, obs)
	first, last := dateLabels(res)
	p.frame(fmt.Sprintf("%s forecast (%.0f%% interval)", symbol, res.IntervalWidth*100), first, last)
	p.band(lower, upper, bandColor)
	p.line(yhat, yhatColor, 1.5)
	p.dots(obs, actualColor)
	return dc.EncodePNG(w)
}

// WriteComponentsPNG draws one stacked panel per fitted component.
func WriteComponentsPNG(w io.Writer, res *model.ForecastResult) error {
	if res == nil {
		return fmt.Errorf("no forecast to draw")
	}
	type comp struct {
		title       string
		vals        []float64
		first, last string
	}
	trend := make([]float64, len(res.Points))
	for i, pt := range res.Points {
		trend[i] = pt.Trend
	}
	first, last := dateLabels(res)
	comps := []comp{{"trend", trend, first, last}}
	if res.Weekly {
		labels, vals := WeeklyProfile(res)
		comps = append(comps, comp{"weekly", vals, labels[0], labels[len(labels)-1]})
	}
	if res.Yearly {
		labels, vals := YearlyProfile(res)
		comps = append(comps, comp{"yearly", vals, labels[0], labels[len(labels)-1]})
	}

	dc := newCanvas(panelHeight * len(comps))
	for i, c := range comps {
		p := newPanel(dc, float64(i*panelHeight), panelHeight, len(c.vals), c.vals)
		p.frame(c.title, c.first, c.last)
		p.line(c.vals, yhatColor, 1.5)
	}
	return dc.EncodePNG(w)
}
