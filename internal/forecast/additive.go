package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"StockForecast/internal/model"
)

// Options configure the Additive fitter.
type Options struct {
	Changepoints          int     // potential trend changepoints
	ChangepointRange      float64 // fraction of history holding changepoints
	ChangepointPriorScale float64
	SeasonalityPriorScale float64
	YearlyOrder           int
	WeeklyOrder           int
	IntervalWidth         float64
}

// DefaultOptions returns the standard settings.
func DefaultOptions() Options {
	return Options{
		Changepoints:          25,
		ChangepointRange:      0.8,
		ChangepointPriorScale: 0.05,
		SeasonalityPriorScale: 10,
		YearlyOrder:           10,
		WeeklyOrder:           3,
		IntervalWidth:         0.8,
	}
}

const (
	yearlyMinDays = 730
	weeklyMinDays = 14
	secondsPerDay = 86400.0

	// minNoiseVar bounds the scaled noise estimate for smooth series.
	minNoiseVar = 1e-6
)

// Additive fits y(t) = trend(t) + weekly(t) + yearly(t) where the trend is
// piecewise linear with changepoints spread over the early history and the
// seasonal terms are Fourier series. Changepoint deltas and Fourier
// coefficients get ridge penalties derived from the prior scales.
type Additive struct {
	opts Options
	log  *slog.Logger
}

var _ Fitter = (*Additive)(nil)

// NewAdditive creates a fitter. Zero option fields take their defaults.
func NewAdditive(opts Options, log *slog.Logger) *Additive {
	def := DefaultOptions()
	if opts.Changepoints < 0 {
		opts.Changepoints = 0
	} else if opts.Changepoints == 0 {
		opts.Changepoints = def.Changepoints
	}
	if opts.ChangepointRange <= 0 || opts.ChangepointRange > 1 {
		opts.ChangepointRange = def.ChangepointRange
	}
	if opts.ChangepointPriorScale <= 0 {
		opts.ChangepointPriorScale = def.ChangepointPriorScale
	}
	if opts.SeasonalityPriorScale <= 0 {
		opts.SeasonalityPriorScale = def.SeasonalityPriorScale
	}
	if opts.YearlyOrder <= 0 {
		opts.YearlyOrder = def.YearlyOrder
	}
	if opts.WeeklyOrder <= 0 {
		opts.WeeklyOrder = def.WeeklyOrder
	}
	if opts.IntervalWidth <= 0 || opts.IntervalWidth >= 1 {
		opts.IntervalWidth = def.IntervalWidth
	}
	if log == nil {
		log = slog.Default()
	}
	return &Additive{opts: opts, log: log.With("component", "forecast")}
}

// Options returns the effective options.
func (a *Additive) Options() Options { return a.opts }

type seasonality struct {
	name   string
	period float64 // days
	order  int
	col    int // first coefficient column
}

type additiveModel struct {
	opts      Options
	t0        time.Time
	spanDays  float64
	yScale    float64
	cps       []float64 // scaled changepoint times
	beta      []float64 // offset, slope, deltas, fourier coefficients
	seasons   []seasonality
	sigma     float64 // scaled residual std
	z         float64
	cpRate    float64 // changepoints per unit of scaled time
	meanDelta float64
	history   []time.Time
}

func (a *Additive) Fit(ctx context.Context, rows []model.TrainingRow) (Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows = TrainingTable(rowsToBars(rows))
	n := len(rows)
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 distinct dates, got %d", ErrFitting, n)
	}
	for _, r := range rows {
		if math.IsNaN(r.Y) || math.IsInf(r.Y, 0) {
			return nil, fmt.Errorf("%w: non-finite value on %s", ErrFitting, r.DS.Format(model.DateLayout))
		}
	}

	m := &additiveModel{
		opts:     a.opts,
		t0:       rows[0].DS,
		spanDays: rows[n-1].DS.Sub(rows[0].DS).Hours() / 24,
		history:  make([]time.Time, n),
	}
	m.yScale = maxAbs(rows)

	ts := make([]float64, n)
	for i, r := range rows {
		ts[i] = m.scaleTime(r.DS)
		m.history[i] = r.DS
	}

	histSize := int(math.Floor(float64(n) * a.opts.ChangepointRange))
	k := a.opts.Changepoints
	if k > histSize-1 {
		k = histSize - 1
	}
	if k < 0 {
		k = 0
	}
	for j := 1; j <= k; j++ {
		idx := int(math.Round(float64(j) * float64(histSize-1) / float64(k)))
		m.cps = append(m.cps, ts[idx])
	}

	col := 2 + k
	if m.spanDays >= yearlyMinDays {
		m.seasons = append(m.seasons, seasonality{name: "yearly", period: 365.25, order: a.opts.YearlyOrder, col: col})
		col += 2 * a.opts.YearlyOrder
	}
	if m.spanDays >= weeklyMinDays {
		m.seasons = append(m.seasons, seasonality{name: "weekly", period: 7, order: a.opts.WeeklyOrder, col: col})
		col += 2 * a.opts.WeeklyOrder
	}
	p := col
	penalties := p - 2

	// Penalty rows append sqrt(lambda) on the diagonal of each regularized
	// column. lambda = noise/scale² is the Gaussian prior weight relative to
	// the unweighted residuals.
	noise := noiseVariance(rows, m.yScale)
	lambdaCP := noise / (a.opts.ChangepointPriorScale * a.opts.ChangepointPriorScale)
	lambdaS := noise / (a.opts.SeasonalityPriorScale * a.opts.SeasonalityPriorScale)

	design := mat.NewDense(n+penalties, p, nil)
	target := mat.NewVecDense(n+penalties, nil)
	for i, r := range rows {
		m.features(design.RawRowView(i), ts[i], r.DS)
		target.SetVec(i, r.Y/m.yScale)
	}
	for j := 0; j < penalties; j++ {
		lambda := lambdaS
		if j < k {
			lambda = lambdaCP
		}
		design.Set(n+j, 2+j, math.Sqrt(lambda))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var beta mat.VecDense
	if err := beta.SolveVec(design, target); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return nil, fmt.Errorf("%w: %v", ErrFitting, err)
		}
		a.log.Warn("ill-conditioned fit", "condition", float64(cond))
	}
	m.beta = make([]float64, p)
	for j := range m.beta {
		v := beta.AtVec(j)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: solver produced non-finite coefficients", ErrFitting)
		}
		m.beta[j] = v
	}

	var sse float64
	row := make([]float64, p)
	for i := range rows {
		m.features(row, ts[i], rows[i].DS)
		r := target.AtVec(i) - dot(row, m.beta)
		sse += r * r
	}
	m.sigma = math.Sqrt(sse / float64(n))

	if k > 0 {
		var sum float64
		for j := 0; j < k; j++ {
			sum += math.Abs(m.beta[2+j])
		}
		m.meanDelta = sum / float64(k)
		m.cpRate = float64(k) / a.opts.ChangepointRange
	}
	m.z = distuv.UnitNormal.Quantile(0.5 + a.opts.IntervalWidth/2)

	a.log.Debug("model fit",
		"rows", n,
		"changepoints", k,
		"seasonalities", len(m.seasons),
		"sigma", m.sigma*m.yScale,
		"noise_var", noise,
	)
	return m, nil
}

func (m *additiveModel) scaleTime(d time.Time) float64 {
	if m.spanDays == 0 {
		return 0
	}
	return d.Sub(m.t0).Hours() / 24 / m.spanDays
}

// features fills row with the regressors at scaled time t on date d.
func (m *additiveModel) features(row []float64, t float64, d time.Time) {
	for i := range row {
		row[i] = 0
	}
	row[0] = 1
	row[1] = t
	for j, s := range m.cps {
		if t > s {
			row[2+j] = t - s
		}
	}
	days := float64(d.Unix()) / secondsPerDay
	for _, s := range m.seasons {
		for o := 1; o <= s.order; o++ {
			x := 2 * math.Pi * float64(o) * days / s.period
			row[s.col+2*(o-1)] = math.Sin(x)
			row[s.col+2*(o-1)+1] = math.Cos(x)
		}
	}
}

func (m *additiveModel) Predict(horizonDays int) (*model.ForecastResult, error) {
	if horizonDays < 0 {
		return nil, fmt.Errorf("horizon must not be negative, got %d", horizonDays)
	}
	last := m.history[len(m.history)-1]
	future := FutureDates(last, horizonDays)

	res := &model.ForecastResult{
		Points:        make([]model.ForecastPoint, 0, len(m.history)+len(future)),
		HorizonDays:   horizonDays,
		IntervalWidth: m.opts.IntervalWidth,
	}
	for _, s := range m.seasons {
		switch s.name {
		case "weekly":
			res.Weekly = true
		case "yearly":
			res.Yearly = true
		}
	}

	row := make([]float64, len(m.beta))
	emit := func(d time.Time, historical bool) {
		t := m.scaleTime(d)
		m.features(row, t, d)

		trend := m.beta[0] + m.beta[1]*t
		for j := range m.cps {
			trend += m.beta[2+j] * row[2+j]
		}
		var weekly, yearly float64
		for _, s := range m.seasons {
			var v float64
			for c := s.col; c < s.col+2*s.order; c++ {
				v += m.beta[c] * row[c]
			}
			if s.name == "weekly" {
				weekly = v
			} else {
				yearly = v
			}
		}

		half := m.z * m.sigma
		if !historical && t > 1 {
			dt := t - 1
			drift := m.meanDelta * math.Sqrt(m.cpRate*dt) * dt
			half = m.z * math.Sqrt(m.sigma*m.sigma+drift*drift)
		}
		yhat := trend + weekly + yearly
		res.Points = append(res.Points, model.ForecastPoint{
			Date:       d,
			Yhat:       yhat * m.yScale,
			Lower:      (yhat - half) * m.yScale,
			Upper:      (yhat + half) * m.yScale,
			Trend:      trend * m.yScale,
			Weekly:     weekly * m.yScale,
			Yearly:     yearly * m.yScale,
			Historical: historical,
		})
	}
	for _, d := range m.history {
		emit(d, true)
	}
	for _, d := range future {
		emit(d, false)
	}
	return res, nil
}

func rowsToBars(rows []model.TrainingRow) []model.OHLCV {
	bars := make([]model.OHLCV, len(rows))
	for i, r := range rows {
		bars[i] = model.OHLCV{Date: r.DS, Close: r.Y}
	}
	return bars
}

// noiseVariance estimates the scaled observation noise from second
// differences, which cancel a locally linear trend.
func noiseVariance(rows []model.TrainingRow, scale float64) float64 {
	if len(rows) < 3 {
		return minNoiseVar
	}
	var ss float64
	for i := 1; i < len(rows)-1; i++ {
		d := (rows[i+1].Y - 2*rows[i].Y + rows[i-1].Y) / scale
		ss += d * d
	}
	// Var of y[i+1] - 2y[i] + y[i-1] is 6 sigma² for white noise.
	return math.Max(ss/float64(len(rows)-2)/6, minNoiseVar)
}

func maxAbs(rows []model.TrainingRow) float64 {
	var m float64
	for _, r := range rows {
		m = math.Max(m, math.Abs(r.Y))
	}
	if m == 0 {
		return 1
	}
	return m
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
