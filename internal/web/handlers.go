package web

import (
	"bytes"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"StockForecast/internal/chart"
	"StockForecast/internal/export"
	"StockForecast/internal/indicator"
	"StockForecast/internal/model"
	"StockForecast/internal/pipeline"
	"StockForecast/internal/recorder"
	"StockForecast/internal/report"
	"StockForecast/internal/session"
)

type pageData struct {
	Tickers      []string
	Selected     string
	Years        int
	MaxYears     int
	Flash        *session.Flash
	Diagnostic   *pipeline.Diagnostic
	Summary      *indicator.Summary
	RawRows      []report.RawRow
	ForecastRows []report.ForecastRow
	RawChart     *chart.Snippet
	Forecast     *chart.Snippet
	Components   []chart.Snippet
	Query        template.URL
}

// parseRequest reads ticker and years from the query. A missing years means
// the default horizon; an unparsable one is passed on as zero so the pipeline
// rejects it.
func parseRequest(c *gin.Context) pipeline.Request {
	req := pipeline.Request{Ticker: c.Query("ticker"), Years: pipeline.DefaultYears}
	if v, ok := c.GetQuery("years"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			n = 0
		}
		req.Years = n
	}
	return req
}

func (s *Server) index(c *gin.Context) {
	sess := sessionOf(c)
	req := parseRequest(c)
	res := s.runner.Run(c.Request.Context(), sess, req)

	sess.Lock()
	flash := sess.TakeFlash()
	sess.Unlock()

	data := pageData{
		Tickers:    res.Tickers,
		Selected:   res.Ticker,
		Years:      req.Years,
		MaxYears:   s.runner.MaxYears(),
		Flash:      flash,
		Diagnostic: res.Diagnostic,
		Query:      template.URL(url.Values{"ticker": {res.Ticker}, "years": {strconv.Itoa(req.Years)}}.Encode()),
	}
	if data.Years < pipeline.MinYears || data.Years > data.MaxYears {
		data.Years = pipeline.DefaultYears
	}
	if res.Series != nil {
		data.Summary = indicator.Summarize(res.Series.Bars, res.Forecast)
		data.RawRows = report.RawTail(res.Filtered, report.TailRows)
		raw := chart.Render(chart.RawData(res.Ticker, res.Filtered))
		data.RawChart = &raw
	}
	if res.Forecast != nil {
		data.ForecastRows = report.ForecastTail(res.Forecast, report.TailRows)
		fc := chart.Render(chart.Forecast(res.Ticker, res.Filtered, res.Forecast, req.Years))
		data.Forecast = &fc
		for _, l := range chart.Components(res.Ticker, res.Forecast, req.Years) {
			data.Components = append(data.Components, chart.Render(l))
		}
	}
	c.HTML(http.StatusOK, "index.html", data)
}

func (s *Server) addTicker(c *gin.Context) {
	ticker, flash := s.runner.AddTicker(c.Request.Context(), sessionOf(c), c.PostForm("ticker"))
	q := url.Values{}
	if flash.Kind == session.FlashSuccess {
		q.Set("ticker", ticker)
	}
	if y := c.PostForm("years"); y != "" {
		q.Set("years", y)
	}
	target := "/"
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	c.Redirect(http.StatusSeeOther, target)
}

// statusFor maps a failed stage to an HTTP status.
func statusFor(d *pipeline.Diagnostic) int {
	switch pipeline.Classify(d) {
	case "bad_horizon":
		return http.StatusBadRequest
	case "invalid_ticker":
		return http.StatusNotFound
	case "fetch":
		return http.StatusBadGateway
	case "fitting":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func diagnosticJSON(d *pipeline.Diagnostic) gin.H {
	return gin.H{"stage": d.Stage, "kind": pipeline.Classify(d), "message": d.Message}
}

// run executes the pipeline and writes the diagnostic as JSON when the stages
// the caller needs did not complete. It reports whether the caller should continue.
func (s *Server) run(c *gin.Context, needForecast bool) (*pipeline.Result, bool) {
	res := s.runner.Run(c.Request.Context(), sessionOf(c), parseRequest(c))
	if d := res.Diagnostic; d != nil && (needForecast || res.Series == nil) {
		c.JSON(statusFor(d), gin.H{"error": diagnosticJSON(d)})
		return res, false
	}
	return res, true
}

// send buffers the body so a render failure still yields a clean error status.
func (s *Server) send(c *gin.Context, contentType, filename string, write func(io.Writer) error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		s.log.Error("render", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"stage": pipeline.StageInternal, "kind": "internal", "message": err.Error()}})
		return
	}
	if filename != "" {
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	}
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (s *Server) rawPNG(c *gin.Context) {
	res, ok := s.run(c, false)
	if !ok {
		return
	}
	s.send(c, "image/png", "", func(w io.Writer) error {
		return chart.WriteRawPNG(w, res.Ticker, res.Filtered)
	})
}

func (s *Server) forecastPNG(c *gin.Context) {
	res, ok := s.run(c, true)
	if !ok {
		return
	}
	s.send(c, "image/png", "", func(w io.Writer) error {
		return chart.WriteForecastPNG(w, res.Ticker, res.Filtered, res.Forecast)
	})
}

func (s *Server) componentsPNG(c *gin.Context) {
	res, ok := s.run(c, true)
	if !ok {
		return
	}
	s.send(c, "image/png", "", func(w io.Writer) error {
		return chart.WriteComponentsPNG(w, res.Forecast)
	})
}

func (s *Server) exportRaw(c *gin.Context) {
	res, ok := s.run(c, false)
	if !ok {
		return
	}
	s.send(c, "application/vnd.apache.parquet", res.Ticker+"_raw.parquet", func(w io.Writer) error {
		return export.WriteBars(w, res.Ticker, res.Filtered)
	})
}

func (s *Server) exportForecast(c *gin.Context) {
	res, ok := s.run(c, true)
	if !ok {
		return
	}
	s.send(c, "application/vnd.apache.parquet", res.Ticker+"_forecast.parquet", func(w io.Writer) error {
		return export.WriteForecast(w, res.Ticker, res.Forecast)
	})
}

func (s *Server) apiTickers(c *gin.Context) {
	sess := sessionOf(c)
	sess.Lock()
	defer sess.Unlock()
	c.JSON(http.StatusOK, gin.H{
		"tickers": sess.Registry.All(),
		"added":   sess.Registry.Added(),
		"default": sess.Registry.Default(),
	})
}

type addTickerRequest struct {
	Ticker string `json:"ticker" form:"ticker"`
}

func (s *Server) apiAddTicker(c *gin.Context) {
	var req addTickerRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"kind": "bad_request", "message": err.Error()}})
		return
	}
	sess := sessionOf(c)
	ticker, flash := s.runner.AddTicker(c.Request.Context(), sess, req.Ticker)

	sess.Lock()
	sess.TakeFlash()
	tickers := sess.Registry.All()
	sess.Unlock()

	status := http.StatusOK
	switch flash.Kind {
	case session.FlashSuccess:
		status = http.StatusCreated
	case session.FlashError:
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"ticker": ticker, "flash": flash, "tickers": tickers})
}

type forecastResponse struct {
	Ticker       string                `json:"ticker"`
	Years        int                   `json:"years"`
	Tickers      []string              `json:"tickers"`
	CacheHit     bool                  `json:"cache_hit"`
	Summary      *indicator.Summary    `json:"summary"`
	FetchMs      int64                 `json:"fetch_ms"`
	FitMs        int64                 `json:"fit_ms"`
	RawTail      []report.RawRow       `json:"raw_tail"`
	ForecastTail []report.ForecastRow  `json:"forecast_tail"`
	Forecast     *model.ForecastResult `json:"forecast"`
}

func (s *Server) apiForecast(c *gin.Context) {
	res, ok := s.run(c, true)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, forecastResponse{
		Ticker:       res.Ticker,
		Years:        res.Years,
		Tickers:      res.Tickers,
		CacheHit:     res.CacheHit,
		Summary:      indicator.Summarize(res.Series.Bars, res.Forecast),
		FetchMs:      res.FetchDuration.Milliseconds(),
		FitMs:        res.FitDuration.Milliseconds(),
		RawTail:      report.RawTail(res.Filtered, report.TailRows),
		ForecastTail: report.ForecastTail(res.Forecast, report.TailRows),
		Forecast:     res.Forecast,
	})
}

func (s *Server) apiRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := s.recorder.RecentRuns(limit)
	if err != nil {
		s.log.Error("recent runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"kind": "internal", "message": err.Error()}})
		return
	}
	if runs == nil {
		runs = []recorder.RunRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
