// Package web serves the forecast page and its JSON, image and export endpoints.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"StockForecast/internal/chart"
	"StockForecast/internal/pipeline"
	"StockForecast/internal/recorder"
	"StockForecast/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// CookieName holds the session id.
const CookieName = "sf_session"

const ctxSession = "session"

// Server wires the HTTP routes to sessions and the pipeline.
type Server struct {
	engine    *gin.Engine
	sessions  *session.Manager
	runner    *pipeline.Runner
	recorder  recorder.Recorder
	cookieTTL time.Duration
	log       *slog.Logger
}

// NewServer builds the gin engine. rec may be nil.
func NewServer(sessions *session.Manager, runner *pipeline.Runner, rec recorder.Recorder, cookieTTL time.Duration, log *slog.Logger) *Server {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		sessions:  sessions,
		runner:    runner,
		recorder:  rec,
		cookieTTL: cookieTTL,
		log:       log.With("component", "web"),
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.SetHTMLTemplate(template.Must(template.New("").Funcs(template.FuncMap{
		"assets": func() string { return chart.AssetsHost },
		"num":    formatNumber,
	}).ParseFS(templateFS, "templates/*.html")))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.sessions.Len()})
	})

	ui := r.Group("/", s.withSession)
	{
		ui.GET("/", s.index)
		ui.POST("/tickers", s.addTicker)
		ui.GET("/chart/raw.png", s.rawPNG)
		ui.GET("/chart/forecast.png", s.forecastPNG)
		ui.GET("/chart/components.png", s.componentsPNG)
		ui.GET("/export/raw.parquet", s.exportRaw)
		ui.GET("/export/forecast.parquet", s.exportForecast)
	}

	api := r.Group("/api", s.withSession)
	{
		api.GET("/tickers", s.apiTickers)
		api.POST("/tickers", s.apiAddTicker)
		api.GET("/forecast", s.apiForecast)
		api.GET("/runs", s.apiRuns)
	}

	s.engine = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// withSession attaches the caller's session, starting one when the cookie is
// missing or stale.
func (s *Server) withSession(c *gin.Context) {
	id, _ := c.Cookie(CookieName)
	sess, created := s.sessions.GetOrCreate(id)
	if created {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(CookieName, sess.ID, int(s.cookieTTL.Seconds()), "/", "", false, true)
	}
	c.Set(ctxSession, sess)
	c.Next()
}

// formatNumber formats a float or a possibly nil *float64.
func formatNumber(format string, v any) string {
	switch n := v.(type) {
	case float64:
		return fmt.Sprintf(format, n)
	case *float64:
		if n == nil {
			return ""
		}
		return fmt.Sprintf(format, *n)
	default:
		return fmt.Sprint(v)
	}
}

func sessionOf(c *gin.Context) *session.Session {
	return c.MustGet(ctxSession).(*session.Session)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		lvl := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			lvl = slog.LevelWarn
		}
		s.log.Log(c.Request.Context(), lvl, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).Round(time.Microsecond),
		)
	}
}
