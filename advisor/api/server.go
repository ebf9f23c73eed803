// Package api serves the decision engine over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/biwstack/biw-advisor/advisor/engine"
	"github.com/biwstack/biw-advisor/advisor/metrics"
)

// Server is the HTTP front end of an Engine.
type Server struct {
	engine   *engine.Engine
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	server   *http.Server
}

// NewServer returns a server for eng. Metrics may be nil; gatherer backs
// GET /metrics and may also be nil to disable it.
func NewServer(eng *engine.Engine, m *metrics.Metrics, gatherer prometheus.Gatherer) *Server {
	return &Server{engine: eng, metrics: m, gatherer: gatherer}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	if !logrus.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.observe())

	r.GET("/healthz", s.handleHealth)
	v1 := r.Group("/v1")
	v1.POST("/decide", s.handleDecide)
	v1.POST("/outcome", s.handleOutcome)
	v1.GET("/models/:class", s.handleModel)
	v1.GET("/tables/:table", s.handleTable)
	v1.GET("/summary", s.handleSummary)
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
	return r
}

// Start listens on addr in the background.
func (s *Server) Start(addr string) {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	logrus.Infof("[api] listening on %s", addr)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("[api] server error: %v", err)
		}
	}()
}

// Stop shuts the listener down, waiting for in-flight requests until ctx ends.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	logrus.Warnf("[api] shutting down")
	return s.server.Shutdown(ctx)
}

// observe logs each request and records it in the HTTP collectors.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		elapsed := time.Since(start)
		status := c.Writer.Status()
		logrus.Debugf("[api] %s %s %d %s", c.Request.Method, c.Request.URL.Path, status, elapsed)
		if s.metrics != nil {
			s.metrics.RequestTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(status)).Inc()
			s.metrics.RequestDuration.WithLabelValues(c.Request.Method, path).Observe(elapsed.Seconds())
		}
	}
}
