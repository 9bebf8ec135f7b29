package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/agenttask/logging"
	"github.com/hupe1980/agenttask/runner"
)

// Backend is the application surface the HTTP handlers drive.
// *agenttask.AgentTask implements it.
type Backend interface {
	Runner() *runner.Runner
	Remember(ctx context.Context, text string) (string, error)
	Forget(ctx context.Context, query string) (string, error)
	Recall(ctx context.Context, query string, count int, threshold float32) (string, error)
	Research(ctx context.Context, question string) (string, error)
	OnlineSearch(ctx context.Context, question string) (string, error)
}

// Options configures a Server.
type Options struct {
	// Addr is the listen address used by ListenAndServe.
	Addr string
	// DefaultTimeout applies to run requests without a timeout.
	DefaultTimeout time.Duration
	// MetricsPath serves Prometheus metrics when non-empty.
	MetricsPath string
	// Gatherer backs the metrics endpoint. Defaults to the global registry.
	Gatherer prometheus.Gatherer
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
	// Debug switches gin to debug mode.
	Debug  bool
	Logger logging.Logger
}

// Server exposes the backend over HTTP. Every endpoint except /tasks/*
// accepts GET with query parameters and POST with a JSON body.
type Server struct {
	backend Backend
	opts    Options
	logger  logging.Logger
	engine  *gin.Engine
}

// New creates a server and registers its routes.
func New(backend Backend, optFns ...func(o *Options)) *Server {
	opts := Options{
		Addr:            ":8080",
		DefaultTimeout:  runner.DefaultTimeout,
		MetricsPath:     "/metrics",
		ShutdownTimeout: 15 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		backend: backend,
		opts:    opts,
		logger:  logging.OrNoOp(opts.Logger),
		engine:  gin.New(),
	}
	s.engine.Use(gin.Recovery(), requestLogger(s.logger))
	s.routes()
	return s
}

func (s *Server) routes() {
	e := s.engine

	e.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	for _, route := range []struct {
		path    string
		handler gin.HandlerFunc
	}{
		{"/run_agent", s.runAgent},
		{"/run_agent_async", s.runAgentAsync},
		{"/remember", s.remember},
		{"/forget", s.forget},
		{"/recall", s.recall},
		{"/research", s.research},
		{"/perplexity_search", s.perplexitySearch},
	} {
		e.GET(route.path, route.handler)
		e.POST(route.path, route.handler)
	}

	tasks := e.Group("/tasks")
	{
		tasks.GET("", s.listTasks)
		tasks.GET("/:id", s.getTask)
		tasks.DELETE("/:id", s.cancelTask)
		tasks.POST("/:id/intervene", s.interveneTask)
		tasks.POST("/:id/pause", s.pauseTask)
		tasks.POST("/:id/resume", s.resumeTask)
	}

	if s.opts.MetricsPath != "" {
		e.GET(s.opts.MetricsPath, gin.WrapH(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))
	}
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe serves until ctx is done and then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
	defer cancel()

	s.logger.Info("HTTP server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

// requestLogger logs one line per request through the application logger.
func requestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		args := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if len(c.Errors) > 0 {
			args = append(args, "error", c.Errors.String())
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("HTTP request", args...)
			return
		}
		logger.Debug("HTTP request", args...)
	}
}
