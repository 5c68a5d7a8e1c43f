// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apihandler "github.com/newthinker/quantview/internal/api/handler/api"
	"github.com/newthinker/quantview/internal/api/handler/web"
	"github.com/newthinker/quantview/internal/app"
	"github.com/newthinker/quantview/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP server for QuantView
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	handler    http.Handler
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	TemplatesDir   string
	MetricsEnabled bool
	MetricsPath    string
}

// Dependencies holds the application services the routes need.
type Dependencies struct {
	App *app.App
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.App == nil {
		return nil, fmt.Errorf("server needs an app")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()

	s := &Server{
		logger: logger,
		mux:    mux,
	}

	// Set up routes
	if err := s.setupRoutes(cfg, deps); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	reg := deps.App.Metrics()
	s.handler = metrics.LoggingMiddleware(logger)(metrics.HTTPMiddleware(reg)(mux))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) error {
	a := deps.App

	// Web UI routes
	webHandler, err := web.NewHandler(cfg.TemplatesDir, web.Dependencies{
		Sessions:     a.Sessions(),
		Exporter:     a.Exporter(),
		ExportPrefix: a.Config().Export.Prefix,
		Recorder:     a.Metrics(),
		Logger:       s.logger.Named("web"),
	})
	if err != nil {
		return fmt.Errorf("creating web handler: %w", err)
	}

	s.mux.HandleFunc("GET /{$}", webHandler.Dashboard)
	s.mux.HandleFunc("POST /form", webHandler.Form)
	s.mux.HandleFunc("POST /backtest", webHandler.Backtest)
	s.mux.HandleFunc("POST /backtest/retry", webHandler.Retry)
	s.mux.HandleFunc("GET /results", webHandler.Results)
	s.mux.HandleFunc("POST /upload", webHandler.Upload)
	s.mux.HandleFunc("GET /export", webHandler.Export)

	// JSON API routes
	strategiesHandler := apihandler.NewStrategiesHandler(a.Client(), s.logger)
	backtestHandler := apihandler.NewBacktestHandler(a.Client(), s.logger)
	healthHandler := apihandler.NewHealthHandler(a.Client(), s.logger)

	s.mux.HandleFunc("GET /api/strategies", strategiesHandler.List)
	s.mux.HandleFunc("POST /api/backtest", backtestHandler.Run)
	s.mux.HandleFunc("GET /api/health", healthHandler.Get)

	if cfg.MetricsEnabled {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.mux.Handle("GET "+path, promhttp.HandlerFor(a.Metrics().Registry, promhttp.HandlerOpts{}))
	}

	return nil
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
