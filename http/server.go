// Package http serves the flood-risk form and its JSON API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"floodrisk/db"
	"floodrisk/ml"
	"floodrisk/monitoring"
)

// Server is the web front-end around one loaded model.
type Server struct {
	server *http.Server
	config ServerConfig

	model    *ml.Artifact
	sessions *SessionStore
	store    *db.Store
	metrics  *monitoring.Metrics
	gatherer prometheus.Gatherer
	logger   *zap.Logger
	page     *pageRenderer
}

// ServerConfig holds the listener and request limits.
type ServerConfig struct {
	Port           int
	Timeout        time.Duration
	MaxBodyBytes   int64
	AllowedOrigins []string
}

// DefaultServerConfig serves on :8080 and accepts requests from any origin.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:           8080,
		Timeout:        30 * time.Second,
		MaxBodyBytes:   1 << 20,
		AllowedOrigins: []string{"*"},
	}
}

// Deps are the collaborators a Server needs. Store and Gatherer may be nil.
type Deps struct {
	Model    *ml.Artifact
	Sessions *SessionStore
	Store    *db.Store
	Metrics  *monitoring.Metrics
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// NewServer wires the routes and middleware. Zero limits in config fall back
// to DefaultServerConfig.
func NewServer(config ServerConfig, deps Deps) (*Server, error) {
	if deps.Model == nil {
		return nil, errors.New("model is required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultServerConfig().Timeout
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = DefaultServerConfig().MaxBodyBytes
	}
	if deps.Metrics == nil {
		deps.Metrics = monitoring.NewMetricsForTesting()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	page, err := newPageRenderer()
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:   config,
		model:    deps.Model,
		sessions: deps.Sessions,
		store:    deps.Store,
		metrics:  deps.Metrics,
		gatherer: deps.Gatherer,
		logger:   deps.Logger,
		page:     page,
	}
	s.metrics.ModelLoaded.Set(1)
	s.metrics.TrainedDataPoints.Set(float64(deps.Model.DataPoints))

	mux := http.NewServeMux()
	s.RegisterHandlers(mux)

	chain := Chain(
		RecoveryMiddleware(s.logger),
		LoggerMiddleware(s.logger),
		SecurityHeadersMiddleware,
		CORSMiddleware(config.AllowedOrigins),
		RequestSizeMiddleware(config.MaxBodyBytes),
		TimeoutMiddleware(config.Timeout),
		GzipMiddleware,
	)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      chain(mux),
		ReadTimeout:  config.Timeout,
		WriteTimeout: config.Timeout,
		IdleTimeout:  120 * time.Second,
	}
	return s, nil
}

// RegisterHandlers mounts every route on mux.
func (s *Server) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /predict", s.handleFormPredict)
	mux.HandleFunc("POST /api/predict", s.handlePredict)
	mux.HandleFunc("GET /api/model", s.handleModel)
	mux.HandleFunc("GET /api/locations", handleLocations)
	mux.HandleFunc("GET /api/survey", handleSurvey)
	mux.HandleFunc("GET /api/health", handleHealth)
	if s.store != nil {
		mux.HandleFunc("GET /api/predictions", s.handleHistory)
		mux.HandleFunc("GET /api/training", s.handleTrainingLog)
	}
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

// ServeHTTP runs a request through the full middleware chain.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.server.Handler.ServeHTTP(w, r)
}

// Start blocks serving requests until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	s.metrics.ModelLoaded.Set(0)
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
