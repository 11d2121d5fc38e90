// Package server assembles the HTTP server for the sync API.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/config"
	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/handler"
	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/health"
	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/metrics"
	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/middleware"
)

// Server is the HTTP server hosting the sync API.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	handlers   *handler.Handlers
	health     *health.Check
	metrics    *metrics.Metrics
	cfg        *config.Config
	logger     *zap.Logger
}

// New creates the server. Call SetupRoutes before Start.
func New(
	cfg *config.Config,
	handlers *handler.Handlers,
	healthCheck *health.Check,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Server {
	router := mux.NewRouter()

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
		IdleTimeout:  cfg.Server.IdleTimeout.Std(),
	}

	return &Server{
		router:     router,
		httpServer: httpServer,
		handlers:   handlers,
		health:     healthCheck,
		metrics:    m,
		cfg:        cfg,
		logger:     logger,
	}
}

// SetupRoutes configures routes and the middleware chain.
func (s *Server) SetupRoutes() {
	chain := []func(http.Handler) http.Handler{
		middleware.Recovery(s.logger),
		middleware.RequestID,
		middleware.Logging(s.logger),
		middleware.CORS(s.cfg.CORS.AllowedOrigins),
		s.metrics.Middleware,
	}
	if s.cfg.RateLimiter.Enabled {
		limiter := middleware.NewRateLimiter(
			s.cfg.RateLimiter.RequestsPerSecond,
			s.cfg.RateLimiter.BurstSize,
			s.logger,
		)
		chain = append(chain, limiter.Limit)
	}
	s.router.Use(middleware.Chain(chain...))

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/sync", s.handlers.Sync).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/sync/live-edge", s.handlers.LiveEdge).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/index/segments", s.handlers.ListSegments).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/index/segments/{sequence}", s.handlers.GetSegment).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/index/find-by-time", s.handlers.FindByTime).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/index/stats", s.handlers.Stats).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/stream/info", s.handlers.StreamInfo).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/stream/playlist", s.handlers.Playlist).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/stream/segments/{filename}", s.handlers.Segment).Methods(http.MethodGet, http.MethodOptions)

	s.router.HandleFunc("/health", s.health.Liveness).Methods(http.MethodGet)
	s.router.HandleFunc("/ready", s.health.Readiness).Methods(http.MethodGet)
	if s.cfg.Metrics.Enabled {
		s.router.Handle(s.cfg.Metrics.Path, s.metrics.Handler()).Methods(http.MethodGet)
	}
}

// Start begins serving. It blocks until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the configured router, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
