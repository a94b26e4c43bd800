package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kasuganosora/sedna-go/pkg/api"
	"github.com/kasuganosora/sedna-go/pkg/config"
	"github.com/kasuganosora/sedna-go/pkg/monitor"
)

// Server is the HTTP REST API server
type Server struct {
	cfg        *config.HTTPAPIConfig
	handlers   *Handlers
	logger     api.Logger
	httpServer *http.Server
}

// NewServer creates a new HTTP API server
func NewServer(opts *api.Options, cfg *config.HTTPAPIConfig, logger api.Logger) *Server {
	if logger == nil {
		logger = api.NewNoOpLogger()
	}
	s := &Server{
		cfg:      cfg,
		handlers: &Handlers{Options: opts},
		logger:   logger,
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// SetMonitor enables the stats endpoint.
func (s *Server) SetMonitor(metrics *monitor.Collector, slowLog *monitor.SlowLog) {
	s.handlers.Metrics = metrics
	s.handlers.SlowLog = slowLog
}

// Handler returns the API with all middleware applied.
func (s *Server) Handler() http.Handler {
	auth := AuthMiddleware(NewClientStore(s.cfg.Clients))
	mux := http.NewServeMux()

	// Health check (no auth required)
	mux.HandleFunc("GET /api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: "1.0.0",
		})
	})

	mux.Handle("POST /api/v1/execute", auth(http.HandlerFunc(s.handlers.Execute)))
	mux.Handle("POST /api/v1/load", auth(http.HandlerFunc(s.handlers.Load)))
	mux.Handle("GET /api/v1/documents", auth(http.HandlerFunc(s.handlers.Documents)))
	mux.Handle("GET /api/v1/stats", auth(http.HandlerFunc(s.handlers.Stats)))

	// Recovery → CORS → Logging
	return RecoveryMiddleware(s.logger)(CORSMiddleware(LoggingMiddleware(s.logger)(mux)))
}

// Start starts the HTTP API server (blocking)
func (s *Server) Start() error {
	s.logger.Info("[HTTP API] 启动 HTTP API 服务器: %s", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the HTTP API server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
