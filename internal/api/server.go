// Package api assembles and runs the scanwell HTTP server: REST
// endpoints for scans, targets, templates, discovery, and schedules,
// a WebSocket event stream, health, and Prometheus metrics.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gorilla "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scanwell/scanwell/internal/api/handlers"
	"github.com/scanwell/scanwell/internal/api/middleware"
	"github.com/scanwell/scanwell/internal/config"
	"github.com/scanwell/scanwell/internal/logging"
	"github.com/scanwell/scanwell/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

// Dependencies carries the collaborators the server exposes. Hub must
// be non-nil; the per-feature handlers tolerate nil optionals
// themselves.
type Dependencies struct {
	Scans     *handlers.ScanHandler
	Targets   *handlers.TargetHandler
	Templates *handlers.TemplateHandler
	Discovery *handlers.DiscoveryHandler
	Schedules *handlers.ScheduleHandler
	Hub       *handlers.Hub
	Metrics   *metrics.PrometheusMetrics
}

// Server is the scanwell HTTP server.
type Server struct {
	config     config.APIConfig
	httpServer *http.Server
	logger     *logging.Logger
	hub        *handlers.Hub
}

// New builds the server and its routing table.
func New(cfg config.APIConfig, deps Dependencies, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.WithComponent("api")

	router := mux.NewRouter()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logging(logger))
	if deps.Metrics != nil {
		router.Use(middleware.Metrics(deps.Metrics))
	}

	v1 := router.PathPrefix("/api/v1").Subrouter()
	deps.Scans.Register(v1)
	deps.Targets.Register(v1)
	deps.Templates.Register(v1)
	deps.Discovery.Register(v1)
	deps.Schedules.Register(v1)
	v1.Handle("/events", deps.Hub)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	if deps.Metrics != nil {
		router.Handle("/metrics", promhttp.HandlerFor(
			deps.Metrics.Registry(), promhttp.HandlerOpts{}))
	}

	var handler http.Handler = router
	if cfg.CORS.Enabled {
		handler = gorilla.CORS(
			gorilla.AllowedOrigins(cfg.CORS.AllowedOrigins),
			gorilla.AllowedMethods(cfg.CORS.AllowedMethods),
			gorilla.AllowedHeaders(cfg.CORS.AllowedHeaders),
		)(router)
	}

	addr := cfg.ListenAddr
	return &Server{
		config: cfg,
		logger: logger,
		hub:    deps.Hub,
		httpServer: &http.Server{
			Addr:         addrWithPort(addr, cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.RequestTimeout,
			WriteTimeout: 0, // event stream connections stay open
			IdleTimeout:  2 * cfg.RequestTimeout,
		},
	}
}

// Start runs the event hub and serves HTTP until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("api server shutting down")
	return s.httpServer.Shutdown(shutdownCtx)
}

func addrWithPort(addr string, port int) string {
	return fmt.Sprintf("%s:%d", addr, port)
}
