package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopmesh/parceline-bridge/internal/hooks"
	"github.com/shopmesh/parceline-bridge/internal/telemetry"
	"github.com/shopmesh/parceline-bridge/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Server is the HTTP server exposing the webhook surface.
type Server struct {
	port    int
	handler *hooks.Handler
	logger  *otelzap.Logger
}

// Config holds server configuration.
type Config struct {
	Port  int
	Hooks hooks.HandlerConfig
}

// New creates a server instance.
func New(cfg Config, registry *shipper.Registry, logger *otelzap.Logger, metrics *telemetry.Metrics) *Server {
	return &Server{
		port:    cfg.Port,
		handler: hooks.NewHandler(cfg.Hooks, registry, logger, metrics),
		logger:  logger,
	}
}

// Router builds the route table. Exposed for tests.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/hooks").Subrouter()
	api.HandleFunc("/shipping/calculate", s.handler.Calculate).Methods(http.MethodPost)
	api.HandleFunc("/fulfillment", s.handler.CreateFulfillment).Methods(http.MethodPost)
	api.HandleFunc("/fulfillment/{id}/tracking", s.handler.Tracking).Methods(http.MethodGet)
	api.HandleFunc("/fulfillment/{id}/label", s.handler.Label).Methods(http.MethodGet)
	api.HandleFunc("/fulfillment/{id}/cancel", s.handler.Cancel).Methods(http.MethodPost)

	return r
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
