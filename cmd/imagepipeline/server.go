package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"media-pipeline/internal/handlers"
	"media-pipeline/internal/logging"
	"media-pipeline/internal/middleware"
	"media-pipeline/internal/startup"

	"github.com/gorilla/mux"
)

// metricsServer exposes health, metrics and batch history while the
// pipeline runs.
type metricsServer struct {
	srv  *http.Server
	done chan struct{}
}

func newMetricsServer(addr string, h *handlers.Handlers) *metricsServer {
	router := setupRouter(h)
	startup.LogHTTPRoutes(router)

	handler := middleware.Logger(middleware.DefaultLoggingConfig())(router)

	return &metricsServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		done: make(chan struct{}),
	}
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics())

	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)
	r.Handle("/metrics", h.MetricsHandler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/performance", h.GetPerformance).Methods(http.MethodGet)
	api.HandleFunc("/history", h.GetHistory).Methods(http.MethodGet)
	api.HandleFunc("/history/{id}", h.GetRun).Methods(http.MethodGet)

	return r
}

func (s *metricsServer) start() {
	go func() {
		defer close(s.done)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Metrics server error: %v", err)
		}
	}()
}

func (s *metricsServer) stop(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	<-s.done
	return err
}
