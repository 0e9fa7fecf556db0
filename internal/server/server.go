package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vilniusbus/internal/handler"
)

// Server is the HTTP server for vilniusbus.
type Server struct {
	mux    *http.ServeMux
	srv    *http.Server
	logger *slog.Logger
}

// New creates a new Server with all routes registered.
func New(port int, h *handler.Handler, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// API
	mux.HandleFunc("GET /api/departures/{id}", h.Departures)
	mux.HandleFunc("GET /api/stops", h.SearchStops)
	mux.HandleFunc("GET /api/stops/nearby", h.NearbyStops)
	mux.HandleFunc("GET /api/stops/{id}/alerts", h.StopAlerts)
	mux.HandleFunc("GET /api/alerts", h.Alerts)

	// Pages
	mux.HandleFunc("GET /stops/{id}", h.StopDetail)

	// SSE
	mux.HandleFunc("GET /sse/departures/{id}", h.SSEDepartures)

	// Ops
	mux.HandleFunc("GET /healthz", h.Health)
	mux.Handle("GET /metrics", promhttp.Handler())

	s := &Server{mux: mux, logger: logger}
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           withMiddleware(mux, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}
