package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves health probes and metrics over HTTP.
type Server struct {
	Address string
	Logger  *slog.Logger
	router  *chi.Mux
}

// NewServer creates a metrics server listening on address.
func NewServer(address string, logger *slog.Logger) *Server {
	s := &Server{
		Address: address,
		Logger:  logger,
		router:  chi.NewRouter(),
	}
	s.router.Use(middleware.Recoverer)
	s.router.Get("/healthz", s.LivenessHandler)
	s.router.Get("/readyz", s.ReadinessHandler)
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return s
}

// Handler returns the HTTP handler serving all endpoints.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.InfoContext(ctx, "starting metrics server", slog.String("address", s.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.Logger.InfoContext(ctx, "shutting down metrics server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down metrics server: %w", err)
	}
	return nil
}

// LivenessHandler handles liveness probe requests.
func (s *Server) LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ReadinessHandler handles readiness probe requests.
func (s *Server) ReadinessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
