package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server expone /metrics mientras dura una corrida.
type Server struct {
	server *http.Server
}

// NewServer crea el servidor. Si addr está vacío o enabled es false, queda deshabilitado.
func NewServer(enabled bool, addr string) *Server {
	if !enabled || addr == "" {
		return &Server{}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Run arranca el servidor en background.
func (s *Server) Run() {
	if s.server == nil {
		return
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("metrics server stopped", "addr", s.server.Addr, "err", err)
		}
	}()
	slog.Info("metrics server listening", "addr", s.server.Addr)
}

// Stop cierra el servidor ordenadamente.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.server.SetKeepAlivesEnabled(false)
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}
