package http

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/authkit/internal/observability/logger"
)

// Server envuelve http.Server con timeouts sanos y shutdown graceful.
type Server struct {
	srv *http.Server
}

// NewServer crea el server listo para Start.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Start bloquea sirviendo hasta que el server se cierre.
// http.ErrServerClosed no se reporta como error.
func (s *Server) Start() error {
	logger.L().Info("http server listening", logger.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drena conexiones respetando el deadline del contexto.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.L().Info("http server shutting down")
	return s.srv.Shutdown(ctx)
}
