// Package api exposes the question-answering service over HTTP.
//
// Endpoints:
//
//	POST /api/portfolio/ask-me  →  answer one question
//	GET  /api/clear-chat        →  reset the caller's conversation
//	GET  /health                →  liveness probe
//	GET  /ready                 →  readiness probe
//
// Sessions are selected by the X-Session-ID header; requests without one
// share the "default" session.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dvega/askme/internal/log"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8080"

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout guards against Slowloris-style clients.
	ReadHeaderTimeout = 10 * time.Second

	ReadTimeout  = 30 * time.Second
	WriteTimeout = 120 * time.Second
	IdleTimeout  = 120 * time.Second
)

// Server routes HTTP requests to the ask and health handlers.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger

	ask    *AskHandler
	health *HealthHandler
}

// NewServer creates the server with all routes registered.
func NewServer(answerer Answerer, pool *pgxpool.Pool, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNop()
	}
	mux := http.NewServeMux()

	s := &Server{
		mux:    mux,
		logger: logger,
		ask:    NewAskHandler(answerer, logger),
		health: NewHealthHandler(pool, logger),
	}
	s.ask.RegisterRoutes(mux)
	s.health.RegisterRoutes(mux)
	return s
}

// Handler returns the mux wrapped in the middleware chain:
// recovery → logging → handler.
func (s *Server) Handler() http.Handler {
	return chain(s.mux, recoveryMiddleware(s.logger), loggingMiddleware(s.logger))
}

// Run starts the server and blocks until the context is canceled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
