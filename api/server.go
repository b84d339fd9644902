// Package api exposes the guidance engine over HTTP.
//
// Endpoints:
//
//	GET  /health                 capability report
//	GET  /ready                  readiness probe (database ping)
//	POST /rag/index              build or refresh the chunk index
//	POST /rag/query              retrieval inspection
//	POST /ask                    answer a question or refuse
//	POST /guidelines             create a guideline version
//	GET  /guidelines             list guideline versions
//	POST /guidelines/{id}/items  append guide items
//	GET  /guidelines/{id}/items  list guide items
//	GET  /runs                   list recorded chat runs
//	GET  /runs/{id}              fetch one chat run
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8087"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout bounds header reads against Slowloris clients.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout = 60 * time.Second

	// IdleTimeout is the keep-alive idle limit.
	IdleTimeout = 120 * time.Second
)

// Server is the HTTP server for the guidance REST API.
type Server struct {
	mux     *http.ServeMux
	logger  *slog.Logger
	limiter *rateLimiter

	health     *HealthHandler
	rag        *RAGHandler
	guidelines *GuidelineHandler
	runs       *RunHandler
}

// Option customizes a Server.
type Option func(*Server)

// WithQueryPreviewChars overrides the chunk text bound in query responses.
func WithQueryPreviewChars(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.rag.previewChars = n
		}
	}
}

// NewServer creates a server with all routes registered.
func NewServer(engine Engine, guidelines GuidelineStore, runs RunStore, pinger Pinger, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	s := &Server{
		mux:        mux,
		logger:     logger,
		limiter:    newRateLimiter(10, 30),
		health:     NewHealthHandler(engine, pinger, logger),
		rag:        NewRAGHandler(engine, 0, logger),
		guidelines: NewGuidelineHandler(guidelines, logger),
		runs:       NewRunHandler(runs, logger),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.health.RegisterRoutes(mux)
	s.rag.RegisterRoutes(mux)
	s.guidelines.RegisterRoutes(mux)
	s.runs.RegisterRoutes(mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Order: recovery, then rate limiting, then logging.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		rateLimitMiddleware(s.limiter, s.logger),
		loggingMiddleware(s.logger),
	)
}

// Run starts the server and blocks until the context is cancelled, then
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
