/**
 * HTTP API for document extraction and verification
 *
 * Synchronous extraction runs the full pipeline inside the request.
 * Async extraction enqueues a job and exposes its state for polling.
 * Verification endpoints are stateless and pure.
 */

package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/veridoc/docverify/internal/config"
	"github.com/veridoc/docverify/internal/logging"
	"github.com/veridoc/docverify/internal/queue"
	"github.com/veridoc/docverify/internal/verify"
)

// Server hosts the extraction and verification API.
type Server struct {
	httpServer *http.Server
	handler    *Handler
	logger     *logging.Logger
}

// New wires the router and returns a server ready to listen.
func New(cfg *config.Config, extractor Extractor, enqueuer *queue.Enqueuer, jobs *queue.JobStore, logger *logging.Logger) *Server {
	engine := verify.NewEngine(verify.Thresholds{
		Match:   cfg.MatchThreshold,
		Partial: cfg.PartialThreshold,
	})

	h := &Handler{
		extractor:     extractor,
		engine:        engine,
		enqueuer:      enqueuer,
		jobs:          jobs,
		maxUploadSize: cfg.MaxUploadSize,
		logger:        logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Duration(cfg.ProcessingTimeoutSec) * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)
	r.Post("/extract", h.Extract)
	r.Post("/extract/async", h.ExtractAsync)
	r.Get("/jobs/{jobID}", h.JobStatus)
	r.Post("/verify", h.VerifyField)
	r.Post("/verify-full", h.VerifyFull)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.ListenAddr,
			Handler:      r,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: time.Duration(cfg.ProcessingTimeoutSec+30) * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		handler: h,
		logger:  logger,
	}
}

// ListenAndServe blocks serving HTTP until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the handler mux, used by tests.
func (s *Server) Router() http.Handler {
	return s.httpServer.Handler
}
