// Package web provides the HTTP service for datacheck: a JSON API to list
// datasets and start validation runs, plus HTML pages for run reports.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/datacheck/internal/config"
	"github.com/JonMunkholm/datacheck/internal/runner"
	"github.com/JonMunkholm/datacheck/internal/web/middleware"
)

// Healthcheck probes one dependency.
type Healthcheck func(context.Context) error

// Server is the HTTP server for the validation service.
type Server struct {
	cfg     *config.Config
	runner  *runner.Runner
	limiter *runner.Limiter
	reports runner.Reports
	health  map[string]Healthcheck

	router *chi.Mux
	server *http.Server
	rate   *rateLimiter

	// Runs outlive the request that started them.
	runCtx    context.Context
	cancelRun context.CancelFunc
	runs      sync.WaitGroup
	active    *activeRuns
}

// Option configures a Server.
type Option func(*Server)

// WithHealthcheck adds a named dependency probe to /healthz.
func WithHealthcheck(name string, check Healthcheck) Option {
	return func(s *Server) { s.health[name] = check }
}

// NewServer creates a Server. Reports are read back from reports, which
// should also be one of the runner's recorders.
func NewServer(cfg *config.Config, run *runner.Runner, reports runner.Reports, opts ...Option) *Server {
	runCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:       cfg,
		runner:    run,
		limiter:   runner.NewLimiter(cfg.Check.MaxConcurrent, cfg.Check.MaxWaitTime),
		reports:   reports,
		health:    make(map[string]Healthcheck),
		router:    chi.NewRouter(),
		runCtx:    runCtx,
		cancelRun: cancel,
		active:    newActiveRuns(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Server.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		s.rate = newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(s.rate.middleware)
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	// Pages
	s.router.Get("/", s.handleRunsPage)
	s.router.Get("/runs/{runID}", s.handleRunPage)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/datasets", s.handleListDatasets)
		r.Get("/datasets/{name}", s.handleGetDataset)

		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{runID}", s.handleGetRun)
		r.With(middleware.APIKeyAuth(s.cfg.Server.APIKeys)).Post("/runs", s.handleStartRun)
	})
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("server starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then waits for running checks. Checks
// still running when ctx ends are cancelled.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	if s.rate != nil {
		s.rate.stop()
	}

	if status := s.limiter.Status(); status.Active > 0 {
		slog.Info("waiting for runs to complete", "active", status.Active)
	}
	if drainErr := s.limiter.WaitForDrain(ctx); drainErr != nil {
		slog.Warn("runs did not complete in time, cancelling", "error", drainErr)
		err = errors.Join(err, drainErr)
	}
	s.cancelRun()
	s.runs.Wait()
	return err
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Limiter exposes the run limiter for status reporting.
func (s *Server) Limiter() *runner.Limiter {
	return s.limiter
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		// Report pages use one inline stylesheet and no scripts.
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
