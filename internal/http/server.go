// Package http serves the ledger reports over a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ledgerlens/internal/ledger"
	"ledgerlens/internal/log"
	"ledgerlens/internal/report"
)

// Server is the report API.
type Server struct {
	http.Server

	source       ledger.Source
	builder      *report.Builder
	logger       *log.Logger
	rateLimiter  *rateLimiter
	savingsLimit int
	now          func() time.Time

	shutdownOnce sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSavingsLimit sets the round-up step used when a request omits limit.
func WithSavingsLimit(limit int) Option {
	return func(s *Server) {
		if limit > 0 {
			s.savingsLimit = limit
		}
	}
}

// WithClock replaces time.Now as the default report reference.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithRateLimit allows perMinute API requests per client. Zero disables it.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
			s.rateLimiter = nil
		}
		if perMinute > 0 {
			s.rateLimiter = newRateLimiter(perMinute)
		}
	}
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(addr string, source ledger.Source, builder *report.Builder, opts ...Option) *Server {
	s := &Server{
		source:       source,
		builder:      builder,
		logger:       log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP),
		savingsLimit: 50,
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(log.Middleware(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		if s.rateLimiter != nil {
			r.Use(s.rateLimiter.middleware)
		}
		r.Get("/reports/{kind}", s.handleReport)
		r.Get("/cashback", s.handleCashback)
		r.Get("/savings", s.handleSavings)
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady checks that the ledger backend answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	today := s.now()
	if _, err := s.source.Load(ctx, ledger.Bounds{Start: today, End: today}); err != nil {
		log.FromContext(r.Context()).WarnContext(ctx, "Ledger backend not ready", slog.Any(log.FieldError, err))
		http.Error(w, "ledger unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
