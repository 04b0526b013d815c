// Package api exposes the coaching service over HTTP.
//
// Routes use the method-and-path patterns of net/http's ServeMux. Every
// coaching route identifies the caller by the X-User-ID header set by the
// surrounding authentication layer, and every response uses the
// models.APIResponse envelope. Run also drives the outbox sender that
// delivers coach reports.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/NextMind/NextCoach/internal/coaching"
	"github.com/NextMind/NextCoach/internal/metrics"
	"github.com/NextMind/NextCoach/internal/notify"
	"github.com/NextMind/NextCoach/internal/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// Default configuration constants
const (
	DefaultAddr               = ":8080"
	DefaultRateLimitPerMinute = 600

	// ShutdownTimeout bounds graceful shutdown of the HTTP server.
	ShutdownTimeout = 10 * time.Second
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr               string        // listen address
	RateLimitPerMinute int           // per-IP request budget; 0 disables limiting
	OutboxPollInterval time.Duration // outbox sender tick
}

// Option defines a function for configuring the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// WithRateLimit sets the per-IP request budget per minute. Zero disables it.
func WithRateLimit(perMinute int) Option {
	return func(o *Opts) {
		o.RateLimitPerMinute = perMinute
	}
}

// WithOutboxPollInterval sets how often the outbox sender looks for due messages.
func WithOutboxPollInterval(d time.Duration) Option {
	return func(o *Opts) {
		o.OutboxPollInterval = d
	}
}

// Server routes HTTP requests to the coaching service.
type Server struct {
	svc     *coaching.Service
	opts    Opts
	handler http.Handler
}

// NewServer creates a server for svc.
func NewServer(svc *coaching.Service, opts ...Option) *Server {
	cfg := Opts{
		Addr:               DefaultAddr,
		RateLimitPerMinute: DefaultRateLimitPerMinute,
		OutboxPollInterval: store.DefaultOutboxPollInterval,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	s := &Server{svc: svc, opts: cfg}

	var h http.Handler = s.routes()
	if cfg.RateLimitPerMinute > 0 {
		h = rateLimit(cfg.RateLimitPerMinute, time.Minute)(h)
	}
	s.handler = h
	slog.Debug("Server created", "addr", cfg.Addr, "rate_limit_per_minute", cfg.RateLimitPerMinute)
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.opts.Addr
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, instrument(pattern, h))
	}

	handle("POST /users", s.requireUser(s.registerUserHandler))
	handle("GET /users/me", s.requireUser(s.getUserHandler))

	handle("POST /assessments", s.requireUser(s.recordAssessmentHandler))
	handle("GET /assessments/latest", s.requireUser(s.latestAssessmentHandler))

	handle("GET /sessions", s.requireUser(s.listSessionsHandler))
	handle("POST /sessions", s.requireUser(s.createSessionHandler))
	handle("GET /sessions/{id}", s.requireUser(s.getSessionHandler))
	handle("POST /sessions/{id}/complete", s.requireUser(s.completeSessionHandler))
	handle("GET /sessions/{id}/messages", s.requireUser(s.listMessagesHandler))
	handle("POST /sessions/{id}/messages", s.requireUser(s.sendMessageHandler))
	handle("GET /sessions/{id}/progress", s.requireUser(s.sessionProgressHandler))

	handle("GET /exercises", s.requireUser(s.listExercisesHandler))
	handle("GET /exercises/recommended", s.requireUser(s.recommendedExercisesHandler))
	handle("POST /exercises/{id}/assign", s.requireUser(s.assignExerciseHandler))
	handle("GET /completions", s.requireUser(s.listCompletionsHandler))
	handle("POST /completions/{id}/start", s.requireUser(s.startCompletionHandler))
	handle("POST /completions/{id}/complete", s.requireUser(s.completeCompletionHandler))

	handle("GET /checkins", s.requireUser(s.listCheckInsHandler))
	handle("POST /checkins", s.requireUser(s.recordCheckInHandler))
	handle("GET /checkins/trends", s.requireUser(s.checkInTrendsHandler))

	handle("GET /recommendations", s.requireUser(s.listRecommendationsHandler))
	handle("POST /recommendations/{id}/act", s.requireUser(s.actUponRecommendationHandler))

	handle("GET /dashboard/overview", s.requireUser(s.overviewHandler))
	handle("GET /dashboard/recommendations", s.requireUser(s.dashboardRecommendationsHandler))
	handle("GET /dashboard/report", s.requireUser(s.coachReportHandler))
	handle("POST /reports/coach", s.requireUser(s.sendReportHandler))

	handle("GET /healthz", s.healthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// instrumentedDelivery records the outcome of every outbox delivery.
func instrumentedDelivery(send store.OutboxSendFunc) store.OutboxSendFunc {
	return func(ctx context.Context, msg store.OutboxMessage) error {
		err := send(ctx, msg)
		metrics.RecordOutboxDelivery(msg.Kind, err)
		return err
	}
}

// Run serves the API and delivers queued outbox messages through sender
// until ctx is cancelled or either component fails.
func Run(ctx context.Context, svc *coaching.Service, repo store.OutboxRepo, sender notify.Sender, opts ...Option) error {
	if svc == nil || repo == nil || sender == nil {
		return fmt.Errorf("api: service, outbox repository and sender are required")
	}
	server := NewServer(svc, opts...)
	httpServer := &http.Server{
		Addr:              server.Addr(),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	outbox := store.NewOutboxSender(repo, instrumentedDelivery(notify.OutboxDelivery(sender)), server.opts.OutboxPollInterval)
	if err := outbox.RecoverStaleMessages(); err != nil {
		slog.Warn("Run: outbox recovery failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("NextCoach API listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return outbox.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Run: shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}
