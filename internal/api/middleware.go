package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/NextMind/NextCoach/internal/metrics"
	"github.com/NextMind/NextCoach/internal/models"
	"github.com/go-chi/httprate"
)

// UserIDHeader carries the authenticated caller's user ID.
const UserIDHeader = "X-User-ID"

// userHandlerFunc is a handler that needs the caller's user ID.
type userHandlerFunc func(w http.ResponseWriter, r *http.Request, userID string)

// requireUser rejects requests without a usable X-User-ID header.
func (s *Server) requireUser(next userHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if userID == "" {
			slog.Warn("Server.requireUser: missing user header", "path", r.URL.Path)
			writeJSONResponse(w, http.StatusUnauthorized, models.Error("Missing "+UserIDHeader+" header"))
			return
		}
		if len(userID) > models.MaxUserIDLength {
			slog.Warn("Server.requireUser: user header too long", "length", len(userID))
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid "+UserIDHeader+" header"))
			return
		}
		next(w, r, userID)
	}
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument records request count and latency under the route pattern.
func instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.ObserveHTTPRequest(route, rec.status, time.Since(start))
	})
}

// rateLimit limits requests per client IP with a sliding window and answers
// 429 with a Retry-After header once the budget is spent.
func rateLimit(requests int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.IncRateLimited()
			slog.Warn("Server.rateLimit: request limit exceeded", "path", r.URL.Path, "remote", r.RemoteAddr)
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			writeJSONResponse(w, http.StatusTooManyRequests, models.Error("Too many requests. Please try again later."))
		}),
	)
}
