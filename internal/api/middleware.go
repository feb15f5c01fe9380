package api

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dgnsrekt/cortex/internal/metrics"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

func requestLogger(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			elapsed := time.Since(start)
			m.ObserveRequest(r.Method, ww.Status(), elapsed)
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", elapsed.Milliseconds(),
				"remote", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// RateLimitConfig bounds command traffic from the UI layer. Zero
// RequestsPerSecond disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

func rateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.RequestsPerSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				writeProblem(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TokenHeader carries the per-launch API token. WebSocket and EventSource
// clients cannot set headers and pass it as the token query parameter.
const TokenHeader = "X-Cortex-Token"

// AccessConfig restricts /api/v1 to the navigation bar page.
type AccessConfig struct {
	// Origin is the only Origin accepted, e.g. "http://127.0.0.1:8190".
	// Requests without an Origin header pass this check. Empty accepts any
	// origin.
	Origin string
	// Token must accompany every request. Empty disables the check.
	Token string
}

func requireAccess(cfg AccessConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/v1/") {
				next.ServeHTTP(w, r)
				return
			}
			if !cfg.allowsOrigin(r.Header.Get("Origin")) {
				slog.Warn("rejected cross-origin request", "origin", r.Header.Get("Origin"), "path", r.URL.Path)
				writeProblem(w, http.StatusForbidden, "origin not allowed")
				return
			}
			if cfg.Token != "" && !validToken(r, cfg.Token) {
				slog.Warn("rejected request without valid token", "path", r.URL.Path, "remote", r.RemoteAddr)
				writeProblem(w, http.StatusForbidden, "missing or invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (c AccessConfig) allowsOrigin(origin string) bool {
	return c.Origin == "" || origin == "" || origin == c.Origin
}

func validToken(r *http.Request, want string) bool {
	got := r.Header.Get(TokenHeader)
	if got == "" {
		got = r.URL.Query().Get("token")
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func writeProblem(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]any{
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	}); err != nil {
		slog.Debug("problem response write failed", "status", status, "error", err)
	}
}
