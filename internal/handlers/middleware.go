package handlers

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ovomonie/banking-service/internal/auth"
	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/domain/ports"
	"github.com/ovomonie/banking-service/pkg/observability"
)

type contextKey string

const userIDKey contextKey = "user_id"

// UserID returns the authenticated user's ID stored by Authenticator.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// Authenticator verifies the bearer token and stores the subject in the
// request context.
func Authenticator(tokens *auth.TokenIssuer, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, logger, domain.ErrAuthMissing)
				return
			}
			raw := strings.TrimPrefix(header, "Bearer ")
			if raw == header {
				writeError(w, logger, domain.ErrAuthInvalid)
				return
			}

			payload, err := tokens.Verify(raw)
			if err != nil {
				writeError(w, logger, err)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, payload.Sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger logs each request with zap and feeds the HTTP metrics.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			elapsed := time.Since(start)
			route := routePattern(r)
			observability.RecordHTTPRequest(r.Method, route, strconv.Itoa(ww.Status()), elapsed.Seconds())
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", elapsed),
				zap.Int("bytes", ww.BytesWritten()))
		})
	}
}

// RateLimit caps requests per client IP inside a fixed window, backed by the
// shared Redis counter so limits hold across server instances. A limiter
// outage lets traffic through: the auth endpoints behind this are further
// protected by credential checks and the PIN lockout.
func RateLimit(limiter ports.AttemptLimiter, scope string, limit, windowSeconds int, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			count, retryAfter, err := limiter.Consume(r.Context(), scope, ip, limit, windowSeconds)
			if err != nil {
				logger.Warn("rate limiter unavailable", zap.Error(err))
			} else if count > limit {
				writeError(w, logger, domain.ErrRateLimited.WithDetail("retry_after_seconds", retryAfter))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// routePattern prefers the chi pattern ("/api/v1/loans/{id}") over the raw
// path to keep metric label cardinality bounded.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
