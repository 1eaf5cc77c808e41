package httpserver

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/pixelsync/internal/core/domain"
	"github.com/yndnr/pixelsync/internal/server/httpserver/handler"
	"github.com/yndnr/pixelsync/internal/telemetry/logger"
	"github.com/yndnr/pixelsync/pkg/cmap"
	"github.com/yndnr/pixelsync/pkg/token"
)

// Context keys for request-scoped values.
type contextKey string

const (
	// ContextKeyStartTime is the context key for request start time.
	ContextKeyStartTime contextKey = "start_time"
)

// Middleware wraps an http.Handler with additional functionality.
type Middleware func(http.Handler) http.Handler

// Chain chains multiple middlewares together.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RequestMetrics records one finished request.
type RequestMetrics interface {
	ObserveRequest(route, code string, d time.Duration)
}

// RequestID adds a unique request ID to each request.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" || len(requestID) > 64 {
				requestID = newRequestID()
				r.Header.Set("X-Request-ID", requestID)
			}
			w.Header().Set("X-Request-ID", requestID)

			ctx := logger.WithRequestID(r.Context(), requestID)
			ctx = context.WithValue(ctx, ContextKeyStartTime, time.Now())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newRequestID() string {
	id, err := ulid.New(ulid.Now(), rand.Reader)
	if err != nil {
		return "req-unknown"
	}
	return "req-" + strings.ToLower(id.String())
}

// AccessLog logs each request and records it under route.
func AccessLog(log *slog.Logger, metrics RequestMetrics, route string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			if metrics != nil {
				metrics.ObserveRequest(route, strconv.Itoa(wrapped.statusCode), duration)
			}

			attrs := []any{
				"request_id", logger.RequestIDFromContext(r.Context()),
				"method", r.Method,
				"route", route,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", duration.Milliseconds(),
				"client_ip", getClientIP(r),
			}
			switch {
			case wrapped.statusCode >= 500:
				log.Error("request completed with error", attrs...)
			case wrapped.statusCode >= 400:
				log.Warn("request completed with client error", attrs...)
			default:
				log.Debug("request completed", attrs...)
			}
		})
	}
}

// Recover recovers from panics and returns 500 error.
func Recover(log *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					requestID := logger.RequestIDFromContext(r.Context())
					log.Error("panic recovered",
						"request_id", requestID,
						"error", err,
						"path", r.URL.Path,
					)
					handler.WriteError(w, requestID, http.StatusInternalServerError,
						domain.ErrInternalServer.Code, domain.ErrInternalServer.Message)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitConfig configures per-client rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client IP.
	RequestsPerSecond float64

	// Burst defaults to twice the rate.
	Burst int

	// IdleTTL is how long an unused limiter is kept. Defaults to 10 minutes.
	IdleTTL time.Duration
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// RateLimit applies a token bucket per client IP.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.Burst <= 0 {
		cfg.Burst = max(int(cfg.RequestsPerSecond*2), 1)
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}

	limiters := cmap.New[string, *clientLimiter]()
	var lastSweep atomic.Int64
	lastSweep.Store(time.Now().UnixNano())

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			if last := lastSweep.Load(); now.UnixNano()-last > int64(cfg.IdleTTL) &&
				lastSweep.CompareAndSwap(last, now.UnixNano()) {
				limiters.DeleteIf(func(_ string, cl *clientLimiter) bool {
					return now.UnixNano()-cl.lastSeen.Load() > int64(cfg.IdleTTL)
				})
			}

			cl, _ := limiters.GetOrCreate(getClientIP(r), func() *clientLimiter {
				return &clientLimiter{limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)}
			})
			cl.lastSeen.Store(now.UnixNano())

			if !cl.limiter.AllowN(now, 1) {
				w.Header().Set("Retry-After", "1")
				handler.WriteError(w, logger.RequestIDFromContext(r.Context()), http.StatusTooManyRequests,
					domain.ErrRateLimited.Code, domain.ErrRateLimited.Message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminAuth checks the admin token against a bcrypt hash. The token is read
// from "Authorization: Bearer <token>" or X-Admin-Token. An empty hash
// disables the admin API.
func AdminAuth(tokenHash string, log *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := logger.RequestIDFromContext(r.Context())
			if tokenHash == "" {
				writeDomainError(w, requestID, domain.ErrAdminDisabled)
				return
			}

			tok := extractAdminToken(r)
			if tok == "" {
				writeDomainError(w, requestID, domain.ErrAdminTokenMissing)
				return
			}
			if !token.Verify(tokenHash, tok) {
				log.Warn("admin authentication failed",
					"request_id", requestID,
					"client_ip", getClientIP(r),
					"path", r.URL.Path,
				)
				writeDomainError(w, requestID, domain.ErrAdminTokenInvalid)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractAdminToken reads the admin token from request headers.
func extractAdminToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return strings.TrimSpace(r.Header.Get("X-Admin-Token"))
}

// NetworkACLConfig holds configuration for network ACL middleware.
type NetworkACLConfig struct {
	// AllowList is the list of allowed IP/CIDR entries.
	// Empty list means no restriction.
	AllowList []string

	// Logger for logging denied requests.
	Logger *slog.Logger
}

// NetworkACL creates a middleware that checks client IP against an allowlist.
func NetworkACL(cfg *NetworkACLConfig) Middleware {
	var networks []*net.IPNet
	var singleIPs []net.IP

	for _, entry := range cfg.AllowList {
		if strings.Contains(entry, "/") {
			_, ipNet, err := net.ParseCIDR(entry)
			if err != nil {
				if cfg.Logger != nil {
					cfg.Logger.Warn("invalid CIDR in allowlist", "entry", entry, "error", err)
				}
				continue
			}
			networks = append(networks, ipNet)
		} else {
			ip := net.ParseIP(entry)
			if ip == nil {
				if cfg.Logger != nil {
					cfg.Logger.Warn("invalid IP in allowlist", "entry", entry)
				}
				continue
			}
			singleIPs = append(singleIPs, ip)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(networks) == 0 && len(singleIPs) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			clientIP := getClientIP(r)
			if ip := net.ParseIP(clientIP); ip != nil {
				for _, allowedIP := range singleIPs {
					if allowedIP.Equal(ip) {
						next.ServeHTTP(w, r)
						return
					}
				}
				for _, network := range networks {
					if network.Contains(ip) {
						next.ServeHTTP(w, r)
						return
					}
				}
			}

			if cfg.Logger != nil {
				cfg.Logger.Warn("request denied by network ACL",
					"client_ip", clientIP,
					"path", r.URL.Path,
				)
			}
			writeDomainError(w, logger.RequestIDFromContext(r.Context()),
				domain.ErrAdminDisabled.WithDetails("address not in admin allow list"))
		})
	}
}

// CORS adds Cross-Origin Resource Sharing headers for the public API.
func CORS(allowedOrigins []string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := len(allowedOrigins) == 0
			for _, o := range allowedOrigins {
				if o == "*" || strings.EqualFold(o, origin) {
					allowed = true
					break
				}
			}

			if allowed && origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, If-None-Match, X-Request-ID")
				w.Header().Set("Access-Control-Expose-Headers", "ETag, X-Request-ID, X-Error-Code")
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.Header().Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.statusCode = code
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func writeDomainError(w http.ResponseWriter, requestID string, err *domain.DomainError) {
	msg := err.Message
	if err.Details != "" {
		msg = fmt.Sprintf("%s: %s", err.Message, err.Details)
	}
	handler.WriteError(w, requestID, handler.StatusForCode(err.Code), err.Code, msg)
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// net.SplitHostPort handles IPv6 addresses like [::1]:8080
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
