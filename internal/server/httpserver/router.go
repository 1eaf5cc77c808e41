package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/pixelsync/internal/core/domain"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Handler serves the public and admin API.
	Handler http.Handler

	// WebSocket serves the realtime endpoint at WebSocketPath. Nil disables it.
	WebSocket     http.Handler
	WebSocketPath string

	// Metrics serves /metrics. Nil disables it.
	Metrics http.Handler

	// RequestMetrics records per-route request counts and latency.
	RequestMetrics RequestMetrics

	// Logger for request logging.
	Logger *slog.Logger

	// RateLimit is the per-IP limit for /api routes. Zero disables it.
	RateLimit      float64
	RateLimitBurst int

	// AdminTokenHash is the bcrypt hash of the admin token.
	AdminTokenHash string

	// AdminAllowList is the IP/CIDR allowlist for the admin API (empty = no restriction).
	AdminAllowList []string

	// CORSAllowedOrigins is the list of allowed CORS origins (empty = allow all).
	CORSAllowedOrigins []string
}

// NewRouter creates the top-level mux. Every route gets its own middleware
// chain so that access logs and metrics carry the route pattern.
func NewRouter(cfg *RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.WebSocketPath == "" {
		cfg.WebSocketPath = "/ws"
	}

	mux := http.NewServeMux()
	base := func(route string) []Middleware {
		return []Middleware{
			RequestID(),
			AccessLog(cfg.Logger, cfg.RequestMetrics, route),
			Recover(cfg.Logger),
		}
	}

	// Probes and metrics skip rate limiting.
	for _, route := range []string{"GET /health", "GET /ready"} {
		mux.Handle(route, Chain(cfg.Handler, base(route)...))
	}
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", Chain(cfg.Metrics, base("GET /metrics")...))
	}

	public := func(route string) http.Handler {
		mws := base(route)
		mws = append(mws, CORS(cfg.CORSAllowedOrigins))
		if cfg.RateLimit > 0 {
			mws = append(mws, RateLimit(RateLimitConfig{
				RequestsPerSecond: cfg.RateLimit,
				Burst:             cfg.RateLimitBurst,
			}))
		}
		return Chain(cfg.Handler, mws...)
	}
	for _, route := range []string{
		"GET /api/v1/epoch",
		"GET /api/v1/epoch/countdown",
		"GET /api/v1/canvas",
		"POST /api/v1/pixels",
		"GET /api/v1/archives",
		"GET /api/v1/archives/{epoch}",
		"GET /api/v1/contributors",
	} {
		mux.Handle(route, public(route))
	}
	mux.Handle("OPTIONS /api/", public("OPTIONS /api/"))

	admin := func(route string) http.Handler {
		mws := base(route)
		if len(cfg.AdminAllowList) > 0 {
			mws = append(mws, NetworkACL(&NetworkACLConfig{
				AllowList: cfg.AdminAllowList,
				Logger:    cfg.Logger,
			}))
		}
		mws = append(mws, AdminAuth(cfg.AdminTokenHash, cfg.Logger))
		return Chain(cfg.Handler, mws...)
	}
	for _, route := range []string{
		"POST /admin/v1/canvas/reset",
		"POST /admin/v1/snapshots",
		"POST /admin/v1/epoch/check",
	} {
		mux.Handle(route, admin(route))
	}

	// The websocket route logs on disconnect only; wrapping it in AccessLog
	// would hold the request open for the whole session.
	if cfg.WebSocket != nil {
		mux.Handle("GET "+cfg.WebSocketPath, Chain(cfg.WebSocket, RequestID(), Recover(cfg.Logger)))
	}

	mux.Handle("/", Chain(http.HandlerFunc(notFound), base("/")...))
	return mux
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeDomainError(w, r.Header.Get("X-Request-ID"), domain.ErrRouteNotFound)
}
