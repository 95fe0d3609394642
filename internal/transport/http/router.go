package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	pwhandler "escrowgate/internal/passwordless/handler"
	"escrowgate/internal/platform/health"
	"escrowgate/internal/ratelimit/fingerprint"
	rlhandler "escrowgate/internal/ratelimit/handler"
	rlmiddleware "escrowgate/internal/ratelimit/middleware"
	adminmw "escrowgate/pkg/platform/middleware/admin"
	request "escrowgate/pkg/platform/middleware/request"
	"escrowgate/pkg/platform/middleware/requesttime"
)

const (
	defaultRequestTimeout = 30 * time.Second
	maxBodyBytes          = 64 * 1024
)

// Deps are the handlers and middleware the router mounts. Nil handlers are
// skipped.
type Deps struct {
	Logger         *slog.Logger
	RateLimit      *rlmiddleware.Middleware
	RateLimitAdmin *rlhandler.Handler
	Passwordless   *pwhandler.Handler
	Health         *health.Handler
	Metrics        http.Handler
	RequestMetrics *request.Metrics
	AdminToken     string
	RequestTimeout time.Duration
}

// NewRouter wires all public endpoints with middleware. The rate limiter
// runs ahead of every handler; paths without a policy pass through it.
func NewRouter(d Deps) http.Handler {
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(d.Logger))
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(d.Logger, fingerprint.ClientIP))
	r.Use(request.Instrument(d.RequestMetrics, routePattern))
	r.Use(request.Timeout(timeout))
	r.Use(request.BodyLimit(maxBodyBytes))
	r.Use(request.ContentTypeJSON)
	if d.RateLimit != nil {
		r.Use(d.RateLimit.Handler)
	}

	if d.Health != nil {
		d.Health.Register(r)
	}
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}
	if d.Passwordless != nil {
		d.Passwordless.Register(r)
	}
	if d.RateLimitAdmin != nil {
		r.Group(func(admin chi.Router) {
			admin.Use(adminmw.RequireAdminToken(d.AdminToken, d.Logger))
			d.RateLimitAdmin.RegisterAdmin(admin)
		})
	}

	return r
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
