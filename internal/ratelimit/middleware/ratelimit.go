package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"escrowgate/internal/ratelimit/fingerprint"
	"escrowgate/internal/ratelimit/models"
	dErrors "escrowgate/pkg/domain-errors"
	"escrowgate/pkg/platform/httputil"
	"escrowgate/pkg/platform/privacy"
	"escrowgate/pkg/requestcontext"
)

type RateLimiter interface {
	CheckLimit(ctx context.Context, identifier, path string, failed bool) (*models.Result, error)
}

// ExceededResponse is the 429 body.
type ExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter"`
	Blocked    bool   `json:"blocked"`
}

type Middleware struct {
	limiter RateLimiter
	logger  *slog.Logger
}

func New(limiter RateLimiter, logger *slog.Logger) *Middleware {
	return &Middleware{limiter: limiter, logger: logger}
}

// Handler fingerprints every request and stores the fingerprint in the
// request context. Paths covered by a policy are checked: allowed requests
// get X-RateLimit-* headers, rejected ones a 429. When the limiter itself
// fails the request is refused with 503.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := fingerprint.ClientIP(r)
		fp := fingerprint.Compute(ip, r.UserAgent())
		ctx := requestcontext.WithClientMetadata(r.Context(), ip, r.UserAgent())
		ctx = requestcontext.WithFingerprint(ctx, fp)
		r = r.WithContext(ctx)

		result, err := m.limiter.CheckLimit(ctx, fp, r.URL.Path, false)
		if err != nil {
			m.logger.ErrorContext(ctx, "rate limit check failed, refusing request",
				"error", err,
				"path", r.URL.Path,
				"ip_prefix", privacy.AnonymizeIP(ip),
				"request_id", requestcontext.RequestID(ctx),
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "rate limiting is temporarily unavailable"))
			return
		}
		if !result.Matched {
			next.ServeHTTP(w, r)
			return
		}

		addRateLimitHeaders(w, result)
		if !result.Allowed {
			m.logger.InfoContext(ctx, "request rate limited",
				"path", r.URL.Path,
				"policy", result.Policy,
				"reason", result.Reason,
				"retry_after", result.RetryAfter,
				"ip_prefix", privacy.AnonymizeIP(ip),
				"device", fingerprint.Describe(r.UserAgent()),
				"request_id", requestcontext.RequestID(ctx),
			)
			WriteExceeded(w, result)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.Reset.Unix(), 10))
}

// WriteExceeded writes the 429 response for a rejected result. Handlers
// that track failed attempts themselves reuse it.
func WriteExceeded(w http.ResponseWriter, result *models.Result) {
	addRateLimitHeaders(w, result)
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))

	resp := ExceededResponse{
		Error:      string(models.ReasonQuotaExceeded),
		Message:    "Too many requests. Please wait before trying again.",
		RetryAfter: result.RetryAfter,
		Blocked:    result.Blocked,
	}
	if result.Reason == models.ReasonFailedAttempts {
		resp.Error = string(models.ReasonFailedAttempts)
		resp.Message = "Too many failed sign-in attempts. Please wait before trying again."
	}
	httputil.WriteJSON(w, http.StatusTooManyRequests, resp)
}
