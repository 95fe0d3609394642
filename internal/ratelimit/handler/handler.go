package handler

//go:generate mockgen -source=handler.go -destination=mocks/handler_mock.go -package=mocks Service

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"escrowgate/internal/ratelimit/config"
	dErrors "escrowgate/pkg/domain-errors"
	"escrowgate/pkg/platform/httputil"
	"escrowgate/pkg/platform/middleware/admin"
	"escrowgate/pkg/platform/privacy"
	"escrowgate/pkg/requestcontext"
)

type Service interface {
	Policies() *config.PolicySet
	ResetLimit(ctx context.Context, identifier, endpoint string) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/rate-limit/policies", h.HandleListPolicies)
	r.Post("/admin/rate-limit/reset", h.HandleResetRateLimit)
}

type PolicyResponse struct {
	Prefix               string `json:"prefix"`
	WindowSeconds        int64  `json:"window_seconds"`
	Max                  int    `json:"max"`
	BlockDurationSeconds int64  `json:"block_duration_seconds"`
	FailureThreshold     int    `json:"failure_threshold,omitempty"`
}

type ResetRateLimitRequest struct {
	Identifier string `json:"identifier" validate:"required,max=256"`
	Endpoint   string `json:"endpoint" validate:"required,startswith=/"`
}

func (r *ResetRateLimitRequest) Normalize() {
	r.Identifier = strings.TrimSpace(r.Identifier)
	r.Endpoint = strings.TrimSpace(r.Endpoint)
}

// HandleListPolicies implements GET /admin/rate-limit/policies.
// Policies are listed most specific first, the order they are matched in.
func (h *Handler) HandleListPolicies(w http.ResponseWriter, r *http.Request) {
	policies := h.service.Policies().All()
	out := make([]PolicyResponse, 0, len(policies))
	for _, p := range policies {
		out = append(out, PolicyResponse{
			Prefix:               p.Prefix,
			WindowSeconds:        int64(p.Window.Seconds()),
			Max:                  p.Max,
			BlockDurationSeconds: int64(p.BlockDuration.Seconds()),
			FailureThreshold:     p.FailureThreshold,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleResetRateLimit implements POST /admin/rate-limit/reset.
//
// Input: { "identifier": "203.0.113.10-1b2c3d", "endpoint": "/api/auth/login" }
// Output: 204 No Content
func (h *Handler) HandleResetRateLimit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ResetRateLimitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	policy, matched := h.service.Policies().Match(req.Endpoint)
	if !matched {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no rate limit policy covers endpoint"))
		return
	}

	if err := h.service.ResetLimit(ctx, req.Identifier, req.Endpoint); err != nil {
		h.logger.ErrorContext(ctx, "failed to reset rate limit",
			"error", err,
			"identifier", privacy.AnonymizeFingerprint(req.Identifier),
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "rate limit reset",
		"policy", policy.Prefix,
		"identifier", privacy.AnonymizeFingerprint(req.Identifier),
		"actor_id", admin.GetAdminActorID(ctx),
		"request_id", requestID,
	)
	w.WriteHeader(http.StatusNoContent)
}
