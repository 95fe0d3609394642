package handler

//go:generate mockgen -source=handler.go -destination=mocks/handler_mock.go -package=mocks Service,Limiter

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"escrowgate/internal/passwordless/emailstore"
	"escrowgate/internal/passwordless/flow"
	"escrowgate/internal/ratelimit/middleware"
	"escrowgate/internal/ratelimit/models"
	dErrors "escrowgate/pkg/domain-errors"
	"escrowgate/pkg/platform/httputil"
	"escrowgate/pkg/platform/privacy"
	"escrowgate/pkg/requestcontext"
)

// FailureEndpoint is the policy failed verifications are counted against.
const FailureEndpoint = "/api/auth/login"

type Service interface {
	SendPasswordlessLink(ctx context.Context, email string) error
	VerifyPasswordlessLink(ctx context.Context, email, url string) error
	IsSignInWithEmailLink(url string) bool
	LinkTTL() time.Duration
}

type Limiter interface {
	Status(ctx context.Context, identifier, endpoint string) (*models.Result, error)
	TrackFailedAttempt(ctx context.Context, identifier, endpoint string) (*models.Result, error)
	ClearFailures(ctx context.Context, identifier, endpoint string) error
}

// MsgLockedOut is shown while the caller is locked out of sign-in.
const MsgLockedOut = "Too many failed sign-in attempts. Please try again later."

type Option func(*Handler)

// WithFlowOptions configures every flow the handler starts.
func WithFlowOptions(opts ...flow.Option) Option {
	return func(h *Handler) {
		h.flowOpts = append(h.flowOpts, opts...)
	}
}

type Handler struct {
	service  Service
	limiter  Limiter
	cookie   *emailstore.Cookie
	logger   *slog.Logger
	flowOpts []flow.Option
}

func New(service Service, limiter Limiter, cookie *emailstore.Cookie, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		service: service,
		limiter: limiter,
		cookie:  cookie,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.flowOpts = append([]flow.Option{flow.WithLogger(logger)}, h.flowOpts...)
	return h
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/api/auth/passwordless/send", h.HandleSendLink)
	r.Post("/api/auth/verify-email", h.HandleVerifyEmail)
	r.Get("/auth/email-action", h.HandleEmailAction)
	r.Post("/auth/email-action", h.HandleSubmitEmail)
}

type SendLinkRequest struct {
	Email string `json:"email" validate:"required,max=254"`
}

func (r *SendLinkRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

type SendLinkResponse struct {
	Sent             bool  `json:"sent"`
	ExpiresInSeconds int64 `json:"expires_in"`
}

type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,max=254"`
	URL   string `json:"url" validate:"required,url"`
}

func (r *VerifyEmailRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
	r.URL = strings.TrimSpace(r.URL)
}

type VerifyEmailResponse struct {
	Verified bool `json:"verified"`
}

type SubmitEmailRequest struct {
	Email string `json:"email"`
	URL   string `json:"url" validate:"required,url"`
}

// HandleSendLink implements POST /api/auth/passwordless/send.
//
// Input: { "email": "user@example.com" }
// Output: { "sent": true, "expires_in": 3600 }
func (h *Handler) HandleSendLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SendLinkRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := flow.SendLink(ctx, h.service, req.Email); err != nil {
		h.logger.WarnContext(ctx, "send sign-in link failed",
			"error", err,
			"recipient", privacy.MaskEmail(req.Email),
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	ttl := h.service.LinkTTL()
	h.cookie.Set(w, req.Email, ttl)
	httputil.WriteJSON(w, http.StatusOK, &SendLinkResponse{
		Sent:             true,
		ExpiresInSeconds: int64(ttl.Seconds()),
	})
}

// HandleVerifyEmail implements POST /api/auth/verify-email. A failure counts
// as a failed sign-in for the caller's fingerprint; success clears them
// unless a lockout is active. Locked-out callers get 429 without a verify.
//
// Input: { "email": "user@example.com", "url": "<sign-in link>" }
// Output: { "verified": true }
func (h *Handler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[VerifyEmailRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.verify(ctx, req.Email, req.URL)
	if err != nil {
		if result != nil && !result.Allowed {
			middleware.WriteExceeded(w, result)
			return
		}
		httputil.WriteError(w, err)
		return
	}

	h.cookie.Clear(w)
	httputil.WriteJSON(w, http.StatusOK, &VerifyEmailResponse{Verified: true})
}

// HandleEmailAction implements GET /auth/email-action, the page a sign-in
// link opens. The response is the flow view after running it against the
// request URL and the email cookie.
func (h *Handler) HandleEmailAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f := h.newFlow(h.cookie.FromRequest(r))

	view, err := f.Start(ctx, currentURL(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.render(w, view)
}

// HandleSubmitEmail implements POST /auth/email-action, the cross-device
// form: the link was opened where no email is stored.
//
// Input: { "email": "user@example.com", "url": "<sign-in link>" }
func (h *Handler) HandleSubmitEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SubmitEmailRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	f := h.newFlow(emailstore.Static(""))
	view, err := f.Start(ctx, strings.TrimSpace(req.URL))
	if err == nil && view.State == flow.StateNeedEmail {
		view, err = f.SubmitEmail(ctx, req.Email)
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.render(w, view)
}

func (h *Handler) render(w http.ResponseWriter, view flow.View) {
	if view.State == flow.StateSuccess {
		h.cookie.Clear(w)
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) newFlow(emails flow.EmailStore) *flow.Flow {
	verifier := flow.VerifierFunc(func(ctx context.Context, email, url string) error {
		_, err := h.verify(ctx, email, url)
		return err
	})
	return flow.New(h.service, emails, verifier, h.flowOpts...)
}

// verify runs link verification and updates the caller's failed-attempt
// record. A caller that is locked out never reaches the verifier. The
// returned result is the limiter's verdict when it rejected the caller.
func (h *Handler) verify(ctx context.Context, email, url string) (*models.Result, error) {
	fp := requestcontext.Fingerprint(ctx)
	if fp == "" {
		return nil, h.service.VerifyPasswordlessLink(ctx, email, url)
	}

	status, err := h.limiter.Status(ctx, fp, FailureEndpoint)
	if err != nil {
		return nil, err
	}
	if !status.Allowed {
		h.logger.InfoContext(ctx, "sign-in refused while locked out",
			"retry_after", status.RetryAfter,
			"request_id", requestcontext.RequestID(ctx),
		)
		return status, dErrors.New(dErrors.CodeRateLimited, MsgLockedOut)
	}

	if err := h.service.VerifyPasswordlessLink(ctx, email, url); err != nil {
		result, trackErr := h.limiter.TrackFailedAttempt(ctx, fp, FailureEndpoint)
		if trackErr != nil {
			h.logger.ErrorContext(ctx, "failed to track failed sign-in",
				"error", trackErr,
				"request_id", requestcontext.RequestID(ctx),
			)
			return nil, err
		}
		return result, err
	}

	if err := h.limiter.ClearFailures(ctx, fp, FailureEndpoint); err != nil {
		h.logger.WarnContext(ctx, "failed to clear sign-in failures",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return nil, nil
}

func currentURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
