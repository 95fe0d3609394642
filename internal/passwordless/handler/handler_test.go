package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"escrowgate/internal/passwordless/emailstore"
	"escrowgate/internal/passwordless/flow"
	"escrowgate/internal/passwordless/handler/mocks"
	"escrowgate/internal/ratelimit/models"
	dErrors "escrowgate/pkg/domain-errors"
	"escrowgate/pkg/requestcontext"
	"escrowgate/pkg/testutil"
)

const link = "https://dashboard.example.com/auth/email-action?mode=signIn&oobCode=a.b.c"

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	limiter *mocks.MockLimiter
	router  http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.limiter = mocks.NewMockLimiter(s.ctrl)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	h := New(s.service, s.limiter, emailstore.NewCookie(false), logger,
		WithFlowOptions(flow.WithVerifyTimeout(time.Second)))
	r := chi.NewRouter()
	h.Register(r)
	s.router = r
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) do(req *http.Request) *httptest.ResponseRecorder {
	ctx := requestcontext.WithFingerprint(req.Context(), testutil.FingerprintA)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req.WithContext(ctx))
	return rec
}

func (s *HandlerSuite) post(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

func (s *HandlerSuite) cookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == emailstore.CookieName {
			return c
		}
	}
	return nil
}

func (s *HandlerSuite) allowSignIn() {
	s.limiter.EXPECT().Status(gomock.Any(), testutil.FingerprintA, FailureEndpoint).
		Return(&models.Result{Allowed: true, Matched: true, Limit: 5, Remaining: 5}, nil)
}

func lockedOut() *models.Result {
	return &models.Result{
		Allowed:    false,
		Matched:    true,
		Limit:      5,
		Reset:      testutil.Epoch.Add(30 * time.Minute),
		RetryAfter: 1800,
		Blocked:    true,
		Reason:     models.ReasonFailedAttempts,
	}
}

func decodeView(s *HandlerSuite, rec *httptest.ResponseRecorder) map[string]any {
	var v map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func (s *HandlerSuite) TestSendLink() {
	s.Run("sends and remembers the email", func() {
		s.service.EXPECT().SendPasswordlessLink(gomock.Any(), "user@example.com").Return(nil)
		s.service.EXPECT().LinkTTL().Return(time.Hour)

		rec := s.post("/api/auth/passwordless/send", `{"email":" user@example.com "}`)
		s.Equal(http.StatusOK, rec.Code)
		s.JSONEq(`{"sent":true,"expires_in":3600}`, rec.Body.String())
		s.Require().NotNil(s.cookie(rec))
		s.Equal(3600, s.cookie(rec).MaxAge)
	})

	s.Run("invalid email is rejected before sending", func() {
		rec := s.post("/api/auth/passwordless/send", `{"email":"not-an-email"}`)
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Contains(rec.Body.String(), flow.MsgInvalidEmail)
	})

	s.Run("delivery failure", func() {
		s.service.EXPECT().SendPasswordlessLink(gomock.Any(), "user@example.com").
			Return(dErrors.New(dErrors.CodeUnavailable, "Unable to send the sign-in link. Please try again later."))

		rec := s.post("/api/auth/passwordless/send", `{"email":"user@example.com"}`)
		s.Equal(http.StatusServiceUnavailable, rec.Code)
		s.Nil(s.cookie(rec))
	})
}

func (s *HandlerSuite) TestVerifyEmail() {
	s.Run("success clears failed attempts and the cookie", func() {
		s.allowSignIn()
		s.service.EXPECT().VerifyPasswordlessLink(gomock.Any(), "user@example.com", link).Return(nil)
		s.limiter.EXPECT().ClearFailures(gomock.Any(), testutil.FingerprintA, FailureEndpoint).Return(nil)

		rec := s.post("/api/auth/verify-email", `{"email":"user@example.com","url":"`+link+`"}`)
		s.Equal(http.StatusOK, rec.Code)
		s.JSONEq(`{"verified":true}`, rec.Body.String())
		s.Require().NotNil(s.cookie(rec))
		s.Negative(s.cookie(rec).MaxAge)
	})

	s.Run("failure is tracked and reported", func() {
		s.allowSignIn()
		s.service.EXPECT().VerifyPasswordlessLink(gomock.Any(), "user@example.com", link).
			Return(dErrors.New(dErrors.CodeExpiredLink, "The sign-in link has expired"))
		s.limiter.EXPECT().TrackFailedAttempt(gomock.Any(), testutil.FingerprintA, FailureEndpoint).
			Return(&models.Result{Allowed: true, Matched: true}, nil)

		rec := s.post("/api/auth/verify-email", `{"email":"user@example.com","url":"`+link+`"}`)
		s.Equal(http.StatusUnauthorized, rec.Code)
		s.JSONEq(`{"error":"expired_link","error_description":"The sign-in link has expired"}`, rec.Body.String())
	})

	s.Run("failure that trips the lockout returns 429", func() {
		s.allowSignIn()
		s.service.EXPECT().VerifyPasswordlessLink(gomock.Any(), "user@example.com", link).
			Return(dErrors.New(dErrors.CodeInvalidLink, "Invalid sign-in link"))
		s.limiter.EXPECT().TrackFailedAttempt(gomock.Any(), testutil.FingerprintA, FailureEndpoint).
			Return(lockedOut(), nil)

		rec := s.post("/api/auth/verify-email", `{"email":"user@example.com","url":"`+link+`"}`)
		s.Equal(http.StatusTooManyRequests, rec.Code)
		s.Equal("1800", rec.Header().Get("Retry-After"))
		s.Contains(rec.Body.String(), `"too_many_failed_attempts"`)
	})

	s.Run("locked out caller is refused without verifying", func() {
		s.limiter.EXPECT().Status(gomock.Any(), testutil.FingerprintA, FailureEndpoint).Return(lockedOut(), nil)

		rec := s.post("/api/auth/verify-email", `{"email":"user@example.com","url":"`+link+`"}`)
		s.Equal(http.StatusTooManyRequests, rec.Code)
		s.Equal("1800", rec.Header().Get("Retry-After"))
		s.Contains(rec.Body.String(), `"too_many_failed_attempts"`)
		s.Nil(s.cookie(rec), "the email cookie is kept")
	})

	s.Run("lockout lookup failure fails closed", func() {
		s.limiter.EXPECT().Status(gomock.Any(), testutil.FingerprintA, FailureEndpoint).
			Return(nil, dErrors.New(dErrors.CodeUnavailable, "rate limit store unavailable"))

		rec := s.post("/api/auth/verify-email", `{"email":"user@example.com","url":"`+link+`"}`)
		s.Equal(http.StatusServiceUnavailable, rec.Code)
	})

	s.Run("limiter outage does not mask the verification error", func() {
		s.allowSignIn()
		s.service.EXPECT().VerifyPasswordlessLink(gomock.Any(), "user@example.com", link).
			Return(dErrors.New(dErrors.CodeInvalidLink, "Invalid sign-in link"))
		s.limiter.EXPECT().TrackFailedAttempt(gomock.Any(), testutil.FingerprintA, FailureEndpoint).
			Return(nil, errors.New("store down"))

		rec := s.post("/api/auth/verify-email", `{"email":"user@example.com","url":"`+link+`"}`)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("missing url", func() {
		rec := s.post("/api/auth/verify-email", `{"email":"user@example.com"}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestEmailActionSameDevice() {
	s.service.EXPECT().IsSignInWithEmailLink(link).Return(true)
	s.allowSignIn()
	s.service.EXPECT().VerifyPasswordlessLink(gomock.Any(), "user@example.com", link).Return(nil)
	s.limiter.EXPECT().ClearFailures(gomock.Any(), testutil.FingerprintA, FailureEndpoint).Return(nil)

	req := httptest.NewRequest(http.MethodGet, link, nil)
	req.AddCookie(&http.Cookie{Name: emailstore.CookieName, Value: "user%40example.com"})
	rec := s.do(req)

	s.Equal(http.StatusOK, rec.Code)
	view := decodeView(s, rec)
	s.Equal("success", view["state"])
	s.Require().NotNil(s.cookie(rec))
}

func (s *HandlerSuite) TestEmailActionCrossDeviceAsksForEmail() {
	s.service.EXPECT().IsSignInWithEmailLink(link).Return(true)

	rec := s.do(httptest.NewRequest(http.MethodGet, link, nil))
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("needEmail", decodeView(s, rec)["state"])
}

func (s *HandlerSuite) TestEmailActionInvalidLink() {
	s.service.EXPECT().IsSignInWithEmailLink("https://dashboard.example.com/auth/email-action").Return(false)

	req := httptest.NewRequest(http.MethodGet, "/auth/email-action", nil)
	req.Host = "dashboard.example.com"
	req.Header.Set("X-Forwarded-Proto", "https")
	rec := s.do(req)

	view := decodeView(s, rec)
	s.Equal("error", view["state"])
	s.Equal("invalid-link", view["error_kind"])
	s.Equal("request_new_link", view["next_action"])
}

func (s *HandlerSuite) TestSubmitEmail() {
	s.Run("invalid email stays on the form", func() {
		s.service.EXPECT().IsSignInWithEmailLink(link).Return(true)

		rec := s.post("/auth/email-action", `{"email":"not-an-email","url":"`+link+`"}`)
		s.Equal(http.StatusOK, rec.Code)
		view := decodeView(s, rec)
		s.Equal("needEmail", view["state"])
		s.Equal(flow.MsgInvalidEmail, view["validation_error"])
	})

	s.Run("expired link shows the expired variant", func() {
		s.service.EXPECT().IsSignInWithEmailLink(link).Return(true)
		s.allowSignIn()
		s.service.EXPECT().VerifyPasswordlessLink(gomock.Any(), "user@example.com", link).
			Return(errors.New("Link has expired"))
		s.limiter.EXPECT().TrackFailedAttempt(gomock.Any(), testutil.FingerprintA, FailureEndpoint).
			Return(&models.Result{Allowed: true, Matched: true}, nil)

		rec := s.post("/auth/email-action", `{"email":"user@example.com","url":"`+link+`"}`)
		view := decodeView(s, rec)
		s.Equal("error", view["state"])
		s.Equal("Link Expired", view["title"])
		s.Equal("This sign-in link has expired for your security.", view["message"])
	})
}

func (s *HandlerSuite) TestEmailActionWhileLockedOut() {
	s.service.EXPECT().IsSignInWithEmailLink(link).Return(true)
	s.limiter.EXPECT().Status(gomock.Any(), testutil.FingerprintA, FailureEndpoint).Return(lockedOut(), nil)

	req := httptest.NewRequest(http.MethodGet, link, nil)
	req.AddCookie(&http.Cookie{Name: emailstore.CookieName, Value: "user%40example.com"})
	rec := s.do(req)

	s.Equal(http.StatusOK, rec.Code)
	view := decodeView(s, rec)
	s.Equal("error", view["state"])
	s.Equal(MsgLockedOut, view["message"])
	s.Nil(s.cookie(rec), "the email cookie is kept for a later attempt")
}

func TestCurrentURL(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/auth/email-action?mode=signIn&oobCode=x", nil)
	req.Host = "dash.example.com"
	if got := currentURL(req); got != "http://dash.example.com/auth/email-action?mode=signIn&oobCode=x" {
		t.Fatalf("unexpected url %q", got)
	}
	req.Header.Set("X-Forwarded-Proto", "https")
	if got := currentURL(req); got != "https://dash.example.com/auth/email-action?mode=signIn&oobCode=x" {
		t.Fatalf("unexpected url %q", got)
	}
}
