// Package flow drives one passwordless sign-in attempt through
// loading → needEmail | verifying → success | error.
package flow

//go:generate mockgen -source=flow.go -destination=mocks/flow_mock.go -package=mocks LinkChecker,EmailStore,Verifier,Sender

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dErrors "escrowgate/pkg/domain-errors"
	"escrowgate/pkg/requestcontext"
)

// DefaultVerifyTimeout bounds the verification call.
const DefaultVerifyTimeout = 15 * time.Second

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// LinkChecker tells sign-in links apart from other URLs.
type LinkChecker interface {
	IsSignInWithEmailLink(url string) bool
}

// EmailStore holds the email saved on the device that requested the link.
type EmailStore interface {
	EmailForSignIn(ctx context.Context) (string, bool)
}

// Verifier completes sign-in. The error message is shown to the user.
type Verifier interface {
	VerifyPasswordlessLink(ctx context.Context, email, url string) error
}

// Sender delivers a new sign-in link.
type Sender interface {
	SendPasswordlessLink(ctx context.Context, email string) error
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, email, url string) error

func (f VerifierFunc) VerifyPasswordlessLink(ctx context.Context, email, url string) error {
	return f(ctx, email, url)
}

// View is a snapshot of the flow for rendering.
type View struct {
	State           State      `json:"state"`
	Email           string     `json:"email,omitempty"`
	Title           string     `json:"title,omitempty"`
	Message         string     `json:"message,omitempty"`
	ErrorKind       ErrorKind  `json:"error_kind,omitempty"`
	Detail          string     `json:"detail,omitempty"`
	ValidationError string     `json:"validation_error,omitempty"`
	NextAction      NextAction `json:"next_action,omitempty"`
}

type Option func(*Flow)

func WithLogger(logger *slog.Logger) Option {
	return func(f *Flow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

func WithVerifyTimeout(d time.Duration) Option {
	return func(f *Flow) {
		if d > 0 {
			f.timeout = d
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(f *Flow) {
		f.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(f *Flow) {
		if t != nil {
			f.tracer = t
		}
	}
}

// Flow is one sign-in attempt. It is safe for concurrent use; a submission
// made while verification is running is refused rather than queued.
type Flow struct {
	links    LinkChecker
	emails   EmailStore
	verifier Verifier
	logger   *slog.Logger
	metrics  *Metrics
	tracer   trace.Tracer
	timeout  time.Duration

	mu            sync.Mutex
	state         State
	history       []State
	url           string
	email         string
	validationErr string
	errKind       ErrorKind
	errDetail     string
}

func New(links LinkChecker, emails EmailStore, verifier Verifier, opts ...Option) *Flow {
	f := &Flow{
		links:    links,
		emails:   emails,
		verifier: verifier,
		logger:   slog.Default(),
		tracer:   otel.Tracer("escrowgate/passwordless"),
		timeout:  DefaultVerifyTimeout,
		state:    StateLoading,
		history:  []State{StateLoading},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Start checks url and either fails, asks for an email, or verifies with
// the stored email.
func (f *Flow) Start(ctx context.Context, url string) (View, error) {
	f.mu.Lock()
	if f.state != StateLoading {
		v := f.viewLocked()
		f.mu.Unlock()
		return v, ErrAlreadyStarted
	}
	f.url = url

	if !f.links.IsSignInWithEmailLink(url) {
		f.failLocked(ctx, ErrorInvalidLink, MsgInvalidLink)
		v := f.viewLocked()
		f.mu.Unlock()
		return v, nil
	}

	email, ok := f.emails.EmailForSignIn(ctx)
	if !ok || strings.TrimSpace(email) == "" {
		f.transitionLocked(ctx, StateNeedEmail)
		v := f.viewLocked()
		f.mu.Unlock()
		return v, nil
	}

	f.email = strings.TrimSpace(email)
	f.transitionLocked(ctx, StateVerifying)
	f.mu.Unlock()

	return f.verify(ctx), nil
}

// SubmitEmail is the cross-device path: the user types the email the link
// was sent to. An invalid address leaves the flow in needEmail.
func (f *Flow) SubmitEmail(ctx context.Context, email string) (View, error) {
	f.mu.Lock()
	if err := f.guardSubmitLocked(); err != nil {
		v := f.viewLocked()
		f.mu.Unlock()
		return v, err
	}

	email = strings.TrimSpace(email)
	if !ValidEmail(email) {
		f.validationErr = MsgInvalidEmail
		v := f.viewLocked()
		f.mu.Unlock()
		return v, nil
	}

	f.validationErr = ""
	f.email = email
	f.transitionLocked(ctx, StateVerifying)
	f.mu.Unlock()

	return f.verify(ctx), nil
}

func (f *Flow) guardSubmitLocked() error {
	switch f.state {
	case StateNeedEmail:
		return nil
	case StateLoading:
		return ErrNotStarted
	case StateVerifying:
		return ErrVerificationInProgress
	case StateSuccess, StateError:
		return ErrFlowFinished
	default:
		return ErrEmailNotExpected
	}
}

func (f *Flow) verify(ctx context.Context) View {
	f.mu.Lock()
	email, url := f.email, f.url
	f.mu.Unlock()

	vctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	vctx, span := f.tracer.Start(vctx, "passwordless.verify")
	defer span.End()

	start := time.Now()
	err := f.verifier.VerifyPasswordlessLink(vctx, email, url)
	f.metrics.observeVerify(err == nil, time.Since(start))

	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		span.SetAttributes(attribute.String("outcome", "success"))
		f.transitionLocked(ctx, StateSuccess)
		return f.viewLocked()
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "verification failed")
	msg := failureMessage(err)
	f.failLocked(ctx, ClassifyError(msg), msg)
	return f.viewLocked()
}

func failureMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return MsgVerifyTimedOut
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return MsgGenericFailure
}

func (f *Flow) failLocked(ctx context.Context, kind ErrorKind, detail string) {
	f.errKind = kind
	f.errDetail = detail
	f.transitionLocked(ctx, StateError)
	f.logger.InfoContext(ctx, "passwordless sign-in failed",
		"error_kind", kind.String(),
		"detail", detail,
		"request_id", requestcontext.RequestID(ctx),
	)
}

func (f *Flow) transitionLocked(ctx context.Context, next State) {
	f.logger.DebugContext(ctx, "passwordless flow transition",
		"from", f.state.String(),
		"to", next.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	f.state = next
	f.history = append(f.history, next)
	f.metrics.observeTransition(next)
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// History returns every state visited so far, in order.
func (f *Flow) History() []State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]State(nil), f.history...)
}

// View returns the current snapshot.
func (f *Flow) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.viewLocked()
}

func (f *Flow) viewLocked() View {
	v := View{State: f.state, Email: f.email}
	switch f.state {
	case StateLoading:
		v.Title = "Signing you in"
	case StateNeedEmail:
		v.Title = "Confirm your email"
		v.Message = "Please enter the email address you used to request this sign-in link."
		v.ValidationError = f.validationErr
	case StateVerifying:
		v.Title = "Verifying"
		v.Message = "Verifying your sign-in link..."
	case StateSuccess:
		v.Title = "Signed In"
		v.Message = "You have been signed in successfully."
	case StateError:
		v.ErrorKind = f.errKind
		v.Detail = f.errDetail
		v.Title, v.Message, v.NextAction = presentation(f.errKind, f.errDetail)
	}
	return v
}

// ValidEmail applies the sign-in form's email pattern.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// SendLink validates email and asks sender to deliver a link. Sender errors
// are returned unchanged so their message reaches the user.
func SendLink(ctx context.Context, sender Sender, email string) error {
	email = strings.TrimSpace(email)
	if !ValidEmail(email) {
		return dErrors.New(dErrors.CodeValidation, MsgInvalidEmail)
	}
	return sender.SendPasswordlessLink(ctx, email)
}
