// Package service issues, delivers and verifies passwordless sign-in links.
package service

import (
	"context"
	"log/slog"
	"time"

	dErrors "escrowgate/pkg/domain-errors"
	"escrowgate/pkg/platform/audit"
	"escrowgate/pkg/platform/privacy"
	"escrowgate/pkg/requestcontext"
)

type Links interface {
	Issue(ctx context.Context, email string) (string, error)
	IsSignInWithEmailLink(url string) bool
	VerifyPasswordlessLink(ctx context.Context, email, url string) error
	TTL() time.Duration
}

type Mailer interface {
	SendSignInLink(ctx context.Context, email, link string, ttl time.Duration) error
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithAuditLogger(a *audit.Logger) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

type Service struct {
	links   Links
	mailer  Mailer
	logger  *slog.Logger
	auditor *audit.Logger
}

func New(links Links, mailer Mailer, opts ...Option) *Service {
	s := &Service{
		links:  links,
		mailer: mailer,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) LinkTTL() time.Duration {
	return s.links.TTL()
}

func (s *Service) IsSignInWithEmailLink(url string) bool {
	return s.links.IsSignInWithEmailLink(url)
}

// SendPasswordlessLink issues a link for email and mails it.
func (s *Service) SendPasswordlessLink(ctx context.Context, email string) error {
	link, err := s.links.Issue(ctx, email)
	if err != nil {
		return err
	}
	if err := s.mailer.SendSignInLink(ctx, email, link, s.links.TTL()); err != nil {
		s.logger.ErrorContext(ctx, "sign-in link delivery failed",
			"error", err,
			"recipient", privacy.MaskEmail(email),
			"request_id", requestcontext.RequestID(ctx),
		)
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "Unable to send the sign-in link. Please try again later.")
	}
	s.auditor.Log(ctx, audit.ActionSignInLinkSent, "subject", privacy.MaskEmail(email))
	return nil
}

// VerifyPasswordlessLink consumes the link for email. Failures keep the
// user-facing message of the link verifier.
func (s *Service) VerifyPasswordlessLink(ctx context.Context, email, url string) error {
	if err := s.links.VerifyPasswordlessLink(ctx, email, url); err != nil {
		s.auditor.Log(ctx, audit.ActionSignInFailed,
			"subject", privacy.MaskEmail(email),
			"reason", string(dErrors.CodeOf(err)),
		)
		return err
	}
	s.auditor.Log(ctx, audit.ActionSignInSucceeded, "subject", privacy.MaskEmail(email))
	return nil
}
