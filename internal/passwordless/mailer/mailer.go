// Package mailer delivers sign-in links by email.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"time"

	gomail "gopkg.in/mail.v2"

	"escrowgate/internal/platform/config"
	"escrowgate/pkg/platform/privacy"
	"escrowgate/pkg/requestcontext"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var signInTemplate = template.Must(template.ParseFS(templateFS, "templates/signin_link.tmpl"))

// Dialer is satisfied by *gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type signInData struct {
	Email     string
	Link      template.URL
	ExpiresIn string
}

// SMTPMailer sends HTML sign-in emails through an SMTP relay.
type SMTPMailer struct {
	dialer Dialer
	from   string
	logger *slog.Logger
}

type Option func(*SMTPMailer)

func WithLogger(logger *slog.Logger) Option {
	return func(m *SMTPMailer) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithDialer replaces the SMTP dialer, for tests.
func WithDialer(d Dialer) Option {
	return func(m *SMTPMailer) {
		if d != nil {
			m.dialer = d
		}
	}
}

func NewSMTP(cfg config.Mail, opts ...Option) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("mail host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("mail from address is required")
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.Timeout = 10 * time.Second
	m := &SMTPMailer{
		dialer: d,
		from:   cfg.From,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *SMTPMailer) SendSignInLink(ctx context.Context, email, link string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject, body, err := render(email, link, ttl)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		m.logger.ErrorContext(ctx, "failed to send sign-in email",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return err
	}
	return nil
}

func render(email, link string, ttl time.Duration) (string, string, error) {
	data := signInData{Email: email, Link: template.URL(link), ExpiresIn: ttl.String()}

	subject := new(bytes.Buffer)
	if err := signInTemplate.ExecuteTemplate(subject, "subject", data); err != nil {
		return "", "", err
	}
	body := new(bytes.Buffer)
	if err := signInTemplate.ExecuteTemplate(body, "body", data); err != nil {
		return "", "", err
	}
	return subject.String(), body.String(), nil
}

// LogMailer writes links to the log instead of sending them. Used in
// development when no SMTP host is configured.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendSignInLink(ctx context.Context, email, link string, ttl time.Duration) error {
	m.logger.InfoContext(ctx, "sign-in link issued",
		"recipient", privacy.MaskEmail(email),
		"link", link,
		"expires_in", ttl.String(),
	)
	return nil
}
