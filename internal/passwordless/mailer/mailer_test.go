package mailer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "gopkg.in/mail.v2"

	"escrowgate/internal/platform/config"
)

type captureDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *captureDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func newTestMailer(t *testing.T, d Dialer) *SMTPMailer {
	t.Helper()
	m, err := NewSMTP(config.Mail{Host: "smtp.example.com", Port: 587, From: "no-reply@example.com"},
		WithDialer(d),
		WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
	)
	require.NoError(t, err)
	return m
}

func TestSendSignInLink(t *testing.T) {
	d := &captureDialer{}
	m := newTestMailer(t, d)
	link := "https://dashboard.example.com/auth/email-action?mode=signIn&oobCode=a.b.c"

	require.NoError(t, m.SendSignInLink(context.Background(), "user@example.com", link, time.Hour))
	require.Len(t, d.sent, 1)

	msg := d.sent[0]
	assert.Equal(t, []string{"no-reply@example.com"}, msg.GetHeader("From"))
	assert.Equal(t, []string{"user@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Your sign-in link for the Escrow Dashboard"}, msg.GetHeader("Subject"))

	_, body, err := render("user@example.com", link, time.Hour)
	require.NoError(t, err)
	assert.Contains(t, body, "expires in 1h0m0s")
}

func TestSendSignInLinkPropagatesDialErrors(t *testing.T) {
	m := newTestMailer(t, &captureDialer{err: errors.New("connection refused")})
	err := m.SendSignInLink(context.Background(), "user@example.com", "https://x/?mode=signIn", time.Hour)
	assert.EqualError(t, err, "connection refused")
}

func TestSendSignInLinkHonorsCancelledContext(t *testing.T) {
	d := &captureDialer{}
	m := newTestMailer(t, d)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, m.SendSignInLink(ctx, "user@example.com", "https://x/", time.Hour), context.Canceled)
	assert.Empty(t, d.sent)
}

func TestRenderEscapesEmail(t *testing.T) {
	_, body, err := render(`<script>@example.com`, "https://x/?mode=signIn&oobCode=a.b.c", time.Minute)
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, `href="https://x/?mode=signIn&amp;oobCode=a.b.c"`)
}

func TestNewSMTPRequiresHostAndFrom(t *testing.T) {
	_, err := NewSMTP(config.Mail{From: "a@b.c"})
	assert.Error(t, err)
	_, err = NewSMTP(config.Mail{Host: "smtp"})
	assert.Error(t, err)
}

func TestLogMailer(t *testing.T) {
	buf := &bytes.Buffer{}
	m := NewLogMailer(slog.New(slog.NewTextHandler(buf, nil)))
	require.NoError(t, m.SendSignInLink(context.Background(), "alice@example.com", "https://x/link", time.Hour))
	assert.Contains(t, buf.String(), "a***@example.com")
	assert.NotContains(t, buf.String(), "alice@")
}
