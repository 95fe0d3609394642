package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"escrowgate/internal/passwordless/emailstore"
	"escrowgate/internal/passwordless/flow"
	"escrowgate/internal/passwordless/link"
	"escrowgate/internal/platform/config"
	rlconfig "escrowgate/internal/ratelimit/config"
)

type anyLink struct{}

func (anyLink) IsSignInWithEmailLink(url string) bool { return strings.HasPrefix(url, "https://") }

func TestWritePoliciesJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writePolicies(&buf, rlconfig.MustDefault().All(), "json"))

	var rows []policyRow
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.NotEmpty(t, rows)

	byPrefix := make(map[string]policyRow, len(rows))
	for _, r := range rows {
		byPrefix[r.Prefix] = r
	}
	login := byPrefix["/api/auth/login"]
	assert.Equal(t, int64(900), login.WindowSeconds)
	assert.Equal(t, 5, login.Max)
	assert.Equal(t, int64(1800), login.BlockDurationSeconds)
	assert.Equal(t, 3, login.FailureThreshold)
}

func TestWritePoliciesTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writePolicies(&buf, rlconfig.MustDefault().All(), "table"))
	out := buf.String()
	assert.Contains(t, out, "/api/auth/signup")
	assert.Contains(t, out, "24h0m0s")
}

func TestWritePoliciesRejectsUnknownFormat(t *testing.T) {
	err := writePolicies(&bytes.Buffer{}, nil, "yaml")
	assert.EqualError(t, err, "unsupported output format: yaml")
}

func TestCompleteSignInPromptsForEmail(t *testing.T) {
	var got string
	verifier := flow.VerifierFunc(func(_ context.Context, email, _ string) error {
		got = email
		return nil
	})
	f := flow.New(anyLink{}, emailstore.Static(""), verifier)

	in := strings.NewReader("not-an-email\nuser@example.com\n")
	var out bytes.Buffer
	view, err := completeSignIn(context.Background(), f, "https://app.example/auth?oobCode=x", in, &out)

	require.NoError(t, err)
	assert.Equal(t, flow.StateSuccess, view.State)
	assert.Equal(t, "user@example.com", got)
	assert.Contains(t, out.String(), flow.MsgInvalidEmail)
	assert.Contains(t, out.String(), "Signed in as user@example.com.")
}

func TestCompleteSignInUsesStoredEmail(t *testing.T) {
	verifier := flow.VerifierFunc(func(context.Context, string, string) error {
		return errors.New("The sign-in link has expired")
	})
	f := flow.New(anyLink{}, emailstore.Static("user@example.com"), verifier)

	var out bytes.Buffer
	view, err := completeSignIn(context.Background(), f, "https://app.example/auth?oobCode=x", strings.NewReader(""), &out)

	require.NoError(t, err)
	assert.Equal(t, flow.StateError, view.State)
	assert.Equal(t, flow.ErrorExpired, view.ErrorKind)
	assert.Contains(t, out.String(), "Link Expired")
	assert.NotContains(t, out.String(), "Email used to request the link")
}

func TestCompleteSignInCancelledWithoutInput(t *testing.T) {
	f := flow.New(anyLink{}, emailstore.Static(""), flow.VerifierFunc(func(context.Context, string, string) error {
		return nil
	}))

	view, err := completeSignIn(context.Background(), f, "https://app.example/auth?oobCode=x", strings.NewReader(""), &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, flow.StateNeedEmail, view.State)
}

func TestRootCommandTree(t *testing.T) {
	root := NewRootCommand()
	for _, name := range []string{"serve", "policies", "link", "signin"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestIssueLinkJSON(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"link", "--email", " User@Example.com ", "--json"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	var out linkOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "user@example.com", out.Email)
	assert.Equal(t, "1h0m0s", out.ExpiresIn)

	links, err := link.New(cfg.Passwordless.SigningKey, cfg.Passwordless.ContinueURL)
	require.NoError(t, err)
	assert.True(t, links.IsSignInWithEmailLink(out.Link))
	assert.NoError(t, links.VerifyPasswordlessLink(context.Background(), "user@example.com", out.Link))
}
