package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"escrowgate/internal/passwordless/link"
)

func newServer(t *testing.T, status int, response string, seen *map[string]string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
			(*seen)["path"] = r.URL.Path
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL + "/")
}

func TestSendPasswordlessLink(t *testing.T) {
	seen := map[string]string{}
	c := newServer(t, http.StatusOK, `{"sent":true,"expires_in":3600}`, &seen)

	require.NoError(t, c.SendPasswordlessLink(context.Background(), "user@example.com"))
	assert.Equal(t, "/api/auth/passwordless/send", seen["path"])
	assert.Equal(t, "user@example.com", seen["email"])
	assert.Equal(t, time.Hour, c.LinkTTL())
}

func TestLinkTTLFollowsServer(t *testing.T) {
	c := newServer(t, http.StatusOK, `{"sent":true,"expires_in":900}`, nil)
	assert.Equal(t, link.DefaultTTL, c.LinkTTL(), "nothing sent yet")

	require.NoError(t, c.SendPasswordlessLink(context.Background(), "user@example.com"))
	assert.Equal(t, 15*time.Minute, c.LinkTTL())
}

func TestVerifyPasswordlessLinkSurfacesServerMessage(t *testing.T) {
	seen := map[string]string{}
	c := newServer(t, http.StatusUnauthorized,
		`{"error":"expired_link","error_description":"The sign-in link has expired"}`, &seen)

	err := c.VerifyPasswordlessLink(context.Background(), "user@example.com", "https://x/?mode=signIn&oobCode=a.b.c")
	require.Error(t, err)
	assert.Equal(t, "The sign-in link has expired", err.Error())
	assert.Equal(t, "/api/auth/verify-email", seen["path"])
	assert.Equal(t, "https://x/?mode=signIn&oobCode=a.b.c", seen["url"])

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "expired_link", apiErr.Code)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestRateLimitedResponse(t *testing.T) {
	c := newServer(t, http.StatusTooManyRequests,
		`{"error":"too_many_failed_attempts","message":"Too many failed sign-in attempts. Please wait before trying again.","retryAfter":1800,"blocked":true}`, nil)

	err := c.VerifyPasswordlessLink(context.Background(), "user@example.com", "https://x/")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 1800, apiErr.RetryAfter)
	assert.Contains(t, apiErr.Message, "Too many failed sign-in attempts")
}

func TestNonJSONErrorFallsBackToStatusText(t *testing.T) {
	c := newServer(t, http.StatusBadGateway, `<html>bad gateway</html>`, nil)
	err := c.SendPasswordlessLink(context.Background(), "user@example.com")
	assert.EqualError(t, err, "Bad Gateway")
}

func TestIsSignInWithEmailLink(t *testing.T) {
	c := New("http://localhost")
	assert.True(t, c.IsSignInWithEmailLink("https://x/auth/email-action?mode=signIn&oobCode=a.b.c"))
	assert.False(t, c.IsSignInWithEmailLink("https://x/auth/email-action"))
}
