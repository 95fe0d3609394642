// Package client talks to the escrowgate passwordless API so a terminal can
// drive the same sign-in flow as the browser.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"escrowgate/internal/passwordless/link"
)

const (
	sendPath   = "/api/auth/passwordless/send"
	verifyPath = "/api/auth/verify-email"
)

// APIError is a non-2xx response. Error returns the server's user-facing
// message so it can be shown as is.
type APIError struct {
	Status     int
	Code       string
	Message    string
	RetryAfter int
}

func (e *APIError) Error() string {
	return e.Message
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

type Client struct {
	baseURL string
	http    *http.Client

	mu      sync.Mutex
	linkTTL time.Duration
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsSignInWithEmailLink only checks the link shape; the server verifies it.
func (c *Client) IsSignInWithEmailLink(url string) bool {
	return link.IsSignInLink(url)
}

type sendResponse struct {
	Sent             bool  `json:"sent"`
	ExpiresInSeconds int64 `json:"expires_in"`
}

// SendPasswordlessLink asks the server to mail a link and remembers the
// lifetime the server reports for it.
func (c *Client) SendPasswordlessLink(ctx context.Context, email string) error {
	var out sendResponse
	if err := c.post(ctx, sendPath, map[string]string{"email": email}, &out); err != nil {
		return err
	}
	if out.ExpiresInSeconds > 0 {
		c.mu.Lock()
		c.linkTTL = time.Duration(out.ExpiresInSeconds) * time.Second
		c.mu.Unlock()
	}
	return nil
}

// LinkTTL is the lifetime of the last link sent, or link.DefaultTTL when
// the server did not report one.
func (c *Client) LinkTTL() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.linkTTL > 0 {
		return c.linkTTL
	}
	return link.DefaultTTL
}

func (c *Client) VerifyPasswordlessLink(ctx context.Context, email, url string) error {
	return c.post(ctx, verifyPath, map[string]string{"email": email, "url": url}, nil)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out != nil {
			if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(out); err != nil {
				return fmt.Errorf("decode %s response: %w", path, err)
			}
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return decodeError(resp)
}

type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"message"`
	RetryAfter       int    `json:"retryAfter"`
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body errorBody
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&body); err == nil {
		apiErr.Code = body.Error
		apiErr.RetryAfter = body.RetryAfter
		switch {
		case body.ErrorDescription != "":
			apiErr.Message = body.ErrorDescription
		case body.Message != "":
			apiErr.Message = body.Message
		default:
			apiErr.Message = body.Error
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
