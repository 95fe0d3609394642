package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"escrowgate/internal/passwordless/emailstore"
	pwhandler "escrowgate/internal/passwordless/handler"
	"escrowgate/internal/passwordless/link"
	pwservice "escrowgate/internal/passwordless/service"
	"escrowgate/internal/platform/health"
	rlconfig "escrowgate/internal/ratelimit/config"
	rlmetrics "escrowgate/internal/ratelimit/metrics"
	rlmiddleware "escrowgate/internal/ratelimit/middleware"
	"escrowgate/internal/ratelimit/service"
	"escrowgate/internal/ratelimit/store/memory"
	httptransport "escrowgate/internal/transport/http"
	request "escrowgate/pkg/platform/middleware/request"
	"escrowgate/pkg/requestcontext"
)

const (
	signingKey  = "e2e-signing-key"
	continueURL = "http://app.escrowgate.test/auth/email-action"
	userAgent   = "Mozilla/5.0 (X11; Linux x86_64) Firefox/128.0"
)

// outbox captures sign-in links instead of mailing them.
type outbox struct {
	mu    sync.Mutex
	links map[string]string
}

func (o *outbox) SendSignInLink(_ context.Context, email, link string, _ time.Duration) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.links[email] = link
	return nil
}

func (o *outbox) linkFor(email string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.links[email]
}

// TestContext holds state between test steps. Each scenario gets its own
// in-process gateway with empty rate limit records.
type TestContext struct {
	BaseURL          string
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte
	ClientIP         string
	LastLink         string

	server *httptest.Server
	links  *link.Service
	outbox *outbox
}

// NewTestContext starts a gateway for one scenario.
func NewTestContext() (*TestContext, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if os.Getenv("E2E_VERBOSE") != "" {
		logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	reg := prometheus.NewRegistry()

	limiter, err := service.New(memory.New(), rlconfig.MustDefault(),
		service.WithLogger(logger),
		service.WithMetrics(rlmetrics.NewWith(reg)),
	)
	if err != nil {
		return nil, err
	}
	links, err := link.New(signingKey, continueURL)
	if err != nil {
		return nil, err
	}
	box := &outbox{links: map[string]string{}}
	pw := pwservice.New(links, box, pwservice.WithLogger(logger))

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         logger,
		RateLimit:      rlmiddleware.New(limiter, logger),
		Passwordless:   pwhandler.New(pw, limiter, emailstore.NewCookie(false), logger),
		Health:         health.New("e2e"),
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		RequestMetrics: request.NewMetricsWith(reg),
	})

	tc := &TestContext{
		ClientIP: "198.51.100.1",
		server:   httptest.NewServer(router),
		links:    links,
		outbox:   box,
	}
	tc.BaseURL = tc.server.URL
	if err := tc.NewDevice(); err != nil {
		tc.Close()
		return nil, err
	}
	return tc, nil
}

func (tc *TestContext) Close() {
	if tc.server != nil {
		tc.server.Close()
	}
}

// NewDevice drops every cookie, as if the next request came from another
// browser.
func (tc *TestContext) NewDevice() error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	tc.HTTPClient = &http.Client{
		Timeout: 10 * time.Second,
		Jar:     jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return nil
}

func (tc *TestContext) SetClientIP(ip string) {
	tc.ClientIP = ip
}

// POST makes a POST request and stores the response
func (tc *TestContext) POST(path string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	return tc.do(http.MethodPost, path, bytes.NewReader(data))
}

// GET makes a GET request and stores the response
func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

func (tc *TestContext) do(method, path string, body io.Reader) error {
	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Forwarded-For", tc.ClientIP)

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// GetResponseField extracts a field from the JSON response
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var data map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	value, ok := data[field]
	if !ok {
		return nil, fmt.Errorf("field %s not found in response", field)
	}
	return value, nil
}

// ResponseContains checks if the response body contains a field or text
func (tc *TestContext) ResponseContains(text string) bool {
	if strings.Contains(string(tc.LastResponseBody), text) {
		return true
	}
	var data map[string]any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err == nil {
		if _, ok := data[text]; ok {
			return true
		}
	}
	return false
}

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}

func (tc *TestContext) GetLastResponseHeader(name string) string {
	if tc.LastResponse == nil {
		return ""
	}
	return tc.LastResponse.Header.Get(name)
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.LastResponseBody
}

// MailedLink returns the last sign-in link sent to email.
func (tc *TestContext) MailedLink(email string) (string, error) {
	l := tc.outbox.linkFor(email)
	if l == "" {
		return "", fmt.Errorf("no sign-in link was sent to %s", email)
	}
	tc.LastLink = l
	return l, nil
}

// IssueLinkAt mints a link as if it had been requested at issuedAt.
func (tc *TestContext) IssueLinkAt(email string, issuedAt time.Time) (string, error) {
	l, err := tc.links.Issue(requestcontext.WithTime(context.Background(), issuedAt), email)
	if err != nil {
		return "", err
	}
	tc.LastLink = l
	return l, nil
}

func (tc *TestContext) GetLastLink() string {
	return tc.LastLink
}

// LinkPath maps a mailed link onto the gateway under test, keeping its
// query string.
func (tc *TestContext) LinkPath(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	return u.Path + "?" + u.RawQuery, nil
}
