package ratelimit

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers rate-limiting step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^I make (\d+) requests to "([^"]*)"$`, steps.makeNRequests)
	ctx.Step(`^I make a request to "([^"]*)"$`, steps.makeRequest)
	ctx.Step(`^none of the requests should be rate limited$`, steps.noneRateLimited)
	ctx.Step(`^I have exhausted the rate limit on "([^"]*)"$`, steps.haveExhaustedRateLimitOn)

	ctx.Step(`^I verify a forged sign-in link for "([^"]*)" (\d+) times$`, steps.verifyForgedLinkNTimes)
	ctx.Step(`^the verification statuses should be "([^"]*)"$`, steps.verificationStatusesShouldBe)
}

type ratelimitSteps struct {
	tc             TestContext
	requestResults []int
}

func (s *ratelimitSteps) makeNRequests(ctx context.Context, count int, path string) error {
	s.requestResults = make([]int, 0, count)
	for range count {
		if err := s.tc.POST(path, map[string]any{}); err != nil {
			return err
		}
		s.requestResults = append(s.requestResults, s.tc.GetLastResponseStatus())
	}
	return nil
}

func (s *ratelimitSteps) makeRequest(ctx context.Context, path string) error {
	return s.tc.POST(path, map[string]any{})
}

func (s *ratelimitSteps) noneRateLimited(ctx context.Context) error {
	for i, status := range s.requestResults {
		if status == http.StatusTooManyRequests {
			return fmt.Errorf("request %d was rate limited", i+1)
		}
	}
	return nil
}

// haveExhaustedRateLimitOn sends requests until the gateway answers 429.
func (s *ratelimitSteps) haveExhaustedRateLimitOn(ctx context.Context, path string) error {
	for range 100 {
		if err := s.tc.POST(path, map[string]any{}); err != nil {
			return err
		}
		if s.tc.GetLastResponseStatus() == http.StatusTooManyRequests {
			return nil
		}
	}
	return fmt.Errorf("%s was never rate limited", path)
}

func (s *ratelimitSteps) verifyForgedLinkNTimes(ctx context.Context, email string, times int) error {
	body := map[string]string{
		"email": email,
		"url":   "http://app.escrowgate.test/auth/email-action?mode=signIn&oobCode=forged.token.value",
	}
	s.requestResults = make([]int, 0, times)
	for range times {
		if err := s.tc.POST("/api/auth/verify-email", body); err != nil {
			return err
		}
		s.requestResults = append(s.requestResults, s.tc.GetLastResponseStatus())
	}
	return nil
}

func (s *ratelimitSteps) verificationStatusesShouldBe(ctx context.Context, expected string) error {
	actual := fmt.Sprint(s.requestResults)
	if actual != "["+expected+"]" {
		return fmt.Errorf("expected statuses [%s] but got %s", expected, actual)
	}
	return nil
}
