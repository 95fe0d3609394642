package passwordless

import (
	"context"
	"time"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	MailedLink(email string) (string, error)
	IssueLinkAt(email string, issuedAt time.Time) (string, error)
	GetLastLink() string
	LinkPath(raw string) (string, error)
}

// RegisterSteps registers sign-in link step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &passwordlessSteps{tc: tc}

	ctx.Step(`^I request a sign-in link for "([^"]*)"$`, steps.requestLink)
	ctx.Step(`^a sign-in link was mailed to "([^"]*)"$`, steps.linkWasMailed)
	ctx.Step(`^a sign-in link for "([^"]*)" was issued (\d+) hours ago$`, steps.linkIssuedHoursAgo)
	ctx.Step(`^I open the sign-in link$`, steps.openLink)
	ctx.Step(`^I open "([^"]*)" as a sign-in link$`, steps.openRawLink)
	ctx.Step(`^I enter "([^"]*)" as my email$`, steps.enterEmail)
	ctx.Step(`^I verify the sign-in link with email "([^"]*)"$`, steps.verifyWithEmail)
}

type passwordlessSteps struct {
	tc TestContext
}

func (s *passwordlessSteps) requestLink(ctx context.Context, email string) error {
	return s.tc.POST("/api/auth/passwordless/send", map[string]string{"email": email})
}

func (s *passwordlessSteps) linkWasMailed(ctx context.Context, email string) error {
	_, err := s.tc.MailedLink(email)
	return err
}

func (s *passwordlessSteps) linkIssuedHoursAgo(ctx context.Context, email string, hours int) error {
	_, err := s.tc.IssueLinkAt(email, time.Now().Add(-time.Duration(hours)*time.Hour))
	return err
}

func (s *passwordlessSteps) openLink(ctx context.Context) error {
	path, err := s.tc.LinkPath(s.tc.GetLastLink())
	if err != nil {
		return err
	}
	return s.tc.GET(path)
}

func (s *passwordlessSteps) openRawLink(ctx context.Context, path string) error {
	return s.tc.GET(path)
}

func (s *passwordlessSteps) enterEmail(ctx context.Context, email string) error {
	return s.tc.POST("/auth/email-action", map[string]string{
		"email": email,
		"url":   s.tc.GetLastLink(),
	})
}

func (s *passwordlessSteps) verifyWithEmail(ctx context.Context, email string) error {
	return s.tc.POST("/api/auth/verify-email", map[string]string{
		"email": email,
		"url":   s.tc.GetLastLink(),
	})
}
