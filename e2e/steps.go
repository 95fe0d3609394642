package e2e

import (
	"github.com/cucumber/godog"

	"escrowgate/e2e/steps/common"
	"escrowgate/e2e/steps/passwordless"
	"escrowgate/e2e/steps/ratelimit"
)

// RegisterSteps registers all step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	ratelimit.RegisterSteps(ctx, tc)
	passwordless.RegisterSteps(ctx, tc)
}
