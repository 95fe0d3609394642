package audit

import "time"

// Event records a security-relevant action at the auth edge. Subject is an
// anonymized fingerprint or an email address, never a raw IP.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Subject   string    `json:"subject,omitempty"`
	Endpoint  string    `json:"endpoint,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

type Action string

const (
	ActionRateLimited     Action = "rate_limited"
	ActionLockedOut       Action = "locked_out"
	ActionLimitReset      Action = "limit_reset"
	ActionSignInLinkSent  Action = "signin_link_sent"
	ActionSignInSucceeded Action = "signin_succeeded"
	ActionSignInFailed    Action = "signin_failed"
)
