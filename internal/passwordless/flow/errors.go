package flow

import (
	"errors"
	"strings"
)

var (
	ErrNotStarted             = errors.New("sign-in flow has not started")
	ErrAlreadyStarted         = errors.New("sign-in flow already started")
	ErrEmailNotExpected       = errors.New("sign-in flow is not waiting for an email")
	ErrVerificationInProgress = errors.New("verification already in progress")
	ErrFlowFinished           = errors.New("sign-in flow has finished")
)

const (
	MsgInvalidLink     = "Invalid sign-in link"
	MsgGenericFailure  = "An unexpected error occurred during sign-in."
	MsgInvalidEmail    = "Please enter a valid email address."
	MsgVerifyTimedOut  = "Sign-in verification timed out. Please try again."
	MsgLinkExpired     = "This sign-in link has expired for your security."
	MsgLinkInvalid     = "This sign-in link is invalid or has already been used."
	MsgEmailMismatched = "The email address doesn't match the one this link was sent to."
)

// ClassifyError picks the error variant from a verification failure message.
// Matching is by substring and order matters: "expired" wins over the
// others, then the invalid-link wording, then any mention of "email".
func ClassifyError(message string) ErrorKind {
	switch {
	case strings.Contains(message, "expired"):
		return ErrorExpired
	case strings.Contains(message, "Invalid sign-in link"):
		return ErrorInvalidLink
	case strings.Contains(message, "email"):
		return ErrorInvalidEmail
	default:
		return ErrorGeneric
	}
}

// presentation is the title, message and next action for an error variant.
// The generic variant shows the underlying failure message.
func presentation(kind ErrorKind, detail string) (title, message string, next NextAction) {
	switch kind {
	case ErrorExpired:
		return "Link Expired", MsgLinkExpired, ActionRequestNewLink
	case ErrorInvalidLink:
		return "Invalid Link", MsgLinkInvalid, ActionRequestNewLink
	case ErrorInvalidEmail:
		return "Email Mismatch", MsgEmailMismatched, ActionRetryEmail
	case ErrorNone, ErrorGeneric:
		return "Sign-in Failed", detail, ActionBackToLogin
	default:
		return "Sign-in Failed", detail, ActionBackToLogin
	}
}
