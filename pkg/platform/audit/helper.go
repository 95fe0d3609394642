package audit

import (
	"context"
	"log/slog"

	"escrowgate/pkg/requestcontext"
)

// Emitter is satisfied by publisher.Publisher.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Logger writes an audit line to the text log and forwards the event to an
// optional emitter.
type Logger struct {
	textLogger *slog.Logger
	emitter    Emitter
}

func NewLogger(textLogger *slog.Logger, emitter Emitter) *Logger {
	return &Logger{textLogger: textLogger, emitter: emitter}
}

// Log records action with key/value attributes. The keys "subject",
// "endpoint" and "reason" are lifted into the emitted Event.
//
//	logger.Log(ctx, audit.ActionLockedOut, "subject", fp, "endpoint", "/api/auth/login")
func (l *Logger) Log(ctx context.Context, action Action, attributes ...any) {
	if l == nil {
		return
	}
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}

	if l.textLogger != nil {
		args := append(attributes, "log_type", "audit")
		l.textLogger.InfoContext(ctx, string(action), args...)
	}

	if l.emitter == nil {
		return
	}
	err := l.emitter.Emit(ctx, Event{
		Timestamp: requestcontext.Now(ctx),
		Action:    string(action),
		Subject:   stringAttr(attributes, "subject"),
		Endpoint:  stringAttr(attributes, "endpoint"),
		Reason:    stringAttr(attributes, "reason"),
		RequestID: requestID,
	})
	if err != nil && l.textLogger != nil {
		l.textLogger.ErrorContext(ctx, "failed to emit audit event",
			"error", err,
			"action", action,
		)
	}
}

func stringAttr(attributes []any, key string) string {
	for i := 0; i+1 < len(attributes); i += 2 {
		if k, ok := attributes[i].(string); ok && k == key {
			if v, ok := attributes[i+1].(string); ok {
				return v
			}
		}
	}
	return ""
}
