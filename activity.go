package partdime

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess          ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure          ActivityEventType = "auth.login.failure"
	ActivityEventRegistrationSuccess   ActivityEventType = "auth.register.success"
	ActivityEventRegistrationFailure   ActivityEventType = "auth.register.failure"
	ActivityEventSignOut               ActivityEventType = "auth.signout"
	ActivityEventVerificationStarted   ActivityEventType = "verification.started"
	ActivityEventVerificationVerified  ActivityEventType = "verification.verified"
	ActivityEventVerificationExpired   ActivityEventType = "verification.expired"
	ActivityEventVerificationCancelled ActivityEventType = "verification.cancelled"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Role       Role
	UserID     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
// Sinks run best-effort: errors are logged, never propagated, so forwarding
// to a store or queue cannot block an auth flow.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
