package partdime

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// SignOutMessage requests a sign-out of the current principal.
type SignOutMessage struct{}

func (e SignOutMessage) Type() string { return "auth.signout" }

// SignOutHandler signs out at the provider and resets the session. The
// provider call is best-effort: the local reset always proceeds so the user
// is never stuck in a stale authenticated state.
type SignOutHandler struct {
	provider AuthProvider
	session  *Session
	monitors *MonitorManager
	sink     ActivitySink
	logger   Logger
	now      Clock
}

// SignOutHandlerOption customizes handler construction.
type SignOutHandlerOption func(*SignOutHandler)

// WithSignOutLogger overrides the handler's logger.
func WithSignOutLogger(logger Logger) SignOutHandlerOption {
	return func(h *SignOutHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithSignOutActivitySink sets the sink receiving sign-out events.
func WithSignOutActivitySink(sink ActivitySink) SignOutHandlerOption {
	return func(h *SignOutHandler) {
		h.sink = normalizeActivitySink(sink)
	}
}

func NewSignOutHandler(provider AuthProvider, session *Session, monitors *MonitorManager, opts ...SignOutHandlerOption) *SignOutHandler {
	h := &SignOutHandler{
		provider: provider,
		session:  session,
		monitors: monitors,
		sink:     noopActivitySink{},
		logger:   defLogger{},
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

func (h *SignOutHandler) Execute(ctx context.Context, event SignOutMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during sign-out")
	default:
		return h.execute(ctx, event)
	}
}

func (h *SignOutHandler) execute(ctx context.Context, _ SignOutMessage) error {
	if h.monitors != nil {
		h.monitors.Cancel()
	}

	if err := h.provider.SignOut(ctx); err != nil {
		h.logger.Error("provider sign-out failed, resetting session anyway: %v", err)
	}
	h.session.Reset(ctx)

	event := ActivityEvent{
		EventType:  ActivityEventSignOut,
		OccurredAt: h.now(),
	}
	if err := h.sink.Record(ctx, event); err != nil {
		h.logger.Error("sign-out activity sink error: %v", err)
	}
	return nil
}
