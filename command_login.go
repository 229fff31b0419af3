package partdime

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

// LoginMessage carries a sign-in request for a chosen role.
type LoginMessage struct {
	Role     Role   `json:"role"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (e LoginMessage) Type() string { return "auth.login" }

func (e LoginMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Role, validation.Required, validation.By(validRole)),
		validation.Field(&e.Email, validation.Required, is.Email),
		validation.Field(&e.Password, validation.Required),
	)
}

// LoginHandler signs the user in and promotes the session. Unlike
// registration, login blocks on email verification: an unverified login
// never authenticates the session and returns ErrUnverifiedEmail as a
// routing signal. The two roles diverge on what happens to the provider
// session in that case: employees are signed out before being routed to
// the verification screen, employers stay signed in so the verification
// monitor can poll on their behalf.
type LoginHandler struct {
	provider AuthProvider
	profiles ProfileStore
	session  *Session
	sink     ActivitySink
	logger   Logger
	now      Clock
}

// LoginHandlerOption customizes handler construction.
type LoginHandlerOption func(*LoginHandler)

// WithLoginLogger overrides the handler's logger.
func WithLoginLogger(logger Logger) LoginHandlerOption {
	return func(h *LoginHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithLoginActivitySink sets the sink receiving login events.
func WithLoginActivitySink(sink ActivitySink) LoginHandlerOption {
	return func(h *LoginHandler) {
		h.sink = normalizeActivitySink(sink)
	}
}

// WithLoginClock injects a custom clock (useful for tests).
func WithLoginClock(clock Clock) LoginHandlerOption {
	return func(h *LoginHandler) {
		if clock != nil {
			h.now = clock
		}
	}
}

func NewLoginHandler(provider AuthProvider, profiles ProfileStore, session *Session, opts ...LoginHandlerOption) *LoginHandler {
	h := &LoginHandler{
		provider: provider,
		profiles: profiles,
		session:  session,
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

func (h *LoginHandler) Execute(ctx context.Context, event LoginMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during login")
	default:
		return h.execute(ctx, event)
	}
}

func (h *LoginHandler) execute(ctx context.Context, event LoginMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid login payload")
	}

	principal, err := h.provider.SignIn(ctx, event.Email, event.Password)
	if err != nil {
		h.recordFailure(ctx, event.Role, err)
		return err
	}

	if !principal.EmailVerified {
		if event.Role == RoleEmployee {
			if err := h.provider.SignOut(ctx); err != nil {
				h.logger.Error("sign-out after unverified login failed: %v", err)
			}
		}
		h.recordFailure(ctx, event.Role, ErrUnverifiedEmail)
		return ErrUnverifiedEmail
	}

	if event.Role == RoleEmployer {
		_, found, err := h.profiles.GetProfile(ctx, CollectionEmployers, principal.UID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to load employer profile")
		}
		if !found {
			if err := h.provider.SignOut(ctx); err != nil {
				h.logger.Error("sign-out after role mismatch failed: %v", err)
			}
			h.recordFailure(ctx, event.Role, ErrRoleMismatch)
			return ErrRoleMismatch
		}
	}

	h.session.SetRole(ctx, event.Role)
	h.session.SetAuthenticated(ctx, true)

	h.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Role:      event.Role,
		UserID:    principal.UID,
	})
	return nil
}

func (h *LoginHandler) recordFailure(ctx context.Context, role Role, cause error) {
	h.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		Role:      role,
		Metadata:  map[string]any{"error": cause.Error()},
	})
}

func (h *LoginHandler) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = h.now()
	}
	if err := h.sink.Record(ctx, event); err != nil {
		h.logger.Error("login activity sink error: %v", err)
	}
}
