package partdime

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/nyaruka/phonenumbers"
)

// RegisterMessage carries a signup request for either role. Employer
// registrations require the company fields, employee registrations the
// personal ones.
type RegisterMessage struct {
	Role          Role   `json:"role"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	CompanyName   string `json:"company_name,omitempty"`
	ContactPerson string `json:"contact_person,omitempty"`
	GSTNumber     string `json:"gst_number,omitempty"`
	FullName      string `json:"full_name,omitempty"`
	Phone         string `json:"phone,omitempty"`
	PhoneRegion   string `json:"phone_region,omitempty"`

	// OnMonitor receives the verification monitor started for this
	// registration so the owning screen can display the countdown and
	// cancel it on unmount.
	OnMonitor func(m *Monitor) `json:"-"`
}

func (e RegisterMessage) Type() string { return "auth.register" }

func (e RegisterMessage) Validate() error {
	fields := []*validation.FieldRules{
		validation.Field(&e.Role, validation.Required, validation.By(validRole)),
		validation.Field(&e.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&e.Password, validation.Required, validation.Length(6, 100)),
	}

	switch e.Role {
	case RoleEmployer:
		fields = append(fields,
			validation.Field(&e.CompanyName, validation.Required, validation.Length(1, 200)),
			validation.Field(&e.ContactPerson, validation.Required, validation.Length(1, 200)),
		)
	case RoleEmployee:
		fields = append(fields,
			validation.Field(&e.FullName, validation.Required, validation.Length(1, 200)),
			validation.Field(&e.Phone, validation.By(validPhone(e.PhoneRegion))),
		)
	}

	return validation.ValidateStruct(&e, fields...)
}

func validRole(value any) error {
	role, _ := value.(Role)
	if !role.IsValid() {
		return goerrors.New("role must be employer or employee", goerrors.CategoryValidation)
	}
	return nil
}

func validPhone(region string) validation.RuleFunc {
	if region == "" {
		region = "IN"
	}
	return func(value any) error {
		raw, _ := value.(string)
		if raw == "" {
			return nil
		}
		number, err := phonenumbers.Parse(raw, region)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "unparseable phone number")
		}
		if !phonenumbers.IsValidNumber(number) {
			return goerrors.New("invalid phone number", goerrors.CategoryValidation)
		}
		return nil
	}
}

// RegisterHandler signs the user up, sends the verification email, writes
// the role's profile document, promotes the session, and starts the
// verification monitor. Registration intentionally authenticates the
// session before the email is verified; the monitor tears it back down if
// verification never arrives.
type RegisterHandler struct {
	provider AuthProvider
	profiles ProfileStore
	session  *Session
	monitors *MonitorManager
	sink     ActivitySink
	logger   Logger
	now      Clock
	debug    bool
}

// RegisterHandlerOption customizes handler construction.
type RegisterHandlerOption func(*RegisterHandler)

// WithRegisterLogger overrides the handler's logger.
func WithRegisterLogger(logger Logger) RegisterHandlerOption {
	return func(h *RegisterHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithRegisterActivitySink sets the sink receiving registration events.
func WithRegisterActivitySink(sink ActivitySink) RegisterHandlerOption {
	return func(h *RegisterHandler) {
		h.sink = normalizeActivitySink(sink)
	}
}

// WithRegisterClock injects a custom clock (useful for tests).
func WithRegisterClock(clock Clock) RegisterHandlerOption {
	return func(h *RegisterHandler) {
		if clock != nil {
			h.now = clock
		}
	}
}

// WithRegisterDebug enables payload dumps on validation failures.
func WithRegisterDebug(debug bool) RegisterHandlerOption {
	return func(h *RegisterHandler) {
		h.debug = debug
	}
}

func NewRegisterHandler(provider AuthProvider, profiles ProfileStore, session *Session, monitors *MonitorManager, opts ...RegisterHandlerOption) *RegisterHandler {
	h := &RegisterHandler{
		provider: provider,
		profiles: profiles,
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

func (h *RegisterHandler) Execute(ctx context.Context, event RegisterMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during registration")
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterHandler) execute(ctx context.Context, event RegisterMessage) error {
	if err := event.Validate(); err != nil {
		if h.debug {
			h.logger.Debug("invalid registration payload: %s", print.MaybePrettyJSON(event))
		}
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload")
	}

	principal, err := h.provider.SignUp(ctx, event.Email, event.Password)
	if err != nil {
		h.recordFailure(ctx, event.Role, err)
		return err
	}

	if err := h.provider.SendVerificationEmail(ctx, principal); err != nil {
		h.recordFailure(ctx, event.Role, err)
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to send verification email")
	}

	if err := h.profiles.SetProfile(ctx, event.Role.Collection(), principal.UID, h.profileFields(event)); err != nil {
		h.recordFailure(ctx, event.Role, err)
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store profile")
	}

	// The session authenticates before the email is verified; the screen
	// routes into the verification gate next.
	h.session.SetRole(ctx, event.Role)
	h.session.SetAuthenticated(ctx, true)

	h.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventRegistrationSuccess,
		Role:      event.Role,
		UserID:    principal.UID,
	})

	monitor, err := h.monitors.Start(ctx, event.Role)
	if err != nil {
		return err
	}
	if event.OnMonitor != nil {
		event.OnMonitor(monitor)
	}
	return nil
}

func (h *RegisterHandler) profileFields(event RegisterMessage) map[string]any {
	fields := map[string]any{
		"email":     event.Email,
		"createdAt": h.now(),
	}
	switch event.Role {
	case RoleEmployer:
		fields["companyName"] = event.CompanyName
		fields["contactPerson"] = event.ContactPerson
		if event.GSTNumber != "" {
			fields["gstNumber"] = event.GSTNumber
		}
	case RoleEmployee:
		fields["fullName"] = event.FullName
		if event.Phone != "" {
			fields["phone"] = event.Phone
		}
	}
	return fields
}

func (h *RegisterHandler) recordFailure(ctx context.Context, role Role, cause error) {
	h.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventRegistrationFailure,
		Role:      role,
		Metadata:  map[string]any{"error": cause.Error()},
	})
}

func (h *RegisterHandler) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = h.now()
	}
	if err := h.sink.Record(ctx, event); err != nil {
		h.logger.Error("register activity sink error: %v", err)
	}
}
