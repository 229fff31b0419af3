package partdime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Storage keys for the persisted session record. The names mirror the
// mobile app's device-local storage so an upgraded install restores an
// existing session.
const (
	recordKeyUser          = "user"
	recordKeyAuthenticated = "isAuthenticated"
)

type persistedUser struct {
	Type Role `json:"type"`
}

// Snapshot is a read-only copy of the session at a point in time.
type Snapshot struct {
	Role          Role `json:"role"`
	Authenticated bool `json:"authenticated"`
}

// SessionOption customizes session construction.
type SessionOption func(*Session)

// WithSessionLogger overrides the logger used for persistence failures.
func WithSessionLogger(logger Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSessionRecords attaches durable storage for the persisted session
// record. Without it the session is memory-only.
func WithSessionRecords(records SessionRecords) SessionOption {
	return func(s *Session) {
		s.records = records
	}
}

// Session is the single source of truth for {role, authenticated}. It is
// owned by the root of the UI tree and handed to every screen by reference.
// All mutation funnels through SetRole, SetAuthenticated and Reset so the
// invariants stay centralized.
//
// The in-memory state is authoritative for the running process: persistence
// writes are best-effort and a failed write only affects the next cold
// start, never the current session.
type Session struct {
	// orderMu serializes the mutate/persist/notify sequence so observers
	// receive snapshots in commit order even when mutations race from
	// different goroutines. mu alone only protects the fields.
	orderMu   sync.Mutex
	mu        sync.Mutex
	role      Role
	auth      bool
	records   SessionRecords
	logger    Logger
	observers map[int]func(Snapshot)
	nextObs   int
}

// NewSession returns a session in its initial state (RoleUnset, not
// authenticated).
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		logger:    defLogger{},
		observers: map[int]func(Snapshot){},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Subscribe registers fn to run synchronously after every effective
// mutation. The returned function removes the subscription.
func (s *Session) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// Snapshot returns the current {role, authenticated} pair.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Role: s.role, Authenticated: s.auth}
}

// SetRole records the chosen role. It may be called before authentication
// (role is picked during onboarding) and repeated calls with the same value
// are no-ops.
func (s *Session) SetRole(ctx context.Context, role Role) {
	s.orderMu.Lock()
	defer s.orderMu.Unlock()

	s.mu.Lock()
	if s.role == role {
		s.mu.Unlock()
		return
	}
	s.role = role
	snap := Snapshot{Role: s.role, Authenticated: s.auth}
	s.mu.Unlock()

	s.persist(ctx, snap)
	s.notify(snap)
}

// SetAuthenticated records the authentication flag without touching the
// role. Setting the current value is a no-op.
func (s *Session) SetAuthenticated(ctx context.Context, authenticated bool) {
	s.orderMu.Lock()
	defer s.orderMu.Unlock()

	s.mu.Lock()
	if s.auth == authenticated {
		s.mu.Unlock()
		return
	}
	s.auth = authenticated
	snap := Snapshot{Role: s.role, Authenticated: s.auth}
	s.mu.Unlock()

	s.persist(ctx, snap)
	s.notify(snap)
}

// Reset returns the session to its initial state and clears the persisted
// record. Used for sign-out and verification expiry. Resetting an already
// initial session is a no-op.
func (s *Session) Reset(ctx context.Context) {
	s.orderMu.Lock()
	defer s.orderMu.Unlock()

	s.mu.Lock()
	if s.role == RoleUnset && !s.auth {
		s.mu.Unlock()
		return
	}
	s.role = RoleUnset
	s.auth = false
	snap := Snapshot{}
	s.mu.Unlock()

	if s.records != nil {
		if err := s.records.Delete(ctx, recordKeyUser, recordKeyAuthenticated); err != nil {
			s.logger.Error("failed to clear persisted session: %v", err)
		}
	}
	s.notify(snap)
}

// Restore loads the persisted record, if any, into the session. Called once
// at process start before any screen renders. A partial, unreadable or
// corrupt record leaves the session in its initial state.
func (s *Session) Restore(ctx context.Context) error {
	s.orderMu.Lock()
	defer s.orderMu.Unlock()

	if s.records == nil {
		return nil
	}

	rawUser, foundUser, err := s.records.Get(ctx, recordKeyUser)
	if err != nil {
		return err
	}
	rawAuth, foundAuth, err := s.records.Get(ctx, recordKeyAuthenticated)
	if err != nil {
		return err
	}
	if !foundUser || !foundAuth {
		return nil
	}

	var user persistedUser
	if err := json.Unmarshal(rawUser, &user); err != nil {
		return err
	}
	var authenticated bool
	if err := json.Unmarshal(rawAuth, &authenticated); err != nil {
		return err
	}

	// An empty role is the tolerated authenticated-without-role state;
	// anything else unknown means the record is corrupt.
	if user.Type != RoleUnset && !user.Type.IsValid() {
		s.logger.Error("ignoring persisted session with unknown role %q", user.Type)
		return nil
	}

	s.mu.Lock()
	s.role = user.Type
	s.auth = authenticated
	snap := Snapshot{Role: s.role, Authenticated: s.auth}
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

func (s *Session) persist(ctx context.Context, snap Snapshot) {
	if s.records == nil {
		return
	}

	rawUser, err := json.Marshal(persistedUser{Type: snap.Role})
	if err == nil {
		err = s.records.Set(ctx, recordKeyUser, rawUser)
	}
	if err != nil {
		s.logger.Error("failed to persist session user record: %v", err)
	}

	rawAuth, err := json.Marshal(snap.Authenticated)
	if err == nil {
		err = s.records.Set(ctx, recordKeyAuthenticated, rawAuth)
	}
	if err != nil {
		s.logger.Error("failed to persist session auth record: %v", err)
	}
}

func (s *Session) notify(snap Snapshot) {
	s.mu.Lock()
	fns := make([]func(Snapshot), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (snap Snapshot) String() string {
	return fmt.Sprintf("role=%q authenticated=%t", snap.Role, snap.Authenticated)
}
