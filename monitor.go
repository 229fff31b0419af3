package partdime

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// MonitorStatus enumerates the verification monitor's states. Verified,
// Expired and Cancelled are terminal.
type MonitorStatus string

const (
	MonitorIdle      MonitorStatus = "idle"
	MonitorChecking  MonitorStatus = "checking"
	MonitorAwaiting  MonitorStatus = "awaiting-verification"
	MonitorVerified  MonitorStatus = "verified"
	MonitorExpired   MonitorStatus = "expired"
	MonitorCancelled MonitorStatus = "cancelled"
)

const (
	// DefaultVerificationTimeout is the wall-clock budget a user has to
	// verify their email before the session is torn down.
	DefaultVerificationTimeout = 5 * time.Minute
	// DefaultTickInterval is the poll cadence while awaiting verification.
	DefaultTickInterval = time.Second
)

// ErrMonitorStarted is returned when Start is called more than once on the
// same monitor instance.
var ErrMonitorStarted = goerrors.New("verification monitor already started", goerrors.CategoryConflict).
	WithTextCode("VERIFICATION_MONITOR_STARTED").
	WithCode(goerrors.CodeConflict)

// MonitorOption customizes monitor behavior.
type MonitorOption func(*Monitor)

// WithMonitorClock injects a custom clock (useful for tests).
func WithMonitorClock(clock Clock) MonitorOption {
	return func(m *Monitor) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithMonitorTimeout overrides the verification budget.
func WithMonitorTimeout(timeout time.Duration) MonitorOption {
	return func(m *Monitor) {
		if timeout > 0 {
			m.timeout = timeout
		}
	}
}

// WithMonitorTickInterval overrides the poll cadence.
func WithMonitorTickInterval(interval time.Duration) MonitorOption {
	return func(m *Monitor) {
		if interval > 0 {
			m.tick = interval
		}
	}
}

// WithMonitorLogger overrides the logger used for poll failures.
func WithMonitorLogger(logger Logger) MonitorOption {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMonitorActivitySink sets the ActivitySink used to publish
// verification lifecycle events.
func WithMonitorActivitySink(sink ActivitySink) MonitorOption {
	return func(m *Monitor) {
		m.sink = normalizeActivitySink(sink)
	}
}

// Monitor polls the auth provider for the email-verification flag after a
// registration or login. One instance covers one polling session: it ends
// Verified, Expired or Cancelled and never restarts.
//
// The budget is wall-clock based, not tick-count based, so delayed ticks
// (app backgrounding) converge to the correct remaining time on the next
// tick instead of drifting.
type Monitor struct {
	provider AuthProvider
	session  *Session
	role     Role

	timeout time.Duration
	tick    time.Duration
	now     Clock
	logger  Logger
	sink    ActivitySink

	mu       sync.Mutex
	status   MonitorStatus
	deadline time.Time
	stop     context.CancelFunc

	done     chan struct{}
	doneOnce sync.Once
}

// NewMonitor builds an idle monitor for the given role. Call Start to run
// the initial check and begin polling.
func NewMonitor(provider AuthProvider, session *Session, role Role, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		provider: provider,
		session:  session,
		role:     role,
		timeout:  DefaultVerificationTimeout,
		tick:     DefaultTickInterval,
		now:      time.Now,
		logger:   defLogger{},
		sink:     noopActivitySink{},
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	m.status = MonitorIdle
	return m
}

// Start performs the immediate verification check and, if the email is
// still unverified, begins the timed polling loop. A failed first check is
// logged and treated as still-unverified with the full budget remaining.
//
// ctx only scopes the immediate check. The polling loop outlives it: a
// request-scoped or timeout-wrapped ctx must not cut the countdown short,
// so the loop runs until a terminal state or an explicit Cancel.
//
// Returns ErrNoPrincipal when the provider has no signed-in principal and
// ErrMonitorStarted when called twice.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.status != MonitorIdle {
		m.mu.Unlock()
		return ErrMonitorStarted
	}
	m.status = MonitorChecking
	m.mu.Unlock()

	principal := m.provider.CurrentPrincipal()
	if principal == nil {
		m.markCancelled()
		return ErrNoPrincipal
	}

	m.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventVerificationStarted,
		Role:      m.role,
		UserID:    principal.UID,
	})

	refreshed, err := m.provider.Refresh(ctx, principal)
	if err != nil {
		m.logger.Error("verification check failed, treating as unverified: %v", err)
	} else if refreshed != nil && refreshed.EmailVerified {
		m.finishVerified(ctx, refreshed.UID)
		return nil
	}

	runCtx, stop := context.WithCancel(context.WithoutCancel(ctx))

	m.mu.Lock()
	if m.status != MonitorChecking {
		// Cancelled while the first check was in flight.
		m.mu.Unlock()
		stop()
		return nil
	}
	m.status = MonitorAwaiting
	m.deadline = m.now().Add(m.timeout)
	m.stop = stop
	m.mu.Unlock()

	go m.run(runCtx)
	return nil
}

func (m *Monitor) run(ctx context.Context) {
	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.markCancelled()
			return
		case <-ticker.C:
			if !m.onTick(ctx) {
				return
			}
		}
	}
}

// onTick runs one poll cycle. Returns false once the monitor reached a
// terminal state so the loop stops immediately.
func (m *Monitor) onTick(ctx context.Context) bool {
	m.mu.Lock()
	if m.status != MonitorAwaiting {
		m.mu.Unlock()
		return false
	}
	expired := !m.now().Before(m.deadline)
	m.mu.Unlock()

	if expired {
		m.expire(ctx)
		return false
	}

	principal := m.provider.CurrentPrincipal()
	if principal == nil {
		return true
	}

	refreshed, err := m.provider.Refresh(ctx, principal)
	if err != nil {
		m.logger.Error("verification poll failed, still unverified: %v", err)
		return true
	}
	if refreshed != nil && refreshed.EmailVerified {
		return !m.finishVerified(ctx, refreshed.UID)
	}
	return true
}

// Refresh re-checks the verification flag on demand, outside the tick
// schedule. Only valid while awaiting verification; it reports whether the
// email is now verified.
func (m *Monitor) Refresh(ctx context.Context) (bool, error) {
	m.mu.Lock()
	status := m.status
	m.mu.Unlock()
	if status != MonitorAwaiting {
		return status == MonitorVerified, nil
	}

	principal := m.provider.CurrentPrincipal()
	if principal == nil {
		return false, ErrNoPrincipal
	}

	refreshed, err := m.provider.Refresh(ctx, principal)
	if err != nil {
		return false, err
	}
	if refreshed != nil && refreshed.EmailVerified {
		return m.finishVerified(ctx, refreshed.UID), nil
	}
	return false, nil
}

// Cancel invalidates all pending ticks. Idempotent and race-free: a poll
// result in flight when Cancel is called is discarded, never applied. No
// further side effects fire.
func (m *Monitor) Cancel() {
	if m.markCancelled() {
		m.recordActivity(context.Background(), ActivityEvent{
			EventType: ActivityEventVerificationCancelled,
			Role:      m.role,
		})
	}
}

// Status returns the monitor's current state.
func (m *Monitor) Status() MonitorStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Role returns the role this monitor promotes the session to on success.
func (m *Monitor) Role() Role {
	return m.role
}

// RemainingSeconds returns the whole seconds left before expiry:
// max(0, floor(deadline-now)). Before the polling loop starts it reports
// the full budget.
func (m *Monitor) RemainingSeconds() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deadline.IsZero() {
		return int(m.timeout / time.Second)
	}
	remaining := m.deadline.Sub(m.now())
	if remaining < 0 {
		return 0
	}
	return int(remaining / time.Second)
}

// Done is closed once the monitor reaches a terminal state.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

// finishVerified promotes the session exactly once, even if several poll
// results observe the verified flag in the same window.
func (m *Monitor) finishVerified(ctx context.Context, uid string) bool {
	m.mu.Lock()
	if m.terminalLocked() {
		m.mu.Unlock()
		return false
	}
	m.status = MonitorVerified
	stop := m.stop
	m.mu.Unlock()

	m.session.SetAuthenticated(ctx, true)
	m.session.SetRole(ctx, m.role)

	m.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventVerificationVerified,
		Role:      m.role,
		UserID:    uid,
	})

	if stop != nil {
		stop()
	}
	m.doneOnce.Do(func() { close(m.done) })
	return true
}

// expire tears the session down at the hard cutoff. A failed forced
// sign-out still proceeds to the reset so the user is never trapped in an
// authenticated-but-expired state.
func (m *Monitor) expire(ctx context.Context) {
	m.mu.Lock()
	if m.terminalLocked() {
		m.mu.Unlock()
		return
	}
	m.status = MonitorExpired
	stop := m.stop
	m.mu.Unlock()

	if err := m.provider.SignOut(ctx); err != nil {
		m.logger.Error("forced sign-out failed on verification expiry: %v", err)
	}
	m.session.Reset(ctx)

	m.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventVerificationExpired,
		Role:      m.role,
	})

	if stop != nil {
		stop()
	}
	m.doneOnce.Do(func() { close(m.done) })
}

func (m *Monitor) markCancelled() bool {
	m.mu.Lock()
	if m.terminalLocked() {
		m.mu.Unlock()
		return false
	}
	m.status = MonitorCancelled
	stop := m.stop
	m.mu.Unlock()

	if stop != nil {
		stop()
	}
	m.doneOnce.Do(func() { close(m.done) })
	return true
}

func (m *Monitor) terminalLocked() bool {
	switch m.status {
	case MonitorVerified, MonitorExpired, MonitorCancelled:
		return true
	default:
		return false
	}
}

func (m *Monitor) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = m.now()
	}
	if err := m.sink.Record(ctx, event); err != nil {
		m.logger.Error("monitor activity sink error: %v", err)
	}
}

// MonitorManager enforces at most one active monitor per session. Starting
// a new monitor cancels any existing one and waits for it to stop before
// the replacement begins.
type MonitorManager struct {
	provider AuthProvider
	session  *Session
	opts     []MonitorOption

	mu     sync.Mutex
	active *Monitor
}

// NewMonitorManager builds a manager whose monitors share the given
// options.
func NewMonitorManager(provider AuthProvider, session *Session, opts ...MonitorOption) *MonitorManager {
	return &MonitorManager{
		provider: provider,
		session:  session,
		opts:     opts,
	}
}

// Start cancels any active monitor, awaits its termination, then starts a
// fresh monitor for the role.
func (mm *MonitorManager) Start(ctx context.Context, role Role) (*Monitor, error) {
	mm.mu.Lock()
	prev := mm.active
	mm.mu.Unlock()

	if prev != nil {
		prev.Cancel()
		<-prev.Done()
	}

	monitor := NewMonitor(mm.provider, mm.session, role, mm.opts...)

	mm.mu.Lock()
	mm.active = monitor
	mm.mu.Unlock()

	if err := monitor.Start(ctx); err != nil {
		mm.mu.Lock()
		if mm.active == monitor {
			mm.active = nil
		}
		mm.mu.Unlock()
		return nil, err
	}
	return monitor, nil
}

// Active returns the current monitor, or nil when none is running.
func (mm *MonitorManager) Active() *Monitor {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	return mm.active
}

// Cancel stops the active monitor, if any.
func (mm *MonitorManager) Cancel() {
	mm.mu.Lock()
	active := mm.active
	mm.mu.Unlock()
	if active != nil {
		active.Cancel()
	}
}
