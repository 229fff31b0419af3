package partdime_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	partdime "github.com/devprabhu18/PartDImeApp"
)

// MockAuthProvider implements partdime.AuthProvider
type MockAuthProvider struct {
	mock.Mock
}

func (m *MockAuthProvider) SignIn(ctx context.Context, email, password string) (*partdime.Principal, error) {
	args := m.Called(ctx, email, password)
	principal, _ := args.Get(0).(*partdime.Principal)
	return principal, args.Error(1)
}

func (m *MockAuthProvider) SignUp(ctx context.Context, email, password string) (*partdime.Principal, error) {
	args := m.Called(ctx, email, password)
	principal, _ := args.Get(0).(*partdime.Principal)
	return principal, args.Error(1)
}

func (m *MockAuthProvider) SendVerificationEmail(ctx context.Context, p *partdime.Principal) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockAuthProvider) CurrentPrincipal() *partdime.Principal {
	args := m.Called()
	principal, _ := args.Get(0).(*partdime.Principal)
	return principal
}

func (m *MockAuthProvider) Refresh(ctx context.Context, p *partdime.Principal) (*partdime.Principal, error) {
	args := m.Called(ctx, p)
	principal, _ := args.Get(0).(*partdime.Principal)
	return principal, args.Error(1)
}

func (m *MockAuthProvider) SignOut(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockAuthProvider) OnPrincipalChanged(fn func(*partdime.Principal)) func() {
	m.Called(fn)
	return func() {}
}

// MockProfileStore implements partdime.ProfileStore
type MockProfileStore struct {
	mock.Mock
}

func (m *MockProfileStore) GetProfile(ctx context.Context, collection, id string) (map[string]any, bool, error) {
	args := m.Called(ctx, collection, id)
	fields, _ := args.Get(0).(map[string]any)
	return fields, args.Bool(1), args.Error(2)
}

func (m *MockProfileStore) SetProfile(ctx context.Context, collection, id string, fields map[string]any) error {
	args := m.Called(ctx, collection, id, fields)
	return args.Error(0)
}

// MockActivitySink implements partdime.ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event partdime.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// memoryRecords is an in-memory partdime.SessionRecords with optional
// fault injection.
type memoryRecords struct {
	mu      sync.Mutex
	values  map[string][]byte
	failSet error
}

func newMemoryRecords() *memoryRecords {
	return &memoryRecords{values: map[string][]byte{}}
}

func (r *memoryRecords) Get(_ context.Context, key string) ([]byte, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	value, ok := r.values[key]
	return value, ok, nil
}

func (r *memoryRecords) Set(_ context.Context, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSet != nil {
		return r.failSet
	}
	r.values[key] = value
	return nil
}

func (r *memoryRecords) Delete(_ context.Context, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range keys {
		delete(r.values, key)
	}
	return nil
}

// stubProvider drives the verification monitor with scripted behavior.
type stubProvider struct {
	mu           sync.Mutex
	principal    *partdime.Principal
	refreshErr   error
	verified     bool
	refreshCalls int
	signOutCalls int
	refreshGate  chan struct{}
}

func newStubProvider(p *partdime.Principal) *stubProvider {
	return &stubProvider{principal: p}
}

func (s *stubProvider) setVerified(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verified = v
}

func (s *stubProvider) setRefreshErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshErr = err
}

func (s *stubProvider) refreshCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCalls
}

func (s *stubProvider) signOutCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signOutCalls
}

func (s *stubProvider) SignIn(context.Context, string, string) (*partdime.Principal, error) {
	return s.CurrentPrincipal(), nil
}

func (s *stubProvider) SignUp(context.Context, string, string) (*partdime.Principal, error) {
	return s.CurrentPrincipal(), nil
}

func (s *stubProvider) SendVerificationEmail(context.Context, *partdime.Principal) error {
	return nil
}

func (s *stubProvider) CurrentPrincipal() *partdime.Principal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.principal == nil {
		return nil
	}
	copied := *s.principal
	return &copied
}

func (s *stubProvider) Refresh(_ context.Context, p *partdime.Principal) (*partdime.Principal, error) {
	s.mu.Lock()
	s.refreshCalls++
	gate := s.refreshGate
	err := s.refreshErr
	verified := s.verified
	s.mu.Unlock()

	if gate != nil {
		<-gate
		s.mu.Lock()
		verified = s.verified
		err = s.refreshErr
		s.mu.Unlock()
	}
	if err != nil {
		return nil, err
	}

	copied := *p
	copied.EmailVerified = verified
	return &copied, nil
}

func (s *stubProvider) SignOut(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signOutCalls++
	s.principal = nil
	return nil
}

func (s *stubProvider) OnPrincipalChanged(func(*partdime.Principal)) func() {
	return func() {}
}

// fakeClock is a mutable clock safe for use across goroutines.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
