package partdime_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	partdime "github.com/devprabhu18/PartDImeApp"
)

func TestSessionInitialState(t *testing.T) {
	session := partdime.NewSession()

	snap := session.Snapshot()
	assert.Equal(t, partdime.RoleUnset, snap.Role)
	assert.False(t, snap.Authenticated)
}

func TestSessionSetRoleBeforeAuthentication(t *testing.T) {
	ctx := context.Background()
	session := partdime.NewSession()

	session.SetRole(ctx, partdime.RoleEmployer)

	snap := session.Snapshot()
	assert.Equal(t, partdime.RoleEmployer, snap.Role)
	assert.False(t, snap.Authenticated, "choosing a role must not authenticate")
}

func TestSessionMutationsNotifyObservers(t *testing.T) {
	ctx := context.Background()
	session := partdime.NewSession()

	var seen []partdime.Snapshot
	session.Subscribe(func(snap partdime.Snapshot) {
		seen = append(seen, snap)
	})

	session.SetRole(ctx, partdime.RoleEmployee)
	session.SetAuthenticated(ctx, true)

	require.Len(t, seen, 2)
	assert.Equal(t, partdime.Snapshot{Role: partdime.RoleEmployee}, seen[0])
	assert.Equal(t, partdime.Snapshot{Role: partdime.RoleEmployee, Authenticated: true}, seen[1])
}

func TestSessionNoopMutationsDoNotNotify(t *testing.T) {
	ctx := context.Background()
	session := partdime.NewSession()
	session.SetRole(ctx, partdime.RoleEmployee)

	calls := 0
	session.Subscribe(func(partdime.Snapshot) { calls++ })

	session.SetRole(ctx, partdime.RoleEmployee)
	session.SetAuthenticated(ctx, false)
	session.Reset(ctx)

	assert.Equal(t, 1, calls, "only the effective reset should notify")
}

func TestSessionUnsubscribeStopsNotifications(t *testing.T) {
	ctx := context.Background()
	session := partdime.NewSession()

	calls := 0
	unsubscribe := session.Subscribe(func(partdime.Snapshot) { calls++ })
	session.SetRole(ctx, partdime.RoleEmployer)
	unsubscribe()
	session.SetAuthenticated(ctx, true)

	assert.Equal(t, 1, calls)
}

func TestSessionResetClearsStateAndRecords(t *testing.T) {
	ctx := context.Background()
	records := newMemoryRecords()
	session := partdime.NewSession(partdime.WithSessionRecords(records))

	session.SetRole(ctx, partdime.RoleEmployer)
	session.SetAuthenticated(ctx, true)
	session.Reset(ctx)

	snap := session.Snapshot()
	assert.Equal(t, partdime.RoleUnset, snap.Role)
	assert.False(t, snap.Authenticated)

	_, found, err := records.Get(ctx, "user")
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = records.Get(ctx, "isAuthenticated")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSessionPersistsLegacyRecordShape(t *testing.T) {
	ctx := context.Background()
	records := newMemoryRecords()
	session := partdime.NewSession(partdime.WithSessionRecords(records))

	session.SetRole(ctx, partdime.RoleEmployee)
	session.SetAuthenticated(ctx, true)

	rawUser, found, err := records.Get(ctx, "user")
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `{"type":"employee"}`, string(rawUser))

	rawAuth, found, err := records.Get(ctx, "isAuthenticated")
	require.NoError(t, err)
	require.True(t, found)

	var authenticated bool
	require.NoError(t, json.Unmarshal(rawAuth, &authenticated))
	assert.True(t, authenticated)
}

func TestSessionRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	records := newMemoryRecords()

	first := partdime.NewSession(partdime.WithSessionRecords(records))
	first.SetRole(ctx, partdime.RoleEmployer)
	first.SetAuthenticated(ctx, true)

	second := partdime.NewSession(partdime.WithSessionRecords(records))
	require.NoError(t, second.Restore(ctx))

	snap := second.Snapshot()
	assert.Equal(t, partdime.RoleEmployer, snap.Role)
	assert.True(t, snap.Authenticated)
}

func TestSessionRestoreIgnoresPartialRecord(t *testing.T) {
	ctx := context.Background()
	records := newMemoryRecords()
	require.NoError(t, records.Set(ctx, "user", []byte(`{"type":"employer"}`)))

	session := partdime.NewSession(partdime.WithSessionRecords(records))
	require.NoError(t, session.Restore(ctx))

	assert.Equal(t, partdime.Snapshot{}, session.Snapshot())
}

func TestSessionRestoreWithoutRecordsIsNoop(t *testing.T) {
	session := partdime.NewSession()
	require.NoError(t, session.Restore(context.Background()))
	assert.Equal(t, partdime.Snapshot{}, session.Snapshot())
}

func TestSessionSurvivesPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	records := newMemoryRecords()
	records.failSet = errors.New("disk full")

	session := partdime.NewSession(partdime.WithSessionRecords(records))
	session.SetRole(ctx, partdime.RoleEmployee)
	session.SetAuthenticated(ctx, true)

	// In-memory state stays authoritative for the running process.
	snap := session.Snapshot()
	assert.Equal(t, partdime.RoleEmployee, snap.Role)
	assert.True(t, snap.Authenticated)
}

// slowFirstSetRecords stalls the first persistence write until released,
// letting a later mutation race ahead of an earlier one's notification.
type slowFirstSetRecords struct {
	*memoryRecords
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *slowFirstSetRecords) Set(ctx context.Context, key string, value []byte) error {
	r.once.Do(func() {
		close(r.entered)
		<-r.release
	})
	return r.memoryRecords.Set(ctx, key, value)
}

func TestSessionNotificationsArriveInCommitOrder(t *testing.T) {
	ctx := context.Background()
	records := &slowFirstSetRecords{
		memoryRecords: newMemoryRecords(),
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	session := partdime.NewSession(partdime.WithSessionRecords(records))
	guard := partdime.NewGuard(session)
	defer guard.Close()

	roleDone := make(chan struct{})
	go func() {
		session.SetRole(ctx, partdime.RoleEmployer)
		close(roleDone)
	}()
	<-records.entered

	authDone := make(chan struct{})
	go func() {
		session.SetAuthenticated(ctx, true)
		close(authDone)
	}()

	// The stalled write must not let the second mutation's notification
	// overtake the first: the guard would latch a stale reachable set
	// with no further mutation to correct it.
	close(records.release)
	<-roleDone
	<-authDone

	assert.Equal(t, partdime.Snapshot{Role: partdime.RoleEmployer, Authenticated: true}, session.Snapshot())
	assert.True(t, guard.CanNavigate(partdime.ScreenEmployerHome))
	assert.False(t, guard.CanNavigate(partdime.ScreenRoleSelect))
}

func TestSessionRestoreRejectsUnknownRole(t *testing.T) {
	ctx := context.Background()
	records := newMemoryRecords()
	require.NoError(t, records.Set(ctx, "user", []byte(`{"type":"admin"}`)))
	require.NoError(t, records.Set(ctx, "isAuthenticated", []byte(`true`)))

	session := partdime.NewSession(partdime.WithSessionRecords(records))
	require.NoError(t, session.Restore(ctx))
	assert.Equal(t, partdime.Snapshot{}, session.Snapshot(), "corrupt role record stays signed out")
}

func TestSessionRestoreAllowsAuthenticatedWithoutRole(t *testing.T) {
	ctx := context.Background()
	records := newMemoryRecords()
	require.NoError(t, records.Set(ctx, "user", []byte(`{"type":""}`)))
	require.NoError(t, records.Set(ctx, "isAuthenticated", []byte(`true`)))

	session := partdime.NewSession(partdime.WithSessionRecords(records))
	require.NoError(t, session.Restore(ctx))
	assert.Equal(t, partdime.Snapshot{Authenticated: true}, session.Snapshot())
}
