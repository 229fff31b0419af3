package partdime_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	partdime "github.com/devprabhu18/PartDImeApp"
)

func TestLoginMessageValidation(t *testing.T) {
	valid := partdime.LoginMessage{
		Role:     partdime.RoleEmployee,
		Email:    "worker@mail.example",
		Password: "s3cret!",
	}
	assert.NoError(t, valid.Validate())

	assert.Error(t, partdime.LoginMessage{
		Email:    "worker@mail.example",
		Password: "s3cret!",
	}.Validate(), "role is required")

	assert.Error(t, partdime.LoginMessage{
		Role:     partdime.Role("admin"),
		Email:    "worker@mail.example",
		Password: "s3cret!",
	}.Validate(), "unknown role")

	assert.Error(t, partdime.LoginMessage{
		Role:     partdime.RoleEmployee,
		Email:    "nope",
		Password: "s3cret!",
	}.Validate())
}

func TestLoginHandlerVerifiedEmployee(t *testing.T) {
	ctx := context.Background()
	principal := &partdime.Principal{UID: "wrk-1", Email: "worker@mail.example", EmailVerified: true}

	provider := &MockAuthProvider{}
	provider.On("SignIn", ctx, "worker@mail.example", "s3cret!").Return(principal, nil)

	session := partdime.NewSession()
	handler := partdime.NewLoginHandler(provider, &MockProfileStore{}, session)

	err := handler.Execute(ctx, partdime.LoginMessage{
		Role:     partdime.RoleEmployee,
		Email:    "worker@mail.example",
		Password: "s3cret!",
	})
	require.NoError(t, err)

	snap := session.Snapshot()
	assert.True(t, snap.Authenticated)
	assert.Equal(t, partdime.RoleEmployee, snap.Role)
	provider.AssertNotCalled(t, "SignOut", mock.Anything)
}

func TestLoginHandlerVerifiedEmployerWithProfile(t *testing.T) {
	ctx := context.Background()
	principal := &partdime.Principal{UID: "emp-1", Email: "owner@acme.example", EmailVerified: true}

	provider := &MockAuthProvider{}
	provider.On("SignIn", ctx, "owner@acme.example", "s3cret!").Return(principal, nil)

	profiles := &MockProfileStore{}
	profiles.On("GetProfile", ctx, "employers", "emp-1").
		Return(map[string]any{"companyName": "Acme"}, true, nil)

	session := partdime.NewSession()
	handler := partdime.NewLoginHandler(provider, profiles, session)

	err := handler.Execute(ctx, partdime.LoginMessage{
		Role:     partdime.RoleEmployer,
		Email:    "owner@acme.example",
		Password: "s3cret!",
	})
	require.NoError(t, err)

	snap := session.Snapshot()
	assert.True(t, snap.Authenticated)
	assert.Equal(t, partdime.RoleEmployer, snap.Role)
	profiles.AssertExpectations(t)
}

func TestLoginHandlerEmployerWithoutProfile(t *testing.T) {
	ctx := context.Background()
	principal := &partdime.Principal{UID: "emp-1", Email: "owner@acme.example", EmailVerified: true}

	provider := &MockAuthProvider{}
	provider.On("SignIn", ctx, "owner@acme.example", "s3cret!").Return(principal, nil)
	provider.On("SignOut", ctx).Return(nil)

	profiles := &MockProfileStore{}
	profiles.On("GetProfile", ctx, "employers", "emp-1").Return(nil, false, nil)

	session := partdime.NewSession()
	handler := partdime.NewLoginHandler(provider, profiles, session)

	err := handler.Execute(ctx, partdime.LoginMessage{
		Role:     partdime.RoleEmployer,
		Email:    "owner@acme.example",
		Password: "s3cret!",
	})
	assert.ErrorIs(t, err, partdime.ErrRoleMismatch)
	assert.False(t, session.Snapshot().Authenticated)
	provider.AssertCalled(t, "SignOut", ctx)
}

func TestLoginHandlerUnverifiedEmployeeSignsOut(t *testing.T) {
	ctx := context.Background()
	principal := &partdime.Principal{UID: "wrk-1", Email: "worker@mail.example"}

	provider := &MockAuthProvider{}
	provider.On("SignIn", ctx, "worker@mail.example", "s3cret!").Return(principal, nil)
	provider.On("SignOut", ctx).Return(nil)

	session := partdime.NewSession()
	handler := partdime.NewLoginHandler(provider, &MockProfileStore{}, session)

	err := handler.Execute(ctx, partdime.LoginMessage{
		Role:     partdime.RoleEmployee,
		Email:    "worker@mail.example",
		Password: "s3cret!",
	})
	assert.True(t, partdime.IsUnverifiedEmail(err))
	assert.False(t, session.Snapshot().Authenticated)
	provider.AssertCalled(t, "SignOut", ctx)
}

func TestLoginHandlerUnverifiedEmployerStaysSignedIn(t *testing.T) {
	ctx := context.Background()
	principal := &partdime.Principal{UID: "emp-1", Email: "owner@acme.example"}

	provider := &MockAuthProvider{}
	provider.On("SignIn", ctx, "owner@acme.example", "s3cret!").Return(principal, nil)

	session := partdime.NewSession()
	handler := partdime.NewLoginHandler(provider, &MockProfileStore{}, session)

	err := handler.Execute(ctx, partdime.LoginMessage{
		Role:     partdime.RoleEmployer,
		Email:    "owner@acme.example",
		Password: "s3cret!",
	})
	assert.True(t, partdime.IsUnverifiedEmail(err))
	assert.False(t, session.Snapshot().Authenticated)

	// The provider session stays alive so the verification monitor can
	// poll on the employer's behalf.
	provider.AssertNotCalled(t, "SignOut", mock.Anything)
}

func TestLoginHandlerBadCredentials(t *testing.T) {
	ctx := context.Background()

	provider := &MockAuthProvider{}
	provider.On("SignIn", ctx, "worker@mail.example", "wrong").
		Return(nil, partdime.ErrInvalidCredentials)

	session := partdime.NewSession()

	var events []partdime.ActivityEvent
	handler := partdime.NewLoginHandler(provider, &MockProfileStore{}, session,
		partdime.WithLoginActivitySink(partdime.ActivitySinkFunc(func(_ context.Context, event partdime.ActivityEvent) error {
			events = append(events, event)
			return nil
		})))

	err := handler.Execute(ctx, partdime.LoginMessage{
		Role:     partdime.RoleEmployee,
		Email:    "worker@mail.example",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, partdime.ErrInvalidCredentials)
	assert.False(t, session.Snapshot().Authenticated)

	require.Len(t, events, 1)
	assert.Equal(t, partdime.ActivityEventLoginFailure, events[0].EventType)
}

func TestLoginHandlerInvalidPayloadSkipsProvider(t *testing.T) {
	provider := &MockAuthProvider{}
	session := partdime.NewSession()
	handler := partdime.NewLoginHandler(provider, &MockProfileStore{}, session)

	err := handler.Execute(context.Background(), partdime.LoginMessage{
		Role: partdime.RoleEmployee,
	})
	assert.Error(t, err)
	provider.AssertNotCalled(t, "SignIn", mock.Anything, mock.Anything, mock.Anything)
}
