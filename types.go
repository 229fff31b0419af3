package partdime

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Principal is the authenticated identity handle returned by an AuthProvider.
type Principal struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	IDToken       string `json:"id_token,omitempty"`
}

// AuthProvider is the credential authority the client talks to. Refresh
// re-fetches the principal so callers observe an up-to-date verification
// flag; SignOut is best-effort and local session teardown proceeds
// regardless of its outcome.
type AuthProvider interface {
	SignIn(ctx context.Context, email, password string) (*Principal, error)
	SignUp(ctx context.Context, email, password string) (*Principal, error)
	SendVerificationEmail(ctx context.Context, p *Principal) error
	CurrentPrincipal() *Principal
	Refresh(ctx context.Context, p *Principal) (*Principal, error)
	SignOut(ctx context.Context) error
	OnPrincipalChanged(fn func(*Principal)) (unsubscribe func())
}

const (
	CollectionEmployers = "employers"
	CollectionEmployees = "employees"
)

// ProfileStore is a document store partitioned into the employer and
// employee collections. Get reports found=false for a missing document
// instead of an error; callers supply their own fallback values.
type ProfileStore interface {
	GetProfile(ctx context.Context, collection, id string) (map[string]any, bool, error)
	SetProfile(ctx context.Context, collection, id string, fields map[string]any) error
}

// SessionRecords is the device-local durable storage behind the persisted
// session record. Implementations must tolerate concurrent access from the
// session's mutators.
type SessionRecords interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}

// Clock abstracts time.Now for deterministic tests.
type Clock func() time.Time

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] PARTDIME "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] PARTDIME "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] PARTDIME "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
