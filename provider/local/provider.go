// Package local implements the auth provider over a bun/SQLite user table.
// It backs development builds and integration tests, where real email
// round trips are replaced by MarkVerified.
package local

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/crypto/bcrypt"

	partdime "github.com/devprabhu18/PartDImeApp"
)

type userRecord struct {
	bun.BaseModel `bun:"table:local_users,alias:lu"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid"`
	Email         string     `bun:"email,notnull,unique"`
	PasswordHash  string     `bun:"password_hash,notnull"`
	EmailVerified bool       `bun:"is_email_verified,notnull"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

// Provider implements partdime.AuthProvider against a local database.
type Provider struct {
	db *bun.DB

	mu        sync.Mutex
	current   *partdime.Principal
	listeners map[int]func(*partdime.Principal)
	nextID    int
}

var _ partdime.AuthProvider = (*Provider)(nil)

// New wraps an existing bun handle.
func New(db *bun.DB) *Provider {
	return &Provider{
		db:        db,
		listeners: map[int]func(*partdime.Principal){},
	}
}

// Open opens (or creates) the SQLite database at path and ensures the user
// table exists. Use ":memory:" for an ephemeral provider.
func Open(ctx context.Context, path string) (*Provider, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, err
	}

	p := New(bun.NewDB(sqldb, sqlitedialect.New()))
	if err := p.Init(ctx); err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	return p, nil
}

// Init creates the backing table if it does not exist.
func (p *Provider) Init(ctx context.Context) error {
	_, err := p.db.NewCreateTable().
		Model((*userRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// SignUp creates an unverified account and makes it the current principal.
// UIDs derive deterministically from the email so repeated dev runs keep
// stable identities.
func (p *Provider) SignUp(ctx context.Context, email, password string) (*partdime.Principal, error) {
	if len(password) < 6 {
		return nil, partdime.ErrWeakPassword
	}

	exists, err := p.db.NewSelect().
		Model((*userRecord)(nil)).
		Where("lu.email = ?", email).
		Exists(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "local: lookup failed")
	}
	if exists {
		return nil, partdime.ErrEmailInUse
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "local: failed to hash password")
	}

	id, err := hashid.NewUUID(email)
	if err != nil {
		id = uuid.New()
	}

	record := &userRecord{
		ID:           id,
		Email:        email,
		PasswordHash: string(hash),
	}
	if _, err := p.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "local: could not create user")
	}

	principal := &partdime.Principal{UID: id.String(), Email: email}
	p.setCurrent(principal)
	return principal, nil
}

// SignIn authenticates the credentials and makes the account the current
// principal.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*partdime.Principal, error) {
	record := &userRecord{}
	err := p.db.NewSelect().
		Model(record).
		Where("lu.email = ?", email).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, partdime.ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "local: lookup failed")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte(password)); err != nil {
		return nil, partdime.ErrInvalidCredentials
	}

	principal := &partdime.Principal{
		UID:           record.ID.String(),
		Email:         record.Email,
		EmailVerified: record.EmailVerified,
	}
	p.setCurrent(principal)
	return principal, nil
}

// SendVerificationEmail is a no-op locally; tests flip the flag with
// MarkVerified instead.
func (p *Provider) SendVerificationEmail(_ context.Context, principal *partdime.Principal) error {
	if principal == nil {
		return partdime.ErrNoPrincipal
	}
	return nil
}

// Refresh re-reads the account so the caller observes the latest
// verification flag.
func (p *Provider) Refresh(ctx context.Context, principal *partdime.Principal) (*partdime.Principal, error) {
	if principal == nil {
		return nil, partdime.ErrNoPrincipal
	}

	id, err := uuid.Parse(principal.UID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "local: malformed uid")
	}

	record := &userRecord{}
	err = p.db.NewSelect().
		Model(record).
		Where("lu.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, partdime.ErrNoPrincipal
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "local: lookup failed")
	}

	refreshed := &partdime.Principal{
		UID:           record.ID.String(),
		Email:         record.Email,
		EmailVerified: record.EmailVerified,
	}

	p.mu.Lock()
	if p.current != nil && p.current.UID == refreshed.UID {
		p.current = refreshed
	}
	p.mu.Unlock()

	return refreshed, nil
}

// CurrentPrincipal returns the signed-in principal, or nil.
func (p *Provider) CurrentPrincipal() *partdime.Principal {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	copied := *p.current
	return &copied
}

// SignOut drops the current principal.
func (p *Provider) SignOut(_ context.Context) error {
	p.setCurrent(nil)
	return nil
}

// OnPrincipalChanged registers fn to run on every sign-in and sign-out.
// The returned function removes the subscription.
func (p *Provider) OnPrincipalChanged(fn func(*partdime.Principal)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

// MarkVerified flips the verification flag for the account, standing in
// for the user clicking the emailed link.
func (p *Provider) MarkVerified(ctx context.Context, email string) error {
	res, err := p.db.NewUpdate().
		Model((*userRecord)(nil)).
		Set("is_email_verified = ?", true).
		Where("lu.email = ?", email).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "local: failed to mark verified")
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return goerrors.New("local: no such account", goerrors.CategoryNotFound).
			WithCode(goerrors.CodeNotFound)
	}
	return nil
}

// Close releases the underlying database handle.
func (p *Provider) Close() error {
	return p.db.Close()
}

func (p *Provider) setCurrent(principal *partdime.Principal) {
	p.mu.Lock()
	p.current = principal
	fns := make([]func(*partdime.Principal), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(principal)
	}
}
