// Package firebase implements the auth provider against the Google
// Identity Toolkit REST API, the backend the mobile client authenticates
// with.
package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"

	partdime "github.com/devprabhu18/PartDImeApp"
)

const defaultEndpoint = "https://identitytoolkit.googleapis.com/v1"

// Config holds the Identity Toolkit settings.
type Config struct {
	// APIKey is the web API key of the Firebase project.
	APIKey string
	// ProjectID is used as token audience by the TokenValidator.
	ProjectID string
	// Endpoint overrides the API base URL (used in tests).
	Endpoint string
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
	// Logger overrides the default logger.
	Logger partdime.Logger
}

// Provider implements partdime.AuthProvider over the Identity Toolkit REST
// API. It tracks the signed-in principal in memory and notifies subscribers
// on every sign-in and sign-out, mirroring the SDK's auth-state listener.
type Provider struct {
	cfg    Config
	client *http.Client
	logger partdime.Logger

	mu        sync.Mutex
	current   *partdime.Principal
	listeners map[int]func(*partdime.Principal)
	nextID    int
}

var _ partdime.AuthProvider = (*Provider)(nil)

// New builds a provider. The API key is required.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, goerrors.New("firebase: api key is required", goerrors.CategoryValidation)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	var logger partdime.Logger = cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Provider{
		cfg:       cfg,
		client:    client,
		logger:    logger,
		listeners: map[int]func(*partdime.Principal){},
	}, nil
}

type signUpRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signUpResponse struct {
	IDToken string `json:"idToken"`
	Email   string `json:"email"`
	LocalID string `json:"localId"`
}

type oobCodeRequest struct {
	RequestType string `json:"requestType"`
	IDToken     string `json:"idToken"`
}

type lookupRequest struct {
	IDToken string `json:"idToken"`
}

type lookupResponse struct {
	Users []struct {
		LocalID       string `json:"localId"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"emailVerified"`
	} `json:"users"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SignUp creates the account and makes it the current principal. Fresh
// accounts always start unverified.
func (p *Provider) SignUp(ctx context.Context, email, password string) (*partdime.Principal, error) {
	var res signUpResponse
	if err := p.call(ctx, "accounts:signUp", signUpRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}, &res); err != nil {
		return nil, err
	}

	principal := &partdime.Principal{
		UID:     res.LocalID,
		Email:   res.Email,
		IDToken: res.IDToken,
	}
	p.setCurrent(principal)
	return principal, nil
}

// SignIn authenticates the credentials and makes the account the current
// principal. A lookup follows the sign-in so the returned principal carries
// an up-to-date verification flag.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*partdime.Principal, error) {
	var res signUpResponse
	if err := p.call(ctx, "accounts:signInWithPassword", signUpRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}, &res); err != nil {
		return nil, err
	}

	principal := &partdime.Principal{
		UID:     res.LocalID,
		Email:   res.Email,
		IDToken: res.IDToken,
	}

	refreshed, err := p.Refresh(ctx, principal)
	if err != nil {
		p.logger.Error("firebase: post-login lookup failed: %v", err)
		refreshed = principal
	}

	p.setCurrent(refreshed)
	return refreshed, nil
}

// SendVerificationEmail asks the backend to email a verification link.
func (p *Provider) SendVerificationEmail(ctx context.Context, principal *partdime.Principal) error {
	if principal == nil || principal.IDToken == "" {
		return partdime.ErrNoPrincipal
	}
	return p.call(ctx, "accounts:sendOobCode", oobCodeRequest{
		RequestType: "VERIFY_EMAIL",
		IDToken:     principal.IDToken,
	}, &struct{}{})
}

// Refresh re-fetches the account so the caller observes the latest
// verification flag. The in-memory current principal is updated when it is
// the same account.
func (p *Provider) Refresh(ctx context.Context, principal *partdime.Principal) (*partdime.Principal, error) {
	if principal == nil || principal.IDToken == "" {
		return nil, partdime.ErrNoPrincipal
	}

	var res lookupResponse
	if err := p.call(ctx, "accounts:lookup", lookupRequest{IDToken: principal.IDToken}, &res); err != nil {
		return nil, err
	}
	if len(res.Users) == 0 {
		return nil, partdime.ErrNoPrincipal
	}

	refreshed := &partdime.Principal{
		UID:           res.Users[0].LocalID,
		Email:         res.Users[0].Email,
		EmailVerified: res.Users[0].EmailVerified,
		IDToken:       principal.IDToken,
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

// SignOut drops the current principal. Identity Toolkit sessions are
// client-held, so this is a local operation that cannot fail remotely.
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

func (p *Provider) call(ctx context.Context, action string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "firebase: failed to encode request")
	}

	url := fmt.Sprintf("%s/%s?key=%s", p.cfg.Endpoint, action, p.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "firebase: failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		clone := partdime.ErrNetwork.Clone()
		clone.Source = err
		return clone.WithMetadata(map[string]any{"action": action})
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		var apiErr apiError
		if err := json.NewDecoder(res.Body).Decode(&apiErr); err != nil {
			clone := partdime.ErrNetwork.Clone()
			clone.Source = err
			return clone.WithMetadata(map[string]any{"action": action, "status": res.StatusCode})
		}
		return mapAPIError(apiErr.Error.Message)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		clone := partdime.ErrNetwork.Clone()
		clone.Source = err
		return clone.WithMetadata(map[string]any{"action": action})
	}
	return nil
}

// mapAPIError translates Identity Toolkit error codes into the client's
// error taxonomy.
func mapAPIError(message string) error {
	switch {
	case message == "EMAIL_EXISTS":
		return partdime.ErrEmailInUse
	case strings.HasPrefix(message, "WEAK_PASSWORD"):
		return partdime.ErrWeakPassword
	case message == "EMAIL_NOT_FOUND",
		message == "INVALID_PASSWORD",
		message == "INVALID_LOGIN_CREDENTIALS",
		message == "USER_DISABLED":
		return partdime.ErrInvalidCredentials
	default:
		return goerrors.New(fmt.Sprintf("firebase: %s", message), goerrors.CategoryOperation)
	}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
