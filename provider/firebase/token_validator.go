package firebase

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"

	partdime "github.com/devprabhu18/PartDImeApp"
)

// jwksURL serves the rotating keys Firebase signs ID tokens with.
const jwksURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

// ErrTokenExpired is returned when a cached ID token is past its expiry.
var ErrTokenExpired = goerrors.New("id token expired", goerrors.CategoryAuth).
	WithTextCode("FIREBASE_TOKEN_EXPIRED").
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenInvalid is returned for malformed or mis-signed ID tokens.
var ErrTokenInvalid = goerrors.New("id token invalid", goerrors.CategoryAuth).
	WithTextCode("FIREBASE_TOKEN_INVALID").
	WithCode(goerrors.CodeUnauthorized)

type idTokenClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// TokenValidator checks Firebase ID tokens against the securetoken JWKS.
// Used at cold start to decide whether a cached token still identifies a
// principal before trusting a restored session.
type TokenValidator struct {
	projectID string
	jwks      *keyfunc.JWKS
}

// NewTokenValidator fetches the securetoken JWKS and keeps it refreshed.
func NewTokenValidator(ctx context.Context, projectID string) (*TokenValidator, error) {
	if projectID == "" {
		return nil, goerrors.New("firebase: project id is required", goerrors.CategoryValidation)
	}

	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		Ctx:             ctx,
		RefreshInterval: time.Hour,
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "firebase: failed to fetch jwks")
	}
	return NewTokenValidatorJWKS(projectID, jwks), nil
}

// NewTokenValidatorJWKS wraps an already constructed key set (used in
// tests and by callers with their own refresh policy).
func NewTokenValidatorJWKS(projectID string, jwks *keyfunc.JWKS) *TokenValidator {
	return &TokenValidator{projectID: projectID, jwks: jwks}
}

// Validate parses and verifies the ID token, returning the principal it
// identifies.
func (v *TokenValidator) Validate(tokenString string) (*partdime.Principal, error) {
	claims := &idTokenClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(fmt.Sprintf("https://securetoken.google.com/%s", v.projectID)),
		jwt.WithAudience(v.projectID),
	)

	token, err := parser.ParseWithClaims(tokenString, claims, v.jwks.Keyfunc)
	if err != nil {
		return nil, normalizeTokenError(err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	return &partdime.Principal{
		UID:           claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		IDToken:       tokenString,
	}, nil
}

func normalizeTokenError(err error) error {
	clone := ErrTokenInvalid.Clone()
	if stderrors.Is(err, jwt.ErrTokenExpired) {
		clone = ErrTokenExpired.Clone()
	}
	clone.Source = err
	return clone.WithMetadata(map[string]any{"cause": err.Error()})
}
