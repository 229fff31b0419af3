package partdime

import "github.com/goliatone/go-errors"

const (
	TextCodeInvalidCredentials  = "auth_invalid_credentials"
	TextCodeEmailInUse          = "auth_email_in_use"
	TextCodeWeakPassword        = "auth_weak_password"
	TextCodeNetwork             = "auth_network_unavailable"
	TextCodeUnverifiedEmail     = "auth_email_not_verified"
	TextCodeVerificationExpired = "auth_verification_expired"
	TextCodeRoleMismatch        = "auth_role_mismatch"
	TextCodeNoPrincipal         = "auth_no_principal"
)

// ErrInvalidCredentials is returned for a bad email/password pair on login
// or signup. Shown to the user, no session change.
var ErrInvalidCredentials = errors.New("invalid email or password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrEmailInUse is returned when signup targets an already registered email.
var ErrEmailInUse = errors.New("email already in use", errors.CategoryConflict).
	WithTextCode(TextCodeEmailInUse).
	WithCode(errors.CodeConflict)

// ErrWeakPassword is returned when the provider rejects the password.
var ErrWeakPassword = errors.New("password does not meet requirements", errors.CategoryValidation).
	WithTextCode(TextCodeWeakPassword).
	WithCode(errors.CodeBadRequest)

// ErrNetwork marks transient provider/store failures. Never retried
// silently outside the verification poll cadence; the user retries.
var ErrNetwork = errors.New("network unavailable", errors.CategoryOperation).
	WithTextCode(TextCodeNetwork).
	WithCode(errors.CodeBadRequest)

// ErrUnverifiedEmail is a routing signal, not a failure: the caller should
// send the user into the verification flow.
var ErrUnverifiedEmail = errors.New("email not verified", errors.CategoryAuth).
	WithTextCode(TextCodeUnverifiedEmail).
	WithCode(errors.CodeForbidden)

// ErrVerificationExpired is terminal for the session; the monitor forces a
// sign-out and reset when it fires.
var ErrVerificationExpired = errors.New("verification window expired", errors.CategoryAuth).
	WithTextCode(TextCodeVerificationExpired).
	WithCode(errors.CodeForbidden)

// ErrRoleMismatch is returned when a verified login has no profile document
// in the collection the chosen role requires.
var ErrRoleMismatch = errors.New("account not recognized for this role", errors.CategoryAuth).
	WithTextCode(TextCodeRoleMismatch).
	WithCode(errors.CodeForbidden)

// ErrNoPrincipal is returned when an operation needs a signed-in principal
// and the provider has none.
var ErrNoPrincipal = errors.New("no signed-in principal", errors.CategoryAuth).
	WithTextCode(TextCodeNoPrincipal).
	WithCode(errors.CodeUnauthorized)

// IsNetworkError reports whether err carries the transient-network text code.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var rich *errors.Error
	if errors.As(err, &rich) {
		return rich.TextCode == TextCodeNetwork
	}
	return false
}

// IsUnverifiedEmail reports whether err is the verification routing signal.
func IsUnverifiedEmail(err error) bool {
	if err == nil {
		return false
	}
	var rich *errors.Error
	if errors.As(err, &rich) {
		return rich.TextCode == TextCodeUnverifiedEmail
	}
	return false
}
