package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication is the parent of every authentication failure. It maps to 401.
	ErrAuthentication = errors.New("authentication failed")

	// ErrTokenMissing is returned when no bearer token was presented.
	ErrTokenMissing = fmt.Errorf("%w: token missing", ErrAuthentication)

	// ErrTokenExpired is returned for a token verified at or after its expiry.
	ErrTokenExpired = fmt.Errorf("%w: token expired", ErrAuthentication)

	// ErrTokenInvalid is returned for a malformed token, a bad signature or the wrong token class.
	ErrTokenInvalid = fmt.Errorf("%w: token invalid", ErrAuthentication)

	// ErrTokenRevoked is returned for a refresh token no longer in the principal's outstanding set.
	ErrTokenRevoked = fmt.Errorf("%w: token revoked", ErrAuthentication)

	// ErrPrincipalNotFound is returned when the token subject or the login email is unknown.
	ErrPrincipalNotFound = fmt.Errorf("%w: principal not found", ErrAuthentication)

	// ErrPrincipalInactive is returned for a deactivated principal.
	ErrPrincipalInactive = fmt.Errorf("%w: principal inactive", ErrAuthentication)

	// ErrInvalidCredentials is returned when email and password do not match.
	// Unknown emails return it too, so callers cannot probe for accounts.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrAuthentication)

	// ErrTokenSigning is returned when a token can not be signed. It is an infrastructure error, not a 401.
	ErrTokenSigning = errors.New("failed to sign token")

	// ErrTokenConfig is returned by NewTokenService for unusable secrets or lifetimes.
	ErrTokenConfig = errors.New("invalid token configuration")
)

// AuthorizationError is returned when an authenticated principal lacks the required grant.
type AuthorizationError struct {
	Resource string
	Action   string
	// Roles is set instead of Resource/Action for role name checks.
	Roles []string
}

// Error implements error.
func (e *AuthorizationError) Error() string {
	if len(e.Roles) > 0 {
		return fmt.Sprintf("permission denied: one of the roles %v is required", e.Roles)
	}

	return fmt.Sprintf("permission denied: %s.%s is required", e.Resource, e.Action)
}

// IsAuthorizationError reports whether err is, or wraps, an *AuthorizationError.
func IsAuthorizationError(err error) bool {
	var authzErr *AuthorizationError
	return errors.As(err, &authzErr)
}
