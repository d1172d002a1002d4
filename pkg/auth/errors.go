package auth

import "errors"

var (
	// ErrTokenMissing indicates no access token cookie was presented.
	ErrTokenMissing = errors.New("auth: access token missing")
	// ErrTokenExpired indicates a well-formed, correctly signed token past
	// its expiry instant.
	ErrTokenExpired = errors.New("auth: token is expired")
	// ErrTokenInvalid indicates a malformed token, a signature mismatch, or
	// a missing subject claim. Kept distinct from ErrTokenExpired so callers
	// can tell "trustworthy but stale" apart from "garbage" in logs; both
	// deny access identically.
	ErrTokenInvalid = errors.New("auth: invalid token")

	// ErrCookieDomainRequired is returned when the cookie policy is resolved
	// in production mode without a configured cookie domain. Surfaced as a
	// server error rather than silently downgrading cookie security.
	ErrCookieDomainRequired = errors.New("auth: cookie domain must be configured in production mode")
)
