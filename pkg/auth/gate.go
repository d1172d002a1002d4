package auth

import (
	"errors"
	"net/http"
)

// Gate extracts the authenticated user id from an inbound request. It is the
// identity precondition used by every handler that needs a subject.
type Gate struct {
	codec *Codec
}

// NewGate creates an identity gate backed by the given token codec.
func NewGate(codec *Codec) *Gate {
	return &Gate{codec: codec}
}

// UserID returns the authenticated user id for the request.
//
// A rotated identity placed on the context by the refresh middleware takes
// precedence over the cookie, so the first request after an access token
// expires still runs authenticated. Failures are ErrTokenMissing,
// ErrTokenExpired or ErrTokenInvalid; all of them must map to the same 401.
func (g *Gate) UserID(r *http.Request) (int64, error) {
	if id, ok := UserIDFromContext(r.Context()); ok {
		return id, nil
	}
	cookie, err := r.Cookie(AccessCookieName)
	if err != nil || cookie.Value == "" {
		return 0, ErrTokenMissing
	}
	return g.codec.Verify(cookie.Value)
}

// OptionalUserID is the non-enforcing variant: any failure yields absent.
// Read endpoints use it to personalize output without requiring login.
func (g *Gate) OptionalUserID(r *http.Request) (int64, bool) {
	id, err := g.UserID(r)
	if err != nil {
		return 0, false
	}
	return id, true
}

// UnauthenticatedReason maps a gate error to the machine-readable reason
// string returned alongside a 401.
func UnauthenticatedReason(err error) string {
	switch {
	case errors.Is(err, ErrTokenMissing):
		return "missing"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	default:
		return "invalid"
	}
}
