// Package auth implements the credential core of the Agora backend: the
// signed access/refresh token codec, the cookie policy that delivers the
// session cookie triple (access, refresh, CSRF), the per-request identity
// gate, and password hashing.
//
// Tokens are JWTs carrying a single user_id claim plus standard expiry.
// Access tokens are short-lived and stateless; refresh tokens are long-lived
// and only valid while they match the refresh_token column on the user row,
// which makes rotation single-use (see pkg/middleware.TokenRefresher).
//
// The CSRF cookie follows the double-submit pattern: it is the only cookie
// of the triple readable by scripts, and clients echo it back on mutating
// requests via the X-CSRF-Token header.
package auth
