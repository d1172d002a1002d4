// Package middleware contains the request-pipeline stages of the Agora
// backend: silent refresh-token rotation, the production-only basic-auth
// gate for admin paths, the CSRF double-submit check, and login rate
// limiting.
//
// Order matters. The admin guard runs first so /admin requests never reach
// business handlers unauthenticated in production; the token refresher wraps
// the router so every handler observes an already-rotated identity.
package middleware
