// Package api wires the HTTP surface of the service: account and session
// endpoints, topic endpoints, the admin surface, and the middleware chain
// (request logging, panic recovery, CORS, metrics, admin basic auth, login
// rate limiting, CSRF double-submit, and transparent token refresh).
package api
