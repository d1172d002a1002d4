package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// adminPathPrefix is the path space guarded by basic auth in production.
const adminPathPrefix = "/admin"

// AdminGuard protects /admin paths with HTTP basic auth, and only in
// production mode. Outside production, or off the admin prefix, it is a
// pass-through.
type AdminGuard struct {
	prod     bool
	username string
	password string
}

// NewAdminGuard creates the admin gate. Empty credentials are allowed at
// construction; requests then fail with a server error rather than falling
// open.
func NewAdminGuard(prod bool, username, password string) *AdminGuard {
	return &AdminGuard{prod: prod, username: username, password: password}
}

// Handler wraps next with the admin check.
func (g *AdminGuard) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.prod || !strings.HasPrefix(r.URL.Path, adminPathPrefix) {
			next.ServeHTTP(w, r)
			return
		}

		if g.username == "" || g.password == "" {
			// Unconfigured credentials block access instead of exposing the
			// admin surface.
			http.Error(w, "admin credentials not configured", http.StatusInternalServerError)
			return
		}

		username, password, ok := r.BasicAuth()
		if !ok {
			g.unauthorized(w)
			return
		}

		// Compare both fields unconditionally to keep the comparison
		// constant-time regardless of which one mismatches.
		userOK := subtle.ConstantTimeCompare([]byte(username), []byte(g.username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(password), []byte(g.password)) == 1
		if !userOK || !passOK {
			g.unauthorized(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (g *AdminGuard) unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="Admin"`)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}
