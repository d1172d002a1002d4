package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"
)

// Session cookie names. The CSRF cookie is the only one readable by
// client-side scripts.
const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"
	CSRFCookieName    = "csrf_token"
	StateCookieName   = "oauth_state"
)

// CSRFHeaderName is the header a same-origin client echoes the CSRF cookie
// value back in on state-changing requests (double-submit pattern).
const CSRFHeaderName = "X-CSRF-Token"

// CookiePolicy holds the attributes shared by every session cookie. Exactly
// two variants exist: production (Secure, SameSite=None, explicit domain)
// and everything else (SameSite=Lax, host-only).
type CookiePolicy struct {
	Secure   bool
	SameSite http.SameSite
	Domain   string
	Path     string
}

// ResolveCookiePolicy picks the policy variant for the deployment mode.
// In production an empty domain is a configuration error, not a fallback.
func ResolveCookiePolicy(prod bool, domain string) (CookiePolicy, error) {
	if prod {
		if domain == "" {
			return CookiePolicy{}, ErrCookieDomainRequired
		}
		return CookiePolicy{
			Secure:   true,
			SameSite: http.SameSiteNoneMode,
			Domain:   domain,
			Path:     "/",
		}, nil
	}
	return CookiePolicy{
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	}, nil
}

// MintCSRFToken returns 32 bytes of entropy rendered as hex.
func MintCSRFToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: mint csrf token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// CookieManager attaches and clears the session cookie triple under the
// policy resolved for the deployment mode.
type CookieManager struct {
	prod       bool
	domain     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewCookieManager creates a cookie manager. accessTTL and refreshTTL become
// the max-age of the respective cookies; the CSRF cookie shares the refresh
// TTL.
func NewCookieManager(prod bool, domain string, accessTTL, refreshTTL time.Duration) *CookieManager {
	return &CookieManager{
		prod:       prod,
		domain:     domain,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Attach sets the access, refresh and a freshly minted CSRF cookie on the
// response.
func (m *CookieManager) Attach(w http.ResponseWriter, access, refresh string) error {
	policy, err := ResolveCookiePolicy(m.prod, m.domain)
	if err != nil {
		return err
	}
	csrf, err := MintCSRFToken()
	if err != nil {
		return err
	}
	setCookie(w, policy, AccessCookieName, access, true, int(m.accessTTL.Seconds()))
	setCookie(w, policy, RefreshCookieName, refresh, true, int(m.refreshTTL.Seconds()))
	setCookie(w, policy, CSRFCookieName, csrf, false, int(m.refreshTTL.Seconds()))
	return nil
}

// Clear overwrites all three session cookies with empty, immediately
// expiring values. The clearing cookies must carry the same domain, path and
// SameSite attributes as the originals: browsers treat a mismatched scope as
// a different cookie and keep the old one alive.
func (m *CookieManager) Clear(w http.ResponseWriter) error {
	policy, err := ResolveCookiePolicy(m.prod, m.domain)
	if err != nil {
		return err
	}
	setCookie(w, policy, AccessCookieName, "", true, -1)
	setCookie(w, policy, RefreshCookieName, "", true, -1)
	setCookie(w, policy, CSRFCookieName, "", false, -1)
	return nil
}

func setCookie(w http.ResponseWriter, policy CookiePolicy, name, value string, httpOnly bool, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     policy.Path,
		Domain:   policy.Domain,
		Secure:   policy.Secure,
		SameSite: policy.SameSite,
		HttpOnly: httpOnly,
		MaxAge:   maxAge,
	})
}
