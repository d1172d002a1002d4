package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/agora-board/agora/pkg/auth"
	"github.com/agora-board/agora/pkg/httputil"
)

// RefreshTokenStore is the slice of the user store the refresher needs: the
// conditional swap of the persisted refresh pointer.
type RefreshTokenStore interface {
	RotateRefreshToken(ctx context.Context, userID int64, presented, next string) (bool, error)
}

// TokenRefresher transparently rotates an expired or absent access token
// into a fresh access/refresh pair when a valid, currently registered
// refresh token is presented. It wraps the whole router: on rotation the new
// cookies are attached to the outbound response and the rotated identity is
// injected into the request context, so the handler of this same request
// already runs authenticated.
type TokenRefresher struct {
	codec      *auth.Codec
	cookies    *auth.CookieManager
	store      RefreshTokenStore
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *logrus.Logger
}

// NewTokenRefresher creates the refresh middleware.
func NewTokenRefresher(codec *auth.Codec, cookies *auth.CookieManager, store RefreshTokenStore,
	accessTTL, refreshTTL time.Duration, logger *logrus.Logger) *TokenRefresher {
	return &TokenRefresher{
		codec:      codec,
		cookies:    cookies,
		store:      store,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

// Handler wraps next with the per-request rotation state machine.
func (m *TokenRefresher) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Fast path: a valid access token needs no rotation.
		if c, err := r.Cookie(auth.AccessCookieName); err == nil && c.Value != "" {
			if _, err := m.codec.Verify(c.Value); err == nil {
				next.ServeHTTP(w, r)
				return
			}
		}

		refreshCookie, err := r.Cookie(auth.RefreshCookieName)
		if err != nil || refreshCookie.Value == "" {
			// Nothing to rotate with; the gate will answer 401 where needed.
			next.ServeHTTP(w, r)
			return
		}

		userID, err := m.codec.Verify(refreshCookie.Value)
		if err != nil {
			// An unverifiable refresh token can never be trusted to rotate.
			// Demote to logged-out: clear the triple and let the request run
			// unauthenticated, indistinguishable from never having logged in.
			m.clearSession(w)
			next.ServeHTTP(w, r)
			return
		}

		newAccess, newRefresh, swapped, err := m.rotate(r.Context(), userID, refreshCookie.Value)
		if err != nil {
			// Fail closed: the rotation did not complete cleanly, so no
			// cookies may reach the client and the handler must not run on a
			// half-rotated session.
			m.logger.WithError(err).WithField("user_id", userID).Error("token rotation failed")
			httputil.WriteInternalError(w, errors.New("session refresh failed"))
			return
		}
		if !swapped {
			// The presented token no longer matches the persisted pointer:
			// already rotated away, or the account is gone. Replay defense,
			// same demotion as an unverifiable token.
			m.logger.WithField("user_id", userID).Warn("refresh token reuse rejected")
			m.clearSession(w)
			next.ServeHTTP(w, r)
			return
		}

		if err := m.cookies.Attach(w, newAccess, newRefresh); err != nil {
			m.logger.WithError(err).WithField("user_id", userID).Error("failed to attach session cookies")
			httputil.WriteInternalError(w, errors.New("session refresh failed"))
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
	})
}

// rotate mints the replacement pair and swaps the persisted refresh pointer,
// but only if it still equals the presented token.
func (m *TokenRefresher) rotate(ctx context.Context, userID int64, presented string) (access, refresh string, swapped bool, err error) {
	access, err = m.codec.Issue(userID, m.accessTTL)
	if err != nil {
		return "", "", false, err
	}
	refresh, err = m.codec.Issue(userID, m.refreshTTL)
	if err != nil {
		return "", "", false, err
	}
	swapped, err = m.store.RotateRefreshToken(ctx, userID, presented, refresh)
	if err != nil {
		return "", "", false, err
	}
	return access, refresh, swapped, nil
}

func (m *TokenRefresher) clearSession(w http.ResponseWriter) {
	if err := m.cookies.Clear(w); err != nil {
		m.logger.WithError(err).Error("failed to clear session cookies")
	}
}
