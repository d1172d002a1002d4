package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agora-board/agora/pkg/auth"
)

type fakeRefreshStore struct {
	pointers map[int64]string
	err      error
	calls    int
}

func (f *fakeRefreshStore) RotateRefreshToken(_ context.Context, userID int64, presented, next string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	if f.pointers[userID] != presented {
		return false, nil
	}
	f.pointers[userID] = next
	return true, nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type refreshFixture struct {
	codec     *auth.Codec
	gate      *auth.Gate
	store     *fakeRefreshStore
	refresher *TokenRefresher
}

func newRefreshFixture(t *testing.T) *refreshFixture {
	t.Helper()
	codec, err := auth.NewCodec("refresh-test-secret", "HS256")
	require.NoError(t, err)
	store := &fakeRefreshStore{pointers: make(map[int64]string)}
	cookies := auth.NewCookieManager(false, "", 15*time.Minute, 7*24*time.Hour)
	return &refreshFixture{
		codec:     codec,
		gate:      auth.NewGate(codec),
		store:     store,
		refresher: NewTokenRefresher(codec, cookies, store, 15*time.Minute, 7*24*time.Hour, testLogger()),
	}
}

// echoHandler reports the identity the inner handler observes.
func (f *refreshFixture) echoHandler(t *testing.T, sawUserID *int64, sawAuth *bool) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := f.gate.UserID(r)
		*sawAuth = err == nil
		*sawUserID = id
		w.WriteHeader(http.StatusOK)
	})
}

func setCookies(r *http.Request, access, refresh string) {
	if access != "" {
		r.AddCookie(&http.Cookie{Name: auth.AccessCookieName, Value: access})
	}
	if refresh != "" {
		r.AddCookie(&http.Cookie{Name: auth.RefreshCookieName, Value: refresh})
	}
}

func responseCookies(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := make(map[string]*http.Cookie)
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func TestTokenRefresher_ValidAccessPassesThrough(t *testing.T) {
	f := newRefreshFixture(t)
	access, err := f.codec.Issue(42, 15*time.Minute)
	require.NoError(t, err)

	var sawID int64
	var sawAuth bool
	r := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	setCookies(r, access, "")
	rec := httptest.NewRecorder()

	f.refresher.Handler(f.echoHandler(t, &sawID, &sawAuth)).ServeHTTP(rec, r)

	assert.True(t, sawAuth)
	assert.Equal(t, int64(42), sawID)
	assert.Empty(t, rec.Result().Cookies(), "no rotation means cookies stay untouched")
	assert.Zero(t, f.store.calls)
}

func TestTokenRefresher_ExpiredAccessRotatesInFlight(t *testing.T) {
	f := newRefreshFixture(t)
	expiredAccess, err := f.codec.Issue(42, -time.Second)
	require.NoError(t, err)
	refresh, err := f.codec.Issue(42, 24*time.Hour)
	require.NoError(t, err)
	f.store.pointers[42] = refresh

	var sawID int64
	var sawAuth bool
	r := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	setCookies(r, expiredAccess, refresh)
	rec := httptest.NewRecorder()

	f.refresher.Handler(f.echoHandler(t, &sawID, &sawAuth)).ServeHTTP(rec, r)

	// The handler of this same request already runs as the rotated subject.
	assert.True(t, sawAuth, "handler must observe the rotated identity")
	assert.Equal(t, int64(42), sawID)
	assert.Equal(t, http.StatusOK, rec.Code)

	cookies := responseCookies(rec)
	require.Len(t, cookies, 3)
	newAccess := cookies[auth.AccessCookieName]
	require.NotNil(t, newAccess)
	id, err := f.codec.Verify(newAccess.Value)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	newRefresh := cookies[auth.RefreshCookieName]
	require.NotNil(t, newRefresh)
	assert.NotEqual(t, refresh, newRefresh.Value, "refresh token must rotate")
	assert.Equal(t, newRefresh.Value, f.store.pointers[42], "persisted pointer holds the new token")
}

func TestTokenRefresher_OldTokenRejectedAfterRotation(t *testing.T) {
	f := newRefreshFixture(t)
	oldRefresh, err := f.codec.Issue(42, 24*time.Hour)
	require.NoError(t, err)
	// The store already points at a newer token.
	f.store.pointers[42] = "a-newer-refresh-token"

	var sawID int64
	var sawAuth bool
	r := httptest.NewRequest(http.MethodGet, "/topics", nil)
	setCookies(r, "", oldRefresh)
	rec := httptest.NewRecorder()

	f.refresher.Handler(f.echoHandler(t, &sawID, &sawAuth)).ServeHTTP(rec, r)

	// Replayed token: request proceeds unauthenticated, cookies cleared.
	assert.False(t, sawAuth)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a-newer-refresh-token", f.store.pointers[42], "pointer untouched")

	cookies := responseCookies(rec)
	require.Len(t, cookies, 3)
	for name, c := range cookies {
		assert.Empty(t, c.Value, "cookie %s", name)
		assert.Negative(t, c.MaxAge, "cookie %s", name)
	}
}

func TestTokenRefresher_UnverifiableRefreshClearsCookies(t *testing.T) {
	f := newRefreshFixture(t)

	var sawID int64
	var sawAuth bool
	r := httptest.NewRequest(http.MethodGet, "/topics", nil)
	setCookies(r, "", "not-a-real-token")
	rec := httptest.NewRecorder()

	f.refresher.Handler(f.echoHandler(t, &sawID, &sawAuth)).ServeHTTP(rec, r)

	assert.False(t, sawAuth)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, f.store.calls, "an unverifiable token never reaches the store")
	require.Len(t, responseCookies(rec), 3)
}

func TestTokenRefresher_NoCookiesPassesThrough(t *testing.T) {
	f := newRefreshFixture(t)

	var sawID int64
	var sawAuth bool
	r := httptest.NewRequest(http.MethodGet, "/topics", nil)
	rec := httptest.NewRecorder()

	f.refresher.Handler(f.echoHandler(t, &sawID, &sawAuth)).ServeHTTP(rec, r)

	assert.False(t, sawAuth)
	assert.Empty(t, rec.Result().Cookies(), "anonymous requests keep their non-session")
}

func TestTokenRefresher_StoreErrorFailsClosed(t *testing.T) {
	f := newRefreshFixture(t)
	refresh, err := f.codec.Issue(42, 24*time.Hour)
	require.NoError(t, err)
	f.store.err = errors.New("connection reset")

	handlerRan := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerRan = true
	})

	r := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	setCookies(r, "", refresh)
	rec := httptest.NewRecorder()

	f.refresher.Handler(inner).ServeHTTP(rec, r)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, handlerRan, "handler must not run on a failed rotation")
	assert.Empty(t, rec.Result().Cookies(), "no cookies on the failure path")
}
