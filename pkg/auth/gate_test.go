package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestWithAccessCookie(value string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	if value != "" {
		r.AddCookie(&http.Cookie{Name: AccessCookieName, Value: value})
	}
	return r
}

func TestGate_UserID(t *testing.T) {
	codec := newTestCodec(t)
	gate := NewGate(codec)

	valid, err := codec.Issue(42, 15*time.Minute)
	require.NoError(t, err)
	expired, err := codec.Issue(42, -time.Second)
	require.NoError(t, err)

	tests := []struct {
		name       string
		cookie     string
		expectErr  error
		expectID   int64
		wantReason string
	}{
		{name: "valid token", cookie: valid, expectID: 42},
		{name: "missing cookie", cookie: "", expectErr: ErrTokenMissing, wantReason: "missing"},
		{name: "expired token", cookie: expired, expectErr: ErrTokenExpired, wantReason: "expired"},
		{name: "garbage token", cookie: "garbage", expectErr: ErrTokenInvalid, wantReason: "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := gate.UserID(requestWithAccessCookie(tt.cookie))
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
				assert.Equal(t, tt.wantReason, UnauthenticatedReason(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectID, id)
		})
	}
}

func TestGate_UserID_ContextTakesPrecedence(t *testing.T) {
	codec := newTestCodec(t)
	gate := NewGate(codec)

	// Expired cookie, but the refresh middleware already rotated and put the
	// identity on the context.
	expired, err := codec.Issue(42, -time.Second)
	require.NoError(t, err)

	r := requestWithAccessCookie(expired)
	r = r.WithContext(WithUserID(r.Context(), 42))

	id, err := gate.UserID(r)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestGate_OptionalUserID(t *testing.T) {
	codec := newTestCodec(t)
	gate := NewGate(codec)

	valid, err := codec.Issue(7, time.Minute)
	require.NoError(t, err)

	id, ok := gate.OptionalUserID(requestWithAccessCookie(valid))
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)

	_, ok = gate.OptionalUserID(requestWithAccessCookie(""))
	assert.False(t, ok)

	_, ok = gate.OptionalUserID(requestWithAccessCookie("junk"))
	assert.False(t, ok)
}

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2!")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "hunter2!"))
	assert.False(t, CheckPassword(hash, "hunter3!"))
}

func TestRandomPassword(t *testing.T) {
	a, err := RandomPassword()
	require.NoError(t, err)
	b, err := RandomPassword()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.GreaterOrEqual(t, len(a), 20)
}
