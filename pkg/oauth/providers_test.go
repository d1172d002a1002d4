package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func testCredentials() Credentials {
	return Credentials{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost:8080/auth/x/callback",
	}
}

func bearerToken() *oauth2.Token {
	return &oauth2.Token{AccessToken: "provider-access", TokenType: "Bearer"}
}

func TestCredentialsConfigured(t *testing.T) {
	assert.True(t, testCredentials().Configured())
	assert.False(t, Credentials{ClientID: "x"}.Configured())
	assert.False(t, Credentials{RedirectURI: "y"}.Configured())
}

func TestKakaoAuthCodeURL(t *testing.T) {
	p := NewKakaoProvider(testCredentials())

	u, err := url.Parse(p.AuthCodeURL("st-1"))
	require.NoError(t, err)
	assert.Equal(t, "kauth.kakao.com", u.Host)
	assert.Equal(t, "st-1", u.Query().Get("state"))
	assert.Equal(t, "client-id", u.Query().Get("client_id"))
}

func TestKakaoFetchProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer provider-access", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": 987654,
			"kakao_account": {
				"email": "kuser@example.com",
				"profile": {"nickname": "kuser"}
			}
		}`))
	}))
	defer srv.Close()

	p := NewKakaoProvider(testCredentials())
	p.profileURL = srv.URL

	profile, err := p.FetchProfile(context.Background(), bearerToken())
	require.NoError(t, err)
	assert.Equal(t, "987654", profile.ExternalID)
	assert.Equal(t, "kuser@example.com", profile.Email)
	assert.Equal(t, "kuser", profile.Name)
}

func TestKakaoFetchProfile_MissingEmailGetsPlaceholder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 42, "kakao_account": {"profile": {"nickname": "noemail"}}}`))
	}))
	defer srv.Close()

	p := NewKakaoProvider(testCredentials())
	p.profileURL = srv.URL

	profile, err := p.FetchProfile(context.Background(), bearerToken())
	require.NoError(t, err)
	assert.Equal(t, "kakao_42@placeholder.local", profile.Email)
}

func TestKakaoFetchProfile_MissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	p := NewKakaoProvider(testCredentials())
	p.profileURL = srv.URL

	_, err := p.FetchProfile(context.Background(), bearerToken())
	var fe *FlowError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "profile_fetch_failed", fe.Code)
}

func TestNaverFetchProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"resultcode": "00",
			"response": {"id": "n-1", "email": "nuser@example.com", "nickname": "nuser"}
		}`))
	}))
	defer srv.Close()

	p := NewNaverProvider(testCredentials())
	p.profileURL = srv.URL

	profile, err := p.FetchProfile(context.Background(), bearerToken())
	require.NoError(t, err)
	assert.Equal(t, "n-1", profile.ExternalID)
	assert.Equal(t, "nuser@example.com", profile.Email)
	assert.Equal(t, "nuser", profile.Name)
}

func TestNaverFetchProfile_BadResultCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"resultcode": "024", "response": {}}`))
	}))
	defer srv.Close()

	p := NewNaverProvider(testCredentials())
	p.profileURL = srv.URL

	_, err := p.FetchProfile(context.Background(), bearerToken())
	var fe *FlowError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "profile_fetch_failed", fe.Code)
}

func TestNaverFetchProfile_MissingEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"resultcode": "00", "response": {"id": "n-2", "nickname": "x"}}`))
	}))
	defer srv.Close()

	p := NewNaverProvider(testCredentials())
	p.profileURL = srv.URL

	_, err := p.FetchProfile(context.Background(), bearerToken())
	var fe *FlowError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "email_not_provided", fe.Code)
}

func TestNaverExchange_ForwardsState(t *testing.T) {
	var gotState string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotState = r.FormValue("state")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "at", "token_type": "Bearer"}`))
	}))
	defer srv.Close()

	p := NewNaverProvider(testCredentials())
	p.config.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/authorize", TokenURL: srv.URL + "/token"}

	token, err := p.Exchange(context.Background(), "code-1", "st-1")
	require.NoError(t, err)
	assert.Equal(t, "at", token.AccessToken)
	assert.Equal(t, "st-1", gotState)
}

func TestKakaoExchange_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewKakaoProvider(testCredentials())
	p.config.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/authorize", TokenURL: srv.URL + "/token"}

	_, err := p.Exchange(context.Background(), "bad-code", "st-1")
	var fe *FlowError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "exchange_failed", fe.Code)
}
