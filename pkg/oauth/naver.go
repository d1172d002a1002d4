package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

var naverEndpoint = oauth2.Endpoint{
	AuthURL:  "https://nid.naver.com/oauth2.0/authorize",
	TokenURL: "https://nid.naver.com/oauth2.0/token",
}

const naverProfileURL = "https://openapi.naver.com/v1/nid/me"

// NaverProvider authenticates users through Naver. Naver's token endpoint
// requires the state parameter to be repeated on the exchange call.
type NaverProvider struct {
	config     *oauth2.Config
	profileURL string
}

func NewNaverProvider(creds Credentials) *NaverProvider {
	return &NaverProvider{
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURI,
			Endpoint:     naverEndpoint,
		},
		profileURL: naverProfileURL,
	}
}

func (p *NaverProvider) Name() string { return "naver" }

func (p *NaverProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

func (p *NaverProvider) Exchange(ctx context.Context, code, state string) (*oauth2.Token, error) {
	token, err := p.config.Exchange(ctx, code, oauth2.SetAuthURLParam("state", state))
	if err != nil {
		return nil, flowErr("exchange_failed", err)
	}
	return token, nil
}

func (p *NaverProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	resp, err := p.config.Client(ctx, token).Get(p.profileURL)
	if err != nil {
		return nil, flowErr("profile_fetch_failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, flowErr("profile_fetch_failed", fmt.Errorf("naver profile status %d", resp.StatusCode))
	}

	var payload struct {
		ResultCode string `json:"resultcode"`
		Response   struct {
			ID       string `json:"id"`
			Email    string `json:"email"`
			Nickname string `json:"nickname"`
			Name     string `json:"name"`
		} `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, flowErr("profile_fetch_failed", err)
	}
	if payload.ResultCode != "00" || payload.Response.ID == "" {
		return nil, flowErr("profile_fetch_failed", fmt.Errorf("naver resultcode %q", payload.ResultCode))
	}
	if payload.Response.Email == "" {
		return nil, flowErr("email_not_provided", nil)
	}

	name := payload.Response.Nickname
	if name == "" {
		name = payload.Response.Name
	}
	return &Profile{
		ExternalID: payload.Response.ID,
		Email:      payload.Response.Email,
		Name:       name,
	}, nil
}
