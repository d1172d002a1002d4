package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
)

var kakaoEndpoint = oauth2.Endpoint{
	AuthURL:  "https://kauth.kakao.com/oauth/authorize",
	TokenURL: "https://kauth.kakao.com/oauth/token",
}

const kakaoProfileURL = "https://kapi.kakao.com/v2/user/me"

// KakaoProvider authenticates users through Kakao. Kakao may withhold the
// account email depending on the app's consent items, so a deterministic
// placeholder address keyed on the Kakao user id stands in when it does.
type KakaoProvider struct {
	config     *oauth2.Config
	profileURL string
}

func NewKakaoProvider(creds Credentials) *KakaoProvider {
	return &KakaoProvider{
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURI,
			Endpoint:     kakaoEndpoint,
		},
		profileURL: kakaoProfileURL,
	}
}

func (p *KakaoProvider) Name() string { return "kakao" }

func (p *KakaoProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

func (p *KakaoProvider) Exchange(ctx context.Context, code, _ string) (*oauth2.Token, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, flowErr("exchange_failed", err)
	}
	return token, nil
}

func (p *KakaoProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	resp, err := p.config.Client(ctx, token).Get(p.profileURL)
	if err != nil {
		return nil, flowErr("profile_fetch_failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, flowErr("profile_fetch_failed", fmt.Errorf("kakao profile status %d", resp.StatusCode))
	}

	var payload struct {
		ID      int64 `json:"id"`
		Account struct {
			Email   string `json:"email"`
			Profile struct {
				Nickname string `json:"nickname"`
			} `json:"profile"`
		} `json:"kakao_account"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, flowErr("profile_fetch_failed", err)
	}
	if payload.ID == 0 {
		return nil, flowErr("profile_fetch_failed", fmt.Errorf("kakao profile missing id"))
	}

	email := payload.Account.Email
	if email == "" {
		email = fmt.Sprintf("kakao_%d@placeholder.local", payload.ID)
	}
	return &Profile{
		ExternalID: strconv.FormatInt(payload.ID, 10),
		Email:      email,
		Name:       payload.Account.Profile.Nickname,
	}, nil
}
