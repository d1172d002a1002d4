package oauth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const googleIssuer = "https://accounts.google.com"

// GoogleProvider authenticates users through Google's OpenID Connect
// endpoint. The profile comes from the signed ID token rather than a
// separate userinfo call.
type GoogleProvider struct {
	config   *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// NewGoogleProvider discovers Google's OIDC configuration and builds the
// provider. The discovery call happens once, at startup.
func NewGoogleProvider(ctx context.Context, creds Credentials) (*GoogleProvider, error) {
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("google oidc discovery: %w", err)
	}
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURI,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: creds.ClientID}),
	}, nil
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

func (p *GoogleProvider) Exchange(ctx context.Context, code, _ string) (*oauth2.Token, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, flowErr("exchange_failed", err)
	}
	return token, nil
}

func (p *GoogleProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, flowErr("missing_id_token", nil)
	}
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, flowErr("invalid_id_token", err)
	}

	var claims struct {
		Email     string `json:"email"`
		Name      string `json:"name"`
		GivenName string `json:"given_name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, flowErr("invalid_id_token", err)
	}
	if claims.Email == "" {
		return nil, flowErr("email_not_provided", nil)
	}

	name := claims.Name
	if name == "" {
		name = claims.GivenName
	}
	return &Profile{ExternalID: idToken.Subject, Email: claims.Email, Name: name}, nil
}
