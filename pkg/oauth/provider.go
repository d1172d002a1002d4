package oauth

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// providerTimeout bounds every outbound call to an identity provider.
const providerTimeout = 10 * time.Second

// Credentials holds one provider's client registration.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Configured reports whether the provider can be enabled.
func (c Credentials) Configured() bool {
	return c.ClientID != "" && c.RedirectURI != ""
}

// Profile is the verified identity tuple a provider yields after a
// successful callback.
type Profile struct {
	ExternalID string
	Email      string
	Name       string
}

// Provider drives one identity provider's authorization-code flow.
type Provider interface {
	Name() string
	// AuthCodeURL builds the provider's authorization redirect embedding the
	// anti-CSRF state value.
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for provider tokens. Naver
	// requires the state to be echoed on this call; other providers ignore
	// it.
	Exchange(ctx context.Context, code, state string) (*oauth2.Token, error)
	// FetchProfile retrieves and validates the user profile for a token.
	FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error)
}

// FlowError is a failure during provider negotiation. Code is the short
// machine-readable value forwarded to the frontend as auth_error; the
// wrapped error stays server-side.
type FlowError struct {
	Code string
	Err  error
}

func (e *FlowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("oauth: %s: %v", e.Code, e.Err)
	}
	return "oauth: " + e.Code
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

func flowErr(code string, err error) *FlowError {
	return &FlowError{Code: code, Err: err}
}
