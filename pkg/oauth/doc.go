// Package oauth implements the third-party identity-provider login flows
// (Google, Naver, Kakao).
//
// Each provider drives the same authorization-code dance: build a redirect
// carrying an anti-CSRF state value, exchange the returned code for provider
// tokens, fetch a verified profile, and map it onto a local account keyed by
// normalized email. Accounts created this way get an unguessable random
// password; the same email arriving via two different providers converges on
// one account.
//
// Every callback failure redirects to the frontend with a short
// auth_error code. Provider error payloads are never surfaced to clients.
package oauth
