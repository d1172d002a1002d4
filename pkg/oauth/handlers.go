package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/agora-board/agora/pkg/auth"
)

const stateTTL = 10 * time.Minute

// Handlers serves the /auth/{provider}/login and /auth/{provider}/callback
// routes for every registered provider.
type Handlers struct {
	providers   map[string]Provider
	store       AccountStore
	codec       *auth.Codec
	cookies     *auth.CookieManager
	frontendURL string
	accessTTL   time.Duration
	refreshTTL  time.Duration
	logger      *logrus.Logger
}

func NewHandlers(providers []Provider, store AccountStore, codec *auth.Codec, cookies *auth.CookieManager, frontendURL string, accessTTL, refreshTTL time.Duration, logger *logrus.Logger) *Handlers {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &Handlers{
		providers:   byName,
		store:       store,
		codec:       codec,
		cookies:     cookies,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
		logger:      logger,
	}
}

func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/{provider}/login", h.BeginLogin).Methods(http.MethodGet)
	router.HandleFunc("/auth/{provider}/callback", h.HandleCallback).Methods(http.MethodGet)
}

// BeginLogin mints a state value, stores it in a short-lived cookie, and
// redirects to the provider's authorization page.
func (h *Handlers) BeginLogin(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.provider(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	state, err := mintState()
	if err != nil {
		h.logger.WithError(err).Error("mint oauth state")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	setStateCookie(w, state)
	http.Redirect(w, r, provider.AuthCodeURL(state), http.StatusFound)
}

// HandleCallback validates the returning redirect, exchanges the code,
// resolves the local account, and establishes the session. Every failure
// sends the browser back to the frontend with an auth_error code.
func (h *Handlers) HandleCallback(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.provider(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	query := r.URL.Query()
	if providerErr := query.Get("error"); providerErr != "" {
		h.logger.WithFields(logrus.Fields{
			"provider": provider.Name(),
			"error":    providerErr,
		}).Warn("provider returned error on callback")
		h.redirectError(w, r, "provider_denied")
		return
	}

	state := query.Get("state")
	if state == "" {
		h.redirectError(w, r, "missing_state")
		return
	}
	stateCookie, err := r.Cookie(auth.StateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		h.redirectError(w, r, "invalid_state")
		return
	}

	code := query.Get("code")
	if code == "" {
		h.redirectError(w, r, "missing_code")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), providerTimeout)
	defer cancel()

	token, err := provider.Exchange(ctx, code, state)
	if err != nil {
		h.redirectFlowError(w, r, provider.Name(), err)
		return
	}
	profile, err := provider.FetchProfile(ctx, token)
	if err != nil {
		h.redirectFlowError(w, r, provider.Name(), err)
		return
	}

	user, err := resolveAccount(r.Context(), h.store, provider.Name(), profile)
	if err != nil {
		h.redirectFlowError(w, r, provider.Name(), err)
		return
	}

	h.finalizeLogin(w, r, user.ID)
}

// finalizeLogin mints the session token pair, persists the refresh pointer,
// and attaches the session cookies before redirecting to the frontend.
func (h *Handlers) finalizeLogin(w http.ResponseWriter, r *http.Request, userID int64) {
	access, err := h.codec.Issue(userID, h.accessTTL)
	if err == nil {
		var refresh string
		refresh, err = h.codec.Issue(userID, h.refreshTTL)
		if err == nil {
			if err = h.store.UpdateRefreshToken(r.Context(), userID, &refresh); err == nil {
				err = h.cookies.Attach(w, access, refresh)
			}
		}
	}
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("finalize oauth login")
		h.redirectError(w, r, "login_failed")
		return
	}

	clearStateCookie(w)
	http.Redirect(w, r, h.frontendURL, http.StatusFound)
}

func (h *Handlers) provider(r *http.Request) (Provider, bool) {
	p, ok := h.providers[mux.Vars(r)["provider"]]
	return p, ok
}

func (h *Handlers) redirectFlowError(w http.ResponseWriter, r *http.Request, providerName string, err error) {
	code := "login_failed"
	var fe *FlowError
	if errors.As(err, &fe) {
		code = fe.Code
	}
	h.logger.WithError(err).WithField("provider", providerName).Warn("oauth flow failed")
	h.redirectError(w, r, code)
}

func (h *Handlers) redirectError(w http.ResponseWriter, r *http.Request, code string) {
	target := fmt.Sprintf("%s/?auth_error=%s", h.frontendURL, url.QueryEscape(code))
	http.Redirect(w, r, target, http.StatusFound)
}

func mintState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// The state cookie is scoped to the handshake only: host-only, Lax, and
// gone after ten minutes regardless of environment.
func setStateCookie(w http.ResponseWriter, state string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.StateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.StateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
