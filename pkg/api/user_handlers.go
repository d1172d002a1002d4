package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/agora-board/agora/pkg/auth"
	"github.com/agora-board/agora/pkg/httputil"
	"github.com/agora-board/agora/pkg/observability"
	"github.com/agora-board/agora/pkg/storage"
)

// UserStore is the user persistence surface the handlers need.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*storage.User, error)
	GetByEmail(ctx context.Context, email string) (*storage.User, error)
	GetByUsername(ctx context.Context, username string) (*storage.User, error)
	Create(ctx context.Context, username, email, passwordHash string) (*storage.User, error)
	UpdateRefreshToken(ctx context.Context, id int64, token *string) error
	RotateRefreshToken(ctx context.Context, id int64, presented, next string) (bool, error)
}

// TopicCounter reports how many topics a user has created; the profile
// endpoint includes the count.
type TopicCounter interface {
	CountByUser(ctx context.Context, userID int64) (int64, error)
}

const maxUsernameLength = 20

// UserHandlers serves signup, login, logout, profile and explicit token
// refresh.
type UserHandlers struct {
	store      UserStore
	topics     TopicCounter
	codec      *auth.Codec
	cookies    *auth.CookieManager
	gate       *auth.Gate
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *logrus.Logger
	metrics    *observability.Metrics
}

func NewUserHandlers(store UserStore, topics TopicCounter, codec *auth.Codec, cookies *auth.CookieManager, gate *auth.Gate,
	accessTTL, refreshTTL time.Duration, logger *logrus.Logger, metrics *observability.Metrics) *UserHandlers {
	return &UserHandlers{
		store:      store,
		topics:     topics,
		codec:      codec,
		cookies:    cookies,
		gate:       gate,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger,
		metrics:    metrics,
	}
}

func (h *UserHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/users/signup", h.Signup).Methods(http.MethodPost)
	router.HandleFunc("/users/login", h.Login).Methods(http.MethodPost)
	router.HandleFunc("/users/logout", h.Logout).Methods(http.MethodPost)
	router.HandleFunc("/users/refresh", h.Refresh).Methods(http.MethodPost)
	router.HandleFunc("/users/me", h.Me).Methods(http.MethodGet)
}

type userResponse struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *storage.User) userResponse {
	return userResponse{
		UserID:    u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup creates a password account. It does not establish a session; the
// client logs in afterwards.
func (h *UserHandlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Username == "" || req.Email == "" || req.Password == "" {
		httputil.WriteBadRequest(w, "username, email and password are required")
		return
	}
	if len([]rune(req.Username)) > maxUsernameLength {
		httputil.WriteBadRequest(w, "username is too long")
		return
	}
	if !strings.Contains(req.Email, "@") {
		httputil.WriteBadRequest(w, "invalid email address")
		return
	}

	if existing, err := h.store.GetByEmail(r.Context(), req.Email); err != nil {
		httputil.WriteInternalError(w, err)
		return
	} else if existing != nil {
		httputil.WriteConflict(w, "email already registered")
		return
	}
	if existing, err := h.store.GetByUsername(r.Context(), req.Username); err != nil {
		httputil.WriteInternalError(w, err)
		return
	} else if existing != nil {
		httputil.WriteConflict(w, "username already taken")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	user, err := h.store.Create(r.Context(), req.Username, req.Email, hash)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	h.countAccountCreated("password")
	h.logger.WithField("user_id", user.ID).Info("account created")
	httputil.WriteJSON(w, http.StatusCreated, toUserResponse(user))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials, mints the token pair, persists the refresh
// pointer and attaches the session cookies. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (h *UserHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := h.store.GetByEmail(r.Context(), email)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		h.countLogin("password", "failure")
		httputil.WriteErrorMessage(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := h.establishSession(w, r, user.ID); err != nil {
		h.countLogin("password", "error")
		httputil.WriteInternalError(w, err)
		return
	}

	h.countLogin("password", "success")
	httputil.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// Logout clears the session cookies and nulls the stored refresh pointer.
// It succeeds no matter what state the session is in.
func (h *UserHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if userID, ok := h.gate.OptionalUserID(r); ok {
		if err := h.store.UpdateRefreshToken(r.Context(), userID, nil); err != nil {
			// The cookies are cleared regardless; the stale pointer can no
			// longer be presented by this client.
			h.logger.WithError(err).WithField("user_id", userID).Warn("clear refresh pointer on logout")
		}
	}
	if err := h.cookies.Clear(w); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Refresh rotates the refresh token explicitly. The presented token must
// match the stored pointer; a reused or unknown token ends the session.
func (h *UserHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	// The refresh middleware may have rotated the session while admitting
	// this request; the response already carries fresh cookies then.
	if _, ok := auth.UserIDFromContext(r.Context()); ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	cookie, err := r.Cookie(auth.RefreshCookieName)
	if err != nil || cookie.Value == "" {
		httputil.WriteUnauthenticated(w, "missing")
		return
	}

	userID, err := h.codec.Verify(cookie.Value)
	if err != nil {
		h.cookies.Clear(w)
		httputil.WriteUnauthenticated(w, auth.UnauthenticatedReason(err))
		return
	}

	access, err := h.codec.Issue(userID, h.accessTTL)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	refresh, err := h.codec.Issue(userID, h.refreshTTL)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	swapped, err := h.store.RotateRefreshToken(r.Context(), userID, cookie.Value, refresh)
	if err != nil {
		h.countRefresh("error")
		httputil.WriteInternalError(w, err)
		return
	}
	if !swapped {
		h.countRefresh("rejected")
		h.logger.WithField("user_id", userID).Warn("refresh token reuse rejected")
		h.cookies.Clear(w)
		httputil.WriteUnauthenticated(w, "invalid")
		return
	}

	if err := h.cookies.Attach(w, access, refresh); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	h.countRefresh("rotated")
	w.WriteHeader(http.StatusNoContent)
}

type meResponse struct {
	userResponse
	TopicCount int64 `json:"topic_count"`
}

// Me returns the authenticated user's profile with their topic count.
func (h *UserHandlers) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := h.gate.UserID(r)
	if err != nil {
		httputil.WriteUnauthenticated(w, auth.UnauthenticatedReason(err))
		return
	}

	user, err := h.store.GetByID(r.Context(), userID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if user == nil {
		httputil.WriteUnauthenticated(w, "invalid")
		return
	}

	count, err := h.topics.CountByUser(r.Context(), userID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, meResponse{
		userResponse: toUserResponse(user),
		TopicCount:   count,
	})
}

func (h *UserHandlers) establishSession(w http.ResponseWriter, r *http.Request, userID int64) error {
	access, err := h.codec.Issue(userID, h.accessTTL)
	if err != nil {
		return err
	}
	refresh, err := h.codec.Issue(userID, h.refreshTTL)
	if err != nil {
		return err
	}
	if err := h.store.UpdateRefreshToken(r.Context(), userID, &refresh); err != nil {
		return err
	}
	return h.cookies.Attach(w, access, refresh)
}

func (h *UserHandlers) countLogin(method, status string) {
	if h.metrics != nil {
		h.metrics.LoginsTotal.WithLabelValues(method, status).Inc()
	}
}

func (h *UserHandlers) countRefresh(outcome string) {
	if h.metrics != nil {
		h.metrics.TokenRefreshTotal.WithLabelValues(outcome).Inc()
	}
}

func (h *UserHandlers) countAccountCreated(method string) {
	if h.metrics != nil {
		h.metrics.AccountsCreatedTotal.WithLabelValues(method).Inc()
	}
}
