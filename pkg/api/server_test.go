package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/agora-board/agora/pkg/auth"
	"github.com/agora-board/agora/pkg/middleware"
	"github.com/agora-board/agora/pkg/storage"
)

// fakeUsers is an in-memory UserStore.
type fakeUsers struct {
	byID    map[int64]*storage.User
	refresh map[int64]string
	nextID  int64

	err error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		byID:    map[int64]*storage.User{},
		refresh: map[int64]string{},
		nextID:  1,
	}
}

func (s *fakeUsers) GetByID(_ context.Context, id int64) (*storage.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byID[id], nil
}

func (s *fakeUsers) GetByEmail(_ context.Context, email string) (*storage.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, u := range s.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (s *fakeUsers) GetByUsername(_ context.Context, username string) (*storage.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, u := range s.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (s *fakeUsers) Create(_ context.Context, username, email, passwordHash string) (*storage.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	u := &storage.User{
		ID:           s.nextID,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	s.nextID++
	s.byID[u.ID] = u
	return u, nil
}

func (s *fakeUsers) UpdateRefreshToken(_ context.Context, id int64, token *string) error {
	if s.err != nil {
		return s.err
	}
	if token == nil {
		delete(s.refresh, id)
		return nil
	}
	s.refresh[id] = *token
	return nil
}

func (s *fakeUsers) RotateRefreshToken(_ context.Context, id int64, presented, next string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if s.refresh[id] != presented {
		return false, nil
	}
	s.refresh[id] = next
	return true, nil
}

func (s *fakeUsers) Count(_ context.Context) (int64, error) {
	return int64(len(s.byID)), nil
}

// fakeTopics is an in-memory TopicStore.
type fakeTopics struct {
	byID   map[int64]*storage.Topic
	nextID int64
}

func newFakeTopics() *fakeTopics {
	return &fakeTopics{byID: map[int64]*storage.Topic{}, nextID: 1}
}

func (s *fakeTopics) Get(_ context.Context, id int64) (*storage.Topic, error) {
	return s.byID[id], nil
}

func (s *fakeTopics) List(_ context.Context, category string, limit, offset int) ([]*storage.Topic, error) {
	var out []*storage.Topic
	for id := int64(1); id < s.nextID; id++ {
		t, ok := s.byID[id]
		if !ok || (category != "" && t.Category != category) {
			continue
		}
		out = append(out, t)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeTopics) Create(_ context.Context, userID int64, title, body, category string) (*storage.Topic, error) {
	t := &storage.Topic{
		ID:        s.nextID,
		UserID:    userID,
		Title:     title,
		Body:      body,
		Category:  category,
		CreatedAt: time.Now(),
	}
	s.nextID++
	s.byID[t.ID] = t
	return t, nil
}

func (s *fakeTopics) Update(_ context.Context, id, userID int64, title, body, category string) (*storage.Topic, error) {
	t, ok := s.byID[id]
	if !ok || t.UserID != userID {
		return nil, nil
	}
	t.Title, t.Body, t.Category = title, body, category
	return t, nil
}

func (s *fakeTopics) Delete(_ context.Context, id, userID int64) (bool, error) {
	t, ok := s.byID[id]
	if !ok || t.UserID != userID {
		return false, nil
	}
	delete(s.byID, id)
	return true, nil
}

func (s *fakeTopics) Count(_ context.Context) (int64, error) {
	return int64(len(s.byID)), nil
}

func (s *fakeTopics) CountByUser(_ context.Context, userID int64) (int64, error) {
	var n int64
	for _, t := range s.byID {
		if t.UserID == userID {
			n++
		}
	}
	return n, nil
}

// fixture assembles a full server with the production middleware chain in
// non-production mode.
type fixture struct {
	server *Server
	users  *fakeUsers
	topics *fakeTopics
	codec  *auth.Codec
}

const (
	testAccessTTL  = 15 * time.Minute
	testRefreshTTL = 7 * 24 * time.Hour
)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	codec, err := auth.NewCodec("test-secret-key", "HS256")
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cookies := auth.NewCookieManager(false, "", testAccessTTL, testRefreshTTL)
	gate := auth.NewGate(codec)
	users := newFakeUsers()
	topics := newFakeTopics()

	userHandlers := NewUserHandlers(users, topics, codec, cookies, gate, testAccessTTL, testRefreshTTL, logger, nil)
	topicHandlers := NewTopicHandlers(topics, gate, logger)
	adminHandlers := NewAdminHandlers(users, topics)

	server := NewServer(Deps{
		Logger:      logger,
		AdminGuard:  middleware.NewAdminGuard(false, "", ""),
		RateLimit:   middleware.NewLoginRateLimit(middleware.NewMemoryLimiter(middleware.RateLimitConfig{Requests: 1000, Window: time.Minute}), logger, nil),
		CSRFGuard:   middleware.NewCSRFGuard(),
		Refresher:   middleware.NewTokenRefresher(codec, cookies, users, testAccessTTL, testRefreshTTL, logger),
		FrontendURL: "http://localhost:3000",
		Handlers:    []RouteRegistrar{userHandlers, topicHandlers, adminHandlers},
	})

	return &fixture{server: server, users: users, topics: topics, codec: codec}
}

// seedUser creates an account with a known password and returns it.
func (f *fixture) seedUser(t *testing.T, username, email, password string) *storage.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	user, err := f.users.Create(context.Background(), username, email, hash)
	require.NoError(t, err)
	return user
}

// session issues a valid session for the user and stores the refresh
// pointer, mirroring what login does.
func (f *fixture) session(t *testing.T, userID int64) (access, refresh string) {
	t.Helper()
	access, err := f.codec.Issue(userID, testAccessTTL)
	require.NoError(t, err)
	refresh, err = f.codec.Issue(userID, testRefreshTTL)
	require.NoError(t, err)
	f.users.refresh[userID] = refresh
	return access, refresh
}

func (f *fixture) do(r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, r)
	return rec
}

// authenticate attaches session and CSRF cookies plus the CSRF header.
func authenticate(r *http.Request, access, refresh string) {
	if access != "" {
		r.AddCookie(&http.Cookie{Name: auth.AccessCookieName, Value: access})
	}
	if refresh != "" {
		r.AddCookie(&http.Cookie{Name: auth.RefreshCookieName, Value: refresh})
	}
	r.AddCookie(&http.Cookie{Name: auth.CSRFCookieName, Value: "csrf-test"})
	r.Header.Set(auth.CSRFHeaderName, "csrf-test")
}

func recCookies(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func jsonRequest(method, target, body string) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	return r
}
