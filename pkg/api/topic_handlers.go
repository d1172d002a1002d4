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
	"github.com/agora-board/agora/pkg/storage"
)

// TopicStore is the topic persistence surface the handlers need.
type TopicStore interface {
	Get(ctx context.Context, id int64) (*storage.Topic, error)
	List(ctx context.Context, category string, limit, offset int) ([]*storage.Topic, error)
	Create(ctx context.Context, userID int64, title, body, category string) (*storage.Topic, error)
	Update(ctx context.Context, id, userID int64, title, body, category string) (*storage.Topic, error)
	Delete(ctx context.Context, id, userID int64) (bool, error)
}

const (
	defaultTopicPageSize = 20
	maxTopicPageSize     = 100
)

// TopicHandlers serves the discussion topic endpoints. Reads are public;
// writes require an authenticated session.
type TopicHandlers struct {
	store  TopicStore
	gate   *auth.Gate
	logger *logrus.Logger
}

func NewTopicHandlers(store TopicStore, gate *auth.Gate, logger *logrus.Logger) *TopicHandlers {
	return &TopicHandlers{store: store, gate: gate, logger: logger}
}

func (h *TopicHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/topics", h.List).Methods(http.MethodGet)
	router.HandleFunc("/topics", h.Create).Methods(http.MethodPost)
	router.HandleFunc("/topics/{id:[0-9]+}", h.Get).Methods(http.MethodGet)
	router.HandleFunc("/topics/{id:[0-9]+}", h.Update).Methods(http.MethodPut)
	router.HandleFunc("/topics/{id:[0-9]+}", h.Delete).Methods(http.MethodDelete)
}

type topicResponse struct {
	TopicID   int64     `json:"topic_id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

func toTopicResponse(t *storage.Topic) topicResponse {
	return topicResponse{
		TopicID:   t.ID,
		UserID:    t.UserID,
		Title:     t.Title,
		Body:      t.Body,
		Category:  t.Category,
		CreatedAt: t.CreatedAt,
	}
}

func (h *TopicHandlers) List(w http.ResponseWriter, r *http.Request) {
	limit, err := httputil.ParseQueryInt(r, "limit", defaultTopicPageSize)
	if err != nil || limit <= 0 {
		httputil.WriteBadRequest(w, "invalid limit")
		return
	}
	if limit > maxTopicPageSize {
		limit = maxTopicPageSize
	}
	offset, err := httputil.ParseQueryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		httputil.WriteBadRequest(w, "invalid offset")
		return
	}

	topics, err := h.store.List(r.Context(), r.URL.Query().Get("category"), limit, offset)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	out := make([]topicResponse, 0, len(topics))
	for _, t := range topics {
		out = append(out, toTopicResponse(t))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *TopicHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid topic id")
		return
	}

	topic, err := h.store.Get(r.Context(), id)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if topic == nil {
		httputil.WriteNotFound(w, "topic not found")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toTopicResponse(topic))
}

type createTopicRequest struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Category string `json:"category"`
}

func (h *TopicHandlers) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := h.gate.UserID(r)
	if err != nil {
		httputil.WriteUnauthenticated(w, auth.UnauthenticatedReason(err))
		return
	}

	var req createTopicRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || strings.TrimSpace(req.Body) == "" {
		httputil.WriteBadRequest(w, "title and body are required")
		return
	}

	topic, err := h.store.Create(r.Context(), userID, req.Title, req.Body, req.Category)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"topic_id": topic.ID,
		"user_id":  userID,
	}).Info("topic created")
	httputil.WriteJSON(w, http.StatusCreated, toTopicResponse(topic))
}

type updateTopicRequest struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Category string `json:"category"`
}

// Update rewrites a topic owned by the caller. Like Delete, a missing topic
// and someone else's topic both read as not found.
func (h *TopicHandlers) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := h.gate.UserID(r)
	if err != nil {
		httputil.WriteUnauthenticated(w, auth.UnauthenticatedReason(err))
		return
	}

	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid topic id")
		return
	}

	var req updateTopicRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || strings.TrimSpace(req.Body) == "" {
		httputil.WriteBadRequest(w, "title and body are required")
		return
	}

	topic, err := h.store.Update(r.Context(), id, userID, req.Title, req.Body, req.Category)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if topic == nil {
		httputil.WriteNotFound(w, "topic not found")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toTopicResponse(topic))
}

// Delete removes a topic owned by the caller. A topic that does not exist
// and a topic owned by someone else are both reported as not found.
func (h *TopicHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := h.gate.UserID(r)
	if err != nil {
		httputil.WriteUnauthenticated(w, auth.UnauthenticatedReason(err))
		return
	}

	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, "invalid topic id")
		return
	}

	deleted, err := h.store.Delete(r.Context(), id, userID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if !deleted {
		httputil.WriteNotFound(w, "topic not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
