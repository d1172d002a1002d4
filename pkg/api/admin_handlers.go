package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/agora-board/agora/pkg/httputil"
)

// Counter reports the total number of rows a store holds.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// AdminHandlers serves the operator surface under /admin. In production
// the AdminGuard middleware fronts these routes with basic auth.
type AdminHandlers struct {
	users  Counter
	topics Counter
}

func NewAdminHandlers(users, topics Counter) *AdminHandlers {
	return &AdminHandlers{users: users, topics: topics}
}

func (h *AdminHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/admin/stats", h.Stats).Methods(http.MethodGet)
}

type statsResponse struct {
	Users  int64 `json:"users"`
	Topics int64 `json:"topics"`
}

func (h *AdminHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.Count(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	topics, err := h.topics.Count(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, statsResponse{Users: users, Topics: topics})
}
