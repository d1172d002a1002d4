package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/agora-board/agora/pkg/httputil"
	"github.com/agora-board/agora/pkg/middleware"
	"github.com/agora-board/agora/pkg/observability"
)

// RouteRegistrar is implemented by handler groups that attach their own
// routes to the router.
type RouteRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

// Deps carries everything the server composes. Metrics, Registry, Health
// and RateLimit may be nil; the corresponding layer is then skipped.
type Deps struct {
	Logger   *logrus.Logger
	Metrics  *observability.Metrics
	Registry *prometheus.Registry
	Health   *observability.HealthChecker

	AdminGuard *middleware.AdminGuard
	RateLimit  *middleware.LoginRateLimit
	CSRFGuard  *middleware.CSRFGuard
	Refresher  *middleware.TokenRefresher

	// FrontendURL is the only origin allowed to make credentialed requests.
	FrontendURL string

	Handlers []RouteRegistrar
}

// Server represents the API server
type Server struct {
	router *mux.Router
}

// NewServer builds the router and middleware chain. Middleware order
// matters: the admin gate and rate limiter run before the CSRF check and
// token refresh, so rejected requests never touch session state.
func NewServer(deps Deps) *Server {
	s := &Server{router: mux.NewRouter()}

	s.router.Use(httputil.RequestLogger(deps.Logger))
	s.router.Use(httputil.Recovery(deps.Logger))
	s.router.Use(httputil.CORS(deps.FrontendURL))
	if deps.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(deps.Metrics))
	}
	s.router.Use(deps.AdminGuard.Handler)
	if deps.RateLimit != nil {
		s.router.Use(deps.RateLimit.Handler)
	}
	s.router.Use(deps.CSRFGuard.Handler)
	s.router.Use(deps.Refresher.Handler)

	if deps.Health != nil {
		s.router.HandleFunc("/health", deps.Health.Readiness).Methods(http.MethodGet)
		s.router.HandleFunc("/health/live", deps.Health.Liveness).Methods(http.MethodGet)
	}
	if deps.Registry != nil {
		s.router.Handle("/metrics", observability.MetricsHandler(deps.Registry)).Methods(http.MethodGet)
	}

	for _, h := range deps.Handlers {
		h.RegisterRoutes(s.router)
	}

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
