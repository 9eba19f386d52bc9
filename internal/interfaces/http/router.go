package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/NeedsFine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/NeedsFine/internal/interfaces/http/handlers"
	"github.com/turtacn/NeedsFine/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware settings of the route
// tree. Nil handlers leave their routes unmounted.
type RouterConfig struct {
	ReviewHandler *handlers.ReviewHandler
	AdminHandler  *handlers.AdminHandler
	HealthHandler *handlers.HealthHandler

	// MetricsHandler serves /metrics; Recorder observes every request.
	MetricsHandler http.Handler
	Recorder       middleware.RequestRecorder

	CORS          middleware.CORSConfig
	Logging       middleware.LoggingConfig
	AdminPassword string
	MaxBodySize   int64

	Logger logging.Logger
}

// NewRouter builds the complete HTTP route tree.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if cfg.Recorder != nil {
		r.Use(middleware.Metrics(cfg.Recorder))
	}
	r.Use(middleware.RequestLogging(cfg.Logger, cfg.Logging))
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.MaxBodySize > 0 {
		r.Use(chimw.RequestSize(cfg.MaxBodySize))
	}

	if h := cfg.HealthHandler; h != nil {
		r.Get("/healthz", h.Liveness)
		r.Get("/readyz", h.Readiness)
		r.Get("/version", h.Version)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(api chi.Router) {
		registerReviewRoutes(api, cfg.ReviewHandler)
		if cfg.AdminHandler != nil {
			api.Route("/admin", func(ar chi.Router) {
				ar.Use(middleware.AdminAuth(cfg.AdminPassword, cfg.Logger))
				registerAdminRoutes(ar, cfg.AdminHandler)
			})
		}
	})

	return r
}

func registerReviewRoutes(r chi.Router, h *handlers.ReviewHandler) {
	if h == nil {
		return
	}
	r.Post("/analyze", h.Analyze)
	r.Get("/stats", h.Stats)
	r.Route("/reviews", func(rr chi.Router) {
		rr.Get("/", h.List)
		rr.Post("/", h.Create)
		rr.Get("/{reviewID}", h.Get)
	})
}

func registerAdminRoutes(r chi.Router, h *handlers.AdminHandler) {
	r.Post("/recalculate", h.Recalculate)
	r.Get("/term-candidates", h.ListCandidates)
	r.Post("/term-candidates/action", h.ActOnCandidate)
	r.Post("/lexicon/invalidate", h.InvalidateLexicon)
}
