package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opsgrid/triagekit/internal/api"
	"github.com/opsgrid/triagekit/internal/api/handlers"
	"github.com/opsgrid/triagekit/internal/api/middleware"
)

type RouterConfig struct {
	AuthValidator  middleware.AuthValidator
	MemoryHandler  *handlers.MemoryHandler
	TriageHandler  *handlers.TriageHandler
	TicketHandler  *handlers.TicketHandler
	MetricsHandler http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Route("/memory", func(r chi.Router) {
			r.Post("/", cfg.MemoryHandler.Upsert)
			r.Post("/search", cfg.MemoryHandler.Search)
		})

		r.Route("/triage", func(r chi.Router) {
			r.Post("/suggest", cfg.TriageHandler.Suggest)
			r.Post("/sop-draft", cfg.TriageHandler.DraftSOP)
		})

		r.Route("/tickets", func(r chi.Router) {
			r.Post("/", cfg.TicketHandler.Create)
			r.Get("/", cfg.TicketHandler.List)
			r.Get("/{id}", cfg.TicketHandler.Get)
			r.Post("/{id}/resolve", cfg.TicketHandler.Resolve)
		})
	})

	return r
}
