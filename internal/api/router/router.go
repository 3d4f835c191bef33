package router

import (
	"net/http"

	"github.com/argussec/argus/internal/api/handlers"
	"github.com/argussec/argus/internal/api/middleware"
	"github.com/argussec/argus/internal/config"
	"github.com/argussec/argus/internal/pkg/logger"
	"github.com/argussec/argus/internal/pkg/metrics"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Handlers struct {
	Health    *handlers.HealthHandler
	Session   *handlers.SessionHandler
	Threat    *handlers.ThreatHandler
	RateLimit *handlers.RateLimitHandler
	Event     *handlers.EventHandler
	Rule      *handlers.RuleHandler
}

func New(cfg *config.Config, log *logger.Logger, h *Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.DefaultCORS(cfg.Server.FrontendURL))
	r.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	r.Use(metrics.Middleware)

	// Public routes
	r.Group(func(r chi.Router) {
		r.Get("/swagger/*", httpSwagger.WrapHandler)

		r.Get("/healthz", h.Health.Healthz)
		r.Get("/readyz", h.Health.Readyz)
		r.Handle("/metrics", metrics.Handler())
	})

	// Engine-to-engine routes (shared service token)
	r.Group(func(r chi.Router) {
		r.Use(middleware.ServiceAuth(cfg.Auth.ServiceToken))

		r.Post("/api/v1/sessions", h.Session.Create)
		r.Post("/api/v1/sessions/validate", h.Session.Validate)
		r.Post("/api/v1/sessions/{id}/detect-hijack", h.Session.DetectHijack)

		r.Post("/api/v1/threat/check", h.Threat.Check)

		r.Post("/api/v1/ratelimit/check", h.RateLimit.Check)
		r.Get("/api/v1/ratelimit/peek", h.RateLimit.Peek)
		r.Post("/api/v1/requests/validate", h.RateLimit.Validate)

		r.Post("/api/v1/events", h.Event.Publish)
	})

	// User routes (JWT)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Auth.JWTSecret))

		r.Route("/api/v1/sessions", func(r chi.Router) {
			r.Get("/", h.Session.List)
			r.Post("/terminate-others", h.Session.TerminateOthers)
			r.Delete("/{id}", h.Session.Terminate)
		})

		r.Route("/api/v1/events", func(r chi.Router) {
			r.Get("/", h.Event.List)
			r.Get("/recent", h.Event.Recent)
			r.Get("/summary", h.Event.Summary)
			r.Post("/{id}/resolve", h.Event.Resolve)
		})

		r.Get("/api/v1/threat/indicators", h.Threat.List)

		// Admin-only configuration
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Post("/api/v1/threat/indicators", h.Threat.Add)

			r.Route("/api/v1/rules", func(r chi.Router) {
				r.Get("/", h.Rule.List)
				r.Post("/", h.Rule.Create)
				r.Get("/{id}", h.Rule.Get)
				r.Put("/{id}", h.Rule.Update)
				r.Delete("/{id}", h.Rule.Delete)
			})
		})
	})

	return r
}
