package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/taigabridge/taigabridge/internal/handlers"
	"github.com/taigabridge/taigabridge/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	resourceHandler *handlers.ResourceHandler,
	projectHandler *handlers.ProjectHandler,
	statusHandler *handlers.StatusHandler,
) {
	loginRateLimit := middleware.DefaultLoginRateLimit()

	router.With(middleware.RateLimitByIP(loginRateLimit)).Post("/auth/login", authHandler.Login)
	router.Post("/auth/logout", authHandler.Logout)
	router.Get("/auth/session", authHandler.SessionStatus)

	router.Get("/status", statusHandler.Status)

	router.Route("/api/v1", func(r chi.Router) {
		// Project operations that fall outside the generic accessor.
		r.Get("/project/by-slug/{slug}", projectHandler.GetBySlug)
		r.Get("/project/{id}/members", projectHandler.Members)
		r.Post("/project/{id}/invite", projectHandler.Invite)
		r.Get("/project/{id}/meta/{meta}", projectHandler.Metadata)

		// Generic per-kind CRUD; the kind segment is validated against
		// the closed resource enumeration inside the handler.
		r.Route("/{kind}", func(r chi.Router) {
			r.Get("/", resourceHandler.List)
			r.Post("/", resourceHandler.Create)
			r.Get("/{id}", resourceHandler.Get)
			r.Patch("/{id}", resourceHandler.Update)
			r.Delete("/{id}", resourceHandler.Delete)
			r.Post("/{id}/assign", resourceHandler.Assign)
			r.Post("/{id}/unassign", resourceHandler.Unassign)
		})
	})
}
