package main

import (
	"github.com/gofiber/fiber/v2"
)

// registerRoutes registers all HTTP routes. Health and docs routes carry no
// auth; every other handler registers its own group with the auth
// requirement (API key or JWT) it needs.
func registerRoutes(app *fiber.App, deps *Dependencies) {
	deps.HealthHandler.RegisterRoutes(app)
	deps.DocsHandler.RegisterRoutes(app)

	deps.AuthHandler.RegisterRoutes(app, deps.AuthMiddleware)
	deps.IngestionHandler.RegisterRoutes(app, deps.AuthMiddleware, deps.RateLimitMiddleware)
	deps.TracesHandler.RegisterRoutes(app, deps.AuthMiddleware)
	deps.ScoresHandler.RegisterRoutes(app, deps.AuthMiddleware)
	deps.PromptsHandler.RegisterRoutes(app, deps.AuthMiddleware)
	deps.APIKeysHandler.RegisterRoutes(app, deps.AuthMiddleware)
	deps.ProjectsHandler.RegisterRoutes(app, deps.AuthMiddleware)
	deps.OrganizationsHandler.RegisterRoutes(app, deps.AuthMiddleware)

	if deps.MediaHandler != nil {
		deps.MediaHandler.RegisterRoutes(app, deps.AuthMiddleware)
	}
}
