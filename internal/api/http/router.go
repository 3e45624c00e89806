package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/wans112/web-toko/internal/api/http/handlers"
	"github.com/wans112/web-toko/internal/auth"
	"github.com/wans112/web-toko/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Presence       *handlers.PresenceHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        nethttp.Handler
	LoginEnabled   bool
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	api := app.Group("/api")
	requireAuth := cfg.AuthMiddleware.Handle

	authGroup := api.Group("/auth")
	authGroup.Get("/me", requireAuth, cfg.Auth.Me)
	if cfg.LoginEnabled {
		authGroup.Post("/login", cfg.Auth.Login)
	}
	authGroup.Post("/logout", cfg.AuthMiddleware.Optional, cfg.Auth.Logout)

	api.Patch("/users/presence", requireAuth, cfg.Presence.Update)
	api.Get("/users/:id/presence", requireAuth, cfg.Presence.Get)
	api.Get("/presence/online", requireAuth, auth.RequireRole(domain.RoleAdmin), cfg.Presence.ListOnline)
}
