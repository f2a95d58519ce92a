package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campus-helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/campus-helpdesk/internal/auth"
	"github.com/spec-kit/campus-helpdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	// Guest submission and tracking need no account.
	app.Post("/tickets/guest", cfg.Tickets.CreateGuest)
	app.Get("/tickets/track/:code", cfg.Tickets.Track)

	protected := app.Group("", cfg.AuthMiddleware.Handle)

	tickets := protected.Group("/tickets")
	tickets.Post("", cfg.Tickets.Create)
	tickets.Get("", cfg.Tickets.List)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Patch("/:id", cfg.Tickets.Update)
	tickets.Post("/:id/reassign", auth.RequireRole(domain.RoleAdmin), cfg.Tickets.Reassign)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Delete("/:id", cfg.Tickets.Delete)

	notifications := protected.Group("/notifications")
	notifications.Get("", cfg.Notifications.List)
	notifications.Post("", auth.RequireRole(domain.RoleAdmin), cfg.Notifications.Create)
	notifications.Delete("/:id", cfg.Notifications.Dismiss)

	protected.Get("/analytics", cfg.Tickets.Analytics)
}
