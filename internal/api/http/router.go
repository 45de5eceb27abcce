package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-core/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-core/internal/auth"
	"github.com/spec-kit/helpdesk-core/internal/config"
	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// RouterDependencies bundles handlers and middleware for route registration.
type RouterDependencies struct {
	Cfg     config.AppConfig
	Auth    *auth.Middleware
	Tickets *handlers.TicketsHandler
	Admin   *handlers.AdminHandler
	Health  *handlers.HealthHandler
}

// RegisterRoutes mounts all endpoints on the app.
func RegisterRoutes(app *fiber.App, deps RouterDependencies) {
	app.Get("/healthz", deps.Health.Live)
	app.Get("/readyz", deps.Health.Ready)

	api := app.Group("/api/v1", deps.Auth.Authenticate())

	tickets := api.Group("/tickets")
	tickets.Post("/", WithTimeout(deps.Cfg, deps.Tickets.Create))
	tickets.Get("/", deps.Tickets.List)
	tickets.Get("/:id", deps.Tickets.Get)
	tickets.Patch("/:id", deps.Tickets.Update)
	tickets.Post("/:id/close", deps.Tickets.Close)

	admin := api.Group("/admin", auth.RequireRole(domain.RoleAdmin))
	admin.Post("/misuse-scan", WithTimeout(deps.Cfg, deps.Admin.TriggerScan))
	admin.Get("/misuse-scan/status", deps.Admin.ScanStatus)
	admin.Get("/violations", deps.Admin.ListViolations)
	admin.Get("/misuse-reports", deps.Admin.ListMisuseReports)
}
