package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/dispatch-service/internal/api/http/handlers"
	"github.com/spec-kit/dispatch-service/internal/auth"
	"github.com/spec-kit/dispatch-service/internal/domain"
	"github.com/spec-kit/dispatch-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Requests       *handlers.ServiceRequestsHandler
	Matching       *handlers.MatchingHandler
	Events         *handlers.EventsHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	staff := auth.RequireRoles(domain.RoleStaff, domain.RoleAdmin)
	fieldWork := auth.RequireRoles(domain.RoleAgent, domain.RoleStaff, domain.RoleAdmin)

	requests := app.Group("/service-requests", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	requests.Post("/", auth.RequireRoles(domain.RoleCustomer), cfg.Requests.Create)
	requests.Get("/:id", cfg.Requests.Get)
	requests.Patch("/:id", auth.RequireRoles(domain.RoleCustomer, domain.RoleStaff, domain.RoleAdmin), cfg.Requests.Update)
	requests.Get("/:id/analysis", cfg.Requests.GetAnalysis)
	requests.Post("/:id/evaluate", staff, cfg.Requests.Evaluate)
	requests.Post("/:id/approve", staff, cfg.Requests.Approve)
	requests.Post("/:id/assign", staff, cfg.Requests.Assign)
	requests.Post("/:id/start", fieldWork, cfg.Requests.Start)
	requests.Post("/:id/complete", fieldWork, cfg.Requests.Complete)
	requests.Post("/:id/cancel", cfg.Requests.Cancel)
	requests.Get("/:id/matches", staff, cfg.Matching.Matches)
	requests.Get("/:id/events", cfg.Events.Stream)
}
