package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/service-desk/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health     *handlers.HealthHandler
	Tickets    *handlers.TicketsHandler
	Intake     *handlers.IntakeHandler
	Unmatched  *handlers.UnmatchedHandler
	Operations *handlers.OperationsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	tickets := app.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/history", cfg.Tickets.History)
	tickets.Post("/:id/accept", cfg.Tickets.Accept)
	tickets.Post("/:id/start", cfg.Tickets.Start)
	tickets.Post("/:id/complete", cfg.Tickets.Complete)
	tickets.Post("/:id/close", cfg.Tickets.Close)
	tickets.Post("/:id/escalate", cfg.Tickets.Escalate)
	tickets.Post("/:id/reject", cfg.Tickets.Reject)

	app.Post("/classify", cfg.Intake.Classify)
	app.Post("/inbound", cfg.Intake.Inbound)
	app.Post("/events/checkout", cfg.Intake.Checkout)

	unmatched := app.Group("/unmatched")
	unmatched.Get("/", cfg.Unmatched.List)
	unmatched.Get("/:id", cfg.Unmatched.Get)
	unmatched.Post("/:id/resolve", cfg.Unmatched.Resolve)
	unmatched.Post("/:id/ignore", cfg.Unmatched.Ignore)

	app.Post("/sweeps", cfg.Operations.RunSweep)
	app.Post("/catalog/reload", cfg.Operations.ReloadCatalog)
	app.Get("/metrics", cfg.Operations.Metrics)
}
