package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lunarcity/ticketdesk/internal/api/http/handlers"
	"github.com/lunarcity/ticketdesk/internal/auth"
	"github.com/lunarcity/ticketdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Stats          *handlers.StatsHandler
	Staff          *handlers.StaffHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	app.Post("/auth/staff/login", cfg.Staff.Login)

	tickets := app.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/activity", cfg.Tickets.RecordActivity)

	staffOnly := tickets.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	staffOnly.Post("/:id/claim", cfg.Tickets.ClaimTicket)
	staffOnly.Post("/:id/close", cfg.Tickets.CloseTicket)
	staffOnly.Post("/:id/participants", cfg.Tickets.AddParticipant)
	staffOnly.Delete("/:id/participants/:userId", cfg.Tickets.RemoveParticipant)

	stats := app.Group("/stats", cfg.AuthMiddleware.Handle,
		auth.RequireStaffRole(domain.StaffRoleTeamLead, domain.StaffRoleAdmin))
	stats.Get("", cfg.Stats.WindowStats)
	stats.Get("/users/:id", cfg.Stats.UserStats)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle,
		auth.RequireStaffRole(domain.StaffRoleAdmin))
	admin.Put("/panels", cfg.Admin.UpsertPanel)
	admin.Get("/panels", cfg.Admin.ListPanels)
	admin.Delete("/panels/:channelRef", cfg.Admin.DeletePanel)
	admin.Put("/staff", cfg.Admin.UpsertStaff)
	admin.Get("/staff", cfg.Admin.ListStaff)
}
