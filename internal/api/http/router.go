package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/civic-report-service/internal/api/http/handlers"
	"github.com/spec-kit/civic-report-service/internal/auth"
	"github.com/spec-kit/civic-report-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Reports        *handlers.ReportsHandler
	AdminReports   *handlers.AdminReportsHandler
	AgentReports   *handlers.AgentReportsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Post("/password/reset/request", cfg.Users.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Users.ConfirmPasswordReset)

	authProtected := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	authProtected.Get("/me", cfg.Users.Me)
	authProtected.Post("/password/change", cfg.Users.ChangePassword)

	// Report intake and tracking work signed in or anonymously.
	reports := app.Group("/reports", cfg.AuthMiddleware.HandleOptional)
	reports.Get("/steps", cfg.Reports.ListSteps)
	reports.Post("", cfg.Reports.CreateReport)
	reports.Get("", cfg.Reports.ListReports)
	reports.Get("/:id", cfg.Reports.GetReport)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin))
	admin.Get("/reports", cfg.AdminReports.ListReports)
	admin.Get("/reports/:id", cfg.AdminReports.GetReport)
	admin.Post("/reports/:id/status", cfg.AdminReports.UpdateStatus)
	admin.Put("/reports/:id/priority", cfg.AdminReports.UpdatePriority)
	admin.Put("/reports/:id/agent", cfg.AdminReports.AssignAgent)
	admin.Get("/reports/:id/history", cfg.AdminReports.ListHistory)
	admin.Get("/agents", cfg.AdminReports.ListAgents)
	admin.Get("/users", cfg.Users.ListAccounts)
	admin.Post("/users", cfg.Users.CreateAccount)
	admin.Put("/users/:id/role", cfg.Users.UpdateRole)

	agent := app.Group("/agent", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAgent))
	agent.Get("/reports", cfg.AgentReports.ListReports)
	agent.Get("/reports/:id", cfg.AgentReports.GetReport)
	agent.Post("/reports/:id/status", cfg.AgentReports.UpdateStatus)
}
