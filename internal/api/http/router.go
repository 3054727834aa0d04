package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/clarification-service/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Cases   *handlers.CasesHandler
	Reports *handlers.ReportsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	cases := app.Group("/cases")
	cases.Post("", cfg.Cases.CreateCase)
	cases.Get("", cfg.Cases.ListCases)
	cases.Get("/key/:key", cfg.Cases.GetCaseByKey)
	cases.Get("/:id", cfg.Cases.GetCase)
	cases.Post("/:id/status", cfg.Cases.ChangeStatus)
	cases.Post("/:id/reopen", cfg.Cases.Reopen)
	cases.Post("/:id/escalate", cfg.Cases.Escalate)
	cases.Patch("/:id/priority", cfg.Cases.UpdatePriority)
	cases.Post("/:id/emails", cfg.Cases.RecordEmail)
	cases.Post("/:id/notes", cfg.Cases.AddNote)
	cases.Post("/:id/attachments", cfg.Cases.AddAttachment)
	cases.Post("/:id/archive", cfg.Cases.Archive)
	cases.Get("/:id/timeline", cfg.Cases.Timeline)
	cases.Get("/:id/history", cfg.Cases.History)

	app.Get("/partners", cfg.Cases.ListPartners)

	reports := app.Group("/reports")
	reports.Get("/summary", cfg.Reports.Summary)
	reports.Get("/aging", cfg.Reports.Aging)
	reports.Get("/overdue", cfg.Reports.Overdue)
	reports.Get("/due", cfg.Reports.Due)
}
