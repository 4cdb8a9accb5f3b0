package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/healthmate/server/internal/middleware"
	"github.com/healthmate/server/internal/session"
)

// Routes groups the handlers served by the API.
type Routes struct {
	Auth         *AuthHandler
	Consultation *ConsultationHandler
	Records      *RecordsHandler
	Session      *middleware.SessionMiddleware
	// AssistantModel is reported by /api/version; empty when no model is configured.
	AssistantModel string
}

// sessionStatsReporter is implemented by stores that count their live sessions.
type sessionStatsReporter interface {
	Stats() session.Stats
}

func (r *Routes) health(c *fiber.Ctx) error {
	body := fiber.Map{"status": "ok"}
	if reporter, ok := r.Session.Sessions.(sessionStatsReporter); ok {
		body["sessions"] = reporter.Stats()
	}
	return c.Status(fiber.StatusOK).JSON(body)
}

func (r *Routes) Mount(app *fiber.App) {
	app.Get("/health", r.health)

	api := app.Group("/api")
	api.Get("/landing", Landing)
	api.Get("/version", NewVersionHandler(r.AssistantModel))

	requireSession := r.Session.RequireSession

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", r.Auth.Register)
	authRoutes.Post("/login", r.Auth.Login)
	authRoutes.Post("/logout", requireSession, r.Auth.Logout)
	authRoutes.Get("/me", requireSession, r.Auth.Me)
	authRoutes.Get("/activity", requireSession, r.Auth.Activity)

	consultationRoutes := api.Group("/consultation", requireSession)
	consultationRoutes.Get("/", r.Consultation.Transcript)
	consultationRoutes.Post("/messages", r.Consultation.SendMessage)

	recordRoutes := api.Group("/records", requireSession)
	recordRoutes.Post("/stage", r.Records.Stage)
	recordRoutes.Post("/", r.Records.Confirm)
	recordRoutes.Get("/", r.Records.List)
	recordRoutes.Get("/:id/text", r.Records.ReadText)
}
