package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/penmark-edu/penmark-api/internal/config"
	"github.com/penmark-edu/penmark-api/internal/handler"
	"github.com/penmark-edu/penmark-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SubmissionHandler *handler.SubmissionHandler
	GradingHandler    *handler.GradingHandler
	ReviewHandler     *handler.ReviewHandler
	ThresholdHandler  *handler.ThresholdHandler
	RosterHandler     *handler.RosterHandler
	SeedHandler       *handler.SeedHandler
	TeacherAuth       fiber.Handler
	UploadRateLimit   fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	// Every grading surface requires a resolved teacher identity.
	auth := deps.TeacherAuth
	if auth == nil {
		auth = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.SubmissionHandler != nil {
		submissions := api.Group("/submissions", auth)
		if deps.UploadRateLimit != nil {
			submissions.Use(deps.UploadRateLimit)
		}
		deps.SubmissionHandler.Register(submissions)

		if deps.GradingHandler != nil {
			deps.GradingHandler.Register(submissions)
		}
	}

	if deps.ReviewHandler != nil {
		grading := api.Group("/grading", auth)
		deps.ReviewHandler.Register(grading)
	}

	if deps.ThresholdHandler != nil {
		teachers := api.Group("/teachers", auth)
		deps.ThresholdHandler.Register(teachers)
	}

	if deps.RosterHandler != nil {
		students := api.Group("/students", auth)
		deps.RosterHandler.RegisterStudents(students)

		exams := api.Group("/exams", auth)
		deps.RosterHandler.RegisterExams(exams)
	}

	if deps.SeedHandler != nil {
		seed := api.Group("/seed", auth)
		deps.SeedHandler.Register(seed)
	}
}
