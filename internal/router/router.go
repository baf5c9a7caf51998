package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-lms-api/internal/config"
	"github.com/noah-isme/gema-lms-api/internal/handler"
	"github.com/noah-isme/gema-lms-api/internal/middleware"
	"github.com/noah-isme/gema-lms-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SubmissionHandler   *handler.SubmissionHandler
	GradingHandler      *handler.GradingHandler
	CourseHandler       *handler.CourseHandler
	ProgressHandler     *handler.ProgressHandler
	NotificationHandler *handler.NotificationHandler
	AnnouncementHandler *handler.AnnouncementHandler
	AdmissionHandler    *handler.AdmissionHandler
	ActivityHandler     *handler.ActivityHandler
	HealthChecks        []handler.HealthDependency
	JWTMiddleware       fiber.Handler
	AdmissionRateLimit  int
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	v1 := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	v1.Get("/health", handler.HealthCheck(cfg, deps.HealthChecks...))
	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	api := app.Group("/api/v2")

	if deps.AdmissionHandler != nil {
		limit := deps.AdmissionRateLimit
		if limit <= 0 {
			limit = 5
		}
		deps.AdmissionHandler.RegisterPublic(api.Group("/admissions", middleware.RateLimit("admissions", limit, time.Minute)))
	}

	// Guards are attached per resource group: group middleware matches by
	// plain path prefix, so a guard on /admin would also cover /admissions.
	admin := api.Group("/admin")
	staff := func(prefix string) fiber.Router {
		return admin.Group(prefix, jwtMiddleware, middleware.RequireStaff())
	}
	if deps.CourseHandler != nil {
		deps.CourseHandler.RegisterAdmin(staff("/courses"))
	}
	if deps.GradingHandler != nil {
		deps.GradingHandler.Register(staff("/submissions"))
	}
	if deps.ProgressHandler != nil {
		deps.ProgressHandler.RegisterAdmin(staff("/modules"))
	}
	if deps.AnnouncementHandler != nil {
		deps.AnnouncementHandler.Register(staff("/announcements"))
	}
	if deps.AdmissionHandler != nil {
		deps.AdmissionHandler.RegisterAdmin(staff("/admissions"))
	}
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(staff("/activities"))
	}

	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(api.Group("/notifications", jwtMiddleware))
	}
	if deps.CourseHandler != nil {
		deps.CourseHandler.Register(api.Group("/courses", jwtMiddleware))
	}

	student := middleware.RequireRole(middleware.RoleStudent)
	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(api.Group("/submissions", jwtMiddleware, student))
	}
	if deps.ProgressHandler != nil {
		deps.ProgressHandler.Register(api.Group("/modules", jwtMiddleware, student))
	}
}
