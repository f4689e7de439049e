package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/task-service/internal/api/http/handlers"
	"github.com/spec-kit/task-service/internal/auth"
	"github.com/spec-kit/task-service/internal/observability"
	"github.com/spec-kit/task-service/internal/validation"
	apperrors "github.com/spec-kit/task-service/pkg/util/errorutil"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tasks          *handlers.TasksHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
	RateLimiter    *RateLimiter
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	limited := cfg.RateLimiter.Handle("auth")
	authGroup.Post("/register", limited, handlers.ValidateBody(validation.RegisterSchema), cfg.Auth.Register)
	authGroup.Post("/login", limited, handlers.ValidateBody(validation.LoginSchema), cfg.Auth.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)

	tasks := api.Group("/tasks", cfg.AuthMiddleware.Handle)
	tasks.Get("/", cfg.Tasks.ListTasks)
	tasks.Post("/", handlers.ValidateBody(validation.CreateTaskSchema), cfg.Tasks.CreateTask)
	tasks.Get("/:id", cfg.Tasks.GetTask)
	tasks.Put("/:id", handlers.ValidateBody(validation.UpdateTaskSchema), cfg.Tasks.UpdateTask)
	tasks.Delete("/:id", cfg.Tasks.DeleteTask)

	api.Get("/users", cfg.AuthMiddleware.Handle, cfg.Users.List)

	app.Use(func(c *fiber.Ctx) error {
		return apperrors.NewDomainError(apperrors.CodeNotFound, "Route not found", fiber.StatusNotFound, nil)
	})
}
