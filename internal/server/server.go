// Package server assembles the Fiber application and its collaborators.
package server

import (
	"log/slog"
	"strings"

	"usersvc/internal/config"
	"usersvc/internal/handlers"
	"usersvc/internal/metrics"
	"usersvc/internal/repositories"
	"usersvc/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unrolled/secure"
)

// Dependencies are the collaborators the HTTP layer is built from.
type Dependencies struct {
	Store       repositories.UserRepository
	AuthService *services.AuthService
	Logger      *slog.Logger
	// Registry receives the service collectors. A fresh registry is
	// created when nil.
	Registry *prometheus.Registry
	// AccessLog enables the per-request access log line.
	AccessLog bool
}

// NewApp builds the Fiber application with middleware and routes.
func NewApp(cfg *config.Config, deps Dependencies) *fiber.App {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}
	deps.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.Register(deps.Registry)

	app := fiber.New(fiber.Config{
		AppName:               "usersvc",
		DisableStartupMessage: true,
		ErrorHandler:          handlers.ErrorHandler,
	})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	if deps.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(adaptor.HTTPMiddleware(secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}).Handler))

	// --- Routes ---
	handlers.NewHealthHandler(deps.Store).RegisterRoutes(app)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))

	apiV1 := app.Group("/api/v1")
	handlers.NewUserHandler(deps.AuthService, deps.Logger).RegisterRoutes(apiV1)

	return app
}
