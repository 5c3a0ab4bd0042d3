package api

import (
	"github.com/agentx/slackgpt-bot/internal/api/handlers"
	"github.com/agentx/slackgpt-bot/internal/api/middleware"
	"github.com/agentx/slackgpt-bot/internal/metrics"
	"github.com/agentx/slackgpt-bot/internal/services"
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

// ServiceName identifies the bot in health responses
const ServiceName = "slackgpt-bot"

// Dependencies are the collaborators the HTTP layer needs
type Dependencies struct {
	Dispatcher  handlers.EventDispatcher
	Completions handlers.TextGenerator
	// History is nil when auditing is disabled
	History     handlers.InteractionHistory

	Dedup   *services.EventDeduplicator
	Metrics *metrics.Metrics

	SigningSecret string
	GPTRateLimit  int
	CORSOrigins   string
	Logger        *logrus.Logger
}

// NewApp creates the fiber app with the shared error handler and middleware
func NewApp(corsOrigins string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      ServiceName,
		ErrorHandler: ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	if corsOrigins == "" {
		corsOrigins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: corsOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	return app
}

// RegisterMetrics serves /metrics and instruments every route added after it.
// The collectors go to the default Prometheus registry, so call it once per process.
func RegisterMetrics(app *fiber.App) {
	prom := fiberprometheus.New(ServiceName)
	prom.RegisterAt(app, "/metrics")
	app.Use(prom.Middleware)
}

// SetupRoutes configures all routes
func SetupRoutes(app *fiber.App, deps Dependencies) {
	app.Get("/ping", handlers.Ping)

	slackHandler := handlers.NewSlackHandler(deps.Dispatcher, deps.Logger).
		WithDeduplicator(deps.Dedup).
		WithMetrics(deps.Metrics)
	verify := middleware.SlackSignature(deps.SigningSecret, deps.Logger)
	app.Post("/slack/events", verify, slackHandler.HandleEvent)
	// path used by existing Slack app manifests
	app.Post("/events", verify, slackHandler.HandleEvent)

	api := app.Group("/api/v1")
	api.Get("/health", handlers.Health(ServiceName, deps.History != nil))
	api.Get("/gpt", middleware.GPTRateLimit(deps.GPTRateLimit), handlers.GenerateText(deps.Completions))

	if deps.History != nil {
		api.Get("/interactions", handlers.ListInteractions(deps.History))
	}
}

// ErrorHandler renders errors as {"error", "code"} JSON
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
