package restapi

import (
	"net/http"

	"github.com/andreyxaxa/Ephemeral-Chat/config"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/controller/restapi/middleware"
	v1 "github.com/andreyxaxa/Ephemeral-Chat/internal/controller/restapi/v1"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/controller/ws"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/infrastructure/realtime"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/usecase"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// @title Ephemeral chat
// @version 1.0.0
// @host localhost:8080
// @BasePath /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func NewRouter(
	app *fiber.App,
	cfg *config.Config,
	media usecase.MediaUseCase,
	hub *realtime.Hub,
	auth *middleware.Auth,
	l logger.Interface,
) {
	// Swagger
	if cfg.Swagger.Enabled {
		app.Get("/swagger/*", swagger.HandlerDefault)
	}

	// Probes
	app.Get("/healthz", func(ctx *fiber.Ctx) error {
		return ctx.Status(http.StatusOK).JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Realtime
	ws.NewRoutes(app, hub, auth, ws.Config{
		SendBuffer:   cfg.Realtime.SendBuffer,
		WriteTimeout: cfg.Realtime.WriteTimeout,
		PingInterval: cfg.Realtime.PingInterval,
	}, l)

	// Routers
	apiV1Group := app.Group("/v1", auth.Handler())
	{
		v1.NewMessageRoutes(apiV1Group, media, l)
	}
}
