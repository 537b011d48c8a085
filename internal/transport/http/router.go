package http

import (
	"fmt"
	"net/http"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/recarga/backend/internal/config"
	"github.com/recarga/backend/internal/core/ports"
	"github.com/recarga/backend/internal/infrastructure/logger"
	"github.com/recarga/backend/internal/transport/http/handlers"
	httpmw "github.com/recarga/backend/internal/transport/http/middleware"
	"github.com/recarga/backend/internal/transport/http/web"
)

type RouterConfig struct {
	Logger    *logger.Logger
	Config    *config.Config
	Recharges ports.RechargeService
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

func SetupRoutes(app *fiber.App, cfg RouterConfig) error {
	tmpl, err := web.IndexTemplate()
	if err != nil {
		return fmt.Errorf("parse index template: %w", err)
	}

	indexHandler := handlers.NewIndexHandler(tmpl, httpmw.CSRFContextKey, cfg.Logger)
	rechargeHandler := handlers.NewRechargeHandler(cfg.Recharges, cfg.Logger)
	statusHandler := handlers.NewStatusHandler(cfg.Recharges, cfg.Logger)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	app.Use("/static", filesystem.New(filesystem.Config{
		Root:   http.FS(web.Static()),
		MaxAge: 3600,
	}))

	// Task status stream
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws/status/:id", websocket.New(statusHandler.Stream))

	form := app.Group("")
	if cfg.Config.Security.CSRFEnabled {
		form.Use(httpmw.EncryptCookies(cfg.Config), httpmw.CSRF(cfg.Config))
	}
	form.Get("/", indexHandler.Render)
	form.Post("/recharge", rechargeHandler.CreateRecharge)
	form.Post("/recarregar", rechargeHandler.CreateRecharge)

	app.Get("/status/:id", statusHandler.GetStatus)

	return nil
}
