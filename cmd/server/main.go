package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/recarga/backend/internal/config"
	"github.com/recarga/backend/internal/core/ports"
	"github.com/recarga/backend/internal/core/services"
	"github.com/recarga/backend/internal/domain"
	"github.com/recarga/backend/internal/infrastructure/browser"
	"github.com/recarga/backend/internal/infrastructure/db"
	"github.com/recarga/backend/internal/infrastructure/ledger"
	"github.com/recarga/backend/internal/infrastructure/logger"
	"github.com/recarga/backend/internal/infrastructure/metrics"
	"github.com/recarga/backend/internal/infrastructure/sheets"
	transporthttp "github.com/recarga/backend/internal/transport/http"
	httpmw "github.com/recarga/backend/internal/transport/http/middleware"
	"github.com/recarga/backend/pkg/utils/crypto"
	"gorm.io/gorm"
)

const openBrowserDelay = 1500 * time.Millisecond

func main() {
	configPath := "config/config.yaml"
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		configPath = "../config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	for _, problem := range cfg.Validate() {
		log.Warnw("config_problem", "detail", problem)
	}
	if cfg.UsesFallbackSecret() {
		log.Warn("SECRET_KEY not set; using the built-in fallback secret")
	}

	var m *metrics.Metrics
	if cfg.Features.EnableMetrics {
		m = metrics.Default()
	}

	var database *gorm.DB
	remoteSinks := make([]ports.LedgerSink, 0, 2)

	if cfg.Sheets.Enabled {
		recorder, err := sheets.NewFromConfig(context.Background(), cfg.Sheets, log.With("component", "sheets"))
		if err != nil {
			log.Errorw("sheets_init_failed", "error", err)
		} else {
			remoteSinks = append(remoteSinks, recorder)
			log.Info("spreadsheet ledger enabled")
		}
	}

	if cfg.Database.Enabled {
		database, err = db.NewPostgresConnection(cfg.Database)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		log.Info("database connection established")

		if err := db.RunMigrations(database); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		log.Info("database migrations completed")
		remoteSinks = append(remoteSinks, db.NewLedgerSink(db.NewLedgerRepository(database, log)))
	}

	ledgerService := services.NewLedgerService(services.LedgerServiceConfig{
		Local:             ledger.NewFile(cfg.Ledger.FilePath),
		Remote:            remoteSinks,
		RecordCashLocally: cfg.Ledger.RecordCashLocally,
		Logger:            log.With("component", "ledger"),
		Metrics:           m,
	})

	session, portal, printer := startAutomation(cfg, log)

	taskService := services.NewTaskService(services.TaskServiceConfig{
		MaxEntries: cfg.Tasks.MaxEntries,
		TTL:        cfg.Tasks.TTL,
		OnEvict: func(task domain.Task) {
			if !task.Status.Terminal() {
				log.Warnw("task_evicted_while_pending", "task_id", task.ID)
			}
		},
	})

	rechargeConfig := services.RechargeServiceConfig{
		Tasks:   taskService,
		Ledger:  ledgerService,
		Logger:  log,
		Metrics: m,
	}
	if portal != nil {
		rechargeConfig.Portal = portal
	}
	if printer != nil {
		rechargeConfig.Printer = printer
	}
	rechargeService := services.NewRechargeService(rechargeConfig)

	app := fiber.New(fiber.Config{
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		ErrorHandler:          globalErrorHandler(log),
		DisableStartupMessage: true,
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "http://" + cfg.Server.Address(),
		AllowHeaders: "Origin, Content-Type, Accept, " + httpmw.CSRFHeader,
		AllowMethods: "GET, POST, HEAD",
	}))

	app.Use(httpmw.RequestID(cfg.Features.RequestIDHeader))
	if cfg.Features.EnableRequestLogging {
		app.Use(httpmw.AccessLog(log))
	}

	routerConfig := transporthttp.RouterConfig{
		Logger:    log,
		Config:    cfg,
		Recharges: rechargeService,
	}
	if m != nil {
		routerConfig.Metrics = promhttp.Handler()
	}
	if err := transporthttp.SetupRoutes(app, routerConfig); err != nil {
		log.Fatalf("failed to set up routes: %v", err)
	}

	ln, err := net.Listen("tcp4", cfg.Server.Address())
	if err != nil {
		log.Fatalf("server failed to start: %v", err)
	}

	go func() {
		if err := app.Listener(ln); err != nil {
			log.Fatalf("server failed to start: %v", err)
		}
	}()

	log.Infof("server started on %s", cfg.Server.Address())

	if cfg.Server.OpenBrowser {
		go func() {
			time.Sleep(openBrowserDelay)
			if err := openURL(cfg.Server.URL()); err != nil {
				log.Warnw("open_browser_failed", "url", cfg.Server.URL(), "error", err)
			}
		}()
	}

	gracefulShutdown(app, rechargeService, session, database, log)
}

// startAutomation launches the browser, applies the print margins and logs
// in. Failures are logged and leave the server running without a portal.
func startAutomation(cfg *config.Config, log *logger.Logger) (*browser.Session, *browser.Portal, *browser.Printer) {
	browserLog := log.With("component", "browser")

	session, err := browser.Start(cfg.Browser, cfg.Portal.StepTimeout, browserLog)
	if err != nil {
		log.Errorw("browser_start_failed", "error", err)
		return nil, nil, nil
	}

	var printer *browser.Printer
	if cfg.Printer.Enabled {
		printer = browser.NewPrinter(session, cfg.Printer, cfg.Portal.StepTimeout, browserLog)
		if cfg.Printer.ConfigureMargins {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Printer.WindowTimeout+30*time.Second)
			if err := printer.ConfigureMargins(ctx, cfg.Printer.MarginOption); err != nil {
				log.Warnw("print_margins_failed", "option", cfg.Printer.MarginOption, "error", err)
			}
			cancel()
		}
	}

	password, err := crypto.Open(cfg.Portal.Password, cfg.Security.SecretKey)
	if err != nil {
		log.Errorw("portal_password_unseal_failed", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := session.Authenticate(ctx, browser.Credentials{
		URL:      cfg.Portal.URL,
		Login:    cfg.Portal.Login,
		Password: password,
	}); err != nil {
		log.Errorw("portal_login_failed", "error", err)
	}

	return session, browser.NewPortal(session, cfg.Portal.StepTimeout, browserLog), printer
}

func globalErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		if code < fiber.StatusInternalServerError {
			log.Warnw("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"status", code,
				"error", err.Error(),
				"request_id", c.UserContext().Value("request_id"),
			)
		} else {
			log.Errorw("request error",
				"method", c.Method(),
				"path", c.Path(),
				"status", code,
				"error", err.Error(),
				"request_id", c.UserContext().Value("request_id"),
			)
		}

		return c.Status(code).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	}
}

func gracefulShutdown(app *fiber.App, recharges *services.RechargeService, session *browser.Session, database *gorm.DB, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Errorf("server forced to shutdown: %v", err)
	}

	done := make(chan struct{})
	go func() {
		recharges.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Warn("recharges still running at shutdown")
	}

	if session != nil {
		session.Close()
	}

	if err := db.Close(database); err != nil {
		log.Errorf("failed to close database connection: %v", err)
	}

	log.Info("server exited gracefully")
}

func openURL(url string) error {
	cmd := openCommand(url)
	if cmd == nil {
		return fmt.Errorf("no opener for this platform")
	}
	return cmd.Start()
}
