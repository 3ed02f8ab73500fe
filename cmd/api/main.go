package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	_ "github.com/jhoicas/labstock/docs"
	"github.com/jhoicas/labstock/internal/application/alerts"
	appanalytics "github.com/jhoicas/labstock/internal/application/analytics"
	"github.com/jhoicas/labstock/internal/application/inventory"
	httpRouter "github.com/jhoicas/labstock/internal/interfaces/http"
	"github.com/jhoicas/labstock/pkg/config"
	"github.com/jhoicas/labstock/pkg/logger"
	"github.com/jhoicas/labstock/pkg/tracing"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.Log.Level,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("storage", cfg.App.Storage).
		Str("lock", cfg.Lock.Backend).
		Bool("alert_auto_resolve", cfg.Stock.AutoResolveAlerts).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		ServiceName:    cfg.App.Name,
		ServiceVersion: version,
		Environment:    cfg.App.Env,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("configurar tracing")
	}

	store, err := openBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("almacenamiento")
	}
	defer store.close()

	locker, closeLocker, err := newLocker(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("candado por artículo")
	}
	defer closeLocker()

	publisher, closePublisher := newPublisher(cfg)
	defer closePublisher()

	alertManager := alerts.NewManager(store.alerts, publisher,
		alerts.Policy{AutoResolve: cfg.Stock.AutoResolveAlerts},
		log.Component("alerts"),
	)
	if store.memStore != nil && cfg.App.SeedFile != "" {
		n, err := seedMemory(ctx, store.memStore, alertManager, cfg.App.SeedFile)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.App.SeedFile).Msg("catálogo inicial")
		}
		log.Info().Int("items", n).Str("path", cfg.App.SeedFile).Msg("catálogo inicial cargado en memoria")
	}
	engine := inventory.NewApplyTransactionUseCase(
		store.txRunner, store.items, locker, alertManager, publisher,
		log.Component("stock"),
		inventory.Options{MaxAttempts: cfg.Stock.MaxAttempts},
	)
	ledgerUC := inventory.NewLedgerUseCase(store.ledger, store.items)
	dashboardUC := appanalytics.NewDashboardUseCase(store.summary, store.ledger, store.alerts)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestMiddleware(log.Component("http")))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "LabStock API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		pingCtx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := store.ping(pingCtx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "service": cfg.App.Name})
		}
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Resolver:  inventory.NewBarcodeResolver(store.items),
		Engine:    engine,
		Ledger:    ledgerUC,
		Alerts:    alertManager,
		Dashboard: dashboardUC,
		Log:       log.Component("http"),
		OpTimeout: cfg.Stock.OpTimeout,
		JWTSecret: cfg.JWT.Secret,
		JWTIssuer: cfg.JWT.Issuer,
	})
	if cfg.JWT.Secret == "" {
		log.Warn().Msg("JWT_SECRET vacío: la API no exige token y no registra el actor")
	}

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado de tracing")
	}

	log.Info().Msg("aplicación detenida")
}
