package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/labstock/internal/application/alerts"
	appanalytics "github.com/jhoicas/labstock/internal/application/analytics"
	"github.com/jhoicas/labstock/internal/application/inventory"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Resolver  *inventory.BarcodeResolver
	Engine    *inventory.ApplyTransactionUseCase
	Ledger    *inventory.LedgerUseCase
	Alerts    *alerts.Manager
	Dashboard *appanalytics.DashboardUseCase
	Log       zerolog.Logger
	OpTimeout time.Duration // límite por operación; 0 = sin límite propio
	JWTSecret string        // vacío = API sin autenticación (el actor no se registra)
	JWTIssuer string
}

type handlerConfig struct {
	opTimeout time.Duration
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	cfg := handlerConfig{opTimeout: deps.OpTimeout}

	var api fiber.Router = app.Group("/api")
	if deps.JWTSecret != "" {
		api = app.Group("/api", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))
	}

	items := api.Group("/items")
	itemHandler := NewItemHandler(deps.Resolver, deps.Ledger, deps.Log, cfg)
	items.Get("/barcode/:code", itemHandler.ResolveBarcode)
	items.Get("/:id/transactions", itemHandler.Transactions)
	items.Get("/:id/conservation", itemHandler.Conservation)

	stockGroup := api.Group("/stock")
	stockHandler := NewStockHandler(deps.Engine, deps.Ledger, deps.Log, cfg)
	stockGroup.Post("/transactions", stockHandler.ApplyTransaction)
	stockGroup.Get("/transactions", stockHandler.RecentTransactions)
	stockGroup.Post("/scan", stockHandler.Scan)

	alertsGroup := api.Group("/alerts")
	alertHandler := NewAlertHandler(deps.Alerts, deps.Log, cfg)
	alertsGroup.Get("/", alertHandler.ListOpen)
	alertsGroup.Post("/:id/resolve", alertHandler.Resolve)

	dashboard := api.Group("/dashboard")
	dashboardHandler := NewDashboardHandler(deps.Dashboard, deps.Log, cfg)
	dashboard.Get("/summary", dashboardHandler.GetSummary)
}
