package dto

import "github.com/shopspring/decimal"

// DashboardSummaryDTO respuesta de GET /api/dashboard/summary.
type DashboardSummaryDTO struct {
	ActiveItems         int             `json:"active_items"`
	LowStockItems       int             `json:"low_stock_items"` // stock <= mínimo
	OpenAlerts          int             `json:"open_alerts"`
	MonthlyTransactions int             `json:"monthly_transactions"` // desde el día 1 del mes en curso
	StockValue          decimal.Decimal `json:"stock_value"`          // Σ stock * precio

	// Últimos movimientos de todo el catálogo
	RecentActivity []TransactionDTO `json:"recent_activity"`

	DateLabel string `json:"date_label"` // ej: "Febrero 2026"
}
