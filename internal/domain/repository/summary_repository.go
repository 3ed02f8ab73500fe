package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// InventorySummary cifras para el resumen del panel.
type InventorySummary struct {
	ActiveItems       int
	LowStockItems     int             // activos con stock <= mínimo
	TransactionsSince int             // transacciones desde el instante pedido
	StockValue        decimal.Decimal // Σ stock * precio de artículos activos
}

// SummaryRepository consultas de solo lectura para el panel.
type SummaryRepository interface {
	InventorySummary(ctx context.Context, since time.Time) (*InventorySummary, error)
}
