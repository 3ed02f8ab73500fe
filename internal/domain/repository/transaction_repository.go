package repository

import (
	"context"

	"github.com/jhoicas/labstock/internal/domain/entity"
)

// LedgerEntry transacción enriquecida con datos del artículo para las vistas de actividad.
type LedgerEntry struct {
	Transaction entity.Transaction
	ItemName    string
	Unit        string
}

// TransactionRepository define el puerto del libro de movimientos (solo anexar + consultas).
type TransactionRepository interface {
	// Append persiste la transacción y completa ID y CreatedAt.
	Append(ctx context.Context, tx *entity.Transaction) error
	// RecentFor lista las últimas transacciones de un artículo, más recientes primero.
	RecentFor(ctx context.Context, itemID string, limit int) ([]LedgerEntry, error)
	// RecentAll lista las últimas transacciones de todos los artículos, más recientes primero.
	RecentAll(ctx context.Context, limit int) ([]LedgerEntry, error)
	// SumDeltas suma los deltas registrados para el artículo.
	SumDeltas(ctx context.Context, itemID string) (int64, error)
}
