package inventory

import (
	"context"

	"github.com/jhoicas/labstock/internal/domain"
	"github.com/jhoicas/labstock/internal/domain/repository"
)

// Límites de las consultas de actividad.
const (
	DefaultRecentLimit = 5
	MaxRecentLimit     = 100
)

// Conservation compara el stock del catálogo con la suma de deltas del ledger.
type Conservation struct {
	ItemID    string
	Stock     int64
	LedgerSum int64
	Drift     int64 // Stock - LedgerSum; 0 cuando están conciliados
}

// Consistent indica si el stock coincide con el ledger.
func (c Conservation) Consistent() bool {
	return c.Drift == 0
}

// LedgerUseCase consultas de solo lectura sobre el libro de movimientos.
// No expone ninguna mutación: toda escritura pasa por ApplyTransactionUseCase.
type LedgerUseCase struct {
	ledger repository.TransactionRepository
	items  repository.ItemRepository
}

// NewLedgerUseCase construye el caso de uso.
func NewLedgerUseCase(ledger repository.TransactionRepository, items repository.ItemRepository) *LedgerUseCase {
	return &LedgerUseCase{ledger: ledger, items: items}
}

// RecentFor últimas transacciones del artículo, más recientes primero.
func (uc *LedgerUseCase) RecentFor(ctx context.Context, itemID string, limit int) ([]repository.LedgerEntry, error) {
	if itemID == "" {
		return nil, domain.ErrInvalidInput
	}
	return uc.ledger.RecentFor(ctx, itemID, clampLimit(limit))
}

// RecentAll últimas transacciones de todo el catálogo, más recientes primero.
func (uc *LedgerUseCase) RecentAll(ctx context.Context, limit int) ([]repository.LedgerEntry, error) {
	return uc.ledger.RecentAll(ctx, clampLimit(limit))
}

// Conservation verifica stock == Σ deltas para el artículo.
func (uc *LedgerUseCase) Conservation(ctx context.Context, itemID string) (*Conservation, error) {
	item, err := uc.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrItemNotFound
	}
	sum, err := uc.ledger.SumDeltas(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return &Conservation{
		ItemID:    itemID,
		Stock:     item.Stock,
		LedgerSum: sum,
		Drift:     item.Stock - sum,
	}, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		return MaxRecentLimit
	}
	return limit
}
