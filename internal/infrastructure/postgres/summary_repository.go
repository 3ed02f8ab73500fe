package postgres

import (
	"context"
	"time"

	"github.com/jhoicas/labstock/internal/domain/repository"
)

var _ repository.SummaryRepository = (*SummaryRepo)(nil)

// SummaryRepo consultas agregadas del panel.
type SummaryRepo struct {
	q Querier
}

// NewSummaryRepository construye el adaptador del resumen.
func NewSummaryRepository(q Querier) *SummaryRepo {
	return &SummaryRepo{q: q}
}

// InventorySummary artículos activos, con stock bajo, valor del stock y transacciones desde since.
func (r *SummaryRepo) InventorySummary(ctx context.Context, since time.Time) (*repository.InventorySummary, error) {
	var s repository.InventorySummary
	err := r.q.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE active),
			COUNT(*) FILTER (WHERE active AND stock <= min_level),
			COALESCE(SUM(price * stock) FILTER (WHERE active), 0)
		FROM items`,
	).Scan(&s.ActiveItems, &s.LowStockItems, &s.StockValue)
	if err != nil {
		return nil, wrapErr("summary items", err)
	}
	err = r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM stock_transactions WHERE created_at >= $1`, since,
	).Scan(&s.TransactionsSince)
	if err != nil {
		return nil, wrapErr("summary transactions", err)
	}
	return &s, nil
}
