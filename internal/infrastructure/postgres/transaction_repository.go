package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/labstock/internal/domain/entity"
	"github.com/jhoicas/labstock/internal/domain/repository"
)

var _ repository.TransactionRepository = (*TransactionRepo)(nil)

// TransactionRepo ledger de movimientos sobre PostgreSQL (usable con pool o tx).
type TransactionRepo struct {
	q Querier
}

// NewTransactionRepository construye el adaptador del ledger. Pasar pool o tx (Querier).
func NewTransactionRepository(q Querier) *TransactionRepo {
	return &TransactionRepo{q: q}
}

// Append inserta la transacción y completa ID (y CreatedAt si venía vacío).
func (r *TransactionRepo) Append(ctx context.Context, tx *entity.Transaction) error {
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO stock_transactions (item_id, kind, delta, comment, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		tx.ItemID, string(tx.Kind), tx.Delta, tx.Comment, tx.Actor, tx.CreatedAt,
	).Scan(&tx.ID)
	if err != nil {
		return wrapErr("insert stock transaction", err)
	}
	return nil
}

// RecentFor últimas transacciones de un artículo, más recientes primero.
func (r *TransactionRepo) RecentFor(ctx context.Context, itemID string, limit int) ([]repository.LedgerEntry, error) {
	query := `
		SELECT t.id, t.item_id, t.kind, t.delta, t.comment, t.actor, t.created_at, i.name, i.unit
		FROM stock_transactions t
		JOIN items i ON i.id = t.item_id
		WHERE t.item_id = $1
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $2`
	rows, err := r.q.Query(ctx, query, itemID, limit)
	if err != nil {
		return nil, wrapErr("recent transactions for item", err)
	}
	return scanLedger(rows)
}

// RecentAll últimas transacciones de todos los artículos.
func (r *TransactionRepo) RecentAll(ctx context.Context, limit int) ([]repository.LedgerEntry, error) {
	query := `
		SELECT t.id, t.item_id, t.kind, t.delta, t.comment, t.actor, t.created_at, i.name, i.unit
		FROM stock_transactions t
		JOIN items i ON i.id = t.item_id
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $1`
	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, wrapErr("recent transactions", err)
	}
	return scanLedger(rows)
}

// SumDeltas suma de deltas de un artículo desde su creación.
func (r *TransactionRepo) SumDeltas(ctx context.Context, itemID string) (int64, error) {
	var sum int64
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(delta), 0)::BIGINT FROM stock_transactions WHERE item_id = $1`, itemID,
	).Scan(&sum)
	if err != nil {
		return 0, wrapErr("sum deltas", err)
	}
	return sum, nil
}

func scanLedger(rows pgx.Rows) ([]repository.LedgerEntry, error) {
	defer rows.Close()
	out := make([]repository.LedgerEntry, 0)
	for rows.Next() {
		var (
			e    repository.LedgerEntry
			kind string
		)
		if err := rows.Scan(
			&e.Transaction.ID, &e.Transaction.ItemID, &kind, &e.Transaction.Delta,
			&e.Transaction.Comment, &e.Transaction.Actor, &e.Transaction.CreatedAt,
			&e.ItemName, &e.Unit,
		); err != nil {
			return nil, wrapErr("scan stock transaction", err)
		}
		e.Transaction.Kind = entity.TransactionKind(kind)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate stock transactions", err)
	}
	return out, nil
}
