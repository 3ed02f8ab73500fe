package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/labstock/internal/domain"
	"github.com/jhoicas/labstock/internal/domain/entity"
	"github.com/jhoicas/labstock/internal/domain/repository"
)

var _ repository.AlertRepository = (*AlertRepo)(nil)

// AlertRepo alertas de stock bajo sobre PostgreSQL. La unicidad de la alerta abierta por
// artículo la garantiza el índice parcial uq_stock_alerts_open_item.
type AlertRepo struct {
	q Querier
}

// NewAlertRepository construye el adaptador de alertas. Pasar pool o tx (Querier).
func NewAlertRepository(q Querier) *AlertRepo {
	return &AlertRepo{q: q}
}

// FindOpen devuelve la alerta abierta del artículo o nil, nil.
func (r *AlertRepo) FindOpen(ctx context.Context, itemID string) (*entity.Alert, error) {
	query := `
		SELECT id, item_id, message, resolved, created_at, resolved_at
		FROM stock_alerts WHERE item_id = $1 AND NOT resolved
		LIMIT 1`
	var a entity.Alert
	err := r.q.QueryRow(ctx, query, itemID).Scan(
		&a.ID, &a.ItemID, &a.Message, &a.Resolved, &a.CreatedAt, &a.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("find open alert", err)
	}
	return &a, nil
}

// Insert crea la alerta; si ya hay una abierta para el artículo no inserta y devuelve false.
func (r *AlertRepo) Insert(ctx context.Context, alert *entity.Alert) (bool, error) {
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO stock_alerts (id, item_id, message, resolved, created_at)
		VALUES ($1, $2, $3, FALSE, $4)
		ON CONFLICT (item_id) WHERE NOT resolved DO NOTHING`
	tag, err := r.q.Exec(ctx, query, alert.ID, alert.ItemID, alert.Message, alert.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return false, domain.ErrDuplicate
		}
		return false, wrapErr("insert alert", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkResolved marca la alerta como resuelta; una alerta ya resuelta devuelve changed=false.
func (r *AlertRepo) MarkResolved(ctx context.Context, alertID string, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx,
		`UPDATE stock_alerts SET resolved = TRUE, resolved_at = $2 WHERE id = $1 AND NOT resolved`,
		alertID, at,
	)
	if err != nil {
		return false, wrapErr("resolve alert", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM stock_alerts WHERE id = $1)`, alertID).Scan(&exists); err != nil {
		return false, wrapErr("check alert", err)
	}
	if !exists {
		return false, domain.ErrAlertNotFound
	}
	return false, nil
}

// ResolveOpenForItem resuelve las alertas abiertas del artículo y devuelve sus IDs.
func (r *AlertRepo) ResolveOpenForItem(ctx context.Context, itemID string, at time.Time) ([]string, error) {
	rows, err := r.q.Query(ctx, `
		UPDATE stock_alerts SET resolved = TRUE, resolved_at = $2
		WHERE item_id = $1 AND NOT resolved
		RETURNING id`, itemID, at)
	if err != nil {
		return nil, wrapErr("resolve alerts for item", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, wrapErr("resolve alerts for item", err)
	}
	return ids, nil
}

// ListOpen alertas abiertas con nombre, unidad, stock y mínimo actuales del artículo.
func (r *AlertRepo) ListOpen(ctx context.Context) ([]repository.OpenAlert, error) {
	query := `
		SELECT a.id, a.item_id, a.message, a.resolved, a.created_at, a.resolved_at,
		       i.name, i.unit, i.stock, i.min_level
		FROM stock_alerts a
		JOIN items i ON i.id = a.item_id
		WHERE NOT a.resolved
		ORDER BY a.created_at DESC, a.id DESC`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, wrapErr("list open alerts", err)
	}
	defer rows.Close()

	out := make([]repository.OpenAlert, 0)
	for rows.Next() {
		var oa repository.OpenAlert
		if err := rows.Scan(
			&oa.Alert.ID, &oa.Alert.ItemID, &oa.Alert.Message, &oa.Alert.Resolved,
			&oa.Alert.CreatedAt, &oa.Alert.ResolvedAt,
			&oa.ItemName, &oa.Unit, &oa.Stock, &oa.MinLevel,
		); err != nil {
			return nil, wrapErr("scan alert", err)
		}
		out = append(out, oa)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate alerts", err)
	}
	return out, nil
}
