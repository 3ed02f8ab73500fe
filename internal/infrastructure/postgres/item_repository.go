package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/labstock/internal/domain"
	"github.com/jhoicas/labstock/internal/domain/entity"
	"github.com/jhoicas/labstock/internal/domain/repository"
)

var _ repository.ItemRepository = (*ItemRepo)(nil)

const itemColumns = `id, name, unit, stock, min_level, barcode, active, price, created_at, updated_at`

// ItemRepo implementación del puerto ItemRepository sobre PostgreSQL (usable con pool o tx).
type ItemRepo struct {
	q Querier
}

// NewItemRepository construye el adaptador de artículos. Pasar pool o tx (Querier).
func NewItemRepository(q Querier) *ItemRepo {
	return &ItemRepo{q: q}
}

// Create da de alta un artículo con stock 0; el saldo inicial entra por el motor como transacción.
func (r *ItemRepo) Create(ctx context.Context, item *entity.Item) error {
	query := `
		INSERT INTO items (id, name, unit, stock, min_level, barcode, active, price, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, $5, $6, $7, now(), now())
		RETURNING created_at, updated_at`
	err := r.q.QueryRow(ctx, query,
		item.ID, item.Name, item.Unit, item.MinLevel, item.Barcode, item.Active, item.Price,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return wrapErr("insert item", err)
	}
	item.Stock = 0
	return nil
}

// GetByID obtiene un artículo por ID; nil, nil si no existe.
func (r *ItemRepo) GetByID(ctx context.Context, id string) (*entity.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`
	it, err := scanItem(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get item", err)
	}
	return it, nil
}

// GetActiveByBarcode busca un artículo activo por código exacto; nil, nil si no hay coincidencia.
func (r *ItemRepo) GetActiveByBarcode(ctx context.Context, barcode string) (*entity.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE barcode = $1 AND active`
	it, err := scanItem(r.q.QueryRow(ctx, query, barcode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get item by barcode", err)
	}
	return it, nil
}

// UpdateStock escritura condicional: solo actualiza si el stock almacenado sigue siendo expectedPrior.
func (r *ItemRepo) UpdateStock(ctx context.Context, id string, newQty, expectedPrior int64) error {
	query := `UPDATE items SET stock = $2, updated_at = now() WHERE id = $1 AND stock = $3`
	tag, err := r.q.Exec(ctx, query, id, newQty, expectedPrior)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrInsufficientStock
		}
		return wrapErr("update stock", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM items WHERE id = $1)`, id).Scan(&exists); err != nil {
		return wrapErr("check item", err)
	}
	if !exists {
		return domain.ErrItemNotFound
	}
	return domain.ErrConflict
}

func scanItem(row pgx.Row) (*entity.Item, error) {
	var it entity.Item
	err := row.Scan(
		&it.ID, &it.Name, &it.Unit, &it.Stock, &it.MinLevel, &it.Barcode,
		&it.Active, &it.Price, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}
