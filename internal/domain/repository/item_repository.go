package repository

import (
	"context"

	"github.com/jhoicas/labstock/internal/domain/entity"
)

// ItemRepository define el puerto del catálogo de artículos (DIP).
// El núcleo solo lee artículos y escribe condicionalmente el campo de stock.
type ItemRepository interface {
	// GetByID devuelve nil, nil si el artículo no existe.
	GetByID(ctx context.Context, id string) (*entity.Item, error)
	// GetActiveByBarcode busca por coincidencia exacta entre artículos activos; nil, nil si no hay.
	GetActiveByBarcode(ctx context.Context, barcode string) (*entity.Item, error)
	// UpdateStock escribe newQty solo si el valor almacenado sigue siendo expectedPrior.
	// Devuelve domain.ErrConflict si otro escritor lo cambió, domain.ErrItemNotFound si no existe.
	UpdateStock(ctx context.Context, id string, newQty, expectedPrior int64) error
}
