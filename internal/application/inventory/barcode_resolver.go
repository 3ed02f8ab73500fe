package inventory

import (
	"context"

	"github.com/jhoicas/labstock/internal/domain/barcode"
	"github.com/jhoicas/labstock/internal/domain/entity"
	"github.com/jhoicas/labstock/internal/domain/repository"
)

// BarcodeResolver traduce un código escaneado o tecleado a un artículo activo del catálogo.
type BarcodeResolver struct {
	items repository.ItemRepository
}

// NewBarcodeResolver construye el resolvedor sobre el catálogo.
func NewBarcodeResolver(items repository.ItemRepository) *BarcodeResolver {
	return &BarcodeResolver{items: items}
}

// Resolve normaliza el código y busca el artículo activo con ese código exacto.
// "No encontrado" es un resultado esperado al escanear: devuelve nil, nil.
// Un código mal formado devuelve domain.ErrInvalidBarcode. No tiene efectos secundarios.
func (r *BarcodeResolver) Resolve(ctx context.Context, code string) (*entity.Item, error) {
	normalized, err := barcode.Normalize(code)
	if err != nil {
		return nil, err
	}
	item, err := r.items.GetActiveByBarcode(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if item == nil || !item.Active {
		return nil, nil
	}
	return item, nil
}
