package repository

import (
	"context"
	"time"

	"github.com/jhoicas/labstock/internal/domain/entity"
)

// OpenAlert alerta abierta junto con el estado actual del artículo.
type OpenAlert struct {
	Alert    entity.Alert
	ItemName string
	Unit     string
	Stock    int64
	MinLevel int64
}

// AlertRepository define el puerto de persistencia de alertas de stock bajo.
type AlertRepository interface {
	// FindOpen devuelve la alerta no resuelta del artículo o nil, nil.
	FindOpen(ctx context.Context, itemID string) (*entity.Alert, error)
	// Insert crea la alerta si el artículo no tiene otra abierta.
	// created=false significa que ya existía una alerta abierta (no se insertó nada).
	Insert(ctx context.Context, alert *entity.Alert) (created bool, err error)
	// MarkResolved marca la alerta como resuelta. Resolver una ya resuelta no es error
	// (changed=false). Devuelve domain.ErrAlertNotFound si el id no existe.
	MarkResolved(ctx context.Context, alertID string, at time.Time) (changed bool, err error)
	// ResolveOpenForItem resuelve las alertas abiertas del artículo y devuelve sus IDs.
	ResolveOpenForItem(ctx context.Context, itemID string, at time.Time) ([]string, error)
	// ListOpen lista las alertas no resueltas, más recientes primero.
	ListOpen(ctx context.Context) ([]OpenAlert, error)
}
