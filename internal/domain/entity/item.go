package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item representa un artículo del catálogo del laboratorio (reactivo, consumible, equipo).
// El catálogo es dueño del registro; el motor de stock solo modifica Stock.
type Item struct {
	ID        string
	Name      string
	Unit      string          // unidad de medida mostrada al operador (ml, caja, unidad)
	Stock     int64           // cantidad actual; nunca negativa tras un ajuste
	MinLevel  int64           // umbral mínimo; Stock <= MinLevel se considera stock bajo
	Barcode   *string         // opcional, único cuando existe
	Active    bool            // los inactivos no se resuelven por código de barras
	Price     decimal.Decimal // precio unitario, solo lectura para el motor
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsLowStock indica si la cantidad dada está en o por debajo del mínimo del artículo.
func (i *Item) IsLowStock(stock int64) bool {
	return stock <= i.MinLevel
}
