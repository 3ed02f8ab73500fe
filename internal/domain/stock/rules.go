// Package stock contiene las reglas puras del motor de stock (servicio de dominio):
// signo del movimiento, nuevo nivel y mensaje de alerta. No realiza I/O.
package stock

import (
	"fmt"
	"math"
	"strings"

	"github.com/jhoicas/labstock/internal/domain"
	"github.com/jhoicas/labstock/internal/domain/entity"
)

// ParseKind interpreta la etiqueta de tipo recibida desde el operador.
// Acepta los alias usados por el escáner y la lista de movimientos (in/inn, out/ut).
func ParseKind(s string) (entity.TransactionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inbound", "in", "inn":
		return entity.TransactionInbound, nil
	case "outbound", "out", "ut":
		return entity.TransactionOutbound, nil
	}
	return "", fmt.Errorf("%w: tipo de transacción %q", domain.ErrInvalidInput, s)
}

// SignedDelta devuelve +quantity para entradas y -quantity para salidas.
func SignedDelta(kind entity.TransactionKind, quantity int64) (int64, error) {
	if quantity <= 0 {
		return 0, domain.ErrInvalidQuantity
	}
	switch kind {
	case entity.TransactionInbound:
		return quantity, nil
	case entity.TransactionOutbound:
		return -quantity, nil
	}
	return 0, fmt.Errorf("%w: tipo de transacción %q", domain.ErrInvalidInput, kind)
}

// NextLevel aplica delta sobre current. Rechaza resultados negativos con ErrInsufficientStock.
func NextLevel(current, delta int64) (int64, error) {
	if delta > 0 && current > math.MaxInt64-delta {
		return 0, domain.ErrInvalidQuantity
	}
	next := current + delta
	if next < 0 {
		return 0, domain.ErrInsufficientStock
	}
	return next, nil
}

// IsLow indica si el nivel está en o por debajo del mínimo.
func IsLow(level, minimum int64) bool {
	return level <= minimum
}

// AlertMessage arma el texto de la alerta con los niveles del momento de la evaluación.
func AlertMessage(itemName, unit string, level, minimum int64) string {
	if unit == "" {
		unit = "unid."
	}
	return fmt.Sprintf("Stock bajo: %s tiene %d %s (mínimo %d %s)", itemName, level, unit, minimum, unit)
}
