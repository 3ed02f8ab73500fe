package entity

import "time"

// TransactionKind etiqueta de tipo de movimiento; el signo del delta se deriva de ella.
type TransactionKind string

// Tipos de transacción de stock.
const (
	TransactionInbound  TransactionKind = "inbound"  // entrada
	TransactionOutbound TransactionKind = "outbound" // salida
)

// Transaction es una entrada inmutable del libro de movimientos (ledger).
// Nunca se edita ni se elimina; el stock actual debe ser igual a la suma de los Delta.
type Transaction struct {
	ID        int64 // monótono creciente, asignado por el almacenamiento
	ItemID    string
	Kind      TransactionKind
	Delta     int64   // positivo entrada, negativo salida
	Comment   *string // opcional
	Actor     *string // opcional, quién realizó el movimiento
	CreatedAt time.Time
}

// Quantity devuelve la magnitud del movimiento (siempre positiva).
func (t *Transaction) Quantity() int64 {
	if t.Delta < 0 {
		return -t.Delta
	}
	return t.Delta
}
