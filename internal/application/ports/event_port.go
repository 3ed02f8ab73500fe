package ports

import (
	"context"
	"time"
)

// Tipos de eventos de stock publicados hacia otros sistemas (tablero en vivo, notificaciones).
const (
	EventTransactionCommitted = "stock.transaction.committed"
	EventAlertCreated         = "stock.alert.created"
	EventAlertResolved        = "stock.alert.resolved"
)

// StockEvent evento de dominio serializable. Key agrupa los eventos de un mismo artículo.
type StockEvent struct {
	Type       string    `json:"type"`
	ItemID     string    `json:"item_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`
}

// EventPublisher puerto de salida para eventos. La publicación es de mejor esfuerzo:
// un error nunca revierte la operación que lo originó.
type EventPublisher interface {
	Publish(ctx context.Context, event StockEvent) error
}

// NopPublisher descarta los eventos (sin broker configurado).
type NopPublisher struct{}

// Publish no hace nada.
func (NopPublisher) Publish(context.Context, StockEvent) error { return nil }
