package entity

import "time"

// Alert representa una alerta de stock bajo para un artículo.
// Invariante: como máximo una alerta no resuelta por artículo.
type Alert struct {
	ID         string
	ItemID     string
	Message    string
	Resolved   bool
	CreatedAt  time.Time
	ResolvedAt *time.Time
}
