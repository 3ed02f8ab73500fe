package dto

import (
	"time"

	"github.com/jhoicas/labstock/internal/domain/entity"
	"github.com/jhoicas/labstock/internal/domain/repository"
)

// AlertDTO alerta de stock bajo.
type AlertDTO struct {
	ID         string     `json:"id"`
	ItemID     string     `json:"item_id"`
	Message    string     `json:"message"`
	Resolved   bool       `json:"resolved"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// OpenAlertDTO alerta abierta con el estado actual del artículo (GET /api/alerts).
type OpenAlertDTO struct {
	AlertDTO
	ItemName string `json:"item_name"`
	Unit     string `json:"unit"`
	Stock    int64  `json:"stock"`
	MinLevel int64  `json:"min_level"`
}

// ResolveAlertResponse respuesta de POST /api/alerts/:id/resolve.
type ResolveAlertResponse struct {
	ID       string `json:"id"`
	Resolved bool   `json:"resolved"`
}

// NewAlertDTO mapea la entidad a su DTO.
func NewAlertDTO(a entity.Alert) AlertDTO {
	return AlertDTO{
		ID:         a.ID,
		ItemID:     a.ItemID,
		Message:    a.Message,
		Resolved:   a.Resolved,
		CreatedAt:  a.CreatedAt,
		ResolvedAt: a.ResolvedAt,
	}
}

// NewOpenAlertDTOs mapea el listado de alertas abiertas.
func NewOpenAlertDTOs(list []repository.OpenAlert) []OpenAlertDTO {
	out := make([]OpenAlertDTO, 0, len(list))
	for _, oa := range list {
		out = append(out, OpenAlertDTO{
			AlertDTO: NewAlertDTO(oa.Alert),
			ItemName: oa.ItemName,
			Unit:     oa.Unit,
			Stock:    oa.Stock,
			MinLevel: oa.MinLevel,
		})
	}
	return out
}
