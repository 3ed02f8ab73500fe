package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/labstock/internal/domain/entity"
	"github.com/jhoicas/labstock/internal/domain/repository"
	"github.com/jhoicas/labstock/internal/domain/stock"
)

// ApplyTransactionRequest body para POST /api/stock/transactions.
type ApplyTransactionRequest struct {
	ItemID   string  `json:"item_id"`
	Kind     string  `json:"kind"`     // inbound|outbound (acepta in/inn, out/ut)
	Quantity int64   `json:"quantity"` // entero positivo
	Comment  *string `json:"comment,omitempty"`
}

// ScanRequest body para POST /api/stock/scan (movimiento desde el escáner).
type ScanRequest struct {
	Barcode  string  `json:"barcode"`
	Kind     string  `json:"kind"`
	Quantity int64   `json:"quantity"`
	Comment  *string `json:"comment,omitempty"`
}

// ItemDTO artículo del catálogo.
type ItemDTO struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Unit     string          `json:"unit"`
	Stock    int64           `json:"stock"`
	MinLevel int64           `json:"min_level"`
	Barcode  *string         `json:"barcode,omitempty"`
	Active   bool            `json:"active"`
	Price    decimal.Decimal `json:"price"`
	LowStock bool            `json:"low_stock"`
}

// TransactionDTO entrada del ledger. ItemName y Unit vienen en las vistas de actividad.
type TransactionDTO struct {
	ID        int64     `json:"id"`
	ItemID    string    `json:"item_id"`
	ItemName  string    `json:"item_name,omitempty"`
	Unit      string    `json:"unit,omitempty"`
	Kind      string    `json:"kind"`
	Quantity  int64     `json:"quantity"`
	Delta     int64     `json:"delta"`
	Comment   *string   `json:"comment,omitempty"`
	Actor     *string   `json:"actor,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TransactionResultDTO respuesta 201 de un movimiento confirmado.
// Warning no vacío: el movimiento quedó registrado pero las alertas no se actualizaron.
type TransactionResultDTO struct {
	Transaction    TransactionDTO `json:"transaction"`
	Item           ItemDTO        `json:"item"`
	AlertCreated   *AlertDTO      `json:"alert_created,omitempty"`
	AlertsResolved []string       `json:"alerts_resolved,omitempty"`
	Warning        string         `json:"warning,omitempty"`
}

// ConservationDTO comparación stock vs Σ deltas del ledger.
type ConservationDTO struct {
	ItemID     string `json:"item_id"`
	Stock      int64  `json:"stock"`
	LedgerSum  int64  `json:"ledger_sum"`
	Drift      int64  `json:"drift"`
	Consistent bool   `json:"consistent"`
}

// NewItemDTO mapea la entidad a su DTO.
func NewItemDTO(it entity.Item) ItemDTO {
	return ItemDTO{
		ID:       it.ID,
		Name:     it.Name,
		Unit:     it.Unit,
		Stock:    it.Stock,
		MinLevel: it.MinLevel,
		Barcode:  it.Barcode,
		Active:   it.Active,
		Price:    it.Price,
		LowStock: stock.IsLow(it.Stock, it.MinLevel),
	}
}

// NewTransactionDTO mapea una transacción sin datos del artículo.
func NewTransactionDTO(t entity.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:        t.ID,
		ItemID:    t.ItemID,
		Kind:      string(t.Kind),
		Quantity:  t.Quantity(),
		Delta:     t.Delta,
		Comment:   t.Comment,
		Actor:     t.Actor,
		CreatedAt: t.CreatedAt,
	}
}

// NewLedgerEntryDTOs mapea entradas del ledger enriquecidas con nombre y unidad.
func NewLedgerEntryDTOs(entries []repository.LedgerEntry) []TransactionDTO {
	out := make([]TransactionDTO, 0, len(entries))
	for _, e := range entries {
		d := NewTransactionDTO(e.Transaction)
		d.ItemName = e.ItemName
		d.Unit = e.Unit
		out = append(out, d)
	}
	return out
}
