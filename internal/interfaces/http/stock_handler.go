package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/labstock/internal/application/dto"
	"github.com/jhoicas/labstock/internal/application/inventory"
	"github.com/jhoicas/labstock/internal/domain/stock"
)

// StockHandler registro de movimientos y actividad reciente.
type StockHandler struct {
	engine *inventory.ApplyTransactionUseCase
	ledger *inventory.LedgerUseCase
	log    zerolog.Logger
	cfg    handlerConfig
}

// NewStockHandler construye el handler.
func NewStockHandler(engine *inventory.ApplyTransactionUseCase, ledger *inventory.LedgerUseCase, log zerolog.Logger, cfg handlerConfig) *StockHandler {
	return &StockHandler{engine: engine, ledger: ledger, log: log, cfg: cfg}
}

// ApplyTransaction godoc
// @Summary      Registrar movimiento de stock
// @Description  Aplica una entrada o salida sobre un artículo y la anota en el ledger.
// @Description  Si la transacción se confirmó pero las alertas no se pudieron actualizar, responde 201 con "warning".
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.ApplyTransactionRequest  true  "item_id, kind (inbound|outbound), quantity > 0, comment"
// @Success      201   {object}  dto.TransactionResultDTO
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/stock/transactions [post]
func (h *StockHandler) ApplyTransaction(c *fiber.Ctx) error {
	var in dto.ApplyTransactionRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	kind, err := stock.ParseKind(in.Kind)
	if err != nil {
		return writeError(c, h.log, err)
	}

	ctx, cancel := opContext(c, h.cfg.opTimeout)
	defer cancel()
	res, err := h.engine.Apply(ctx, inventory.ApplyInput{
		ItemID:   in.ItemID,
		Kind:     kind,
		Quantity: in.Quantity,
		Comment:  in.Comment,
		Actor:    actorPtr(c),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(newTransactionResultDTO(res))
}

// Scan godoc
// @Summary      Registrar movimiento desde el escáner
// @Description  Resuelve el código de barras y aplica el movimiento sobre el artículo activo.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.ScanRequest  true  "barcode, kind, quantity > 0, comment"
// @Success      201   {object}  dto.TransactionResultDTO
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/stock/scan [post]
func (h *StockHandler) Scan(c *fiber.Ctx) error {
	var in dto.ScanRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	kind, err := stock.ParseKind(in.Kind)
	if err != nil {
		return writeError(c, h.log, err)
	}

	ctx, cancel := opContext(c, h.cfg.opTimeout)
	defer cancel()
	res, err := h.engine.ApplyByBarcode(ctx, in.Barcode, inventory.ApplyInput{
		Kind:     kind,
		Quantity: in.Quantity,
		Comment:  in.Comment,
		Actor:    actorPtr(c),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(newTransactionResultDTO(res))
}

// RecentTransactions godoc
// @Summary      Actividad reciente
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        limit  query     int  false  "Máximo de transacciones (default 5, max 100)"
// @Success      200    {array}   dto.TransactionDTO
// @Failure      503    {object}  dto.ErrorResponse
// @Router       /api/stock/transactions [get]
func (h *StockHandler) RecentTransactions(c *fiber.Ctx) error {
	ctx, cancel := opContext(c, h.cfg.opTimeout)
	defer cancel()
	entries, err := h.ledger.RecentAll(ctx, c.QueryInt("limit", 0))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewLedgerEntryDTOs(entries))
}

func newTransactionResultDTO(res *inventory.TransactionResult) dto.TransactionResultDTO {
	out := dto.TransactionResultDTO{
		Transaction:    dto.NewTransactionDTO(res.Transaction),
		Item:           dto.NewItemDTO(res.Item),
		AlertsResolved: res.AlertsResolved,
	}
	out.Transaction.ItemName = res.Item.Name
	out.Transaction.Unit = res.Item.Unit
	if res.AlertCreated != nil {
		a := dto.NewAlertDTO(*res.AlertCreated)
		out.AlertCreated = &a
	}
	if res.Warning != nil {
		out.Warning = res.Warning.Error()
	}
	return out
}
