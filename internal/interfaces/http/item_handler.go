package http

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/labstock/internal/application/dto"
	"github.com/jhoicas/labstock/internal/application/inventory"
	"github.com/jhoicas/labstock/internal/domain"
)

// ItemHandler consultas por artículo: resolución de código y ledger.
type ItemHandler struct {
	resolver *inventory.BarcodeResolver
	ledger   *inventory.LedgerUseCase
	log      zerolog.Logger
	cfg      handlerConfig
}

// NewItemHandler construye el handler.
func NewItemHandler(resolver *inventory.BarcodeResolver, ledger *inventory.LedgerUseCase, log zerolog.Logger, cfg handlerConfig) *ItemHandler {
	return &ItemHandler{resolver: resolver, ledger: ledger, log: log, cfg: cfg}
}

// ResolveBarcode godoc
// @Summary      Buscar artículo por código de barras
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        code  path      string  true  "Código escaneado (ej. LAB-00001)"
// @Success      200   {object}  dto.ItemDTO
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/items/barcode/{code} [get]
func (h *ItemHandler) ResolveBarcode(c *fiber.Ctx) error {
	code, err := url.PathUnescape(c.Params("code"))
	if err != nil {
		return writeError(c, h.log, domain.ErrInvalidBarcode)
	}
	ctx, cancel := opContext(c, h.cfg.opTimeout)
	defer cancel()

	item, err := h.resolver.Resolve(ctx, code)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if item == nil {
		return writeError(c, h.log, domain.ErrItemNotFound)
	}
	return c.JSON(dto.NewItemDTO(*item))
}

// Transactions godoc
// @Summary      Últimos movimientos de un artículo
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        id     path      string  true   "ID del artículo"
// @Param        limit  query     int     false  "Máximo de transacciones (default 5, max 100)"
// @Success      200    {array}   dto.TransactionDTO
// @Failure      503    {object}  dto.ErrorResponse
// @Router       /api/items/{id}/transactions [get]
func (h *ItemHandler) Transactions(c *fiber.Ctx) error {
	ctx, cancel := opContext(c, h.cfg.opTimeout)
	defer cancel()
	entries, err := h.ledger.RecentFor(ctx, c.Params("id"), c.QueryInt("limit", 0))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewLedgerEntryDTOs(entries))
}

// Conservation godoc
// @Summary      Conciliación stock vs ledger
// @Description  Compara el stock almacenado con la suma de deltas del ledger del artículo.
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del artículo"
// @Success      200  {object}  dto.ConservationDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/items/{id}/conservation [get]
func (h *ItemHandler) Conservation(c *fiber.Ctx) error {
	ctx, cancel := opContext(c, h.cfg.opTimeout)
	defer cancel()
	res, err := h.ledger.Conservation(ctx, c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	if !res.Consistent() {
		h.log.Warn().Str("item_id", res.ItemID).Int64("drift", res.Drift).Msg("stock y ledger no coinciden")
	}
	return c.JSON(dto.ConservationDTO{
		ItemID:     res.ItemID,
		Stock:      res.Stock,
		LedgerSum:  res.LedgerSum,
		Drift:      res.Drift,
		Consistent: res.Consistent(),
	})
}
