package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/labstock/internal/application/alerts"
	"github.com/jhoicas/labstock/internal/application/dto"
)

// AlertHandler alertas de stock bajo.
type AlertHandler struct {
	manager *alerts.Manager
	log     zerolog.Logger
	cfg     handlerConfig
}

// NewAlertHandler construye el handler.
func NewAlertHandler(manager *alerts.Manager, log zerolog.Logger, cfg handlerConfig) *AlertHandler {
	return &AlertHandler{manager: manager, log: log, cfg: cfg}
}

// ListOpen godoc
// @Summary      Alertas abiertas
// @Description  Alertas sin resolver, más recientes primero, con el stock y mínimo actuales del artículo.
// @Tags         alerts
// @Security     Bearer
// @Produce      json
// @Success      200  {array}   dto.OpenAlertDTO
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/alerts [get]
func (h *AlertHandler) ListOpen(c *fiber.Ctx) error {
	ctx, cancel := opContext(c, h.cfg.opTimeout)
	defer cancel()
	list, err := h.manager.ListOpen(ctx)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.NewOpenAlertDTOs(list))
}

// Resolve godoc
// @Summary      Resolver alerta
// @Description  Marca la alerta como resuelta. Resolver una alerta ya resuelta no es error.
// @Tags         alerts
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la alerta"
// @Success      200  {object}  dto.ResolveAlertResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/alerts/{id}/resolve [post]
func (h *AlertHandler) Resolve(c *fiber.Ctx) error {
	id := c.Params("id")
	ctx, cancel := opContext(c, h.cfg.opTimeout)
	defer cancel()
	if err := h.manager.Resolve(ctx, id); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ResolveAlertResponse{ID: id, Resolved: true})
}
