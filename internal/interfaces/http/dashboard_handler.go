package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	appanalytics "github.com/jhoicas/labstock/internal/application/analytics"
)

// DashboardHandler maneja el resumen del panel.
type DashboardHandler struct {
	uc  *appanalytics.DashboardUseCase
	log zerolog.Logger
	cfg handlerConfig
}

// NewDashboardHandler construye el handler.
func NewDashboardHandler(uc *appanalytics.DashboardUseCase, log zerolog.Logger, cfg handlerConfig) *DashboardHandler {
	return &DashboardHandler{uc: uc, log: log, cfg: cfg}
}

// GetSummary godoc
// @Summary      Resumen del inventario
// @Description  Artículos activos, con stock bajo, alertas abiertas, transacciones del mes, valor del stock y actividad reciente.
// @Tags         dashboard
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.DashboardSummaryDTO
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/dashboard/summary [get]
func (h *DashboardHandler) GetSummary(c *fiber.Ctx) error {
	ctx, cancel := opContext(c, h.cfg.opTimeout)
	defer cancel()
	summary, err := h.uc.GetSummary(ctx)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(summary)
}
