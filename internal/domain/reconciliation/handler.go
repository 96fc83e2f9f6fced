package reconciliation

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medimagem/faturamento/internal/domain/period"
	"github.com/medimagem/faturamento/internal/platform/auth"
)

type Handler struct {
	refresher *Refresher
}

func NewHandler(refresher *Refresher) *Handler {
	return &Handler{refresher: refresher}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleFaturamento, auth.RoleLeitura))
	read.GET("/periods/:period/reconciliation", h.GetReconciliation)

	write := api.Group("", auth.RequireRole(auth.RoleFaturamento))
	write.POST("/periods/:period/reconciliation/refresh", h.RefreshReconciliation)
}

func (h *Handler) GetReconciliation(c echo.Context) error {
	p, err := period.Parse(c.Param("period"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	view, err := h.refresher.Get(c.Request().Context(), p.String())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) RefreshReconciliation(c echo.Context) error {
	p, err := period.Parse(c.Param("period"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	view, err := h.refresher.Refresh(c.Request().Context(), p.String())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, view)
}
