package billing

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/medimagem/faturamento/internal/domain/period"
	"github.com/medimagem/faturamento/internal/platform/auth"
	"github.com/medimagem/faturamento/pkg/pagination"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleFaturamento, auth.RoleLeitura))
	g.GET("/periods/:period/billing-items", h.ListLineItems)
}

// ListLineItems accepts ?client=A&client=B or ?client=A,B.
func (h *Handler) ListLineItems(c echo.Context) error {
	p, err := period.Parse(c.Param("period"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var names []string
	for _, v := range c.QueryParams()["client"] {
		for _, n := range strings.Split(v, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
	}
	items, err := h.repo.ListByPeriod(c.Request().Context(), p.String(), names)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)))
}
