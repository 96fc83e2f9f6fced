package clients

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

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
	g.GET("/clients", h.ListClients)
	g.GET("/clients/:id", h.GetClient)
	g.GET("/clients/resolve", h.ResolveName)
}

// ListClients supports ?q= (matches any name variant) and ?active=true|false.
func (h *Handler) ListClients(c echo.Context) error {
	all, err := h.repo.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	q := NormalizeName(c.QueryParam("q"))
	active := c.QueryParam("active")

	items := make([]*ClientIdentity, 0, len(all))
	for _, ci := range all {
		if active == "true" && !ci.Active || active == "false" && ci.Active {
			continue
		}
		if q != "" && !matchesAny(ci, q) {
			continue
		}
		items = append(items, ci)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)))
}

func matchesAny(ci *ClientIdentity, q string) bool {
	for _, v := range ci.Variants() {
		if strings.Contains(NormalizeName(v), q) {
			return true
		}
	}
	return false
}

func (h *Handler) GetClient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ci, err := h.repo.GetByID(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "client not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, ci)
}

// ResolveName shows how a raw name from a feed is mapped: its canonical name,
// whether it was known, and the nearest alias when it was not.
func (h *Handler) ResolveName(c echo.Context) error {
	name := c.QueryParam("name")
	if strings.TrimSpace(name) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	dir, err := LoadDirectory(c.Request().Context(), h.repo)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := map[string]interface{}{
		"input":     name,
		"key":       NormalizeName(name),
		"canonical": dir.Resolve(name),
		"known":     dir.Known(name),
	}
	if !dir.Known(name) {
		resp["suggestion"] = dir.Suggest(name)
	}
	return c.JSON(http.StatusOK, resp)
}
