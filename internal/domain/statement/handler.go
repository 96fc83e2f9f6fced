package statement

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/medimagem/faturamento/internal/domain/period"
	"github.com/medimagem/faturamento/internal/platform/auth"
)

type Handler struct {
	svc      *Service
	progress *ProgressStore
}

func NewHandler(svc *Service, progress *ProgressStore) *Handler {
	return &Handler{svc: svc, progress: progress}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleFaturamento, auth.RoleLeitura))
	read.GET("/periods/:period/statements", h.GetBundle)
	read.GET("/periods/:period/statements/:client", h.GetStatement)
	read.GET("/periods/:period/progress", h.GetProgress)

	write := api.Group("", auth.RequireRole(auth.RoleFaturamento))
	write.POST("/periods/:period/statements/generate", h.Generate)
	write.POST("/periods/:period/progress/:kind/:client", h.MarkProgress)
}

func parsePeriod(c echo.Context) (string, error) {
	p, err := period.Parse(c.Param("period"))
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return p.String(), nil
}

func clientParam(c echo.Context) string {
	raw := c.Param("client")
	if v, err := url.PathUnescape(raw); err == nil {
		raw = v
	}
	return strings.TrimSpace(raw)
}

func (h *Handler) Generate(c echo.Context) error {
	p, err := parsePeriod(c)
	if err != nil {
		return err
	}
	res, err := h.svc.Generate(c.Request().Context(), p)
	switch {
	case errors.Is(err, ErrGenerationInProgress):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrGenerationTimeout):
		return echo.NewHTTPError(http.StatusGatewayTimeout, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) GetBundle(c echo.Context) error {
	p, err := parsePeriod(c)
	if err != nil {
		return err
	}
	b, err := h.svc.Bundle(c.Request().Context(), p)
	if errors.Is(err, ErrNotCached) {
		return echo.NewHTTPError(http.StatusNotFound, "no statements generated for "+p)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) GetStatement(c echo.Context) error {
	p, err := parsePeriod(c)
	if err != nil {
		return err
	}
	st, err := h.svc.Statement(c.Request().Context(), p, clientParam(c))
	if errors.Is(err, ErrNotCached) || errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "statement not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) GetProgress(c echo.Context) error {
	p, err := parsePeriod(c)
	if err != nil {
		return err
	}
	prog, err := h.progress.Get(c.Request().Context(), p)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, prog)
}

func (h *Handler) MarkProgress(c echo.Context) error {
	p, err := parsePeriod(c)
	if err != nil {
		return err
	}
	kind, ok := ParseProgressKind(c.Param("kind"))
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "kind must be loaded, reports or emails")
	}
	client := clientParam(c)
	if client == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "client is required")
	}
	if err := h.progress.Mark(c.Request().Context(), kind, p, client); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
