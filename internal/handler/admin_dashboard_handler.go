package handler

import (
	"net/http"

	"bakery/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminDashboardHandler struct {
	uc *usecase.DashboardUsecase
}

func NewAdminDashboardHandler(uc *usecase.DashboardUsecase) *AdminDashboardHandler {
	return &AdminDashboardHandler{uc: uc}
}

func (h *AdminDashboardHandler) RegisterRoutes(e *echo.Echo, deps AuthDeps) {
	admin := e.Group("/admin", deps.adminOnly()...)
	admin.GET("/dashboard", h.get)
}

func (h *AdminDashboardHandler) get(c echo.Context) error {
	out, err := h.uc.Get(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
