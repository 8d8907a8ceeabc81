package server

import (
	"net/http"

	"bakery/internal/handler"

	"github.com/labstack/echo/v4"
)

// Handlersは登録するハンドラ一式
type Handlers struct {
	Product        *handler.ProductHandler
	Auth           *handler.AuthHandler
	Order          *handler.OrderHandler
	AdminProduct   *handler.AdminProductHandler
	AdminOrder     *handler.AdminOrderHandler
	AdminUser      *handler.AdminUserHandler
	AdminDashboard *handler.AdminDashboardHandler
}

func RegisterRoutes(e *echo.Echo, h Handlers, deps handler.AuthDeps) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	h.Product.RegisterRoutes(e)
	h.Auth.RegisterRoutes(e, deps)
	h.Order.RegisterRoutes(e, deps)

	// /admin/*
	h.AdminDashboard.RegisterRoutes(e, deps)
	h.AdminProduct.RegisterRoutes(e, deps)
	h.AdminOrder.RegisterRoutes(e, deps)
	h.AdminUser.RegisterRoutes(e, deps)
}
