package handler

import (
	"net/http"

	"bakery/internal/repository"
	"bakery/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminOrderHandler struct {
	uc *usecase.AdminOrderUsecase
}

func NewAdminOrderHandler(uc *usecase.AdminOrderUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc}
}

type OrderStatusUpdateRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed preparing ready shipped delivered cancelled"`
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, deps AuthDeps) {
	admin := e.Group("/admin", deps.adminOnly()...)

	admin.GET("/orders", h.list)
	admin.PUT("/orders/:id/status", h.updateStatus)
}

func (h *AdminOrderHandler) list(c echo.Context) error {
	q := newQueryReader(c)
	f := repository.AdminOrderListFilter{
		Page:          q.integer("page"),
		Limit:         q.integer("limit"),
		Status:        q.str("status"),
		PaymentStatus: q.str("paymentStatus"),
		UserID:        q.int64Ptr("userId"),
		From:          q.timePtr("from"),
		To:            q.timePtr("to"),
	}
	if err := q.err(); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) updateStatus(c echo.Context) error {
	orderID, err := parseIDParam(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	var req OrderStatusUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	// ★操作した管理者IDを取得（監査ログ用）
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.UpdateStatus(c.Request().Context(), adminID, orderID, req.Status)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, orderResponse{Message: "Order status updated successfully", Order: out})
}
