package handler

import (
	"net/http"

	"bakery/internal/domain/model"
	"bakery/internal/repository"
	"bakery/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminUserHandler struct {
	uc *usecase.AdminUserUsecase
}

func NewAdminUserHandler(uc *usecase.AdminUserUsecase) *AdminUserHandler {
	return &AdminUserHandler{uc: uc}
}

type UserStatusUpdateRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

func (h *AdminUserHandler) RegisterRoutes(e *echo.Echo, deps AuthDeps) {
	// ★ /admin 配下は全部「JWT必須 + token_version一致 + admin限定」
	admin := e.Group("/admin", deps.adminOnly()...)

	admin.GET("/users", h.ListUsers)
	admin.PUT("/users/:id/status", h.SetStatus)
	admin.POST("/users/:id/force-logout", h.ForceLogout)
	admin.GET("/audit-logs", h.ListAuditLogs)
}

func (h *AdminUserHandler) ListUsers(c echo.Context) error {
	q := newQueryReader(c)
	in := usecase.ListUsersInput{
		Page:   q.integer("page"),
		Limit:  q.integer("limit"),
		Search: q.str("search"),
	}
	if err := q.err(); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.ListUsers(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminUserHandler) SetStatus(c echo.Context) error {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	var req UserStatusUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.SetActive(c.Request().Context(), adminID, userID, *req.IsActive)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminUserHandler) ForceLogout(c echo.Context) error {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		return writeError(c, err)
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	res, err := h.uc.ForceLogout(c.Request().Context(), adminID, userID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, res)
}

// 監査ログ一覧
func (h *AdminUserHandler) ListAuditLogs(c echo.Context) error {
	q := newQueryReader(c)
	f := repository.AuditLogFilter{
		ActorUserID: q.int64Ptr("actorUserId"),
		ResourceID:  q.int64Ptr("resourceId"),
		CreatedFrom: q.timePtr("from"),
		CreatedTo:   q.timePtr("to"),
		Limit:       q.integer("limit"),
		Offset:      q.integer("offset"),
	}
	if v := q.str("action"); v != "" {
		a := model.AuditAction(v)
		f.Action = &a
	}
	if v := q.str("resourceType"); v != "" {
		rt := model.AuditResourceType(v)
		f.ResourceType = &rt
	}
	if err := q.err(); err != nil {
		return writeError(c, err)
	}

	logs, err := h.uc.ListAuditLogs(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string][]model.AuditLog{"auditLogs": logs})
}
