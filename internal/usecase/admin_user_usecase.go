package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"bakery/internal/domain/model"
	repo "bakery/internal/repository"

	"go.uber.org/zap"
)

type AdminUserUsecase struct {
	users     repo.UserRepository
	auditRepo repo.AuditLogRepository
	clock     Clock
	logger    *zap.Logger
}

func NewAdminUserUsecase(users repo.UserRepository, auditRepo repo.AuditLogRepository, clock Clock, logger *zap.Logger) *AdminUserUsecase {
	return &AdminUserUsecase{users: users, auditRepo: auditRepo, clock: clock, logger: logger}
}

type ListUsersInput struct {
	Page   int
	Limit  int
	Search string
}

type UserListOutput struct {
	Users      []model.User `json:"users"`
	Pagination Pagination   `json:"pagination"`
}

const (
	adminUsersDefaultLimit = 20
	adminUsersMaxLimit     = 100
)

// 一般ユーザーだけを返す
func (u *AdminUserUsecase) ListUsers(ctx context.Context, in ListUsersInput) (UserListOutput, error) {
	page, limit, fields := normalizePaging(in.Page, in.Limit, adminUsersDefaultLimit, adminUsersMaxLimit)
	if len(fields) > 0 {
		return UserListOutput{}, NewValidationError(fields...)
	}

	users, total, err := u.users.List(ctx, repo.UserListQuery{
		Page:  page,
		Limit: limit,
		Q:     strings.TrimSpace(in.Search),
		Role:  model.RoleUser,
	})
	if err != nil {
		return UserListOutput{}, internalError(u.logger, "list users", err)
	}

	return UserListOutput{
		Users:      users,
		Pagination: newPagination(page, limit, total),
	}, nil
}

type SetUserActiveOutput struct {
	Message string     `json:"message"`
	User    model.User `json:"user"`
}

// 有効/無効の切り替え。無効になったユーザーは次のリクエストから弾かれる
func (u *AdminUserUsecase) SetActive(ctx context.Context, actorAdminUserID int64, userID int64, active bool) (SetUserActiveOutput, error) {
	if actorAdminUserID <= 0 {
		return SetUserActiveOutput{}, errUnauthorized
	}
	if userID <= 0 {
		return SetUserActiveOutput{}, NewValidationError(FieldError{Field: "id", Message: "Invalid user ID"})
	}
	if userID == actorAdminUserID && !active {
		return SetUserActiveOutput{}, NewHTTPError(http.StatusBadRequest, "You cannot deactivate your own account")
	}

	user, err := u.users.FindByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return SetUserActiveOutput{}, notFound("User")
	}
	if err != nil {
		return SetUserActiveOutput{}, internalError(u.logger, "find user", err, zap.Int64("user_id", userID))
	}
	beforeActive := user.IsActive

	if err := u.users.SetActive(ctx, userID, active); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return SetUserActiveOutput{}, notFound("User")
		}
		return SetUserActiveOutput{}, internalError(u.logger, "set user active", err, zap.Int64("user_id", userID))
	}
	user.IsActive = active

	if err := writeAudit(ctx, u.auditRepo, u.clock.Now(), auditEntry{
		actorUserID:  actorAdminUserID,
		action:       model.AuditActionUpdateUserStatus,
		resourceType: model.AuditResourceUser,
		resourceID:   userID,
		before:       map[string]bool{"isActive": beforeActive},
		after:        map[string]bool{"isActive": active},
	}); err != nil {
		return SetUserActiveOutput{}, internalError(u.logger, "write audit log", err, zap.Int64("user_id", userID))
	}

	verb := "deactivated"
	if active {
		verb = "activated"
	}
	return SetUserActiveOutput{
		Message: fmt.Sprintf("User %s successfully", verb),
		User:    *user,
	}, nil
}

type ForceLogoutOutput struct {
	UserID          int64 `json:"userId"`
	NewTokenVersion int   `json:"newTokenVersion"`
}

// token_versionを上げて、発行済みトークンを全部無効にする
func (u *AdminUserUsecase) ForceLogout(ctx context.Context, actorAdminUserID int64, userID int64) (ForceLogoutOutput, error) {
	if actorAdminUserID <= 0 {
		return ForceLogoutOutput{}, errUnauthorized
	}
	if userID <= 0 {
		return ForceLogoutOutput{}, NewValidationError(FieldError{Field: "id", Message: "Invalid user ID"})
	}

	tv, err := u.users.IncrementTokenVersion(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return ForceLogoutOutput{}, notFound("User")
	}
	if err != nil {
		return ForceLogoutOutput{}, internalError(u.logger, "increment token version", err, zap.Int64("user_id", userID))
	}

	if err := writeAudit(ctx, u.auditRepo, u.clock.Now(), auditEntry{
		actorUserID:  actorAdminUserID,
		action:       model.AuditActionForceLogout,
		resourceType: model.AuditResourceUser,
		resourceID:   userID,
		before:       map[string]int{"tokenVersion": tv - 1},
		after:        map[string]int{"tokenVersion": tv},
	}); err != nil {
		return ForceLogoutOutput{}, internalError(u.logger, "write audit log", err, zap.Int64("user_id", userID))
	}

	return ForceLogoutOutput{UserID: userID, NewTokenVersion: tv}, nil
}

// 監査ログ一覧（新しい順）
func (u *AdminUserUsecase) ListAuditLogs(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	var fields []FieldError
	if f.Limit < 0 || f.Limit > 200 {
		fields = append(fields, FieldError{Field: "limit", Message: "Limit must be between 1 and 200"})
	}
	if f.Offset < 0 {
		fields = append(fields, FieldError{Field: "offset", Message: "Offset must be non-negative"})
	}
	if f.ResourceType != nil {
		switch *f.ResourceType {
		case model.AuditResourceProduct, model.AuditResourceOrder, model.AuditResourceUser:
		default:
			fields = append(fields, FieldError{Field: "resourceType", Message: "Invalid resource type"})
		}
	}
	if len(fields) > 0 {
		return []model.AuditLog{}, NewValidationError(fields...)
	}

	logs, err := u.auditRepo.List(ctx, f)
	if err != nil {
		return []model.AuditLog{}, internalError(u.logger, "list audit logs", err)
	}
	if logs == nil {
		logs = []model.AuditLog{}
	}
	return logs, nil
}
