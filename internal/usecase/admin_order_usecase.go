package usecase

import (
	"context"
	"errors"

	"bakery/internal/domain/model"
	repo "bakery/internal/repository"

	"go.uber.org/zap"
)

type AdminOrderUsecase struct {
	tx         repo.TransactionManager
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	auditRepo  repo.AuditLogRepository
	clock      Clock
	logger     *zap.Logger
}

func NewAdminOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	orderItems repo.OrderItemRepository,
	auditRepo repo.AuditLogRepository,
	clock Clock,
	logger *zap.Logger,
) *AdminOrderUsecase {
	return &AdminOrderUsecase{
		tx:         tx,
		orders:     orders,
		orderItems: orderItems,
		auditRepo:  auditRepo,
		clock:      clock,
		logger:     logger,
	}
}

const (
	adminOrdersDefaultLimit = 20
	adminOrdersMaxLimit     = 100
)

// 注文一覧（status / paymentStatus / user / 期間で絞り込み）
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) (OrderListOutput, error) {
	page, limit, fields := normalizePaging(f.Page, f.Limit, adminOrdersDefaultLimit, adminOrdersMaxLimit)
	if f.Status != "" && !model.OrderStatus(f.Status).Valid() {
		fields = append(fields, FieldError{Field: "status", Message: "Invalid status"})
	}
	if f.PaymentStatus != "" && !model.PaymentStatus(f.PaymentStatus).Valid() {
		fields = append(fields, FieldError{Field: "paymentStatus", Message: "Invalid payment status"})
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		fields = append(fields, FieldError{Field: "from", Message: "from must not be after to"})
	}
	if len(fields) > 0 {
		return OrderListOutput{}, NewValidationError(fields...)
	}
	f.Page = page
	f.Limit = limit

	orders, total, err := u.orders.ListAdmin(ctx, f)
	if err != nil {
		return OrderListOutput{}, internalError(u.logger, "admin list orders", err)
	}

	outs, err := attachItems(ctx, u.orderItems, u.logger, orders)
	if err != nil {
		return OrderListOutput{}, err
	}

	return OrderListOutput{
		Orders:     outs,
		Pagination: newPagination(page, limit, total),
	}, nil
}

// ステータスの上書き。遷移の制限はなく、在庫も動かさない
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, orderID int64, status string) (OrderOutput, error) {
	if actorAdminUserID <= 0 {
		return OrderOutput{}, errUnauthorized
	}

	var fields []FieldError
	if orderID <= 0 {
		fields = append(fields, FieldError{Field: "id", Message: "Invalid order ID"})
	}
	newStatus := model.OrderStatus(status)
	if !newStatus.Valid() {
		fields = append(fields, FieldError{Field: "status", Message: "Invalid status"})
	}
	if len(fields) > 0 {
		return OrderOutput{}, NewValidationError(fields...)
	}

	now := u.clock.Now()
	var before model.Order
	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("Order")
		}
		if err != nil {
			return internalError(u.logger, "find order", err, zap.Int64("order_id", orderID))
		}
		before = o

		if err := r.Orders().UpdateStatus(ctx, orderID, newStatus); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return notFound("Order")
			}
			return internalError(u.logger, "update order status", err, zap.Int64("order_id", orderID))
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return internalError(u.logger, "list order items", err, zap.Int64("order_id", orderID))
		}

		o.Status = newStatus
		o.UpdatedAt = now
		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	//監査ログ（UPDATE_ORDER_STATUS）
	if err := writeAudit(ctx, u.auditRepo, now, auditEntry{
		actorUserID:  actorAdminUserID,
		action:       model.AuditActionUpdateOrderStatus,
		resourceType: model.AuditResourceOrder,
		resourceID:   orderID,
		before:       map[string]model.OrderStatus{"status": before.Status},
		after:        map[string]model.OrderStatus{"status": newStatus},
	}); err != nil {
		return OrderOutput{}, internalError(u.logger, "write audit log", err, zap.Int64("order_id", orderID))
	}

	return out, nil
}
