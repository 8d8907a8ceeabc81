package repository

import (
	"context"
	"time"

	"bakery/internal/domain/model"

	"github.com/shopspring/decimal"
)

type AdminOrderListFilter struct {
	Page          int
	Limit         int
	Status        string
	PaymentStatus string
	UserID        *int64
	From          *time.Time
	To            *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	//statusが空なら全件
	ListByUserID(ctx context.Context, userID int64, status string, page int, limit int) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) (int64, error)
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error

	//取り消せる状態のときだけcancelledにする（falseなら取り消せない状態だった）
	CancelIfCancellable(ctx context.Context, orderID int64) (bool, error)

	//未払いのときだけ支払い済みにする（falseなら支払い済みだった）
	MarkPaid(ctx context.Context, orderID int64, paymentID string) (bool, error)

	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)

	//ダッシュボード用
	Count(ctx context.Context) (int64, error)
	SumPaidRevenue(ctx context.Context) (decimal.Decimal, error)
	ListRecent(ctx context.Context, limit int) ([]model.Order, error)
}
