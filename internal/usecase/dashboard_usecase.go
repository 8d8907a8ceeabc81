package usecase

import (
	"context"

	"bakery/internal/domain/model"
	repo "bakery/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type DashboardUsecase struct {
	products   repo.ProductRepository
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	users      repo.UserRepository
	logger     *zap.Logger
}

func NewDashboardUsecase(
	products repo.ProductRepository,
	orders repo.OrderRepository,
	orderItems repo.OrderItemRepository,
	users repo.UserRepository,
	logger *zap.Logger,
) *DashboardUsecase {
	return &DashboardUsecase{
		products:   products,
		orders:     orders,
		orderItems: orderItems,
		users:      users,
		logger:     logger,
	}
}

type DashboardStats struct {
	TotalProducts int64           `json:"totalProducts"`
	TotalOrders   int64           `json:"totalOrders"`
	TotalUsers    int64           `json:"totalUsers"`
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
}

type LowStockProduct struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Stock int64  `json:"stock"`
}

type DashboardOutput struct {
	Stats            DashboardStats    `json:"stats"`
	RecentOrders     []OrderOutput     `json:"recentOrders"`
	LowStockProducts []LowStockProduct `json:"lowStockProducts"`
}

const recentOrdersLimit = 5

// 集計はそれぞれ独立しているので並行に取る
func (u *DashboardUsecase) Get(ctx context.Context) (DashboardOutput, error) {
	var (
		out      DashboardOutput
		recent   []model.Order
		lowStock []model.Product
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := u.products.Count(gctx)
		out.Stats.TotalProducts = n
		return err
	})
	g.Go(func() error {
		n, err := u.orders.Count(gctx)
		out.Stats.TotalOrders = n
		return err
	})
	g.Go(func() error {
		n, err := u.users.CountByRole(gctx, model.RoleUser)
		out.Stats.TotalUsers = n
		return err
	})
	g.Go(func() error {
		sum, err := u.orders.SumPaidRevenue(gctx)
		out.Stats.TotalRevenue = sum
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = u.orders.ListRecent(gctx, recentOrdersLimit)
		return err
	})
	g.Go(func() error {
		var err error
		lowStock, err = u.products.ListLowStock(gctx, model.LowStockThreshold)
		return err
	})
	if err := g.Wait(); err != nil {
		return DashboardOutput{}, internalError(u.logger, "load dashboard", err)
	}

	recentOut, err := attachItems(ctx, u.orderItems, u.logger, recent)
	if err != nil {
		return DashboardOutput{}, err
	}
	out.RecentOrders = recentOut

	out.LowStockProducts = make([]LowStockProduct, 0, len(lowStock))
	for _, p := range lowStock {
		out.LowStockProducts = append(out.LowStockProducts, LowStockProduct{ID: p.ID, Name: p.Name, Stock: p.Stock})
	}
	return out, nil
}
