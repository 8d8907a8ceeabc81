package repository

import (
	"bakery/internal/domain/model"
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("not found")

// 一意制約違反（メール重複など）
var ErrDuplicate = errors.New("duplicate")

// 一覧検索
type ProductListQuery struct {
	Page     int
	Limit    int
	Q        string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Featured *bool

	// name / price / rating / createdAt
	Sort string
	// asc / desc
	Order string

	// trueなら販売中（is_available）のみ
	OnlyAvailable bool
}

// 部分更新で書く列。nilは触らない。在庫はInventoryRepository経由でだけ変える
type ProductChanges struct {
	Name        *string
	Description *string
	Category    *model.Category
	Price       *decimal.Decimal
	IsAvailable *bool
	ImageURL    *string
	Featured    *bool
	UpdatedAt   time.Time
}

func (c ProductChanges) Empty() bool {
	return c.Name == nil && c.Description == nil && c.Category == nil && c.Price == nil &&
		c.IsAvailable == nil && c.ImageURL == nil && c.Featured == nil
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	List(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, id int64, ch ProductChanges) error
	SoftDelete(ctx context.Context, id int64) error

	//ダッシュボード用
	Count(ctx context.Context) (int64, error)
	ListLowStock(ctx context.Context, threshold int64) ([]model.Product, error)
}

// 商品詳細のキャッシュ。失敗してもDBから読めばよい
type ProductCache interface {
	Get(ctx context.Context, id int64) (model.Product, bool, error)
	Set(ctx context.Context, p model.Product) error
	Invalidate(ctx context.Context, ids ...int64) error
}
