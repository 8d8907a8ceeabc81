package repository

import (
	"context"

	"bakery/internal/domain/model"
)

type OrderItemRepository interface {
	//注文IDを埋めて一括作成
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
	//一覧表示用にまとめて取得（orderID -> items）
	ListByOrderIDs(ctx context.Context, orderIDs []int64) (map[int64][]model.OrderItem, error)
}
