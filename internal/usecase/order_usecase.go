package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bakery/internal/domain/model"
	"bakery/internal/domain/pricing"
	repo "bakery/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// UUID 等のIDを作る約束
type IDGenerator interface {
	NewID() string
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

type OrderUsecase struct {
	tx             repo.TransactionManager
	orders         repo.OrderRepository
	orderItems     repo.OrderItemRepository
	idGen          IDGenerator
	clock          Clock
	cache          repo.ProductCache
	loyaltyEnabled bool
	logger         *zap.Logger
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	orderItems repo.OrderItemRepository,
	idGen IDGenerator,
	clock Clock,
	cache repo.ProductCache,
	loyaltyEnabled bool,
	logger *zap.Logger,
) *OrderUsecase {
	return &OrderUsecase{
		tx:             tx,
		orders:         orders,
		orderItems:     orderItems,
		idGen:          idGen,
		clock:          clock,
		cache:          cache,
		loyaltyEnabled: loyaltyEnabled,
		logger:         logger,
	}
}

type OrderLineInput struct {
	ProductID int64
	Quantity  int64
}

type PlaceOrderInput struct {
	Items           []OrderLineInput
	ShippingAddress model.Address
	// nilなら配送先と同じ
	BillingAddress *model.Address
	PaymentMethod  string
	Notes          string
}

type OrderItemOutput struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

type OrderOutput struct {
	ID              int64               `json:"id"`
	OrderNumber     string              `json:"orderNumber"`
	UserID          int64               `json:"userId"`
	Items           []OrderItemOutput   `json:"items"`
	ShippingAddress model.Address       `json:"shippingAddress"`
	BillingAddress  model.Address       `json:"billingAddress"`
	PaymentMethod   model.PaymentMethod `json:"paymentMethod"`
	PaymentStatus   model.PaymentStatus `json:"paymentStatus"`
	PaymentID       string              `json:"paymentId,omitempty"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	Tax             decimal.Decimal     `json:"tax"`
	Shipping        decimal.Decimal     `json:"shipping"`
	Total           decimal.Decimal     `json:"total"`
	Status          model.OrderStatus   `json:"status"`
	Notes           string              `json:"notes,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// 注文確定。在庫の減算・注文・明細・ポイントは1トランザクションで、どこかで失敗したら全部戻る
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, errUnauthorized
	}
	if fields := validatePlaceOrder(in); len(fields) > 0 {
		return OrderOutput{}, NewValidationError(fields...)
	}

	billing := in.ShippingAddress
	if in.BillingAddress != nil && !in.BillingAddress.IsZero() {
		billing = *in.BillingAddress
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		lines := make([]pricing.Line, 0, len(in.Items))
		orderItems := make([]model.OrderItem, 0, len(in.Items))
		now := u.clock.Now()

		for _, line := range in.Items {
			//商品取得
			p, err := r.Products().FindByID(ctx, line.ProductID)
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Product with ID %d not found", line.ProductID))
			}
			if err != nil {
				return internalError(u.logger, "find product", err, zap.Int64("product_id", line.ProductID))
			}
			if !p.IsAvailable {
				return NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Product %s is not available", p.Name))
			}

			//在庫減算（足りないなら false）
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, p.ID, line.Quantity)
			if err != nil {
				return internalError(u.logger, "decrease stock", err, zap.Int64("product_id", p.ID))
			}
			if !ok {
				//同じ商品が複数行にあるときのため、最新の在庫を読み直す
				available := p.Stock
				if cur, err := r.Products().FindByID(ctx, p.ID); err == nil {
					available = cur.Stock
				}
				return NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Insufficient stock for %s. Available: %d", p.Name, available))
			}

			//スナップショット
			lines = append(lines, pricing.Line{UnitPrice: p.Price, Quantity: line.Quantity})
			orderItems = append(orderItems, model.OrderItem{
				ProductID:            p.ID,
				ProductNameSnapshot:  p.Name,
				ProductImageSnapshot: p.ImageURL,
				UnitPriceSnapshot:    p.Price,
				Quantity:             line.Quantity,
				CreatedAt:            now,
			})
		}

		totals := pricing.Compute(lines)

		order := model.Order{
			OrderNumber:     u.newOrderNumber(now),
			UserID:          userID,
			ShippingAddress: in.ShippingAddress,
			BillingAddress:  billing,
			PaymentMethod:   model.PaymentMethod(in.PaymentMethod),
			PaymentStatus:   model.PaymentStatusPending,
			Subtotal:        totals.Subtotal,
			Tax:             totals.Tax,
			Shipping:        totals.Shipping,
			Total:           totals.Total,
			Status:          model.OrderStatusPending,
			Notes:           strings.TrimSpace(in.Notes),
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			return internalError(u.logger, "create order", err, zap.Int64("user_id", userID))
		}
		order.ID = orderID

		//注文明細一括作成
		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return internalError(u.logger, "create order items", err, zap.Int64("order_id", orderID))
		}

		if u.loyaltyEnabled {
			if pts := pricing.LoyaltyPoints(totals.Total); pts > 0 {
				if err := r.Users().AddLoyaltyPoints(ctx, userID, pts); err != nil {
					return internalError(u.logger, "add loyalty points", err, zap.Int64("user_id", userID))
				}
			}
		}

		out = toOrderOutput(order, orderItems)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	//在庫が変わったのでcommit後に詳細キャッシュを消す
	invalidateProducts(ctx, u.cache, u.logger, orderProductIDs(out.Items)...)

	u.logger.Info("order placed",
		zap.Int64("order_id", out.ID),
		zap.String("order_number", out.OrderNumber),
		zap.Int64("user_id", userID),
		zap.String("total", out.Total.StringFixed(2)),
	)
	return out, nil
}

func validatePlaceOrder(in PlaceOrderInput) []FieldError {
	var fields []FieldError
	if len(in.Items) == 0 {
		fields = append(fields, FieldError{Field: "items", Message: "Order must contain at least one item"})
	}
	for i, it := range in.Items {
		if it.ProductID <= 0 {
			fields = append(fields, FieldError{Field: fmt.Sprintf("items[%d].product", i), Message: "Invalid product ID"})
		}
		if it.Quantity < 1 {
			fields = append(fields, FieldError{Field: fmt.Sprintf("items[%d].quantity", i), Message: "Quantity must be at least 1"})
		}
	}
	if in.ShippingAddress.IsZero() {
		fields = append(fields, FieldError{Field: "shippingAddress", Message: "Shipping address is required"})
	}
	if !model.PaymentMethod(in.PaymentMethod).Valid() {
		fields = append(fields, FieldError{Field: "paymentMethod", Message: "Invalid payment method"})
	}
	return fields
}

// ORD-20060102-XXXXXXXX
func (u *OrderUsecase) newOrderNumber(now time.Time) string {
	id := strings.ToUpper(strings.ReplaceAll(u.idGen.NewID(), "-", ""))
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), id)
}

type ListMyOrdersInput struct {
	Page   int
	Limit  int
	Status string
}

type OrderListOutput struct {
	Orders     []OrderOutput `json:"orders"`
	Pagination Pagination    `json:"pagination"`
}

const (
	myOrdersDefaultLimit = 10
	myOrdersMaxLimit     = 50
)

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64, in ListMyOrdersInput) (OrderListOutput, error) {
	if userID <= 0 {
		return OrderListOutput{}, errUnauthorized
	}

	page, limit, fields := normalizePaging(in.Page, in.Limit, myOrdersDefaultLimit, myOrdersMaxLimit)
	if in.Status != "" && !model.OrderStatus(in.Status).Valid() {
		fields = append(fields, FieldError{Field: "status", Message: "Invalid status"})
	}
	if len(fields) > 0 {
		return OrderListOutput{}, NewValidationError(fields...)
	}

	orders, total, err := u.orders.ListByUserID(ctx, userID, in.Status, page, limit)
	if err != nil {
		return OrderListOutput{}, internalError(u.logger, "list orders", err, zap.Int64("user_id", userID))
	}

	outs, err := u.withItems(ctx, orders)
	if err != nil {
		return OrderListOutput{}, err
	}

	return OrderListOutput{
		Orders:     outs,
		Pagination: newPagination(page, limit, total),
	}, nil
}

// 本人か管理者だけ見られる
func (u *OrderUsecase) GetOrder(ctx context.Context, userID int64, isAdmin bool, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, errUnauthorized
	}
	if orderID <= 0 {
		return OrderOutput{}, NewValidationError(FieldError{Field: "id", Message: "Invalid order ID"})
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderOutput{}, notFound("Order")
	}
	if err != nil {
		return OrderOutput{}, internalError(u.logger, "find order", err, zap.Int64("order_id", orderID))
	}
	if o.UserID != userID && !isAdmin {
		return OrderOutput{}, errAccessDenied
	}

	items, err := u.orderItems.ListByOrderID(ctx, orderID)
	if err != nil {
		return OrderOutput{}, internalError(u.logger, "list order items", err, zap.Int64("order_id", orderID))
	}
	return toOrderOutput(o, items), nil
}

// キャンセル。状態更新と在庫戻しは同じトランザクション
func (u *OrderUsecase) CancelOrder(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, errUnauthorized
	}
	if orderID <= 0 {
		return OrderOutput{}, NewValidationError(FieldError{Field: "id", Message: "Invalid order ID"})
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("Order")
		}
		if err != nil {
			return internalError(u.logger, "find order", err, zap.Int64("order_id", orderID))
		}
		if o.UserID != userID {
			return errAccessDenied
		}
		if !o.Status.Cancellable() {
			return cannotCancel(o.Status)
		}

		ok, err := r.Orders().CancelIfCancellable(ctx, orderID)
		if err != nil {
			return internalError(u.logger, "cancel order", err, zap.Int64("order_id", orderID))
		}
		if !ok {
			//読んだ後に別リクエストで状態が変わった
			cur, err := r.Orders().FindByID(ctx, orderID)
			if err != nil {
				return internalError(u.logger, "find order", err, zap.Int64("order_id", orderID))
			}
			return cannotCancel(cur.Status)
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return internalError(u.logger, "list order items", err, zap.Int64("order_id", orderID))
		}

		//在庫戻し
		for _, it := range items {
			if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
				return internalError(u.logger, "restore stock", err,
					zap.Int64("order_id", orderID), zap.Int64("product_id", it.ProductID))
			}
		}

		o.Status = model.OrderStatusCancelled
		o.UpdatedAt = u.clock.Now()
		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	invalidateProducts(ctx, u.cache, u.logger, orderProductIDs(out.Items)...)

	u.logger.Info("order cancelled", zap.Int64("order_id", orderID), zap.Int64("user_id", userID))
	return out, nil
}

// 明細の商品ID（重複なし）
func orderProductIDs(items []OrderItemOutput) []int64 {
	seen := make(map[int64]struct{}, len(items))
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	return ids
}

func cannotCancel(status model.OrderStatus) error {
	return NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Order cannot be cancelled. Current status: %s", status))
}

type PaymentOutput struct {
	OrderID       int64               `json:"orderId"`
	PaymentID     string              `json:"paymentId"`
	PaymentStatus model.PaymentStatus `json:"paymentStatus"`
	Status        model.OrderStatus   `json:"status"`
}

// 決済のスタブ。実際の決済サービスは呼ばない
func (u *OrderUsecase) ProcessPayment(ctx context.Context, userID int64, orderID int64) (PaymentOutput, error) {
	if userID <= 0 {
		return PaymentOutput{}, errUnauthorized
	}
	if orderID <= 0 {
		return PaymentOutput{}, NewValidationError(FieldError{Field: "id", Message: "Invalid order ID"})
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return PaymentOutput{}, notFound("Order")
	}
	if err != nil {
		return PaymentOutput{}, internalError(u.logger, "find order", err, zap.Int64("order_id", orderID))
	}
	if o.UserID != userID {
		return PaymentOutput{}, errAccessDenied
	}
	if o.PaymentStatus == model.PaymentStatusPaid {
		return PaymentOutput{}, errAlreadyPaid
	}
	if o.Status == model.OrderStatusCancelled {
		return PaymentOutput{}, errPayCancelled
	}

	paymentID := "pay_" + strings.ReplaceAll(u.idGen.NewID(), "-", "")

	ok, err := u.orders.MarkPaid(ctx, orderID, paymentID)
	if err != nil {
		return PaymentOutput{}, internalError(u.logger, "mark order paid", err, zap.Int64("order_id", orderID))
	}
	if !ok {
		//読んだ後に支払い済み or キャンセルになった
		cur, err := u.orders.FindByID(ctx, orderID)
		if err == nil && cur.Status == model.OrderStatusCancelled && cur.PaymentStatus != model.PaymentStatusPaid {
			return PaymentOutput{}, errPayCancelled
		}
		return PaymentOutput{}, errAlreadyPaid
	}

	u.logger.Info("payment processed", zap.Int64("order_id", orderID), zap.String("payment_id", paymentID))
	return PaymentOutput{
		OrderID:       orderID,
		PaymentID:     paymentID,
		PaymentStatus: model.PaymentStatusPaid,
		Status:        model.OrderStatusConfirmed,
	}, nil
}

var (
	errAlreadyPaid  = NewHTTPError(http.StatusBadRequest, "Order is already paid")
	errPayCancelled = NewHTTPError(http.StatusBadRequest, "Cannot pay for a cancelled order")
)

// 明細をまとめて取って注文に付ける
func (u *OrderUsecase) withItems(ctx context.Context, orders []model.Order) ([]OrderOutput, error) {
	return attachItems(ctx, u.orderItems, u.logger, orders)
}

func attachItems(ctx context.Context, itemRepo repo.OrderItemRepository, logger *zap.Logger, orders []model.Order) ([]OrderOutput, error) {
	outs := make([]OrderOutput, 0, len(orders))
	if len(orders) == 0 {
		return outs, nil
	}

	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	byOrder, err := itemRepo.ListByOrderIDs(ctx, ids)
	if err != nil {
		return nil, internalError(logger, "list order items", err)
	}

	for _, o := range orders {
		outs = append(outs, toOrderOutput(o, byOrder[o.ID]))
	}
	return outs, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductNameSnapshot,
			Image:     it.ProductImageSnapshot,
			Price:     it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal(),
		})
	}

	return OrderOutput{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		Items:           outItems,
		ShippingAddress: o.ShippingAddress,
		BillingAddress:  o.BillingAddress,
		PaymentMethod:   o.PaymentMethod,
		PaymentStatus:   o.PaymentStatus,
		PaymentID:       o.PaymentID,
		Subtotal:        o.Subtotal,
		Tax:             o.Tax,
		Shipping:        o.Shipping,
		Total:           o.Total,
		Status:          o.Status,
		Notes:           o.Notes,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}
