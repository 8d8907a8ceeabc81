package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"bakery/internal/domain/model"
	"bakery/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	buyerID int64 = 7
	otherID int64 = 8
)

func newOrderFixture(t *testing.T, loyalty bool) (*usecase.OrderUsecase, *memStore) {
	t.Helper()
	store := newMemStore()
	store.users[buyerID] = model.User{ID: buyerID, Name: "Buyer", Email: "buyer@example.com", Role: model.RoleUser, IsActive: true}
	store.users[otherID] = model.User{ID: otherID, Name: "Other", Email: "other@example.com", Role: model.RoleUser, IsActive: true}

	uc := usecase.NewOrderUsecase(store, store.orderRepo(), store.itemRepo(), &seqIDGen{}, fixedClock{testNow}, newRecordingCache(), loyalty, zap.NewNop())
	return uc, store
}

func placeInput(lines ...usecase.OrderLineInput) usecase.PlaceOrderInput {
	return usecase.PlaceOrderInput{
		Items:           lines,
		ShippingAddress: shippingAddress(),
		PaymentMethod:   "card",
	}
}

func requireHTTPError(t *testing.T, err error, status int, message string) *usecase.HTTPError {
	t.Helper()
	require.Error(t, err)
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok, "expected HTTPError, got %v", err)
	assert.Equal(t, status, he.Status)
	if message != "" {
		assert.Equal(t, message, he.Message)
	}
	return he
}

func TestPlaceOrder_ComputesTotalsAndSnapshots(t *testing.T) {
	uc, store := newOrderFixture(t, true)
	store.addProduct(bakeryProduct(1, "Sourdough", "27.50", 10))

	out, err := uc.PlaceOrder(context.Background(), buyerID, placeInput(usecase.OrderLineInput{ProductID: 1, Quantity: 2}))
	require.NoError(t, err)

	assert.Equal(t, "55.00", out.Subtotal.StringFixed(2))
	assert.Equal(t, "4.68", out.Tax.StringFixed(2))
	assert.Equal(t, "0.00", out.Shipping.StringFixed(2))
	assert.Equal(t, "59.68", out.Total.StringFixed(2))

	assert.Equal(t, model.OrderStatusPending, out.Status)
	assert.Equal(t, model.PaymentStatusPending, out.PaymentStatus)
	assert.Equal(t, "ORD-20260314-ABCD0001", out.OrderNumber)
	// 請求先未指定なら配送先と同じ
	assert.Equal(t, shippingAddress(), out.BillingAddress)

	require.Len(t, out.Items, 1)
	assert.Equal(t, "Sourdough", out.Items[0].Name)
	assert.Equal(t, "55.00", out.Items[0].LineTotal.StringFixed(2))

	assert.Equal(t, int64(8), store.stockOf(1))
	assert.Equal(t, int64(5), store.users[buyerID].LoyaltyScore)
}

func TestPlaceOrder_FlatShippingBelowThreshold(t *testing.T) {
	uc, store := newOrderFixture(t, false)
	store.addProduct(bakeryProduct(1, "Croissant", "4.25", 10))

	out, err := uc.PlaceOrder(context.Background(), buyerID, placeInput(usecase.OrderLineInput{ProductID: 1, Quantity: 2}))
	require.NoError(t, err)

	assert.Equal(t, "8.50", out.Subtotal.StringFixed(2))
	assert.Equal(t, "0.72", out.Tax.StringFixed(2))
	assert.Equal(t, "5.99", out.Shipping.StringFixed(2))
	assert.Equal(t, "15.21", out.Total.StringFixed(2))
	// ポイント無効
	assert.Equal(t, int64(0), store.users[buyerID].LoyaltyScore)
}

func TestPlaceOrder_SnapshotSurvivesProductChange(t *testing.T) {
	uc, store := newOrderFixture(t, false)
	store.addProduct(bakeryProduct(1, "Baguette", "3.00", 10))

	placed, err := uc.PlaceOrder(context.Background(), buyerID, placeInput(usecase.OrderLineInput{ProductID: 1, Quantity: 1}))
	require.NoError(t, err)

	p := store.products[1]
	p.Name = "Baguette Tradition"
	p.Price = money("4.50")
	store.addProduct(p)

	got, err := uc.GetOrder(context.Background(), buyerID, false, placed.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Baguette", got.Items[0].Name)
	assert.Equal(t, "3.00", got.Items[0].Price.StringFixed(2))
	assert.True(t, placed.Total.Equal(got.Total))
}

func TestPlaceOrder_InsufficientStockRollsBack(t *testing.T) {
	uc, store := newOrderFixture(t, true)
	store.addProduct(bakeryProduct(1, "Sourdough", "8.00", 10))
	store.addProduct(bakeryProduct(2, "Rye", "6.00", 2))

	_, err := uc.PlaceOrder(context.Background(), buyerID, placeInput(
		usecase.OrderLineInput{ProductID: 1, Quantity: 3},
		usecase.OrderLineInput{ProductID: 2, Quantity: 3},
	))
	requireHTTPError(t, err, http.StatusBadRequest, "Insufficient stock for Rye. Available: 2")

	// 先に減らした行も戻っている
	assert.Equal(t, int64(10), store.stockOf(1))
	assert.Equal(t, int64(2), store.stockOf(2))
	assert.Equal(t, 0, store.orderCount())
	assert.Equal(t, int64(0), store.users[buyerID].LoyaltyScore)
}

func TestPlaceOrder_SameProductOnTwoLines(t *testing.T) {
	uc, store := newOrderFixture(t, false)
	store.addProduct(bakeryProduct(1, "Sourdough", "8.00", 4))

	_, err := uc.PlaceOrder(context.Background(), buyerID, placeInput(
		usecase.OrderLineInput{ProductID: 1, Quantity: 3},
		usecase.OrderLineInput{ProductID: 1, Quantity: 3},
	))
	requireHTTPError(t, err, http.StatusBadRequest, "Insufficient stock for Sourdough. Available: 1")
	assert.Equal(t, int64(4), store.stockOf(1))
}

func TestPlaceOrder_ProductProblems(t *testing.T) {
	uc, store := newOrderFixture(t, false)
	unavailable := bakeryProduct(2, "Seasonal Stollen", "12.00", 5)
	unavailable.IsAvailable = false
	store.addProduct(unavailable)

	_, err := uc.PlaceOrder(context.Background(), buyerID, placeInput(usecase.OrderLineInput{ProductID: 99, Quantity: 1}))
	requireHTTPError(t, err, http.StatusBadRequest, "Product with ID 99 not found")

	_, err = uc.PlaceOrder(context.Background(), buyerID, placeInput(usecase.OrderLineInput{ProductID: 2, Quantity: 1}))
	requireHTTPError(t, err, http.StatusBadRequest, "Product Seasonal Stollen is not available")
	assert.Equal(t, int64(5), store.stockOf(2))
}

func TestPlaceOrder_ValidationErrors(t *testing.T) {
	uc, _ := newOrderFixture(t, false)

	_, err := uc.PlaceOrder(context.Background(), buyerID, usecase.PlaceOrderInput{
		Items:         []usecase.OrderLineInput{{ProductID: 1, Quantity: 0}},
		PaymentMethod: "bitcoin",
	})
	he := requireHTTPError(t, err, http.StatusBadRequest, "")

	var fields []string
	for _, f := range he.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"items[0].quantity", "shippingAddress", "paymentMethod"}, fields)

	_, err = uc.PlaceOrder(context.Background(), buyerID, placeInput())
	he = requireHTTPError(t, err, http.StatusBadRequest, "")
	require.Len(t, he.Fields, 1)
	assert.Equal(t, "items", he.Fields[0].Field)

	_, err = uc.PlaceOrder(context.Background(), 0, placeInput(usecase.OrderLineInput{ProductID: 1, Quantity: 1}))
	requireHTTPError(t, err, http.StatusUnauthorized, "")
}

func TestPlaceOrder_ItemInsertFailureRollsBack(t *testing.T) {
	uc, store := newOrderFixture(t, true)
	store.addProduct(bakeryProduct(1, "Sourdough", "20.00", 5))
	store.failCreateItems = errors.New("connection reset")

	_, err := uc.PlaceOrder(context.Background(), buyerID, placeInput(usecase.OrderLineInput{ProductID: 1, Quantity: 3}))
	requireHTTPError(t, err, http.StatusInternalServerError, "internal error")

	assert.Equal(t, int64(5), store.stockOf(1))
	assert.Equal(t, 0, store.orderCount())
}

func TestPlaceOrder_ConcurrentOrdersNeverOversell(t *testing.T) {
	uc, store := newOrderFixture(t, false)
	store.addProduct(bakeryProduct(1, "Kouign-amann", "5.00", 5))

	const buyers = 12
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		success  int
		rejected int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.PlaceOrder(context.Background(), buyerID, placeInput(usecase.OrderLineInput{ProductID: 1, Quantity: 1}))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rejected++
				return
			}
			success++
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, success)
	assert.Equal(t, buyers-5, rejected)
	assert.Equal(t, int64(0), store.stockOf(1))
	assert.Equal(t, 5, store.orderCount())
}

func TestCancelOrder_RestoresStock(t *testing.T) {
	uc, store := newOrderFixture(t, false)
	store.addProduct(bakeryProduct(1, "Sourdough", "8.00", 10))
	store.addProduct(bakeryProduct(2, "Rye", "6.00", 4))

	placed, err := uc.PlaceOrder(context.Background(), buyerID, placeInput(
		usecase.OrderLineInput{ProductID: 1, Quantity: 3},
		usecase.OrderLineInput{ProductID: 2, Quantity: 4},
	))
	require.NoError(t, err)
	assert.Equal(t, int64(7), store.stockOf(1))
	assert.Equal(t, int64(0), store.stockOf(2))

	out, err := uc.CancelOrder(context.Background(), buyerID, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, out.Status)
	assert.Equal(t, int64(10), store.stockOf(1))
	assert.Equal(t, int64(4), store.stockOf(2))

	// 二重キャンセルで在庫が増えない
	_, err = uc.CancelOrder(context.Background(), buyerID, placed.ID)
	requireHTTPError(t, err, http.StatusBadRequest, "Order cannot be cancelled. Current status: cancelled")
	assert.Equal(t, int64(10), store.stockOf(1))
}

// 注文とキャンセルで在庫が動いたら商品詳細のキャッシュも消える
func TestOrderStockChangesInvalidateProductCache(t *testing.T) {
	store := newMemStore()
	store.users[buyerID] = model.User{ID: buyerID, Name: "Buyer", Email: "buyer@example.com", Role: model.RoleUser, IsActive: true}
	store.addProduct(bakeryProduct(1, "Sourdough", "8.00", 10))

	cache := newRecordingCache()
	products := usecase.NewProductUsecase(store, store.productRepo(), &memAudit{}, cache, fixedClock{testNow}, zap.NewNop())
	orders := usecase.NewOrderUsecase(store, store.orderRepo(), store.itemRepo(), &seqIDGen{}, fixedClock{testNow}, cache, false, zap.NewNop())

	detail, err := products.GetProductDetail(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(10), detail.Stock)

	placed, err := orders.PlaceOrder(context.Background(), buyerID, placeInput(usecase.OrderLineInput{ProductID: 1, Quantity: 10}))
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, cache.invalidated)

	detail, err = products.GetProductDetail(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), detail.Stock)

	_, err = orders.CancelOrder(context.Background(), buyerID, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1}, cache.invalidated)

	detail, err = products.GetProductDetail(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), detail.Stock)
}

// ロールバックした注文はキャッシュに触らない
func TestPlaceOrder_FailureLeavesCacheAlone(t *testing.T) {
	store := newMemStore()
	store.addProduct(bakeryProduct(1, "Sourdough", "8.00", 2))

	cache := newRecordingCache()
	orders := usecase.NewOrderUsecase(store, store.orderRepo(), store.itemRepo(), &seqIDGen{}, fixedClock{testNow}, cache, false, zap.NewNop())

	_, err := orders.PlaceOrder(context.Background(), buyerID, placeInput(usecase.OrderLineInput{ProductID: 1, Quantity: 3}))
	requireHTTPError(t, err, http.StatusBadRequest, "")
	assert.Empty(t, cache.invalidated)
}

func TestCancelOrder_RejectsLateStatuses(t *testing.T) {
	for _, status := range []model.OrderStatus{model.OrderStatusShipped, model.OrderStatusDelivered} {
		t.Run(string(status), func(t *testing.T) {
			uc, store := newOrderFixture(t, false)
			store.addProduct(bakeryProduct(1, "Sourdough", "8.00", 10))

			placed, err := uc.PlaceOrder(context.Background(), buyerID, placeInput(usecase.OrderLineInput{ProductID: 1, Quantity: 2}))
			require.NoError(t, err)
			require.NoError(t, store.orderRepo().UpdateStatus(context.Background(), placed.ID, status))

			_, err = uc.CancelOrder(context.Background(), buyerID, placed.ID)
			requireHTTPError(t, err, http.StatusBadRequest, "Order cannot be cancelled. Current status: "+string(status))
			assert.Equal(t, int64(8), store.stockOf(1))
		})
	}
}

func TestCancelOrder_PreparingIsStillCancellable(t *testing.T) {
	uc, store := newOrderFixture(t, false)
	store.addProduct(bakeryProduct(1, "Sourdough", "8.00", 10))

	placed, err := uc.PlaceOrder(context.Background(), buyerID, placeInput(usecase.OrderLineInput{ProductID: 1, Quantity: 2}))
	require.NoError(t, err)
	require.NoError(t, store.orderRepo().UpdateStatus(context.Background(), placed.ID, model.OrderStatusPreparing))

	out, err := uc.CancelOrder(context.Background(), buyerID, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, out.Status)
	assert.Equal(t, int64(10), store.stockOf(1))
}

func TestCancelOrder_OwnershipAndNotFound(t *testing.T) {
	uc, store := newOrderFixture(t, false)
	store.addProduct(bakeryProduct(1, "Sourdough", "8.00", 10))

	placed, err := uc.PlaceOrder(context.Background(), buyerID, placeInput(usecase.OrderLineInput{ProductID: 1, Quantity: 2}))
	require.NoError(t, err)

	_, err = uc.CancelOrder(context.Background(), otherID, placed.ID)
	requireHTTPError(t, err, http.StatusForbidden, "Access denied")
	assert.Equal(t, int64(8), store.stockOf(1))

	_, err = uc.CancelOrder(context.Background(), buyerID, 404)
	requireHTTPError(t, err, http.StatusNotFound, "Order not found")
}

func TestCancelOrder_RestoresStockOfDeletedProduct(t *testing.T) {
	uc, store := newOrderFixture(t, false)
	store.addProduct(bakeryProduct(1, "Sourdough", "8.00", 10))

	placed, err := uc.PlaceOrder(context.Background(), buyerID, placeInput(usecase.OrderLineInput{ProductID: 1, Quantity: 2}))
	require.NoError(t, err)
	require.NoError(t, store.productRepo().SoftDelete(context.Background(), 1))

	_, err = uc.CancelOrder(context.Background(), buyerID, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), store.stockOf(1))
}

func TestGetOrder_Visibility(t *testing.T) {
	uc, store := newOrderFixture(t, false)
	store.addProduct(bakeryProduct(1, "Sourdough", "8.00", 10))

	placed, err := uc.PlaceOrder(context.Background(), buyerID, placeInput(usecase.OrderLineInput{ProductID: 1, Quantity: 1}))
	require.NoError(t, err)

	_, err = uc.GetOrder(context.Background(), otherID, false, placed.ID)
	requireHTTPError(t, err, http.StatusForbidden, "Access denied")

	got, err := uc.GetOrder(context.Background(), otherID, true, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, placed.OrderNumber, got.OrderNumber)

	_, err = uc.GetOrder(context.Background(), buyerID, false, 0)
	requireHTTPError(t, err, http.StatusBadRequest, "")
}

func TestListMyOrders_FiltersAndPaginates(t *testing.T) {
	uc, store := newOrderFixture(t, false)
	store.addProduct(bakeryProduct(1, "Sourdough", "8.00", 100))

	for i := 0; i < 3; i++ {
		_, err := uc.PlaceOrder(context.Background(), buyerID, placeInput(usecase.OrderLineInput{ProductID: 1, Quantity: 1}))
		require.NoError(t, err)
	}
	_, err := uc.PlaceOrder(context.Background(), otherID, placeInput(usecase.OrderLineInput{ProductID: 1, Quantity: 1}))
	require.NoError(t, err)
	_, err = uc.CancelOrder(context.Background(), buyerID, 1)
	require.NoError(t, err)

	out, err := uc.ListMyOrders(context.Background(), buyerID, usecase.ListMyOrdersInput{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, out.Orders, 2)
	assert.Equal(t, int64(3), out.Pagination.TotalItems)
	assert.Equal(t, 2, out.Pagination.TotalPages)
	assert.True(t, out.Pagination.HasNext)
	assert.False(t, out.Pagination.HasPrev)
	// 新しい順
	assert.Equal(t, int64(3), out.Orders[0].ID)
	require.Len(t, out.Orders[0].Items, 1)

	cancelled, err := uc.ListMyOrders(context.Background(), buyerID, usecase.ListMyOrdersInput{Status: "cancelled"})
	require.NoError(t, err)
	require.Len(t, cancelled.Orders, 1)
	assert.Equal(t, int64(1), cancelled.Orders[0].ID)

	_, err = uc.ListMyOrders(context.Background(), buyerID, usecase.ListMyOrdersInput{Status: "lost"})
	requireHTTPError(t, err, http.StatusBadRequest, "")

	_, err = uc.ListMyOrders(context.Background(), buyerID, usecase.ListMyOrdersInput{Limit: 51})
	requireHTTPError(t, err, http.StatusBadRequest, "")
}

func TestProcessPayment(t *testing.T) {
	uc, store := newOrderFixture(t, false)
	store.addProduct(bakeryProduct(1, "Sourdough", "8.00", 10))

	placed, err := uc.PlaceOrder(context.Background(), buyerID, placeInput(usecase.OrderLineInput{ProductID: 1, Quantity: 1}))
	require.NoError(t, err)

	_, err = uc.ProcessPayment(context.Background(), otherID, placed.ID)
	requireHTTPError(t, err, http.StatusForbidden, "Access denied")

	out, err := uc.ProcessPayment(context.Background(), buyerID, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, out.PaymentStatus)
	assert.Equal(t, model.OrderStatusConfirmed, out.Status)
	assert.Regexp(t, `^pay_[0-9a-f]+$`, out.PaymentID)

	got, err := uc.GetOrder(context.Background(), buyerID, false, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, out.PaymentID, got.PaymentID)
	assert.Equal(t, model.OrderStatusConfirmed, got.Status)

	_, err = uc.ProcessPayment(context.Background(), buyerID, placed.ID)
	requireHTTPError(t, err, http.StatusBadRequest, "Order is already paid")

	_, err = uc.ProcessPayment(context.Background(), buyerID, 999)
	requireHTTPError(t, err, http.StatusNotFound, "Order not found")
}

func TestProcessPayment_RejectsCancelledOrder(t *testing.T) {
	uc, store := newOrderFixture(t, false)
	store.addProduct(bakeryProduct(1, "Sourdough", "8.00", 10))

	placed, err := uc.PlaceOrder(context.Background(), buyerID, placeInput(usecase.OrderLineInput{ProductID: 1, Quantity: 1}))
	require.NoError(t, err)
	_, err = uc.CancelOrder(context.Background(), buyerID, placed.ID)
	require.NoError(t, err)

	_, err = uc.ProcessPayment(context.Background(), buyerID, placed.ID)
	requireHTTPError(t, err, http.StatusBadRequest, "Cannot pay for a cancelled order")

	got, err := uc.GetOrder(context.Background(), buyerID, false, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, got.Status)
	assert.Equal(t, model.PaymentStatusPending, got.PaymentStatus)
}
