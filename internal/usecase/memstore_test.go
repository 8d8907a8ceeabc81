package usecase_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"bakery/internal/domain/model"
	repo "bakery/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// =====================
// インメモリのストア（Txはスナップショットで巻き戻す）
// =====================

type memStore struct {
	mu          sync.Mutex
	products    map[int64]model.Product
	orders      map[int64]model.Order
	items       map[int64][]model.OrderItem
	users       map[int64]model.User
	adjustments []model.InventoryAdjustment
	nextOrderID int64

	// テストで差し込む失敗
	failCreateItems     error
	// 商品更新の直前に走る（別の注文が割り込んだ状態を作る）
	beforeProductUpdate func(s *memStore)
}

func newMemStore() *memStore {
	return &memStore{
		products: map[int64]model.Product{},
		orders:   map[int64]model.Order{},
		items:    map[int64][]model.OrderItem{},
		users:    map[int64]model.User{},
	}
}

type memSnapshot struct {
	products    map[int64]model.Product
	orders      map[int64]model.Order
	items       map[int64][]model.OrderItem
	users       map[int64]model.User
	adjustments []model.InventoryAdjustment
	nextOrderID int64
}

func (s *memStore) snapshot() memSnapshot {
	snap := memSnapshot{
		products:    make(map[int64]model.Product, len(s.products)),
		orders:      make(map[int64]model.Order, len(s.orders)),
		items:       make(map[int64][]model.OrderItem, len(s.items)),
		users:       make(map[int64]model.User, len(s.users)),
		adjustments: append([]model.InventoryAdjustment(nil), s.adjustments...),
		nextOrderID: s.nextOrderID,
	}
	for k, v := range s.products {
		snap.products[k] = v
	}
	for k, v := range s.orders {
		snap.orders[k] = v
	}
	for k, v := range s.items {
		snap.items[k] = append([]model.OrderItem(nil), v...)
	}
	for k, v := range s.users {
		snap.users[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.products = snap.products
	s.orders = snap.orders
	s.items = snap.items
	s.users = snap.users
	s.adjustments = snap.adjustments
	s.nextOrderID = snap.nextOrderID
}

func (s *memStore) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(memTxRepos{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// Tx外から呼ばれたときだけロックする
type memView struct {
	s    *memStore
	inTx bool
}

func (v memView) lock() func() {
	if v.inTx {
		return func() {}
	}
	v.s.mu.Lock()
	return v.s.mu.Unlock
}

type memTxRepos struct{ s *memStore }

func (r memTxRepos) Orders() repo.OrderRepository         { return memOrders{memView{r.s, true}} }
func (r memTxRepos) OrderItems() repo.OrderItemRepository { return memItems{memView{r.s, true}} }
func (r memTxRepos) Inventory() repo.InventoryRepository  { return memInventory{memView{r.s, true}} }
func (r memTxRepos) Products() repo.ProductRepository     { return memProducts{memView{r.s, true}} }
func (r memTxRepos) Users() repo.UserRepository           { return memUsers{memView{r.s, true}} }

func (s *memStore) orderRepo() repo.OrderRepository         { return memOrders{memView{s, false}} }
func (s *memStore) itemRepo() repo.OrderItemRepository      { return memItems{memView{s, false}} }
func (s *memStore) productRepo() repo.ProductRepository     { return memProducts{memView{s, false}} }
func (s *memStore) userRepo() repo.UserRepository           { return memUsers{memView{s, false}} }
func (s *memStore) inventoryRepo() repo.InventoryRepository { return memInventory{memView{s, false}} }

func (s *memStore) addProduct(p model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

func (s *memStore) stockOf(id int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Stock
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// =====================
// products
// =====================

type memProducts struct{ memView }

func (r memProducts) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	defer r.lock()()
	var out []model.Product
	for _, p := range r.s.products {
		if p.DeletedAt.Valid {
			continue
		}
		if q.OnlyAvailable && !p.IsAvailable {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r memProducts) FindByID(ctx context.Context, id int64) (model.Product, error) {
	defer r.lock()()
	p, ok := r.s.products[id]
	if !ok || p.DeletedAt.Valid {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (r memProducts) Create(ctx context.Context, p model.Product) (model.Product, error) {
	defer r.lock()()
	p.ID = int64(len(r.s.products) + 1)
	r.s.products[p.ID] = p
	return p, nil
}

func (r memProducts) Update(ctx context.Context, id int64, ch repo.ProductChanges) error {
	defer r.lock()()
	if r.s.beforeProductUpdate != nil {
		r.s.beforeProductUpdate(r.s)
	}
	p, ok := r.s.products[id]
	if !ok || p.DeletedAt.Valid {
		return repo.ErrNotFound
	}
	if ch.Name != nil {
		p.Name = *ch.Name
	}
	if ch.Description != nil {
		p.Description = *ch.Description
	}
	if ch.Category != nil {
		p.Category = *ch.Category
	}
	if ch.Price != nil {
		p.Price = *ch.Price
	}
	if ch.IsAvailable != nil {
		p.IsAvailable = *ch.IsAvailable
	}
	if ch.ImageURL != nil {
		p.ImageURL = *ch.ImageURL
	}
	if ch.Featured != nil {
		p.Featured = *ch.Featured
	}
	if !ch.UpdatedAt.IsZero() {
		p.UpdatedAt = ch.UpdatedAt
	}
	r.s.products[id] = p
	return nil
}

func (r memProducts) SoftDelete(ctx context.Context, id int64) error {
	defer r.lock()()
	p, ok := r.s.products[id]
	if !ok || p.DeletedAt.Valid {
		return repo.ErrNotFound
	}
	p.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	r.s.products[id] = p
	return nil
}

func (r memProducts) Count(ctx context.Context) (int64, error) {
	defer r.lock()()
	var n int64
	for _, p := range r.s.products {
		if !p.DeletedAt.Valid {
			n++
		}
	}
	return n, nil
}

func (r memProducts) ListLowStock(ctx context.Context, threshold int64) ([]model.Product, error) {
	defer r.lock()()
	var out []model.Product
	for _, p := range r.s.products {
		if !p.DeletedAt.Valid && p.Stock <= threshold {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Stock < out[j].Stock })
	return out, nil
}

// =====================
// inventory
// =====================

type memInventory struct{ memView }

func (r memInventory) SetStock(ctx context.Context, productID int64, newStock int64) error {
	defer r.lock()()
	p, ok := r.s.products[productID]
	if !ok || p.DeletedAt.Valid {
		return repo.ErrNotFound
	}
	p.Stock = newStock
	r.s.products[productID] = p
	return nil
}

func (r memInventory) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	defer r.lock()()
	p, ok := r.s.products[productID]
	if !ok || p.DeletedAt.Valid || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	r.s.products[productID] = p
	return true, nil
}

// 削除済みにも戻す
func (r memInventory) IncreaseStock(ctx context.Context, productID int64, qty int64) error {
	defer r.lock()()
	p, ok := r.s.products[productID]
	if !ok {
		return repo.ErrNotFound
	}
	p.Stock += qty
	r.s.products[productID] = p
	return nil
}

func (r memInventory) CreateAdjustment(ctx context.Context, adj model.InventoryAdjustment) error {
	defer r.lock()()
	r.s.adjustments = append(r.s.adjustments, adj)
	return nil
}

// =====================
// orders
// =====================

type memOrders struct{ memView }

func (r memOrders) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	defer r.lock()()
	o, ok := r.s.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (r memOrders) ListByUserID(ctx context.Context, userID int64, status string, page int, limit int) ([]model.Order, int64, error) {
	defer r.lock()()
	var all []model.Order
	for _, o := range r.s.orders {
		if o.UserID != userID {
			continue
		}
		if status != "" && string(o.Status) != status {
			continue
		}
		all = append(all, o)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	start := (page - 1) * limit
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r memOrders) Create(ctx context.Context, order model.Order) (int64, error) {
	defer r.lock()()
	r.s.nextOrderID++
	order.ID = r.s.nextOrderID
	r.s.orders[order.ID] = order
	return order.ID, nil
}

func (r memOrders) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	defer r.lock()()
	o, ok := r.s.orders[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	o.Status = status
	r.s.orders[orderID] = o
	return nil
}

func (r memOrders) CancelIfCancellable(ctx context.Context, orderID int64) (bool, error) {
	defer r.lock()()
	o, ok := r.s.orders[orderID]
	if !ok || !o.Status.Cancellable() {
		return false, nil
	}
	o.Status = model.OrderStatusCancelled
	r.s.orders[orderID] = o
	return true, nil
}

func (r memOrders) MarkPaid(ctx context.Context, orderID int64, paymentID string) (bool, error) {
	defer r.lock()()
	o, ok := r.s.orders[orderID]
	if !ok || o.PaymentStatus == model.PaymentStatusPaid || o.Status == model.OrderStatusCancelled {
		return false, nil
	}
	o.PaymentStatus = model.PaymentStatusPaid
	o.PaymentID = paymentID
	o.Status = model.OrderStatusConfirmed
	r.s.orders[orderID] = o
	return true, nil
}

func (r memOrders) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	defer r.lock()()
	var all []model.Order
	for _, o := range r.s.orders {
		if f.Status != "" && string(o.Status) != f.Status {
			continue
		}
		all = append(all, o)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return all, int64(len(all)), nil
}

func (r memOrders) Count(ctx context.Context) (int64, error) {
	defer r.lock()()
	return int64(len(r.s.orders)), nil
}

func (r memOrders) SumPaidRevenue(ctx context.Context) (decimal.Decimal, error) {
	defer r.lock()()
	sum := decimal.Zero
	for _, o := range r.s.orders {
		if o.PaymentStatus == model.PaymentStatusPaid {
			sum = sum.Add(o.Total)
		}
	}
	return sum, nil
}

func (r memOrders) ListRecent(ctx context.Context, limit int) ([]model.Order, error) {
	defer r.lock()()
	var all []model.Order
	for _, o := range r.s.orders {
		all = append(all, o)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// =====================
// order items
// =====================

type memItems struct{ memView }

func (r memItems) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	defer r.lock()()
	if r.s.failCreateItems != nil {
		return r.s.failCreateItems
	}
	for i := range items {
		items[i].OrderID = orderID
	}
	r.s.items[orderID] = append([]model.OrderItem(nil), items...)
	return nil
}

func (r memItems) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	defer r.lock()()
	return append([]model.OrderItem(nil), r.s.items[orderID]...), nil
}

func (r memItems) ListByOrderIDs(ctx context.Context, orderIDs []int64) (map[int64][]model.OrderItem, error) {
	defer r.lock()()
	out := make(map[int64][]model.OrderItem, len(orderIDs))
	for _, id := range orderIDs {
		out[id] = append([]model.OrderItem(nil), r.s.items[id]...)
	}
	return out, nil
}

// =====================
// users
// =====================

type memUsers struct{ memView }

func (r memUsers) Create(ctx context.Context, user *model.User) error {
	defer r.lock()()
	user.ID = int64(len(r.s.users) + 1)
	r.s.users[user.ID] = *user
	return nil
}

func (r memUsers) FindByID(ctx context.Context, id int64) (*model.User, error) {
	defer r.lock()()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &u, nil
}

func (r memUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	defer r.lock()()
	for _, u := range r.s.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r memUsers) Update(ctx context.Context, user *model.User) error {
	defer r.lock()()
	r.s.users[user.ID] = *user
	return nil
}

func (r memUsers) IncrementTokenVersion(ctx context.Context, id int64) (int, error) {
	defer r.lock()()
	u, ok := r.s.users[id]
	if !ok {
		return 0, repo.ErrNotFound
	}
	u.TokenVersion++
	r.s.users[id] = u
	return u.TokenVersion, nil
}

func (r memUsers) SetActive(ctx context.Context, id int64, active bool) error {
	defer r.lock()()
	u, ok := r.s.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.IsActive = active
	r.s.users[id] = u
	return nil
}

func (r memUsers) AddLoyaltyPoints(ctx context.Context, id int64, points int64) error {
	defer r.lock()()
	u, ok := r.s.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.LoyaltyScore += points
	r.s.users[id] = u
	return nil
}

func (r memUsers) List(ctx context.Context, q repo.UserListQuery) ([]model.User, int64, error) {
	defer r.lock()()
	var out []model.User
	for _, u := range r.s.users {
		if q.Role == "" || u.Role == q.Role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r memUsers) CountByRole(ctx context.Context, role model.Role) (int64, error) {
	defer r.lock()()
	var n int64
	for _, u := range r.s.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}
