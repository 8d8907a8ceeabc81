package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bakery/internal/domain/model"
	repo "bakery/internal/repository"

	"github.com/shopspring/decimal"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// 連番のID
type seqIDGen struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDGen) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("abcd%04d-0000-0000-0000-000000000000", g.n)
}

// 監査ログの保存先
type memAudit struct {
	mu   sync.Mutex
	logs []model.AuditLog
	err  error
}

func (a *memAudit) Create(ctx context.Context, log model.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	log.ID = int64(len(a.logs) + 1)
	a.logs = append(a.logs, log)
	return nil
}

func (a *memAudit) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []model.AuditLog
	for i := len(a.logs) - 1; i >= 0; i-- {
		l := a.logs[i]
		if f.Action != nil && l.Action != *f.Action {
			continue
		}
		if f.ResourceType != nil && l.ResourceType != *f.ResourceType {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (a *memAudit) all() []model.AuditLog {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]model.AuditLog(nil), a.logs...)
}

// 呼ばれ方を記録するキャッシュ
type recordingCache struct {
	mu          sync.Mutex
	items       map[int64]model.Product
	hits        int
	invalidated []int64
}

func newRecordingCache() *recordingCache {
	return &recordingCache{items: map[int64]model.Product{}}
}

func (c *recordingCache) Get(ctx context.Context, id int64) (model.Product, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.items[id]
	if ok {
		c.hits++
	}
	return p, ok, nil
}

func (c *recordingCache) Set(ctx context.Context, p model.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[p.ID] = p
	return nil
}

func (c *recordingCache) Invalidate(ctx context.Context, ids ...int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.items, id)
		c.invalidated = append(c.invalidated, id)
	}
	return nil
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func bakeryProduct(id int64, name string, price string, stock int64) model.Product {
	return model.Product{
		ID:          id,
		Name:        name,
		Description: name + " baked daily",
		Category:    model.CategoryBread,
		Price:       money(price),
		Stock:       stock,
		IsAvailable: true,
		CreatedAt:   testNow,
		UpdatedAt:   testNow,
	}
}

func shippingAddress() model.Address {
	return model.Address{
		Name:    "Jamie Baker",
		Street:  "1 Flour St",
		City:    "Portland",
		State:   "OR",
		ZipCode: "97201",
		Country: "US",
	}
}
