package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"bakery/internal/domain/model"
	repo "bakery/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProductUsecase struct {
	tx          repo.TransactionManager
	productRepo repo.ProductRepository
	auditRepo   repo.AuditLogRepository
	cache       repo.ProductCache
	clock       Clock
	logger      *zap.Logger
}

// DI
func NewProductUsecase(
	tx repo.TransactionManager,
	productRepo repo.ProductRepository,
	auditRepo repo.AuditLogRepository,
	cache repo.ProductCache,
	clock Clock,
	logger *zap.Logger,
) *ProductUsecase {
	return &ProductUsecase{
		tx:          tx,
		productRepo: productRepo,
		auditRepo:   auditRepo,
		cache:       cache,
		clock:       clock,
		logger:      logger,
	}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page     int
	Limit    int
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Search   string
	Sort     string
	Order    string
}

type ProductListOutput struct {
	Products   []model.Product `json:"products"`
	Pagination Pagination      `json:"pagination"`
}

const (
	publicProductsDefaultLimit = 12
	publicProductsMaxLimit     = 50
	categoryDefaultLimit       = 8
	featuredDefaultLimit       = 6
	searchDefaultLimit         = 10
	adminProductsDefaultLimit  = 20
	adminProductsMaxLimit      = 100
)

func (u *ProductUsecase) ListPublicProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	page, limit, fields := normalizePaging(in.Page, in.Limit, publicProductsDefaultLimit, publicProductsMaxLimit)

	if in.Category != "" && !model.Category(in.Category).Valid() {
		fields = append(fields, FieldError{Field: "category", Message: "Invalid category"})
	}
	if in.MinPrice != nil && in.MinPrice.IsNegative() {
		fields = append(fields, FieldError{Field: "minPrice", Message: "Min price must be non-negative"})
	}
	if in.MaxPrice != nil && in.MaxPrice.IsNegative() {
		fields = append(fields, FieldError{Field: "maxPrice", Message: "Max price must be non-negative"})
	}
	if in.MinPrice != nil && in.MaxPrice != nil && in.MinPrice.GreaterThan(*in.MaxPrice) {
		fields = append(fields, FieldError{Field: "minPrice", Message: "Min price must not exceed max price"})
	}

	sort := in.Sort
	switch sort {
	case "":
		sort = "createdAt"
	case "name", "price", "rating", "createdAt":
	default:
		fields = append(fields, FieldError{Field: "sort", Message: "Invalid sort field"})
	}
	order := in.Order
	switch order {
	case "":
		order = "desc"
	case "asc", "desc":
	default:
		fields = append(fields, FieldError{Field: "order", Message: "Order must be asc or desc"})
	}

	if len(fields) > 0 {
		return ProductListOutput{}, NewValidationError(fields...)
	}

	items, total, err := u.productRepo.List(ctx, repo.ProductListQuery{
		Page:          page,
		Limit:         limit,
		Q:             strings.TrimSpace(in.Search),
		Category:      in.Category,
		MinPrice:      in.MinPrice,
		MaxPrice:      in.MaxPrice,
		Sort:          sort,
		Order:         order,
		OnlyAvailable: true,
	})
	if err != nil {
		return ProductListOutput{}, internalError(u.logger, "list products", err)
	}

	return ProductListOutput{
		Products:   items,
		Pagination: newPagination(page, limit, total),
	}, nil
}

// 詳細はキャッシュ優先。キャッシュが落ちていてもDBから返す
func (u *ProductUsecase) GetProductDetail(ctx context.Context, productID int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, NewValidationError(FieldError{Field: "id", Message: "Invalid product ID"})
	}

	if p, ok, err := u.cache.Get(ctx, productID); err != nil {
		u.logger.Warn("product cache get failed", zap.Int64("product_id", productID), zap.Error(err))
	} else if ok {
		return p, nil
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, notFound("Product")
	}
	if err != nil {
		return model.Product{}, internalError(u.logger, "find product", err, zap.Int64("product_id", productID))
	}

	if err := u.cache.Set(ctx, p); err != nil {
		u.logger.Warn("product cache set failed", zap.Int64("product_id", productID), zap.Error(err))
	}
	return p, nil
}

func (u *ProductUsecase) ListByCategory(ctx context.Context, category string, limit int) ([]model.Product, error) {
	var fields []FieldError
	if !model.Category(category).Valid() {
		fields = append(fields, FieldError{Field: "category", Message: "Invalid category"})
	}
	_, limit, pf := normalizePaging(1, limit, categoryDefaultLimit, publicProductsMaxLimit)
	fields = append(fields, pf...)
	if len(fields) > 0 {
		return []model.Product{}, NewValidationError(fields...)
	}

	items, _, err := u.productRepo.List(ctx, repo.ProductListQuery{
		Page:          1,
		Limit:         limit,
		Category:      category,
		Sort:          "createdAt",
		Order:         "desc",
		OnlyAvailable: true,
	})
	if err != nil {
		return []model.Product{}, internalError(u.logger, "list products by category", err)
	}
	return items, nil
}

func (u *ProductUsecase) ListFeatured(ctx context.Context, limit int) ([]model.Product, error) {
	_, limit, fields := normalizePaging(1, limit, featuredDefaultLimit, publicProductsMaxLimit)
	if len(fields) > 0 {
		return []model.Product{}, NewValidationError(fields...)
	}

	featured := true
	items, _, err := u.productRepo.List(ctx, repo.ProductListQuery{
		Page:          1,
		Limit:         limit,
		Featured:      &featured,
		Sort:          "createdAt",
		Order:         "desc",
		OnlyAvailable: true,
	})
	if err != nil {
		return []model.Product{}, internalError(u.logger, "list featured products", err)
	}
	return items, nil
}

func (u *ProductUsecase) Search(ctx context.Context, q string, limit int) ([]model.Product, error) {
	q = strings.TrimSpace(q)
	if len([]rune(q)) < 2 {
		return []model.Product{}, NewHTTPError(http.StatusBadRequest, "Search query must be at least 2 characters")
	}
	_, limit, fields := normalizePaging(1, limit, searchDefaultLimit, publicProductsMaxLimit)
	if len(fields) > 0 {
		return []model.Product{}, NewValidationError(fields...)
	}

	items, _, err := u.productRepo.List(ctx, repo.ProductListQuery{
		Page:          1,
		Limit:         limit,
		Q:             q,
		Sort:          "name",
		Order:         "asc",
		OnlyAvailable: true,
	})
	if err != nil {
		return []model.Product{}, internalError(u.logger, "search products", err)
	}
	return items, nil
}

// 管理者一覧（販売停止中も含む）
type AdminListProductsInput struct {
	Page     int
	Limit    int
	Category string
	Search   string
}

func (u *ProductUsecase) AdminListProducts(ctx context.Context, in AdminListProductsInput) (ProductListOutput, error) {
	page, limit, fields := normalizePaging(in.Page, in.Limit, adminProductsDefaultLimit, adminProductsMaxLimit)
	if in.Category != "" && !model.Category(in.Category).Valid() {
		fields = append(fields, FieldError{Field: "category", Message: "Invalid category"})
	}
	if len(fields) > 0 {
		return ProductListOutput{}, NewValidationError(fields...)
	}

	items, total, err := u.productRepo.List(ctx, repo.ProductListQuery{
		Page:     page,
		Limit:    limit,
		Q:        strings.TrimSpace(in.Search),
		Category: in.Category,
		Sort:     "createdAt",
		Order:    "desc",
	})
	if err != nil {
		return ProductListOutput{}, internalError(u.logger, "admin list products", err)
	}

	return ProductListOutput{
		Products:   items,
		Pagination: newPagination(page, limit, total),
	}, nil
}

type AdminCreateProductInput struct {
	Name        string
	Description string
	Category    string
	Price       decimal.Decimal
	Stock       int64
	IsAvailable *bool
	ImageURL    string
	Featured    bool
}

func (u *ProductUsecase) AdminCreateProduct(ctx context.Context, adminUserID int64, in AdminCreateProductInput) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, errUnauthorized
	}

	name := strings.TrimSpace(in.Name)
	desc := strings.TrimSpace(in.Description)
	fields := validateProductFields(&name, &desc, &in.Category, &in.Price, &in.Stock)
	if len(fields) > 0 {
		return model.Product{}, NewValidationError(fields...)
	}

	available := true
	if in.IsAvailable != nil {
		available = *in.IsAvailable
	}

	now := u.clock.Now()
	p, err := u.productRepo.Create(ctx, model.Product{
		Name:        name,
		Description: desc,
		Category:    model.Category(in.Category),
		Price:       in.Price.Round(2),
		Stock:       in.Stock,
		IsAvailable: available,
		ImageURL:    strings.TrimSpace(in.ImageURL),
		Featured:    in.Featured,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return model.Product{}, internalError(u.logger, "create product", err)
	}

	if err := writeAudit(ctx, u.auditRepo, now, auditEntry{
		actorUserID:  adminUserID,
		action:       model.AuditActionCreateProduct,
		resourceType: model.AuditResourceProduct,
		resourceID:   p.ID,
		after:        p,
	}); err != nil {
		return model.Product{}, internalError(u.logger, "write audit log", err, zap.Int64("product_id", p.ID))
	}
	return p, nil
}

// 商品編集から在庫を変えたときの調整理由
const productUpdateStockReason = "Product update"

// 部分更新。nilの項目は変更しない
type AdminUpdateProductInput struct {
	Name        *string
	Description *string
	Category    *string
	Price       *decimal.Decimal
	Stock       *int64
	IsAvailable *bool
	ImageURL    *string
	Featured    *bool
}

func (u *ProductUsecase) AdminUpdateProduct(ctx context.Context, adminUserID int64, productID int64, in AdminUpdateProductInput) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, errUnauthorized
	}
	if productID <= 0 {
		return model.Product{}, NewValidationError(FieldError{Field: "id", Message: "Invalid product ID"})
	}

	if in.Name != nil {
		s := strings.TrimSpace(*in.Name)
		in.Name = &s
	}
	if in.Description != nil {
		s := strings.TrimSpace(*in.Description)
		in.Description = &s
	}
	if fields := validateProductFields(in.Name, in.Description, in.Category, in.Price, in.Stock); len(fields) > 0 {
		return model.Product{}, NewValidationError(fields...)
	}

	now := u.clock.Now()
	changes := repo.ProductChanges{
		Name:        in.Name,
		Description: in.Description,
		IsAvailable: in.IsAvailable,
		Featured:    in.Featured,
		UpdatedAt:   now,
	}
	if in.Category != nil {
		c := model.Category(*in.Category)
		changes.Category = &c
	}
	if in.Price != nil {
		p := in.Price.Round(2)
		changes.Price = &p
	}
	if in.ImageURL != nil {
		s := strings.TrimSpace(*in.ImageURL)
		changes.ImageURL = &s
	}

	var before, after model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("Product")
		}
		if err != nil {
			return internalError(u.logger, "find product", err, zap.Int64("product_id", productID))
		}
		before = p

		//書くのは指定された列だけ
		if err := r.Products().Update(ctx, productID, changes); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return notFound("Product")
			}
			return internalError(u.logger, "update product", err, zap.Int64("product_id", productID))
		}

		//在庫は手動補正と同じ経路（履歴つき）
		if in.Stock != nil && *in.Stock != p.Stock {
			if err := r.Inventory().SetStock(ctx, productID, *in.Stock); err != nil {
				return internalError(u.logger, "set stock", err, zap.Int64("product_id", productID))
			}
			if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
				ProductID:   productID,
				AdminUserID: adminUserID,
				Before:      p.Stock,
				After:       *in.Stock,
				Delta:       *in.Stock - p.Stock,
				Reason:      productUpdateStockReason,
				CreatedAt:   now,
			}); err != nil {
				return internalError(u.logger, "create inventory adjustment", err, zap.Int64("product_id", productID))
			}
		}

		after, err = r.Products().FindByID(ctx, productID)
		if err != nil {
			return internalError(u.logger, "reload product", err, zap.Int64("product_id", productID))
		}
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}
	u.invalidate(ctx, productID)

	if err := writeAudit(ctx, u.auditRepo, now, auditEntry{
		actorUserID:  adminUserID,
		action:       model.AuditActionUpdateProduct,
		resourceType: model.AuditResourceProduct,
		resourceID:   productID,
		before:       before,
		after:        after,
	}); err != nil {
		return model.Product{}, internalError(u.logger, "write audit log", err, zap.Int64("product_id", productID))
	}
	return after, nil
}

func (u *ProductUsecase) AdminDeleteProduct(ctx context.Context, adminUserID int64, productID int64) error {
	if adminUserID <= 0 {
		return errUnauthorized
	}
	if productID <= 0 {
		return NewValidationError(FieldError{Field: "id", Message: "Invalid product ID"})
	}

	before, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return notFound("Product")
	}
	if err != nil {
		return internalError(u.logger, "find product", err, zap.Int64("product_id", productID))
	}

	err = u.productRepo.SoftDelete(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return notFound("Product")
	}
	if err != nil {
		return internalError(u.logger, "delete product", err, zap.Int64("product_id", productID))
	}
	u.invalidate(ctx, productID)

	if err := writeAudit(ctx, u.auditRepo, u.clock.Now(), auditEntry{
		actorUserID:  adminUserID,
		action:       model.AuditActionDeleteProduct,
		resourceType: model.AuditResourceProduct,
		resourceID:   productID,
		before:       before,
	}); err != nil {
		return internalError(u.logger, "write audit log", err, zap.Int64("product_id", productID))
	}
	return nil
}

// 在庫の手動補正。在庫更新と調整履歴は同じトランザクション
func (u *ProductUsecase) AdminUpdateInventory(ctx context.Context, adminUserID int64, productID int64, newStock int64, reason string) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, errUnauthorized
	}

	var fields []FieldError
	if productID <= 0 {
		fields = append(fields, FieldError{Field: "product_id", Message: "Invalid product ID"})
	}
	if newStock < 0 {
		fields = append(fields, FieldError{Field: "stock", Message: "Stock must be non-negative"})
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		fields = append(fields, FieldError{Field: "reason", Message: "Reason is required"})
	}
	if len(fields) > 0 {
		return model.Product{}, NewValidationError(fields...)
	}

	now := u.clock.Now()
	var before model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("Product")
		}
		if err != nil {
			return internalError(u.logger, "find product", err, zap.Int64("product_id", productID))
		}
		before = p

		if err := r.Inventory().SetStock(ctx, productID, newStock); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return notFound("Product")
			}
			return internalError(u.logger, "set stock", err, zap.Int64("product_id", productID))
		}

		//履歴を作成（差分）
		if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
			ProductID:   productID,
			AdminUserID: adminUserID,
			Before:      p.Stock,
			After:       newStock,
			Delta:       newStock - p.Stock,
			Reason:      reason,
			CreatedAt:   now,
		}); err != nil {
			return internalError(u.logger, "create inventory adjustment", err, zap.Int64("product_id", productID))
		}
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}
	u.invalidate(ctx, productID)

	after := before
	after.Stock = newStock

	//監査ログを作成（在庫更新）
	if err := writeAudit(ctx, u.auditRepo, now, auditEntry{
		actorUserID:  adminUserID,
		action:       model.AuditActionUpdateStock,
		resourceType: model.AuditResourceProduct,
		resourceID:   productID,
		before:       map[string]int64{"stock": before.Stock},
		after:        map[string]interface{}{"stock": newStock, "reason": reason},
	}); err != nil {
		return model.Product{}, internalError(u.logger, "write audit log", err, zap.Int64("product_id", productID))
	}
	return after, nil
}

func (u *ProductUsecase) invalidate(ctx context.Context, ids ...int64) {
	invalidateProducts(ctx, u.cache, u.logger, ids...)
}

// キャッシュ削除の失敗はログだけ。TTLで消える
func invalidateProducts(ctx context.Context, cache repo.ProductCache, logger *zap.Logger, ids ...int64) {
	if len(ids) == 0 {
		return
	}
	if err := cache.Invalidate(ctx, ids...); err != nil {
		logger.Warn("product cache invalidate failed", zap.Int64s("product_ids", ids), zap.Error(err))
	}
}

// 作成・更新の共通チェック。nilは「指定なし」
func validateProductFields(name, desc, category *string, price *decimal.Decimal, stock *int64) []FieldError {
	var fields []FieldError
	if name != nil && len([]rune(*name)) < 2 {
		fields = append(fields, FieldError{Field: "name", Message: "Product name must be at least 2 characters"})
	}
	if desc != nil && len([]rune(*desc)) < 10 {
		fields = append(fields, FieldError{Field: "description", Message: "Description must be at least 10 characters"})
	}
	if category != nil && !model.Category(*category).Valid() {
		fields = append(fields, FieldError{Field: "category", Message: "Invalid category"})
	}
	if price != nil && price.IsNegative() {
		fields = append(fields, FieldError{Field: "price", Message: "Price must be non-negative"})
	}
	if stock != nil && *stock < 0 {
		fields = append(fields, FieldError{Field: "stock", Message: "Stock must be non-negative"})
	}
	return fields
}
