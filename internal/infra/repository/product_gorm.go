package repository

import (
	"context"
	"strings"

	"bakery/internal/domain/model"
	repo "bakery/internal/repository"

	"gorm.io/gorm"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// 並び替えに使える列（クエリの値 -> カラム名）
var productSortColumns = map[string]string{
	"name":      "name",
	"price":     "price",
	"rating":    "rating_average",
	"createdAt": "created_at",
}

// 検索/カテゴリ/価格帯/ソート/ページング付きで返す。
func (r *ProductGormRepository) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	tx := r.db.WithContext(ctx).Model(&model.Product{})

	// 公開一覧は販売中のみ
	if q.OnlyAvailable {
		tx = tx.Where("is_available = ?", true)
	}

	if q.Category != "" {
		tx = tx.Where("category = ?", q.Category)
	}

	// q name/descriptionを対象。postgres/mysql両方で動くようにLOWERで比較
	if s := strings.TrimSpace(q.Q); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		tx = tx.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", like, like)
	}

	//価格帯
	if q.MinPrice != nil {
		tx = tx.Where("price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		tx = tx.Where("price <= ?", *q.MaxPrice)
	}

	if q.Featured != nil {
		tx = tx.Where("featured = ?", *q.Featured)
	}

	//total（件数）
	if err := tx.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return []model.Product{}, 0, err
	}

	//sort
	col, ok := productSortColumns[q.Sort]
	if !ok {
		col = "created_at"
	}
	dir := "desc"
	if q.Order == "asc" {
		dir = "asc"
	}
	tx = tx.Order(col + " " + dir).Order("id " + dir)

	if q.Limit > 0 {
		page := q.Page
		if page <= 0 {
			page = 1
		}
		tx = tx.Offset((page - 1) * q.Limit).Limit(q.Limit)
	}
	if err := tx.Find(&products).Error; err != nil {
		return []model.Product{}, 0, err
	}

	return products, total, nil
}

// IDで商品を取得
func (r *ProductGormRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).First(&p, id).Error
	if isNotFound(err) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// 商品の作成
func (r *ProductGormRepository) Create(ctx context.Context, p model.Product) (model.Product, error) {
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// 商品の部分更新。渡された列だけ書くので在庫の減算とぶつからない
func (r *ProductGormRepository) Update(ctx context.Context, id int64, ch repo.ProductChanges) error {
	cols := map[string]interface{}{}
	if ch.Name != nil {
		cols["name"] = *ch.Name
	}
	if ch.Description != nil {
		cols["description"] = *ch.Description
	}
	if ch.Category != nil {
		cols["category"] = *ch.Category
	}
	if ch.Price != nil {
		cols["price"] = *ch.Price
	}
	if ch.IsAvailable != nil {
		cols["is_available"] = *ch.IsAvailable
	}
	if ch.ImageURL != nil {
		cols["image_url"] = *ch.ImageURL
	}
	if ch.Featured != nil {
		cols["featured"] = *ch.Featured
	}
	if !ch.UpdatedAt.IsZero() {
		cols["updated_at"] = ch.UpdatedAt
	}
	if len(cols) == 0 {
		return nil
	}

	res := r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 商品削除（論理削除）
func (r *ProductGormRepository) SoftDelete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ProductGormRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).Count(&n).Error
	return n, err
}

// 在庫が threshold 以下の商品
func (r *ProductGormRepository) ListLowStock(ctx context.Context, threshold int64) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("stock <= ?", threshold).
		Order("stock asc").Order("id asc").
		Find(&products).Error
	if err != nil {
		return []model.Product{}, err
	}
	return products, nil
}
