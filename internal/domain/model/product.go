package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Category string

const (
	CategoryBakery     Category = "bakery"
	CategoryCookies    Category = "cookies"
	CategoryCroissants Category = "croissants"
	CategoryBread      Category = "bread"
	CategoryPastries   Category = "pastries"
)

// 閉じた列挙以外は受け付けない
func (c Category) Valid() bool {
	switch c {
	case CategoryBakery, CategoryCookies, CategoryCroissants, CategoryBread, CategoryPastries:
		return true
	}
	return false
}

type Product struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Category    Category        `gorm:"type:varchar(30);not null;index" json:"category"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Stock       int64           `gorm:"not null" json:"stock"`
	IsAvailable bool            `gorm:"not null;index" json:"isAvailable"`
	ImageURL    string          `gorm:"type:varchar(512)" json:"imageUrl"`
	Featured    bool            `gorm:"not null;index" json:"featured"`

	//レビュー集計（並び替えに使う）
	RatingAverage float64 `gorm:"not null" json:"ratingAverage"`
	RatingCount   int64   `gorm:"not null" json:"ratingCount"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// 在庫がこの数以下なら管理画面で警告
const LowStockThreshold int64 = 10
