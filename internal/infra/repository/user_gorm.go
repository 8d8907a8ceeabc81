package repository

import (
	"bakery/internal/domain/model"
	domainrepo "bakery/internal/repository"
	"context"
	"strings"

	"gorm.io/gorm"
)

type userGormRepository struct {
	db *gorm.DB
}

// DI
// main.goでこれをnewしてusecaseに注入します。
func NewUserGormRepository(db *gorm.DB) domainrepo.UserRepository {
	return &userGormRepository{db: db}
}

// Create はユーザーを新規作成
func (r *userGormRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicateKey(err) {
			return domainrepo.ErrDuplicate
		}
		return err
	}
	return nil
}

// emailでユーザーを1件取得
func (r *userGormRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User

	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error

	if err != nil {
		if isNotFound(err) {
			return nil, domainrepo.ErrNotFound
		}
		return nil, err
	}

	return &u, nil
}

// IDでユーザーを1件取得
func (r *userGormRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&u).Error

	if err != nil {
		if isNotFound(err) {
			return nil, domainrepo.ErrNotFound
		}
		return nil, err
	}

	return &u, nil
}

// ユーザーを更新。
func (r *userGormRepository) Update(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		if isDuplicateKey(err) {
			return domainrepo.ErrDuplicate
		}
		return err
	}
	return nil
}

// token_versionを+1 して新しい値を返します。
func (r *userGormRepository) IncrementTokenVersion(ctx context.Context, id int64) (int, error) {
	var newVersion int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.User{}).
			Where("id = ?", id).
			UpdateColumn("token_version", gorm.Expr("token_version + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		// 0件更新は「対象がない」
		if res.RowsAffected == 0 {
			return domainrepo.ErrNotFound
		}

		var u model.User
		if err := tx.Select("token_version").Where("id = ?", id).First(&u).Error; err != nil {
			return err
		}
		newVersion = u.TokenVersion
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newVersion, nil
}

// is_activeの切り替え
func (r *userGormRepository) SetActive(ctx context.Context, id int64, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainrepo.ErrNotFound
	}
	return nil
}

func (r *userGormRepository) AddLoyaltyPoints(ctx context.Context, id int64, points int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		UpdateColumn("loyalty_score", gorm.Expr("loyalty_score + ?", points))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainrepo.ErrNotFound
	}
	return nil
}

// 管理者向け一覧。name / email の部分一致
func (r *userGormRepository) List(ctx context.Context, q domainrepo.UserListQuery) ([]model.User, int64, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}

	tx := r.db.WithContext(ctx).Model(&model.User{})
	if q.Role != "" {
		tx = tx.Where("role = ?", q.Role)
	}
	if s := strings.TrimSpace(q.Q); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		tx = tx.Where("(LOWER(name) LIKE ? OR LOWER(email) LIKE ?)", like, like)
	}

	var total int64
	if err := tx.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return []model.User{}, 0, err
	}

	var users []model.User
	offset := (q.Page - 1) * q.Limit
	if err := tx.Order("created_at desc").Order("id desc").Offset(offset).Limit(q.Limit).Find(&users).Error; err != nil {
		return []model.User{}, 0, err
	}
	return users, total, nil
}

func (r *userGormRepository) CountByRole(ctx context.Context, role model.Role) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("role = ?", role).Count(&n).Error
	return n, err
}
