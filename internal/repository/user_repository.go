package repository

import (
	"bakery/internal/domain/model"
	"context"
)

// 管理者のユーザー一覧
type UserListQuery struct {
	Page  int
	Limit int
	Q     string // name / email の部分一致
	Role  model.Role
}

// 保存・取得を約束。見つからないときは ErrNotFound
type UserRepository interface {
	//新規ユーザー作成（メール重複は ErrDuplicate）
	Create(ctx context.Context, user *model.User) error
	// IDからユーザーを1件取得する。
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	//メールからユーザーを一件取得する。
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// プロフィール・最終ログインなどの更新
	Update(ctx context.Context, user *model.User) error
	//トークンのバージョンを＋１
	IncrementTokenVersion(ctx context.Context, userID int64) (int, error)
	//有効/無効の切り替え
	SetActive(ctx context.Context, userID int64, active bool) error
	//ポイント加算
	AddLoyaltyPoints(ctx context.Context, userID int64, points int64) error

	List(ctx context.Context, q UserListQuery) ([]model.User, int64, error)
	CountByRole(ctx context.Context, role model.Role) (int64, error)
}
