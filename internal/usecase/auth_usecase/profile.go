package auth

import (
	"context"
	"errors"
	"strings"

	"bakery/internal/domain/model"
	"bakery/internal/repository"
)

var ErrUserNotFound = errors.New("user not found")

// プロフィール更新の入力。nilの項目は変更しない
type UpdateProfileInput struct {
	Name    *string
	Phone   *string
	Address *model.Address
}

type ProfileUsecase struct {
	userRepo repository.UserRepository
	clock    Clock
}

// DI
func NewProfileUsecase(userRepo repository.UserRepository, clock Clock) *ProfileUsecase {
	return &ProfileUsecase{userRepo: userRepo, clock: clock}
}

// ログイン中のユーザー
func (u *ProfileUsecase) Me(ctx context.Context, userID int64) (model.User, error) {
	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, err
	}
	return *user, nil
}

// 名前・電話・住所の更新。email / role / パスワードはここでは変えない
func (u *ProfileUsecase) UpdateProfile(ctx context.Context, userID int64, in UpdateProfileInput) (model.User, error) {
	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if len([]rune(name)) < 2 {
			return model.User{}, ErrNameTooShort
		}
		user.Name = name
	}
	if in.Phone != nil {
		user.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Address != nil {
		user.Address = *in.Address
	}
	user.UpdatedAt = u.clock.Now()

	if err := u.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, err
	}
	return *user, nil
}
