package auth

import (
	"context"
	"errors"
	"strings"

	"bakery/internal/domain/model"
	"bakery/internal/repository"
)

type CreateAdminInput struct {
	Name     string
	Email    string
	Password string
}

// CreateAdminUsecaseはCLIから管理者を用意する。既存ユーザーなら昇格させる
type CreateAdminUsecase struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	clock    Clock
}

// DI
func NewCreateAdminUsecase(userRepo repository.UserRepository, hasher PasswordHasher, clock Clock) *CreateAdminUsecase {
	return &CreateAdminUsecase{userRepo: userRepo, hasher: hasher, clock: clock}
}

// created=false のときは既存ユーザーを昇格した
func (u *CreateAdminUsecase) Execute(ctx context.Context, in CreateAdminInput) (user model.User, created bool, err error) {
	email := normalizeEmail(in.Email)
	if !isValidEmailFormat(email) {
		return model.User{}, false, ErrInvalidEmailFormat
	}
	if len(in.Password) < minPasswordLength {
		return model.User{}, false, ErrPasswordTooShort
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = "Administrator"
	}

	hashed, err := u.hasher.Hash(in.Password)
	if err != nil {
		return model.User{}, false, err
	}
	now := u.clock.Now()

	existing, err := u.userRepo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		existing.Role = model.RoleAdmin
		existing.PasswordHash = hashed
		existing.IsActive = true
		existing.UpdatedAt = now
		if err := u.userRepo.Update(ctx, existing); err != nil {
			return model.User{}, false, err
		}
		return *existing, false, nil
	case !errors.Is(err, repository.ErrNotFound):
		return model.User{}, false, err
	}

	admin := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hashed,
		Role:         model.RoleAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := u.userRepo.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.User{}, false, ErrEmailAlreadyExists
		}
		return model.User{}, false, err
	}
	return *admin, true, nil
}
