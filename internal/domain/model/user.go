package model

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string  `gorm:"type:varchar(255);not null" json:"name"`
	Email        string  `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string  `gorm:"column:password_hash;not null" json:"-"`
	Role         Role    `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	TokenVersion int     `gorm:"not null;default:0" json:"-"`
	IsActive     bool    `gorm:"not null;default:true" json:"isActive"`
	Phone        string  `gorm:"type:varchar(30)" json:"phone"`
	Address      Address `gorm:"embedded;embeddedPrefix:address_" json:"address"`

	//注文ごとに floor(total/10) 加算
	LoyaltyScore int64 `gorm:"not null;default:0" json:"loyaltyScore"`

	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
