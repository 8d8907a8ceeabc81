package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing, OrderStatusReady,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// 発送済み・配達済み・キャンセル済みは取り消せない
func (s OrderStatus) Cancellable() bool {
	switch s {
	case OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return false
	}
	return true
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodPaypal PaymentMethod = "paypal"
	PaymentMethodStripe PaymentMethod = "stripe"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodCash, PaymentMethodPaypal, PaymentMethodStripe:
		return true
	}
	return false
}

// 金額は作成時に一度だけ計算して以後変えない
type Order struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber string `gorm:"type:varchar(32);not null;uniqueIndex" json:"orderNumber"`
	UserID      int64  `gorm:"not null;index" json:"userId"`

	ShippingAddress Address `gorm:"embedded;embeddedPrefix:shipping_" json:"shippingAddress"`
	BillingAddress  Address `gorm:"embedded;embeddedPrefix:billing_" json:"billingAddress"`

	PaymentMethod PaymentMethod `gorm:"type:varchar(20);not null" json:"paymentMethod"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;index" json:"paymentStatus"`
	PaymentID     string        `gorm:"type:varchar(64)" json:"paymentId,omitempty"`

	Subtotal decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	Tax      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"tax"`
	Shipping decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"shipping"`
	Total    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`

	Status OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Notes  string      `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}
