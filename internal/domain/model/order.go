package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusOrdered   OrderStatus = "ORDERED"
	OrderStatusReviewed  OrderStatus = "REVIEWED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCanceled  OrderStatus = "CANCELED"
)

// Order はチェックアウト成功時点のカートの凍結スナップショット。
// 以降、金額・明細をOfferの現在値から再計算することは無い。
type Order struct {
	ID        int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderCode string  `gorm:"type:varchar(30);not null;uniqueIndex" json:"order_code"`
	UserID    *int64  `gorm:"index" json:"user_id,omitempty"`
	GuestToken *string `gorm:"type:varchar(64)" json:"guest_token,omitempty"`

	Status OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	Subtotal        decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"subtotal"`
	ShippingCost    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"shipping_cost"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"total_amount"`
	TotalCommission decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"total_commission"`

	CouponCode     *string         `gorm:"type:varchar(50)" json:"coupon_code,omitempty"`
	CouponDiscount decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"coupon_discount"`

	PaymentMethod PaymentMethod `gorm:"type:varchar(20)" json:"payment_method,omitempty"`
	VatNumber     string        `gorm:"type:varchar(50)" json:"vat_number,omitempty"`
	ContactName   string        `gorm:"type:varchar(255)" json:"contact_name,omitempty"`
	ContactEmail  string        `gorm:"type:varchar(255)" json:"contact_email,omitempty"`
	ContactPhone  string        `gorm:"type:varchar(30)" json:"contact_phone,omitempty"`

	IdempotencyKey string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"-"`
	OrderDate      time.Time `gorm:"not null;index" json:"order_date"`
	CreatedAt      time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
