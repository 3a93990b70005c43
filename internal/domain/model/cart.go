package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type CartStatus string

const (
	CartStatusActive     CartStatus = "ACTIVE"
	CartStatusCheckedOut CartStatus = "CHECKED_OUT"
)

type PaymentMethod string

const (
	PaymentMethodCard PaymentMethod = "CARD"
	PaymentMethodCOD  PaymentMethod = "COD"
)

// Cart は user_id か guest_token のどちらか一方だけを持つ（作成時に強制）。
// 1アイデンティティにつきACTIVEは1つ。部分一意インデックスでDB側でも強制し、
// 同時作成はどちらか一方だけが通る。
// subtotal は明細の増減で差分更新する。クーポン適用後の増減はすべて割引率を掛けた額で反映する。
type Cart struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     *int64     `gorm:"index;index:idx_carts_active_user,unique,where:status = 'ACTIVE'" json:"user_id,omitempty"`
	GuestToken *string    `gorm:"type:varchar(64);index;index:idx_carts_active_guest,unique,where:status = 'ACTIVE'" json:"guest_token,omitempty"`
	Status     CartStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	Subtotal     decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"subtotal"`
	ShippingCost decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"shipping_cost"`
	TotalAmount  decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"total_amount"`

	// クーポンは1カート1枚。discountは％で保持し、適用後の追加分にも同率を掛ける。
	CouponCode     *string         `gorm:"type:varchar(50)" json:"coupon_code,omitempty"`
	CouponDiscount decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"coupon_discount"`

	PaymentMethod PaymentMethod `gorm:"type:varchar(20)" json:"payment_method,omitempty"`
	VatNumber     string        `gorm:"type:varchar(50)" json:"vat_number,omitempty"`
	ContactName   string        `gorm:"type:varchar(255)" json:"contact_name,omitempty"`
	ContactEmail  string        `gorm:"type:varchar(255)" json:"contact_email,omitempty"`
	ContactPhone  string        `gorm:"type:varchar(30)" json:"contact_phone,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// HasCoupon はクーポン適用済みかどうか。
func (c *Cart) HasCoupon() bool {
	return c.CouponCode != nil && *c.CouponCode != ""
}

// DiscountedAmount は金額にクーポン割引を掛けた値を返す。
// 未適用ならそのまま返す。
func (c *Cart) DiscountedAmount(amount decimal.Decimal) decimal.Decimal {
	if !c.HasCoupon() {
		return amount
	}
	rate := decimal.NewFromInt(100).Sub(c.CouponDiscount).Div(decimal.NewFromInt(100))
	return amount.Mul(rate)
}
