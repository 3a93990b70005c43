package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem はカートの明細。
// price_at_order_time は追加時点のOffer価格のスナップショット。
// 出品者が価格を変えても明示的な価格同期（SetPrice のカスケード）以外では動かない。
// supplier_id はOffer経由の値を持たせておく（Offer削除カスケード中でもグループを辿れるように）。
type CartItem struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID           int64           `gorm:"not null;index;uniqueIndex:idx_cart_items_cart_offer" json:"cart_id"`
	GroupID          int64           `gorm:"not null;index" json:"group_id"`
	OfferID          int64           `gorm:"not null;index;uniqueIndex:idx_cart_items_cart_offer" json:"offer_id"`
	ProductID        int64           `gorm:"not null;index" json:"product_id"`
	SupplierID       int64           `gorm:"not null;index" json:"supplier_id"`
	Quantity         int64           `gorm:"not null" json:"quantity"`
	PriceAtOrderTime decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price_at_order_time"`
	CreatedAt        time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// LineTotal は明細の素の小計（クーポン適用前）。
func (i *CartItem) LineTotal() decimal.Decimal {
	return i.PriceAtOrderTime.Mul(decimal.NewFromInt(i.Quantity))
}
