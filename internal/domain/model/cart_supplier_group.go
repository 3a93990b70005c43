package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartSupplierGroup は同一サプライヤーの明細をまとめる行。
// 明細が1件以上あるサプライヤーにだけ存在し、空になった瞬間に削除する。
// supplier_total はクーポン適用前の素の合計（Σ price_at_order_time × quantity）。
type CartSupplierGroup struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID        int64           `gorm:"not null;index;uniqueIndex:idx_cart_groups_cart_supplier" json:"cart_id"`
	SupplierID    int64           `gorm:"not null;uniqueIndex:idx_cart_groups_cart_supplier" json:"supplier_id"`
	SupplierTotal decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"supplier_total"`
	CreatedAt     time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
