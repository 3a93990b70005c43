package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSupplierGroup は注文確定時点のサプライヤー別集計。
// commission はチェックアウトで一度だけ計算して保存し、以後再計算しない。
type OrderSupplierGroup struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID       int64           `gorm:"not null;index" json:"order_id"`
	SupplierID    int64           `gorm:"not null;index" json:"supplier_id"`
	SupplierTotal decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"supplier_total"`
	Commission    decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"commission"`
	CreatedAt     time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}
