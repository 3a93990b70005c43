package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OfferStatus string

const (
	OfferStatusAvailable  OfferStatus = "AVAILABLE"
	OfferStatusOutOfStock OfferStatus = "OUT_OF_STOCK"
)

// Offer は「ある商品に対するあるサプライヤーの出品」。
// (product_id, supplier_id) の組で一意。
// 不変条件: status == OUT_OF_STOCK ⟺ quantity == 0
type Offer struct {
	ID         int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID  int64           `gorm:"not null;index;uniqueIndex:idx_offers_product_supplier" json:"product_id"`
	SupplierID int64           `gorm:"not null;index;uniqueIndex:idx_offers_product_supplier" json:"supplier_id"`
	Price      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Quantity   int64           `gorm:"not null" json:"quantity"`
	Status     OfferStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt  time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// StatusFor は在庫数に対応するステータスを返す。
func StatusFor(quantity int64) OfferStatus {
	if quantity <= 0 {
		return OfferStatusOutOfStock
	}
	return OfferStatusAvailable
}
