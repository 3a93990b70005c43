package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem は凍結済みの注文明細。
// offer_id は参照として残るだけで、Offerが消えても明細は書き換えない。
type OrderItem struct {
	ID                  int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID             int64           `gorm:"not null;index" json:"order_id"`
	OfferID             int64           `gorm:"not null;index" json:"offer_id"`
	ProductID           int64           `gorm:"not null;index" json:"product_id"`
	SupplierID          int64           `gorm:"not null;index" json:"supplier_id"`
	ProductNameSnapshot string          `gorm:"type:varchar(255);not null" json:"product_name_snapshot"`
	UnitPriceSnapshot   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price_snapshot"`
	Quantity            int64           `gorm:"not null" json:"quantity"`
	CreatedAt           time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}
