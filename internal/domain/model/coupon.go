package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Coupon はコード引きのパーセント割引。
type Coupon struct {
	Code            string          `gorm:"type:varchar(50);primaryKey" json:"code"`
	DiscountPercent decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"discount_percent"`
	IsActive        bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}
