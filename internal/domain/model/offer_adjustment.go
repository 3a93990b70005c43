package model

import "time"

// Offerの在庫・価格変更の履歴

type OfferAdjustment struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OfferID     int64     `gorm:"not null;index" json:"offer_id"`
	AdminUserID int64     `gorm:"not null;index" json:"admin_user_id"`
	Delta       int64     `gorm:"not null" json:"delta"`
	Reason      string    `gorm:"type:varchar(255);not null" json:"reason"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
