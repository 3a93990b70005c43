package model

import "time"

// 認証・セッションは外部の仕事。コアが触るのは
// ゲストカートの引き継ぎ先、通知の宛先、休眠スイープの対象としてのユーザーだけ。
type User struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Email       string `gorm:"uniqueIndex;not null"`
	IsActive    bool   `gorm:"not null;default:true"`
	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
