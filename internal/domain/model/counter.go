package model

// Counter は注文コードの連番。行ロック付きのインクリメントで採番する。
// プロセス内カウンタにしないこと（複数インスタンスで重複する）。
type Counter struct {
	Name  string `gorm:"type:varchar(50);primaryKey"`
	Value int64  `gorm:"not null"`
}

const CounterOrderCode = "order_code"
