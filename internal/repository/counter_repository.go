package repository

import "context"

// 連番の採番。行ロック付きインクリメントで、複数インスタンスでも重複しない。
type CounterRepository interface {
	NextValue(ctx context.Context, name string) (int64, error)
}
