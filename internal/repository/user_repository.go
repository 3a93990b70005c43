package repository

import (
	"context"
	"time"

	"marketplace/internal/domain/model"
)

type UserRepository interface {
	FindByID(ctx context.Context, id int64) (model.User, error)

	// スイープ用：最終ログインが古いユーザーを無効化し、件数を返す
	DeactivateDormantBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
