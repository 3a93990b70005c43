package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

type OrderRepository interface {
	Create(ctx context.Context, order model.Order) (int64, error)
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	ListByIdentity(ctx context.Context, id Identity, page int, limit int) ([]model.Order, int64, error)
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error

	//検索（同じキーなら同じ結果を返す）
	FindByIdempotencyKey(ctx context.Context, id Identity, key string) (model.Order, bool, error)
}
