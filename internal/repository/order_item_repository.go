package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
}

type OrderGroupRepository interface {
	CreateBulk(ctx context.Context, orderID int64, groups []model.OrderSupplierGroup) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderSupplierGroup, error)
}
