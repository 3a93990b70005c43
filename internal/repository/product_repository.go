package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

// 商品カタログのCRUDは外部。コアは参照とスナップショット取得だけ。
type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (model.Product, error)
}

type SupplierRepository interface {
	FindByID(ctx context.Context, id int64) (model.Supplier, error)
	FindByIDs(ctx context.Context, ids []int64) ([]model.Supplier, error)
}
