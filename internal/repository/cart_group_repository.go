package repository

import (
	"context"

	"marketplace/internal/domain/model"

	"github.com/shopspring/decimal"
)

type CartGroupRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartSupplierGroup, error)
	FindByCartAndSupplier(ctx context.Context, cartID int64, supplierID int64) (model.CartSupplierGroup, error)
	Create(ctx context.Context, g model.CartSupplierGroup) (model.CartSupplierGroup, error)

	// supplier_total への差分加算（負もあり得る）
	AddToTotal(ctx context.Context, groupID int64, delta decimal.Decimal) error

	DeleteByID(ctx context.Context, groupID int64) error
}
