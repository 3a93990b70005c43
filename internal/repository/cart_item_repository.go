package repository

import (
	"context"

	"marketplace/internal/domain/model"

	"github.com/shopspring/decimal"
)

type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	FindByID(ctx context.Context, itemID int64) (model.CartItem, error)
	FindByCartAndOffer(ctx context.Context, cartID int64, offerID int64) (model.CartItem, error)

	Create(ctx context.Context, item model.CartItem) (model.CartItem, error)
	UpdateQuantity(ctx context.Context, itemID int64, qty int64) error
	UpdatePriceSnapshot(ctx context.Context, itemID int64, price decimal.Decimal) error
	DeleteByID(ctx context.Context, itemID int64) error

	// ACTIVEカートに属する、あるOfferを参照する明細すべて（価格同期・クランプ・削除カスケード用）
	ListOpenByOfferID(ctx context.Context, offerID int64) ([]model.CartItem, error)

	CountByGroupID(ctx context.Context, groupID int64) (int64, error)
	CountByCartID(ctx context.Context, cartID int64) (int64, error)
}
