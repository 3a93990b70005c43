package repository

import (
	"context"
	"errors"

	"marketplace/internal/domain/model"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("not found")

	// 一意制約違反。呼び出し側は「同時に同じものが作られた」として扱う。
	ErrDuplicateKey = errors.New("duplicate key")
)

// Offer（商品×サプライヤーの出品）の永続化。
// 在庫の減算は必ず条件付きUPDATE（足りるときだけ減る）で行う。
type OfferRepository interface {
	Create(ctx context.Context, o model.Offer) (model.Offer, error)
	FindByID(ctx context.Context, id int64) (model.Offer, error)
	FindByIDForUpdate(ctx context.Context, id int64) (model.Offer, error)
	FindByPair(ctx context.Context, productID int64, supplierID int64) (model.Offer, error)
	ListByProductID(ctx context.Context, productID int64) ([]model.Offer, error)

	UpdatePrice(ctx context.Context, offerID int64, price decimal.Decimal) error
	// quantityとstatusを同時に更新（status==OUT_OF_STOCK ⟺ quantity==0 を崩さない）
	UpdateQuantity(ctx context.Context, offerID int64, quantity int64) error

	// 在庫が足りるときだけ減算し、0になったらOUT_OF_STOCKへ
	DecreaseStockIfEnough(ctx context.Context, offerID int64, qty int64) (bool, error)

	// 在庫戻し（注文キャンセル）
	IncreaseStock(ctx context.Context, offerID int64, qty int64) error

	DeleteByID(ctx context.Context, offerID int64) error

	// productの派生値（price=有効Offerの最安値, stock=在庫合計）を再計算して書き戻す
	RecomputeProductAggregate(ctx context.Context, productID int64) error
}
