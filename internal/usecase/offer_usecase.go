package usecase

import (
	"context"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"github.com/shopspring/decimal"
)

// OfferUsecase は出品（商品×サプライヤー）の在庫台帳。
// 価格・在庫の変更は、そのOfferを参照している「開いているカート」へ同一トランザクション内で波及させる。
// 注文（凍結済み）には決して触らない。
type OfferUsecase struct {
	tx repo.TransactionManager
}

func NewOfferUsecase(tx repo.TransactionManager) *OfferUsecase {
	return &OfferUsecase{tx: tx}
}

type CreateOfferInput struct {
	ProductID  int64
	SupplierID int64
	Price      decimal.Decimal
	Quantity   int64

	// 一括取り込み用：行ごとの集計再計算を抑止し、呼び出し側が最後に一度だけ再計算する
	SkipAggregate bool
}

// CreateOffer は出品作成。同じ (product, supplier) が既にあれば既存をそのまま返す（冪等、上書きしない）。
func (u *OfferUsecase) CreateOffer(ctx context.Context, in CreateOfferInput) (model.Offer, error) {
	if in.ProductID <= 0 || in.SupplierID <= 0 {
		return model.Offer{}, NewValidationError("invalid product or supplier id")
	}
	if in.Price.IsNegative() || in.Price.IsZero() {
		return model.Offer{}, NewValidationError("invalid price")
	}
	if in.Quantity < 0 {
		return model.Offer{}, NewValidationError("invalid quantity")
	}

	var out model.Offer
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Products().FindByID(ctx, in.ProductID); err == repo.ErrNotFound {
			return NewNotFoundError("product")
		} else if err != nil {
			return err
		}
		if _, err := r.Suppliers().FindByID(ctx, in.SupplierID); err == repo.ErrNotFound {
			return NewNotFoundError("supplier")
		} else if err != nil {
			return err
		}

		existing, err := r.Offers().FindByPair(ctx, in.ProductID, in.SupplierID)
		if err == nil {
			out = existing
			return nil
		}
		if err != repo.ErrNotFound {
			return err
		}

		created, err := r.Offers().Create(ctx, model.Offer{
			ProductID:  in.ProductID,
			SupplierID: in.SupplierID,
			Price:      in.Price,
			Quantity:   in.Quantity,
			Status:     model.StatusFor(in.Quantity),
		})
		if err != nil {
			// 同時作成の一意制約競合はもう一度探して既存を返す
			retry, retryErr := r.Offers().FindByPair(ctx, in.ProductID, in.SupplierID)
			if retryErr == nil {
				out = retry
				return nil
			}
			return err
		}
		out = created

		if in.SkipAggregate {
			return nil
		}
		return r.Offers().RecomputeProductAggregate(ctx, in.ProductID)
	})
	if err != nil {
		return model.Offer{}, err
	}
	return out, nil
}

// SetPrice は価格変更。開いているカートの該当明細の price_at_order_time を
// 新価格に同期し、subtotal・グループ小計・合計を差分で直す（クーポン考慮）。
func (u *OfferUsecase) SetPrice(ctx context.Context, offerID int64, price decimal.Decimal) error {
	if offerID <= 0 {
		return NewValidationError("invalid offer id")
	}
	if price.IsNegative() || price.IsZero() {
		return NewValidationError("invalid price")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		offer, err := r.Offers().FindByIDForUpdate(ctx, offerID)
		if err == repo.ErrNotFound {
			return NewNotFoundError("offer")
		}
		if err != nil {
			return err
		}

		if err := r.Offers().UpdatePrice(ctx, offerID, price); err != nil {
			return err
		}

		items, err := r.CartItems().ListOpenByOfferID(ctx, offerID)
		if err != nil {
			return err
		}
		for _, item := range items {
			cart, err := r.Carts().FindByIDForUpdate(ctx, item.CartID)
			if err != nil {
				return err
			}

			qty := decimal.NewFromInt(item.Quantity)
			delta := price.Sub(item.PriceAtOrderTime).Mul(qty)

			if err := r.CartItems().UpdatePriceSnapshot(ctx, item.ID, price); err != nil {
				return err
			}
			if err := r.CartGroups().AddToTotal(ctx, item.GroupID, delta); err != nil {
				return err
			}

			cart.Subtotal = cart.Subtotal.Add(cart.DiscountedAmount(delta))
			recalcTotal(&cart)
			if err := r.Carts().Save(ctx, cart); err != nil {
				return err
			}
		}

		return r.Offers().RecomputeProductAggregate(ctx, offer.ProductID)
	})
}

// SetQuantity は在庫数の設定。新しい在庫数を超えている開きカートの明細は
// 黙って上限まで切り詰める（カートは予約ではなくベストエフォート）。
// 在庫0は明細に触らず、チェックアウトの検証で弾かせる。
func (u *OfferUsecase) SetQuantity(ctx context.Context, adminUserID int64, offerID int64, quantity int64, reason string) error {
	if offerID <= 0 {
		return NewValidationError("invalid offer id")
	}
	if quantity < 0 {
		return NewValidationError("invalid quantity")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		offer, err := r.Offers().FindByIDForUpdate(ctx, offerID)
		if err == repo.ErrNotFound {
			return NewNotFoundError("offer")
		}
		if err != nil {
			return err
		}

		if err := r.Offers().UpdateQuantity(ctx, offerID, quantity); err != nil {
			return err
		}

		if quantity > 0 {
			items, err := r.CartItems().ListOpenByOfferID(ctx, offerID)
			if err != nil {
				return err
			}
			for _, item := range items {
				if item.Quantity <= quantity {
					continue
				}
				cart, err := r.Carts().FindByIDForUpdate(ctx, item.CartID)
				if err != nil {
					return err
				}

				removed := decimal.NewFromInt(item.Quantity - quantity)
				delta := item.PriceAtOrderTime.Mul(removed).Neg()

				if err := r.CartItems().UpdateQuantity(ctx, item.ID, quantity); err != nil {
					return err
				}
				if err := r.CartGroups().AddToTotal(ctx, item.GroupID, delta); err != nil {
					return err
				}

				cart.Subtotal = cart.Subtotal.Add(cart.DiscountedAmount(delta))
				recalcTotal(&cart)
				if err := r.Carts().Save(ctx, cart); err != nil {
					return err
				}
			}
		}

		if err := r.Adjustments().Create(ctx, model.OfferAdjustment{
			OfferID:     offerID,
			AdminUserID: adminUserID,
			Delta:       quantity - offer.Quantity,
			Reason:      reason,
		}); err != nil {
			return err
		}

		return r.Offers().RecomputeProductAggregate(ctx, offer.ProductID)
	})
}

// RemoveOffer は出品の削除。参照している開きカートの明細をすべて外し、
// subtotal修正・空グループ削除まで含めて1トランザクションで行う。
// 注文の明細（凍結済み）には触らない。
// skipAggregate は商品ごと消す直前の呼び出し用（無駄な再計算を省く）。
func (u *OfferUsecase) RemoveOffer(ctx context.Context, productID int64, supplierID int64, skipAggregate bool) error {
	if productID <= 0 || supplierID <= 0 {
		return NewValidationError("invalid product or supplier id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		offer, err := r.Offers().FindByPair(ctx, productID, supplierID)
		if err == repo.ErrNotFound {
			return NewNotFoundError("offer")
		}
		if err != nil {
			return err
		}

		items, err := r.CartItems().ListOpenByOfferID(ctx, offer.ID)
		if err != nil {
			return err
		}
		for _, item := range items {
			cart, err := r.Carts().FindByIDForUpdate(ctx, item.CartID)
			if err != nil {
				return err
			}
			if err := removeLineFromCart(ctx, r, &cart, item); err != nil {
				return err
			}
		}

		if err := r.Offers().DeleteByID(ctx, offer.ID); err != nil {
			return err
		}

		if skipAggregate {
			return nil
		}
		return r.Offers().RecomputeProductAggregate(ctx, productID)
	})
}

// ListAdjustments はOfferの調整履歴。
func (u *OfferUsecase) ListAdjustments(ctx context.Context, offerID int64) ([]model.OfferAdjustment, error) {
	if offerID <= 0 {
		return nil, NewValidationError("invalid offer id")
	}

	var out []model.OfferAdjustment
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Offers().FindByID(ctx, offerID); err == repo.ErrNotFound {
			return NewNotFoundError("offer")
		} else if err != nil {
			return err
		}
		var err error
		out, err = r.Adjustments().ListByOfferID(ctx, offerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
