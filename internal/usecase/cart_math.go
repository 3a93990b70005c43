package usecase

import (
	"context"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"github.com/shopspring/decimal"
)

// プラットフォーム手数料はサプライヤー小計の10%。チェックアウトで一度だけ計算する。
var commissionRate = decimal.NewFromFloat(0.10)

// 代引きの固定手数料
var codFee = decimal.RequireFromString("5.00")

// total_amount = subtotal + shipping_cost (+ 代引き手数料)
func recalcTotal(cart *model.Cart) {
	total := cart.Subtotal.Add(cart.ShippingCost)
	if cart.PaymentMethod == model.PaymentMethodCOD {
		total = total.Add(codFee)
	}
	cart.TotalAmount = total
}

// 明細1件をカートから外すときの副作用一式。
// subtotal減算（クーポン考慮）→明細削除→空グループの削除→カートが空なら送料リセット→保存。
// Offer削除カスケードとRemoveItemの両方から使う。
func removeLineFromCart(ctx context.Context, r repo.TxRepos, cart *model.Cart, item model.CartItem) error {
	delta := item.LineTotal().Neg()

	cart.Subtotal = cart.Subtotal.Add(cart.DiscountedAmount(delta))

	if err := r.CartGroups().AddToTotal(ctx, item.GroupID, delta); err != nil {
		return err
	}
	if err := r.CartItems().DeleteByID(ctx, item.ID); err != nil {
		return err
	}

	// グループが空になったら即削除
	left, err := r.CartItems().CountByGroupID(ctx, item.GroupID)
	if err != nil {
		return err
	}
	if left == 0 {
		if err := r.CartGroups().DeleteByID(ctx, item.GroupID); err != nil {
			return err
		}
	}

	// カート全体が空になったら送料は意味を失うのでリセット
	total, err := r.CartItems().CountByCartID(ctx, cart.ID)
	if err != nil {
		return err
	}
	if total == 0 {
		cart.ShippingCost = decimal.Zero
		cart.Subtotal = decimal.Zero
	}

	recalcTotal(cart)
	return r.Carts().Save(ctx, *cart)
}
