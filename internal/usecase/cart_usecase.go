package usecase

import (
	"context"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"github.com/lithammer/shortuuid/v4"
	"github.com/shopspring/decimal"
)

// CartUsecase は /cart の業務ロジック。
// 変更系はすべてトランザクション内でカート行をロックしてから行う
// （subtotalを差分更新しているので、同一カートへの並行リクエストは直列化が必須）。
type CartUsecase struct {
	tx repo.TransactionManager
}

func NewCartUsecase(tx repo.TransactionManager) *CartUsecase {
	return &CartUsecase{tx: tx}
}

// 金額はすべて表示時にだけ2桁へ丸める（内部は丸めない）。
type CartLineResponse struct {
	ID         int64  `json:"id"`
	OfferID    int64  `json:"offer_id"`
	ProductID  int64  `json:"product_id"`
	Name       string `json:"name"`
	SupplierID int64  `json:"supplier_id"`
	Quantity   int64  `json:"quantity"`
	Price      string `json:"price_at_order_time"`
}

type CartGroupResponse struct {
	SupplierID    int64              `json:"supplier_id"`
	SupplierName  string             `json:"supplier_name"`
	SupplierTotal string             `json:"supplier_total"`
	Items         []CartLineResponse `json:"products"`
}

type CartResponse struct {
	ID             int64               `json:"id"`
	Groups         []CartGroupResponse `json:"grouped_products"`
	Subtotal       string              `json:"subtotal"`
	ShippingCost   string              `json:"shipping_cost"`
	TotalAmount    string              `json:"total_amount"`
	CouponCode     string              `json:"coupon_code,omitempty"`
	CouponDiscount string              `json:"coupon_discount,omitempty"`
}

type AddItemInput struct {
	OfferID  int64
	Quantity int64
}

type UpdateItemInput struct {
	Quantity int64
}

type ContactInput struct {
	Name  string
	Email string
	Phone string
}

// GetCart はカート取得（無ければACTIVEを作って空を返す）。
func (u *CartUsecase) GetCart(ctx context.Context, id repo.Identity) (CartResponse, error) {
	if id.IsEmpty() {
		return CartResponse{}, &UnauthorizedError{}
	}

	var out CartResponse
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().GetOrCreateActiveByIdentity(ctx, id)
		if err != nil {
			return err
		}
		out, err = buildCartResponse(ctx, r, cart)
		return err
	})
	if err != nil {
		return CartResponse{}, err
	}
	return out, nil
}

// AddItem はカートに追加（同一Offerは数量加算）。
// 追加分のsubtotal反映は、クーポン適用済みなら割引率を掛けた額で行う。
func (u *CartUsecase) AddItem(ctx context.Context, id repo.Identity, in AddItemInput) (CartResponse, error) {
	if id.IsEmpty() {
		return CartResponse{}, &UnauthorizedError{}
	}
	if in.OfferID <= 0 {
		return CartResponse{}, NewValidationError("invalid offer_id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, NewValidationError("invalid quantity")
	}

	var out CartResponse
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().GetOrCreateActiveByIdentity(ctx, id)
		if err != nil {
			return err
		}
		cart, err = r.Carts().FindByIDForUpdate(ctx, cart.ID)
		if err != nil {
			return err
		}

		offer, err := r.Offers().FindByID(ctx, in.OfferID)
		if err == repo.ErrNotFound {
			return NewNotFoundError("offer")
		}
		if err != nil {
			return err
		}

		// 既存明細があれば合算した数量で在庫チェック
		existing, err := r.CartItems().FindByCartAndOffer(ctx, cart.ID, in.OfferID)
		hasExisting := err == nil
		if err != nil && err != repo.ErrNotFound {
			return err
		}

		requested := in.Quantity
		if hasExisting {
			requested += existing.Quantity
		}
		if requested > offer.Quantity {
			return &InsufficientStockError{OfferID: offer.ID, Requested: requested, Available: offer.Quantity}
		}

		var delta decimal.Decimal
		if hasExisting {
			// 増分は元の追加時点のスナップショット価格で計上する（買い物中に価格が滑らないように）
			delta = existing.PriceAtOrderTime.Mul(decimal.NewFromInt(in.Quantity))
			if err := r.CartItems().UpdateQuantity(ctx, existing.ID, existing.Quantity+in.Quantity); err != nil {
				return err
			}
			if err := r.CartGroups().AddToTotal(ctx, existing.GroupID, delta); err != nil {
				return err
			}
		} else {
			group, err := ensureGroup(ctx, r, cart.ID, offer.SupplierID)
			if err != nil {
				return err
			}

			delta = offer.Price.Mul(decimal.NewFromInt(in.Quantity))
			if _, err := r.CartItems().Create(ctx, model.CartItem{
				CartID:           cart.ID,
				GroupID:          group.ID,
				OfferID:          offer.ID,
				ProductID:        offer.ProductID,
				SupplierID:       offer.SupplierID,
				Quantity:         in.Quantity,
				PriceAtOrderTime: offer.Price,
			}); err != nil {
				return err
			}
			if err := r.CartGroups().AddToTotal(ctx, group.ID, delta); err != nil {
				return err
			}
		}

		cart.Subtotal = cart.Subtotal.Add(cart.DiscountedAmount(delta))
		recalcTotal(&cart)
		if err := r.Carts().Save(ctx, cart); err != nil {
			return err
		}

		out, err = buildCartResponse(ctx, r, cart)
		return err
	})
	if err != nil {
		return CartResponse{}, err
	}
	return out, nil
}

// UpdateItem は数量変更（所有チェック＋在庫チェック）。
// 差分は元のスナップショット価格で計上する。
func (u *CartUsecase) UpdateItem(ctx context.Context, id repo.Identity, itemID int64, in UpdateItemInput) (CartResponse, error) {
	if id.IsEmpty() {
		return CartResponse{}, &UnauthorizedError{}
	}
	if itemID <= 0 {
		return CartResponse{}, NewValidationError("invalid id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, NewValidationError("invalid quantity")
	}

	var out CartResponse
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, item, err := findOwnedLine(ctx, r, id, itemID)
		if err != nil {
			return err
		}

		offer, err := r.Offers().FindByID(ctx, item.OfferID)
		if err == repo.ErrNotFound {
			return NewNotFoundError("offer")
		}
		if err != nil {
			return err
		}
		if in.Quantity > offer.Quantity {
			return &InsufficientStockError{OfferID: offer.ID, Requested: in.Quantity, Available: offer.Quantity}
		}

		delta := item.PriceAtOrderTime.Mul(decimal.NewFromInt(in.Quantity - item.Quantity))
		if err := r.CartItems().UpdateQuantity(ctx, item.ID, in.Quantity); err != nil {
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

		out, err = buildCartResponse(ctx, r, cart)
		return err
	})
	if err != nil {
		return CartResponse{}, err
	}
	return out, nil
}

// RemoveItem は明細削除。空になったグループは即消す。
func (u *CartUsecase) RemoveItem(ctx context.Context, id repo.Identity, itemID int64) (CartResponse, error) {
	if id.IsEmpty() {
		return CartResponse{}, &UnauthorizedError{}
	}
	if itemID <= 0 {
		return CartResponse{}, NewValidationError("invalid id")
	}

	var out CartResponse
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, item, err := findOwnedLine(ctx, r, id, itemID)
		if err != nil {
			return err
		}

		if err := removeLineFromCart(ctx, r, &cart, item); err != nil {
			return err
		}

		out, err = buildCartResponse(ctx, r, cart)
		return err
	})
	if err != nil {
		return CartResponse{}, err
	}
	return out, nil
}

// ApplyCoupon はクーポン適用。1カート1枚、重ね掛け不可。
// 割引は適用時点のsubtotalへ一度だけ反映し、率は以降の追加分のために保持する。
// （適用→追加 と 追加→適用 で合計が変わるのは既存仕様どおり）
func (u *CartUsecase) ApplyCoupon(ctx context.Context, id repo.Identity, code string) (CartResponse, error) {
	if id.IsEmpty() {
		return CartResponse{}, &UnauthorizedError{}
	}
	if code == "" {
		return CartResponse{}, NewValidationError("invalid coupon code")
	}

	var out CartResponse
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := lockActiveCart(ctx, r, id)
		if err != nil {
			return err
		}
		if cart.HasCoupon() {
			return NewValidationError("coupon already applied")
		}

		coupon, err := r.Coupons().FindActiveByCode(ctx, code)
		if err == repo.ErrNotFound {
			return NewNotFoundError("coupon")
		}
		if err != nil {
			return err
		}

		cart.CouponCode = &coupon.Code
		cart.CouponDiscount = coupon.DiscountPercent
		cart.Subtotal = cart.DiscountedAmount(cart.Subtotal)
		recalcTotal(&cart)
		if err := r.Carts().Save(ctx, cart); err != nil {
			return err
		}

		out, err = buildCartResponse(ctx, r, cart)
		return err
	})
	if err != nil {
		return CartResponse{}, err
	}
	return out, nil
}

// SetShipping は送料の設定。空のカートには設定できない。
func (u *CartUsecase) SetShipping(ctx context.Context, id repo.Identity, cost decimal.Decimal) (CartResponse, error) {
	if cost.IsNegative() {
		return CartResponse{}, NewValidationError("invalid shipping cost")
	}
	return u.mutateNonEmptyCart(ctx, id, func(cart *model.Cart) error {
		cart.ShippingCost = cost
		return nil
	})
}

// SetPayment は支払い方法の設定。代引きは固定手数料が合計に乗る。
func (u *CartUsecase) SetPayment(ctx context.Context, id repo.Identity, method string) (CartResponse, error) {
	m := model.PaymentMethod(method)
	if m != model.PaymentMethodCard && m != model.PaymentMethodCOD {
		return CartResponse{}, NewValidationError("invalid payment method")
	}
	return u.mutateNonEmptyCart(ctx, id, func(cart *model.Cart) error {
		cart.PaymentMethod = m
		return nil
	})
}

func (u *CartUsecase) SetContact(ctx context.Context, id repo.Identity, in ContactInput) (CartResponse, error) {
	if in.Name == "" || in.Email == "" {
		return CartResponse{}, NewValidationError("name and email are required")
	}
	return u.mutateNonEmptyCart(ctx, id, func(cart *model.Cart) error {
		cart.ContactName = in.Name
		cart.ContactEmail = in.Email
		cart.ContactPhone = in.Phone
		return nil
	})
}

func (u *CartUsecase) SetVat(ctx context.Context, id repo.Identity, vatNumber string) (CartResponse, error) {
	return u.mutateNonEmptyCart(ctx, id, func(cart *model.Cart) error {
		cart.VatNumber = vatNumber
		return nil
	})
}

// ClaimGuestCart はログイン時のゲストカート引き継ぎ。
// ユーザーが既にACTIVEカートを持っていたら引き継がない（引き継ぎは最大1回）。
func (u *CartUsecase) ClaimGuestCart(ctx context.Context, userID int64, guestToken string) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, &UnauthorizedError{}
	}
	if guestToken == "" {
		return CartResponse{}, NewValidationError("invalid guest token")
	}

	var out CartResponse
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		guestCart, err := r.Carts().FindActiveByIdentity(ctx, repo.Identity{GuestToken: guestToken})
		if err == repo.ErrNotFound {
			return NewNotFoundError("cart")
		}
		if err != nil {
			return err
		}

		_, err = r.Carts().FindActiveByIdentity(ctx, repo.Identity{UserID: userID})
		if err == nil {
			return NewValidationError("user already has a cart")
		}
		if err != repo.ErrNotFound {
			return err
		}

		if err := r.Carts().TransferOwnership(ctx, guestCart.ID, userID); err != nil {
			return err
		}

		cart, err := r.Carts().FindActiveByIdentity(ctx, repo.Identity{UserID: userID})
		if err != nil {
			return err
		}
		out, err = buildCartResponse(ctx, r, cart)
		return err
	})
	if err != nil {
		return CartResponse{}, err
	}
	return out, nil
}

// IssueGuestToken は匿名カート用のトークンを発行する。カート自体は最初の追加で作られる。
func (u *CartUsecase) IssueGuestToken() string {
	return shortuuid.New()
}

// 非空ガード付きの単純フィールド更新
func (u *CartUsecase) mutateNonEmptyCart(ctx context.Context, id repo.Identity, mutate func(cart *model.Cart) error) (CartResponse, error) {
	if id.IsEmpty() {
		return CartResponse{}, &UnauthorizedError{}
	}

	var out CartResponse
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := lockActiveCart(ctx, r, id)
		if err != nil {
			return err
		}

		count, err := r.CartItems().CountByCartID(ctx, cart.ID)
		if err != nil {
			return err
		}
		if count == 0 {
			return NewValidationError("cart is empty")
		}

		if err := mutate(&cart); err != nil {
			return err
		}
		recalcTotal(&cart)
		if err := r.Carts().Save(ctx, cart); err != nil {
			return err
		}

		out, err = buildCartResponse(ctx, r, cart)
		return err
	})
	if err != nil {
		return CartResponse{}, err
	}
	return out, nil
}

// ACTIVEカートを行ロック付きで取得
func lockActiveCart(ctx context.Context, r repo.TxRepos, id repo.Identity) (model.Cart, error) {
	cart, err := r.Carts().FindActiveByIdentity(ctx, id)
	if err == repo.ErrNotFound {
		return model.Cart{}, NewNotFoundError("cart")
	}
	if err != nil {
		return model.Cart{}, err
	}
	return r.Carts().FindByIDForUpdate(ctx, cart.ID)
}

// 明細の所有チェック込みの取得。他人のカートの明細は「このカートのものではない」。
func findOwnedLine(ctx context.Context, r repo.TxRepos, id repo.Identity, itemID int64) (model.Cart, model.CartItem, error) {
	cart, err := lockActiveCart(ctx, r, id)
	if err != nil {
		return model.Cart{}, model.CartItem{}, err
	}

	item, err := r.CartItems().FindByID(ctx, itemID)
	if err == repo.ErrNotFound {
		return model.Cart{}, model.CartItem{}, NewNotFoundError("line item")
	}
	if err != nil {
		return model.Cart{}, model.CartItem{}, err
	}
	if item.CartID != cart.ID {
		return model.Cart{}, model.CartItem{}, NewValidationError("line item does not belong to this cart")
	}
	return cart, item, nil
}

// グループが無ければ作る（明細0のグループはここ以外では生まれない）
func ensureGroup(ctx context.Context, r repo.TxRepos, cartID int64, supplierID int64) (model.CartSupplierGroup, error) {
	group, err := r.CartGroups().FindByCartAndSupplier(ctx, cartID, supplierID)
	if err == nil {
		return group, nil
	}
	if err != repo.ErrNotFound {
		return model.CartSupplierGroup{}, err
	}
	return r.CartGroups().Create(ctx, model.CartSupplierGroup{
		CartID:        cartID,
		SupplierID:    supplierID,
		SupplierTotal: decimal.Zero,
	})
}

// カート全体をサプライヤー別グループ付きで組み立てる
func buildCartResponse(ctx context.Context, r repo.TxRepos, cart model.Cart) (CartResponse, error) {
	groups, err := r.CartGroups().ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartResponse{}, err
	}
	items, err := r.CartItems().ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartResponse{}, err
	}

	byGroup := make(map[int64][]CartLineResponse, len(groups))
	for _, it := range items {
		name := ""
		if p, err := r.Products().FindByID(ctx, it.ProductID); err == nil {
			name = p.Name
		}
		byGroup[it.GroupID] = append(byGroup[it.GroupID], CartLineResponse{
			ID:         it.ID,
			OfferID:    it.OfferID,
			ProductID:  it.ProductID,
			Name:       name,
			SupplierID: it.SupplierID,
			Quantity:   it.Quantity,
			Price:      it.PriceAtOrderTime.StringFixed(2),
		})
	}

	outGroups := make([]CartGroupResponse, 0, len(groups))
	for _, g := range groups {
		name := ""
		if s, err := r.Suppliers().FindByID(ctx, g.SupplierID); err == nil {
			name = s.Name
		}
		outGroups = append(outGroups, CartGroupResponse{
			SupplierID:    g.SupplierID,
			SupplierName:  name,
			SupplierTotal: g.SupplierTotal.StringFixed(2),
			Items:         byGroup[g.ID],
		})
	}

	out := CartResponse{
		ID:           cart.ID,
		Groups:       outGroups,
		Subtotal:     cart.Subtotal.StringFixed(2),
		ShippingCost: cart.ShippingCost.StringFixed(2),
		TotalAmount:  cart.TotalAmount.StringFixed(2),
	}
	if cart.HasCoupon() {
		out.CouponCode = *cart.CouponCode
		out.CouponDiscount = cart.CouponDiscount.StringFixed(2)
	}
	return out, nil
}
