package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"marketplace/internal/domain/model"
	"marketplace/internal/notification"
	repo "marketplace/internal/repository"

	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"
)

// CheckoutUsecase はカート→注文への一方向の凍結を担う。
// 在庫の減算と注文作成は同じトランザクション：途中でどれかの減算に失敗したら
// 全体がロールバックされ、先に減らした分が残ることは無い。
type CheckoutUsecase struct {
	tx       repo.TransactionManager
	cart     *CartUsecase
	notifier notification.Notifier
}

func NewCheckoutUsecase(tx repo.TransactionManager, cart *CartUsecase, notifier notification.Notifier) *CheckoutUsecase {
	return &CheckoutUsecase{tx: tx, cart: cart, notifier: notifier}
}

type PlaceOrderInput struct {
	IdempotencyKey string
}

type OrderLineOutput struct {
	OfferID    int64  `json:"offer_id"`
	ProductID  int64  `json:"product_id"`
	SupplierID int64  `json:"supplier_id"`
	Name       string `json:"name"`
	Price      string `json:"price_at_order_time"`
	Quantity   int64  `json:"quantity"`
}

type OrderGroupOutput struct {
	SupplierID    int64             `json:"supplier_id"`
	SupplierName  string            `json:"supplier_name"`
	SupplierTotal string            `json:"supplier_total"`
	Commission    string            `json:"commission"`
	Items         []OrderLineOutput `json:"products"`
}

type OrderOutput struct {
	ID              int64              `json:"id"`
	OrderCode       string             `json:"order_code"`
	Status          string             `json:"status"`
	Subtotal        string             `json:"subtotal"`
	ShippingCost    string             `json:"shipping_cost"`
	TotalAmount     string             `json:"total_amount"`
	TotalCommission string             `json:"total_commission"`
	CouponCode      string             `json:"coupon_code,omitempty"`
	OrderDate       time.Time          `json:"order_date"`
	Groups          []OrderGroupOutput `json:"grouped_products"`
}

// メール送信用にトランザクション内で集めておく宛先情報
type orderNotification struct {
	buyerEmail string
	suppliers  []model.Supplier
	order      OrderOutput
}

// PlaceOrder はチェックアウト本体。
//
//	検証パス → 問題があれば何も変えずにStockIssuesErrorで中断（呼び出し側が取り直してリトライ）
//	減算パス → 条件付きデクリメント。失敗は致命（検証で弾けているはずの競合）でtx全体が戻る
//	凍結     → サプライヤー別小計と10%手数料を確定し、連番コードを採番してOrderを作る
//
// 同じidempotency keyでの再送は同じ注文を返す。
func (u *CheckoutUsecase) PlaceOrder(ctx context.Context, id repo.Identity, in PlaceOrderInput) (OrderOutput, error) {
	if id.IsEmpty() {
		return OrderOutput{}, &UnauthorizedError{}
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" || len(key) > 255 {
		return OrderOutput{}, NewValidationError("invalid idempotency_key")
	}

	var out OrderOutput
	var notify *orderNotification

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		existing, found, err := r.Orders().FindByIdempotencyKey(ctx, id, key)
		if err != nil {
			return err
		}
		if found {
			out, err = buildOrderOutput(ctx, r, existing)
			return err
		}

		cart, err := r.Carts().FindActiveByIdentity(ctx, id)
		if err == repo.ErrNotFound {
			return NewValidationError("cart is empty")
		}
		if err != nil {
			return err
		}
		// カート行をロックしてから検証する。先にコミットされたOffer削除は必ず見える。
		cart, err = r.Carts().FindByIDForUpdate(ctx, cart.ID)
		if err != nil {
			return err
		}

		items, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return NewValidationError("cart is empty")
		}

		// 検証パス：fail-fastせず問題を全部集める。ここではカートを一切変更しない。
		var issues []StockIssue
		offers := make(map[int64]model.Offer, len(items))
		for _, item := range items {
			offer, err := r.Offers().FindByID(ctx, item.OfferID)
			if err == repo.ErrNotFound {
				issues = append(issues, StockIssue{
					Kind: StockIssueMissing, LineItemID: item.ID, OfferID: item.OfferID, Requested: item.Quantity,
				})
				continue
			}
			if err != nil {
				return err
			}
			offers[offer.ID] = offer

			switch {
			case offer.Quantity == 0:
				issues = append(issues, StockIssue{
					Kind: StockIssueOutOfStock, LineItemID: item.ID, OfferID: offer.ID, Requested: item.Quantity,
				})
			case offer.Quantity < item.Quantity:
				issues = append(issues, StockIssue{
					Kind: StockIssueReduced, LineItemID: item.ID, OfferID: offer.ID,
					Requested: item.Quantity, Available: offer.Quantity,
				})
			}
		}
		if len(issues) > 0 {
			return &StockIssuesError{Issues: issues}
		}

		// 減算パス：条件付きデクリメント。失敗したらtxごと戻す（部分減算を残さない）。
		for _, item := range items {
			ok, err := r.Offers().DecreaseStockIfEnough(ctx, item.OfferID, item.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				offer := offers[item.OfferID]
				log.Errorf("checkout: conditional decrement failed after validation offer=%d requested=%d", item.OfferID, item.Quantity)
				return &InsufficientStockError{
					OfferID: item.OfferID, Requested: item.Quantity, Available: offer.Quantity, Fatal: true,
				}
			}
		}

		// 触った商品の派生値を直す
		touched := make(map[int64]struct{}, len(items))
		for _, item := range items {
			if _, done := touched[item.ProductID]; done {
				continue
			}
			touched[item.ProductID] = struct{}{}
			if err := r.Offers().RecomputeProductAggregate(ctx, item.ProductID); err != nil {
				return err
			}
		}

		// サプライヤー別小計と手数料の確定
		groupTotals := make(map[int64]decimal.Decimal)
		for _, item := range items {
			groupTotals[item.SupplierID] = groupTotals[item.SupplierID].Add(item.LineTotal())
		}
		totalCommission := decimal.Zero
		supplierIDs := make([]int64, 0, len(groupTotals))
		for sid := range groupTotals {
			supplierIDs = append(supplierIDs, sid)
		}
		sort.Slice(supplierIDs, func(i, j int) bool { return supplierIDs[i] < supplierIDs[j] })

		orderGroups := make([]model.OrderSupplierGroup, 0, len(supplierIDs))
		for _, sid := range supplierIDs {
			commission := groupTotals[sid].Mul(commissionRate)
			totalCommission = totalCommission.Add(commission)
			orderGroups = append(orderGroups, model.OrderSupplierGroup{
				SupplierID:    sid,
				SupplierTotal: groupTotals[sid],
				Commission:    commission,
			})
		}

		// 採番（行ロック付きカウンタ、プロセス内では数えない）
		seq, err := r.Counters().NextValue(ctx, model.CounterOrderCode)
		if err != nil {
			return err
		}

		now := time.Now()
		order := model.Order{
			OrderCode:       fmt.Sprintf("ORD-%d", seq),
			UserID:          cart.UserID,
			GuestToken:      cart.GuestToken,
			Status:          model.OrderStatusOrdered,
			Subtotal:        cart.Subtotal,
			ShippingCost:    cart.ShippingCost,
			TotalAmount:     cart.TotalAmount,
			TotalCommission: totalCommission,
			CouponCode:      cart.CouponCode,
			CouponDiscount:  cart.CouponDiscount,
			PaymentMethod:   cart.PaymentMethod,
			VatNumber:       cart.VatNumber,
			ContactName:     cart.ContactName,
			ContactEmail:    cart.ContactEmail,
			ContactPhone:    cart.ContactPhone,
			IdempotencyKey:  key,
			OrderDate:       now,
		}
		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			// 同一アイデンティティが同時に同じキーを入れた場合は
			// もう一度検索して同じ結果を返す
			ex2, found2, err2 := r.Orders().FindByIdempotencyKey(ctx, id, key)
			if err2 == nil && found2 {
				out, err2 = buildOrderOutput(ctx, r, ex2)
				return err2
			}
			if err2 != nil {
				return err2
			}
			// キー自体は衝突したのに自分の注文が無い。他人のキーの再利用。
			if errors.Is(err, repo.ErrDuplicateKey) {
				return NewValidationError("idempotency key already used")
			}
			return err
		}

		orderItems := make([]model.OrderItem, 0, len(items))
		for _, item := range items {
			name := ""
			if p, err := r.Products().FindByID(ctx, item.ProductID); err == nil {
				name = p.Name
			}
			orderItems = append(orderItems, model.OrderItem{
				OrderID:             orderID,
				OfferID:             item.OfferID,
				ProductID:           item.ProductID,
				SupplierID:          item.SupplierID,
				ProductNameSnapshot: name,
				UnitPriceSnapshot:   item.PriceAtOrderTime,
				Quantity:            item.Quantity,
			})
		}
		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return err
		}
		if err := r.OrderGroups().CreateBulk(ctx, orderID, orderGroups); err != nil {
			return err
		}

		// カートは空にしてCHECKED_OUTへ
		if err := r.Carts().UpdateStatus(ctx, cart.ID, model.CartStatusCheckedOut); err != nil {
			return err
		}
		if err := r.Carts().Clear(ctx, cart.ID); err != nil {
			return err
		}

		order.ID = orderID
		out, err = buildOrderOutput(ctx, r, order)
		if err != nil {
			return err
		}

		// 通知の宛先はtx内で集めておき、送信はコミット後
		buyerEmail := cart.ContactEmail
		if buyerEmail == "" && cart.UserID != nil {
			if user, err := r.Users().FindByID(ctx, *cart.UserID); err == nil {
				buyerEmail = user.Email
			}
		}
		suppliers, err := r.Suppliers().FindByIDs(ctx, supplierIDs)
		if err != nil {
			return err
		}
		notify = &orderNotification{buyerEmail: buyerEmail, suppliers: suppliers, order: out}
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	// fire-and-forget。失敗してもチェックアウトは成功のまま（ログのみ）。
	if notify != nil {
		go u.sendOrderEmails(*notify)
	}
	return out, nil
}

type ReorderSkip struct {
	OfferID int64  `json:"offer_id"`
	Reason  string `json:"reason"`
}

type ReorderOutput struct {
	Cart    CartResponse  `json:"cart"`
	Skipped []ReorderSkip `json:"skipped"`
}

// Reorder は過去の注文の明細を現在のカートへ流し込む。
// 価格固定の再現ではなく、今の価格・在庫でのAddItemの繰り返し。
// 入らなかった明細はエラーにせずskippedで返す。
func (u *CheckoutUsecase) Reorder(ctx context.Context, id repo.Identity, orderID int64) (ReorderOutput, error) {
	if id.IsEmpty() {
		return ReorderOutput{}, &UnauthorizedError{}
	}
	if orderID <= 0 {
		return ReorderOutput{}, NewValidationError("invalid id")
	}

	var items []model.OrderItem
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		order, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewNotFoundError("order")
		}
		if err != nil {
			return err
		}
		if !identityOwnsOrder(order, id) {
			// 他人の注文は「存在しない扱い」にする
			return NewNotFoundError("order")
		}
		items, err = r.OrderItems().ListByOrderID(ctx, orderID)
		return err
	})
	if err != nil {
		return ReorderOutput{}, err
	}

	var out ReorderOutput
	for _, item := range items {
		cart, err := u.cart.AddItem(ctx, id, AddItemInput{OfferID: item.OfferID, Quantity: item.Quantity})
		if err != nil {
			if _, ok := AsNotFoundError(err); ok {
				out.Skipped = append(out.Skipped, ReorderSkip{OfferID: item.OfferID, Reason: "offer no longer exists"})
				continue
			}
			if _, ok := AsInsufficientStockError(err); ok {
				out.Skipped = append(out.Skipped, ReorderSkip{OfferID: item.OfferID, Reason: "insufficient stock"})
				continue
			}
			return ReorderOutput{}, err
		}
		out.Cart = cart
	}

	if len(items) == len(out.Skipped) {
		// 1件も入らなかった場合もカートの現状は返す
		cart, err := u.cart.GetCart(ctx, id)
		if err != nil {
			return ReorderOutput{}, err
		}
		out.Cart = cart
	}
	return out, nil
}

func (u *CheckoutUsecase) ListOrders(ctx context.Context, id repo.Identity) ([]OrderOutput, error) {
	if id.IsEmpty() {
		return nil, &UnauthorizedError{}
	}

	var outs []OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListByIdentity(ctx, id, 1, 50)
		if err != nil {
			return err
		}
		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			out, err := buildOrderOutput(ctx, r, o)
			if err != nil {
				return err
			}
			outs = append(outs, out)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outs, nil
}

func (u *CheckoutUsecase) GetOrder(ctx context.Context, id repo.Identity, orderID int64) (OrderOutput, error) {
	if id.IsEmpty() {
		return OrderOutput{}, &UnauthorizedError{}
	}
	if orderID <= 0 {
		return OrderOutput{}, NewValidationError("invalid id")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		order, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewNotFoundError("order")
		}
		if err != nil {
			return err
		}
		if !identityOwnsOrder(order, id) {
			return NewNotFoundError("order")
		}
		out, err = buildOrderOutput(ctx, r, order)
		return err
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// 管理者の注文ステータス遷移。CANCELEDへの遷移は在庫を戻す。
// 凍結済みの金額・明細には触らない。
func (u *CheckoutUsecase) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	if orderID <= 0 {
		return NewValidationError("invalid id")
	}
	if !validTransitionTarget(status) {
		return NewValidationError("invalid status")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		order, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewNotFoundError("order")
		}
		if err != nil {
			return err
		}
		if !transitionAllowed(order.Status, status) {
			return NewValidationError("cannot transition from %s to %s", order.Status, status)
		}

		if status == model.OrderStatusCanceled {
			items, err := r.OrderItems().ListByOrderID(ctx, orderID)
			if err != nil {
				return err
			}
			touched := make(map[int64]struct{})
			for _, item := range items {
				// Offerが既に消えていたら戻し先が無いだけ。注文履歴は書き換えない。
				err := r.Offers().IncreaseStock(ctx, item.OfferID, item.Quantity)
				if err != nil && err != repo.ErrNotFound {
					return err
				}
				if err == nil {
					touched[item.ProductID] = struct{}{}
				}
			}
			for productID := range touched {
				if err := r.Offers().RecomputeProductAggregate(ctx, productID); err != nil {
					return err
				}
			}
		}

		return r.Orders().UpdateStatus(ctx, orderID, status)
	})
}

func validTransitionTarget(s model.OrderStatus) bool {
	switch s {
	case model.OrderStatusReviewed, model.OrderStatusShipped, model.OrderStatusCompleted, model.OrderStatusCanceled:
		return true
	}
	return false
}

func transitionAllowed(from model.OrderStatus, to model.OrderStatus) bool {
	switch from {
	case model.OrderStatusOrdered:
		return to == model.OrderStatusReviewed || to == model.OrderStatusShipped || to == model.OrderStatusCanceled
	case model.OrderStatusReviewed:
		return to == model.OrderStatusShipped || to == model.OrderStatusCanceled
	case model.OrderStatusShipped:
		return to == model.OrderStatusCompleted
	}
	return false
}

func identityOwnsOrder(o model.Order, id repo.Identity) bool {
	if id.IsUser() {
		return o.UserID != nil && *o.UserID == id.UserID
	}
	return o.GuestToken != nil && *o.GuestToken == id.GuestToken
}

// 保存済みのOrder行からレスポンスを組み立てる。金額は表示用に2桁へ丸める。
func buildOrderOutput(ctx context.Context, r repo.TxRepos, order model.Order) (OrderOutput, error) {
	groups, err := r.OrderGroups().ListByOrderID(ctx, order.ID)
	if err != nil {
		return OrderOutput{}, err
	}
	items, err := r.OrderItems().ListByOrderID(ctx, order.ID)
	if err != nil {
		return OrderOutput{}, err
	}

	bySupplier := make(map[int64][]OrderLineOutput)
	for _, it := range items {
		bySupplier[it.SupplierID] = append(bySupplier[it.SupplierID], OrderLineOutput{
			OfferID:    it.OfferID,
			ProductID:  it.ProductID,
			SupplierID: it.SupplierID,
			Name:       it.ProductNameSnapshot,
			Price:      it.UnitPriceSnapshot.StringFixed(2),
			Quantity:   it.Quantity,
		})
	}

	outGroups := make([]OrderGroupOutput, 0, len(groups))
	for _, g := range groups {
		name := ""
		if s, err := r.Suppliers().FindByID(ctx, g.SupplierID); err == nil {
			name = s.Name
		}
		outGroups = append(outGroups, OrderGroupOutput{
			SupplierID:    g.SupplierID,
			SupplierName:  name,
			SupplierTotal: g.SupplierTotal.StringFixed(2),
			Commission:    g.Commission.StringFixed(2),
			Items:         bySupplier[g.SupplierID],
		})
	}

	out := OrderOutput{
		ID:              order.ID,
		OrderCode:       order.OrderCode,
		Status:          string(order.Status),
		Subtotal:        order.Subtotal.StringFixed(2),
		ShippingCost:    order.ShippingCost.StringFixed(2),
		TotalAmount:     order.TotalAmount.StringFixed(2),
		TotalCommission: order.TotalCommission.StringFixed(2),
		OrderDate:       order.OrderDate,
		Groups:          outGroups,
	}
	if order.CouponCode != nil {
		out.CouponCode = *order.CouponCode
	}
	return out, nil
}

func (u *CheckoutUsecase) sendOrderEmails(n orderNotification) {
	ctx := context.Background()

	if n.buyerEmail != "" {
		subject := fmt.Sprintf("ご注文ありがとうございます（%s）", n.order.OrderCode)
		if err := u.notifier.Send(ctx, n.buyerEmail, subject, buyerConfirmationHTML(n.order)); err != nil {
			log.Errorf("checkout: buyer notification failed order=%s: %v", n.order.OrderCode, err)
		}
	}

	bySupplier := make(map[int64]OrderGroupOutput, len(n.order.Groups))
	for _, g := range n.order.Groups {
		bySupplier[g.SupplierID] = g
	}
	for _, s := range n.suppliers {
		g, ok := bySupplier[s.ID]
		if !ok || s.Email == "" {
			continue
		}
		subject := fmt.Sprintf("新しい注文（%s）", n.order.OrderCode)
		if err := u.notifier.Send(ctx, s.Email, subject, supplierOrderHTML(n.order, g)); err != nil {
			log.Errorf("checkout: supplier notification failed order=%s supplier=%d: %v", n.order.OrderCode, s.ID, err)
		}
	}
}
