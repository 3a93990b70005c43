package repository

import "context"

// トランザクション内で使う約束
type TxRepos interface {
	Offers() OfferRepository
	Carts() CartRepository
	CartItems() CartItemRepository
	CartGroups() CartGroupRepository
	Orders() OrderRepository
	OrderItems() OrderItemRepository
	OrderGroups() OrderGroupRepository
	Products() ProductRepository
	Suppliers() SupplierRepository
	Coupons() CouponRepository
	Counters() CounterRepository
	Adjustments() OfferAdjustmentRepository
	Users() UserRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
// fnがエラーを返せば全体がロールバックされる（部分的な在庫減算は残らない）。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
