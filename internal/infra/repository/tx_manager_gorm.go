package repository

import (
	"context"

	repo "marketplace/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	offers      repo.OfferRepository
	carts       repo.CartRepository
	cartItems   repo.CartItemRepository
	cartGroups  repo.CartGroupRepository
	orders      repo.OrderRepository
	orderItems  repo.OrderItemRepository
	orderGroups repo.OrderGroupRepository
	products    repo.ProductRepository
	suppliers   repo.SupplierRepository
	coupons     repo.CouponRepository
	counters    repo.CounterRepository
	adjustments repo.OfferAdjustmentRepository
	users       repo.UserRepository
}

func (r *txReposGorm) Offers() repo.OfferRepository                { return r.offers }
func (r *txReposGorm) Carts() repo.CartRepository                  { return r.carts }
func (r *txReposGorm) CartItems() repo.CartItemRepository          { return r.cartItems }
func (r *txReposGorm) CartGroups() repo.CartGroupRepository        { return r.cartGroups }
func (r *txReposGorm) Orders() repo.OrderRepository                { return r.orders }
func (r *txReposGorm) OrderItems() repo.OrderItemRepository        { return r.orderItems }
func (r *txReposGorm) OrderGroups() repo.OrderGroupRepository      { return r.orderGroups }
func (r *txReposGorm) Products() repo.ProductRepository            { return r.products }
func (r *txReposGorm) Suppliers() repo.SupplierRepository          { return r.suppliers }
func (r *txReposGorm) Coupons() repo.CouponRepository              { return r.coupons }
func (r *txReposGorm) Counters() repo.CounterRepository            { return r.counters }
func (r *txReposGorm) Adjustments() repo.OfferAdjustmentRepository { return r.adjustments }

func (r *txReposGorm) Users() repo.UserRepository { return r.users }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			offers:      NewOfferGormRepository(tx),
			carts:       NewCartGormRepository(tx),
			cartItems:   NewCartItemGormRepository(tx),
			cartGroups:  NewCartGroupGormRepository(tx),
			orders:      NewOrderGormRepository(tx),
			orderItems:  NewOrderItemGormRepository(tx),
			orderGroups: NewOrderGroupGormRepository(tx),
			products:    NewProductGormRepository(tx),
			suppliers:   NewSupplierGormRepository(tx),
			coupons:     NewCouponGormRepository(tx),
			counters:    NewCounterGormRepository(tx),
			adjustments: NewOfferAdjustmentGormRepository(tx),
			users:       NewUserGormRepository(tx),
		}
		return fn(r)
	})
}
