package usecase_test

import (
	"context"
	"sort"
	"time"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"github.com/shopspring/decimal"
)

// =====================
// インメモリのフェイク永続化層
// =====================
//
// 行ロックは単一goroutineのテストでは意味を持たないので素通し。
// ロールバックは WithinTx 側のスナップショット復元で再現する。

type memStore struct {
	nextID int64

	offers      map[int64]model.Offer
	carts       map[int64]model.Cart
	cartItems   map[int64]model.CartItem
	cartGroups  map[int64]model.CartSupplierGroup
	orders      map[int64]model.Order
	orderItems  map[int64][]model.OrderItem
	orderGroups map[int64][]model.OrderSupplierGroup
	products    map[int64]model.Product
	suppliers   map[int64]model.Supplier
	coupons     map[string]model.Coupon
	counters    map[string]int64
	adjustments []model.OfferAdjustment
	users       map[int64]model.User
}

func newMemStore() *memStore {
	return &memStore{
		offers:      map[int64]model.Offer{},
		carts:       map[int64]model.Cart{},
		cartItems:   map[int64]model.CartItem{},
		cartGroups:  map[int64]model.CartSupplierGroup{},
		orders:      map[int64]model.Order{},
		orderItems:  map[int64][]model.OrderItem{},
		orderGroups: map[int64][]model.OrderSupplierGroup{},
		products:    map[int64]model.Product{},
		suppliers:   map[int64]model.Supplier{},
		coupons:     map[string]model.Coupon{},
		counters:    map[string]int64{},
		users:       map[int64]model.User{},
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) snapshot() *memStore {
	c := newMemStore()
	c.nextID = s.nextID
	for k, v := range s.offers {
		c.offers[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = v
	}
	for k, v := range s.cartItems {
		c.cartItems[k] = v
	}
	for k, v := range s.cartGroups {
		c.cartGroups[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.orderItems {
		c.orderItems[k] = append([]model.OrderItem(nil), v...)
	}
	for k, v := range s.orderGroups {
		c.orderGroups[k] = append([]model.OrderSupplierGroup(nil), v...)
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.suppliers {
		c.suppliers[k] = v
	}
	for k, v := range s.coupons {
		c.coupons[k] = v
	}
	for k, v := range s.counters {
		c.counters[k] = v
	}
	c.adjustments = append([]model.OfferAdjustment(nil), s.adjustments...)
	for k, v := range s.users {
		c.users[k] = v
	}
	return c
}

func (s *memStore) restore(from *memStore) {
	*s = *from
}

func matchesIdentity(userID *int64, guestToken *string, id repo.Identity) bool {
	if id.IsUser() {
		return userID != nil && *userID == id.UserID
	}
	return guestToken != nil && *guestToken == id.GuestToken
}

// ---- Offers ----

type memOfferRepo struct{ s *memStore }

func (m *memOfferRepo) Create(ctx context.Context, o model.Offer) (model.Offer, error) {
	for _, ex := range m.s.offers {
		if ex.ProductID == o.ProductID && ex.SupplierID == o.SupplierID {
			return model.Offer{}, repo.ErrDuplicateKey
		}
	}
	o.ID = m.s.id()
	m.s.offers[o.ID] = o
	return o, nil
}

func (m *memOfferRepo) FindByID(ctx context.Context, id int64) (model.Offer, error) {
	o, ok := m.s.offers[id]
	if !ok {
		return model.Offer{}, repo.ErrNotFound
	}
	return o, nil
}

func (m *memOfferRepo) FindByIDForUpdate(ctx context.Context, id int64) (model.Offer, error) {
	return m.FindByID(ctx, id)
}

func (m *memOfferRepo) FindByPair(ctx context.Context, productID int64, supplierID int64) (model.Offer, error) {
	for _, o := range m.s.offers {
		if o.ProductID == productID && o.SupplierID == supplierID {
			return o, nil
		}
	}
	return model.Offer{}, repo.ErrNotFound
}

func (m *memOfferRepo) ListByProductID(ctx context.Context, productID int64) ([]model.Offer, error) {
	var out []model.Offer
	for _, o := range m.s.offers {
		if o.ProductID == productID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memOfferRepo) UpdatePrice(ctx context.Context, offerID int64, price decimal.Decimal) error {
	o, ok := m.s.offers[offerID]
	if !ok {
		return repo.ErrNotFound
	}
	o.Price = price
	m.s.offers[offerID] = o
	return nil
}

func (m *memOfferRepo) UpdateQuantity(ctx context.Context, offerID int64, quantity int64) error {
	o, ok := m.s.offers[offerID]
	if !ok {
		return repo.ErrNotFound
	}
	o.Quantity = quantity
	o.Status = model.StatusFor(quantity)
	m.s.offers[offerID] = o
	return nil
}

func (m *memOfferRepo) DecreaseStockIfEnough(ctx context.Context, offerID int64, qty int64) (bool, error) {
	o, ok := m.s.offers[offerID]
	if !ok || o.Quantity < qty {
		return false, nil
	}
	o.Quantity -= qty
	o.Status = model.StatusFor(o.Quantity)
	m.s.offers[offerID] = o
	return true, nil
}

func (m *memOfferRepo) IncreaseStock(ctx context.Context, offerID int64, qty int64) error {
	o, ok := m.s.offers[offerID]
	if !ok {
		return repo.ErrNotFound
	}
	o.Quantity += qty
	o.Status = model.StatusFor(o.Quantity)
	m.s.offers[offerID] = o
	return nil
}

func (m *memOfferRepo) DeleteByID(ctx context.Context, offerID int64) error {
	if _, ok := m.s.offers[offerID]; !ok {
		return repo.ErrNotFound
	}
	delete(m.s.offers, offerID)
	return nil
}

func (m *memOfferRepo) RecomputeProductAggregate(ctx context.Context, productID int64) error {
	p, ok := m.s.products[productID]
	if !ok {
		return nil
	}
	var stock int64
	minPrice := decimal.Zero
	first := true
	for _, o := range m.s.offers {
		if o.ProductID != productID || o.Status != model.OfferStatusAvailable {
			continue
		}
		stock += o.Quantity
		if first || o.Price.LessThan(minPrice) {
			minPrice = o.Price
			first = false
		}
	}
	p.Stock = stock
	p.Price = minPrice
	m.s.products[productID] = p
	return nil
}

// ---- Carts ----

type memCartRepo struct{ s *memStore }

func (m *memCartRepo) GetOrCreateActiveByIdentity(ctx context.Context, id repo.Identity) (model.Cart, error) {
	if cart, err := m.FindActiveByIdentity(ctx, id); err == nil {
		return cart, nil
	}
	cart := model.Cart{
		ID:           m.s.id(),
		Status:       model.CartStatusActive,
		Subtotal:     decimal.Zero,
		ShippingCost: decimal.Zero,
		TotalAmount:  decimal.Zero,
	}
	if id.IsUser() {
		uid := id.UserID
		cart.UserID = &uid
	} else {
		tok := id.GuestToken
		cart.GuestToken = &tok
	}
	m.s.carts[cart.ID] = cart
	return cart, nil
}

func (m *memCartRepo) FindActiveByIdentity(ctx context.Context, id repo.Identity) (model.Cart, error) {
	for _, c := range m.s.carts {
		if c.Status == model.CartStatusActive && matchesIdentity(c.UserID, c.GuestToken, id) {
			return c, nil
		}
	}
	return model.Cart{}, repo.ErrNotFound
}

func (m *memCartRepo) FindByIDForUpdate(ctx context.Context, cartID int64) (model.Cart, error) {
	c, ok := m.s.carts[cartID]
	if !ok {
		return model.Cart{}, repo.ErrNotFound
	}
	return c, nil
}

func (m *memCartRepo) Save(ctx context.Context, cart model.Cart) error {
	if _, ok := m.s.carts[cart.ID]; !ok {
		return repo.ErrNotFound
	}
	m.s.carts[cart.ID] = cart
	return nil
}

func (m *memCartRepo) UpdateStatus(ctx context.Context, cartID int64, status model.CartStatus) error {
	c, ok := m.s.carts[cartID]
	if !ok {
		return repo.ErrNotFound
	}
	c.Status = status
	m.s.carts[cartID] = c
	return nil
}

func (m *memCartRepo) Clear(ctx context.Context, cartID int64) error {
	for id, it := range m.s.cartItems {
		if it.CartID == cartID {
			delete(m.s.cartItems, id)
		}
	}
	for id, g := range m.s.cartGroups {
		if g.CartID == cartID {
			delete(m.s.cartGroups, id)
		}
	}
	return nil
}

func (m *memCartRepo) TransferOwnership(ctx context.Context, cartID int64, userID int64) error {
	c, ok := m.s.carts[cartID]
	if !ok {
		return repo.ErrNotFound
	}
	c.UserID = &userID
	c.GuestToken = nil
	m.s.carts[cartID] = c
	return nil
}

func (m *memCartRepo) DeleteStaleEmptyBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for id, c := range m.s.carts {
		if c.Status != model.CartStatusActive || !c.CreatedAt.Before(cutoff) {
			continue
		}
		empty := true
		for _, it := range m.s.cartItems {
			if it.CartID == id {
				empty = false
				break
			}
		}
		if empty {
			delete(m.s.carts, id)
			n++
		}
	}
	return n, nil
}

// ---- CartItems ----

type memCartItemRepo struct{ s *memStore }

func (m *memCartItemRepo) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	var out []model.CartItem
	for _, it := range m.s.cartItems {
		if it.CartID == cartID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memCartItemRepo) FindByID(ctx context.Context, itemID int64) (model.CartItem, error) {
	it, ok := m.s.cartItems[itemID]
	if !ok {
		return model.CartItem{}, repo.ErrNotFound
	}
	return it, nil
}

func (m *memCartItemRepo) FindByCartAndOffer(ctx context.Context, cartID int64, offerID int64) (model.CartItem, error) {
	for _, it := range m.s.cartItems {
		if it.CartID == cartID && it.OfferID == offerID {
			return it, nil
		}
	}
	return model.CartItem{}, repo.ErrNotFound
}

func (m *memCartItemRepo) Create(ctx context.Context, item model.CartItem) (model.CartItem, error) {
	item.ID = m.s.id()
	m.s.cartItems[item.ID] = item
	return item, nil
}

func (m *memCartItemRepo) UpdateQuantity(ctx context.Context, itemID int64, qty int64) error {
	it, ok := m.s.cartItems[itemID]
	if !ok {
		return repo.ErrNotFound
	}
	it.Quantity = qty
	m.s.cartItems[itemID] = it
	return nil
}

func (m *memCartItemRepo) UpdatePriceSnapshot(ctx context.Context, itemID int64, price decimal.Decimal) error {
	it, ok := m.s.cartItems[itemID]
	if !ok {
		return repo.ErrNotFound
	}
	it.PriceAtOrderTime = price
	m.s.cartItems[itemID] = it
	return nil
}

func (m *memCartItemRepo) DeleteByID(ctx context.Context, itemID int64) error {
	if _, ok := m.s.cartItems[itemID]; !ok {
		return repo.ErrNotFound
	}
	delete(m.s.cartItems, itemID)
	return nil
}

func (m *memCartItemRepo) ListOpenByOfferID(ctx context.Context, offerID int64) ([]model.CartItem, error) {
	var out []model.CartItem
	for _, it := range m.s.cartItems {
		if it.OfferID != offerID {
			continue
		}
		cart, ok := m.s.carts[it.CartID]
		if !ok || cart.Status != model.CartStatusActive {
			continue
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memCartItemRepo) CountByGroupID(ctx context.Context, groupID int64) (int64, error) {
	var n int64
	for _, it := range m.s.cartItems {
		if it.GroupID == groupID {
			n++
		}
	}
	return n, nil
}

func (m *memCartItemRepo) CountByCartID(ctx context.Context, cartID int64) (int64, error) {
	var n int64
	for _, it := range m.s.cartItems {
		if it.CartID == cartID {
			n++
		}
	}
	return n, nil
}

// ---- CartGroups ----

type memCartGroupRepo struct{ s *memStore }

func (m *memCartGroupRepo) ListByCartID(ctx context.Context, cartID int64) ([]model.CartSupplierGroup, error) {
	var out []model.CartSupplierGroup
	for _, g := range m.s.cartGroups {
		if g.CartID == cartID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memCartGroupRepo) FindByCartAndSupplier(ctx context.Context, cartID int64, supplierID int64) (model.CartSupplierGroup, error) {
	for _, g := range m.s.cartGroups {
		if g.CartID == cartID && g.SupplierID == supplierID {
			return g, nil
		}
	}
	return model.CartSupplierGroup{}, repo.ErrNotFound
}

func (m *memCartGroupRepo) Create(ctx context.Context, g model.CartSupplierGroup) (model.CartSupplierGroup, error) {
	g.ID = m.s.id()
	m.s.cartGroups[g.ID] = g
	return g, nil
}

func (m *memCartGroupRepo) AddToTotal(ctx context.Context, groupID int64, delta decimal.Decimal) error {
	g, ok := m.s.cartGroups[groupID]
	if !ok {
		return repo.ErrNotFound
	}
	g.SupplierTotal = g.SupplierTotal.Add(delta)
	m.s.cartGroups[groupID] = g
	return nil
}

func (m *memCartGroupRepo) DeleteByID(ctx context.Context, groupID int64) error {
	if _, ok := m.s.cartGroups[groupID]; !ok {
		return repo.ErrNotFound
	}
	delete(m.s.cartGroups, groupID)
	return nil
}

// ---- Orders ----

type memOrderRepo struct{ s *memStore }

func (m *memOrderRepo) Create(ctx context.Context, order model.Order) (int64, error) {
	for _, ex := range m.s.orders {
		if ex.IdempotencyKey == order.IdempotencyKey {
			return 0, repo.ErrDuplicateKey
		}
	}
	order.ID = m.s.id()
	m.s.orders[order.ID] = order
	return order.ID, nil
}

func (m *memOrderRepo) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	o, ok := m.s.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (m *memOrderRepo) ListByIdentity(ctx context.Context, id repo.Identity, page int, limit int) ([]model.Order, int64, error) {
	var out []model.Order
	for _, o := range m.s.orders {
		if matchesIdentity(o.UserID, o.GuestToken, id) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, int64(len(out)), nil
}

func (m *memOrderRepo) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	o, ok := m.s.orders[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	o.Status = status
	m.s.orders[orderID] = o
	return nil
}

func (m *memOrderRepo) FindByIdempotencyKey(ctx context.Context, id repo.Identity, key string) (model.Order, bool, error) {
	for _, o := range m.s.orders {
		if o.IdempotencyKey == key && matchesIdentity(o.UserID, o.GuestToken, id) {
			return o, true, nil
		}
	}
	return model.Order{}, false, nil
}

// ---- OrderItems / OrderGroups ----

type memOrderItemRepo struct{ s *memStore }

func (m *memOrderItemRepo) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	for i := range items {
		items[i].ID = m.s.id()
		items[i].OrderID = orderID
	}
	m.s.orderItems[orderID] = append(m.s.orderItems[orderID], items...)
	return nil
}

func (m *memOrderItemRepo) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	return append([]model.OrderItem(nil), m.s.orderItems[orderID]...), nil
}

type memOrderGroupRepo struct{ s *memStore }

func (m *memOrderGroupRepo) CreateBulk(ctx context.Context, orderID int64, groups []model.OrderSupplierGroup) error {
	for i := range groups {
		groups[i].ID = m.s.id()
		groups[i].OrderID = orderID
	}
	m.s.orderGroups[orderID] = append(m.s.orderGroups[orderID], groups...)
	return nil
}

func (m *memOrderGroupRepo) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderSupplierGroup, error) {
	return append([]model.OrderSupplierGroup(nil), m.s.orderGroups[orderID]...), nil
}

// ---- Catalog / Coupons / Counters / Adjustments / Users ----

type memProductRepo struct{ s *memStore }

func (m *memProductRepo) FindByID(ctx context.Context, id int64) (model.Product, error) {
	p, ok := m.s.products[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

type memSupplierRepo struct{ s *memStore }

func (m *memSupplierRepo) FindByID(ctx context.Context, id int64) (model.Supplier, error) {
	s, ok := m.s.suppliers[id]
	if !ok {
		return model.Supplier{}, repo.ErrNotFound
	}
	return s, nil
}

func (m *memSupplierRepo) FindByIDs(ctx context.Context, ids []int64) ([]model.Supplier, error) {
	var out []model.Supplier
	for _, id := range ids {
		if s, ok := m.s.suppliers[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

type memCouponRepo struct{ s *memStore }

func (m *memCouponRepo) FindActiveByCode(ctx context.Context, code string) (model.Coupon, error) {
	c, ok := m.s.coupons[code]
	if !ok || !c.IsActive {
		return model.Coupon{}, repo.ErrNotFound
	}
	return c, nil
}

type memCounterRepo struct{ s *memStore }

func (m *memCounterRepo) NextValue(ctx context.Context, name string) (int64, error) {
	m.s.counters[name]++
	return m.s.counters[name], nil
}

type memAdjustmentRepo struct{ s *memStore }

func (m *memAdjustmentRepo) Create(ctx context.Context, adj model.OfferAdjustment) error {
	adj.ID = m.s.id()
	m.s.adjustments = append(m.s.adjustments, adj)
	return nil
}

func (m *memAdjustmentRepo) ListByOfferID(ctx context.Context, offerID int64) ([]model.OfferAdjustment, error) {
	var out []model.OfferAdjustment
	for _, a := range m.s.adjustments {
		if a.OfferID == offerID {
			out = append(out, a)
		}
	}
	return out, nil
}

type memUserRepo struct{ s *memStore }

func (m *memUserRepo) FindByID(ctx context.Context, id int64) (model.User, error) {
	u, ok := m.s.users[id]
	if !ok {
		return model.User{}, repo.ErrNotFound
	}
	return u, nil
}

func (m *memUserRepo) DeactivateDormantBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for id, u := range m.s.users {
		if !u.IsActive {
			continue
		}
		if u.LastLoginAt != nil && u.LastLoginAt.Before(cutoff) {
			u.IsActive = false
			m.s.users[id] = u
			n++
		}
	}
	return n, nil
}

// ---- TxRepos / TransactionManager ----

type memTxRepos struct{ s *memStore }

func (r memTxRepos) Offers() repo.OfferRepository           { return &memOfferRepo{s: r.s} }
func (r memTxRepos) Carts() repo.CartRepository             { return &memCartRepo{s: r.s} }
func (r memTxRepos) CartItems() repo.CartItemRepository     { return &memCartItemRepo{s: r.s} }
func (r memTxRepos) CartGroups() repo.CartGroupRepository   { return &memCartGroupRepo{s: r.s} }
func (r memTxRepos) Orders() repo.OrderRepository           { return &memOrderRepo{s: r.s} }
func (r memTxRepos) OrderItems() repo.OrderItemRepository   { return &memOrderItemRepo{s: r.s} }
func (r memTxRepos) OrderGroups() repo.OrderGroupRepository { return &memOrderGroupRepo{s: r.s} }
func (r memTxRepos) Products() repo.ProductRepository       { return &memProductRepo{s: r.s} }
func (r memTxRepos) Suppliers() repo.SupplierRepository     { return &memSupplierRepo{s: r.s} }
func (r memTxRepos) Coupons() repo.CouponRepository         { return &memCouponRepo{s: r.s} }
func (r memTxRepos) Counters() repo.CounterRepository       { return &memCounterRepo{s: r.s} }
func (r memTxRepos) Adjustments() repo.OfferAdjustmentRepository {
	return &memAdjustmentRepo{s: r.s}
}
func (r memTxRepos) Users() repo.UserRepository { return &memUserRepo{s: r.s} }

// memTx はfnがエラーを返したらストア全体をtx前の状態へ戻す。
type memTx struct{ s *memStore }

func (t *memTx) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	before := t.s.snapshot()
	if err := fn(memTxRepos{s: t.s}); err != nil {
		t.s.restore(before)
		return err
	}
	return nil
}

// =====================
// テスト用のシード
// =====================

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (s *memStore) seedSupplier(name string, email string) model.Supplier {
	sup := model.Supplier{ID: s.id(), Name: name, Email: email, IsActive: true}
	s.suppliers[sup.ID] = sup
	return sup
}

func (s *memStore) seedProduct(name string) model.Product {
	p := model.Product{ID: s.id(), Name: name, IsActive: true}
	s.products[p.ID] = p
	return p
}

func (s *memStore) seedOffer(productID, supplierID int64, price string, qty int64) model.Offer {
	o := model.Offer{
		ID:         s.id(),
		ProductID:  productID,
		SupplierID: supplierID,
		Price:      d(price),
		Quantity:   qty,
		Status:     model.StatusFor(qty),
	}
	s.offers[o.ID] = o
	return o
}

func (s *memStore) seedCoupon(code string, percent string) model.Coupon {
	c := model.Coupon{Code: code, DiscountPercent: d(percent), IsActive: true}
	s.coupons[code] = c
	return c
}

func (s *memStore) seedUser(email string) model.User {
	u := model.User{ID: s.id(), Email: email, IsActive: true}
	s.users[u.ID] = u
	return u
}
