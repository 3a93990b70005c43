package usecase_test

import (
	"context"
	"testing"

	repo "marketplace/internal/repository"
	"marketplace/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userIdentity(id int64) repo.Identity { return repo.Identity{UserID: id} }

func guestIdentity(tok string) repo.Identity { return repo.Identity{GuestToken: tok} }

func TestCartUsecase_GetCart_CreatesEmptyActiveCart(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	uc := usecase.NewCartUsecase(&memTx{s: s})

	out, err := uc.GetCart(ctx, userIdentity(1))
	require.NoError(t, err)
	assert.Equal(t, "0.00", out.Subtotal)
	assert.Empty(t, out.Groups)

	// 2回目は同じカートが返る
	again, err := uc.GetCart(ctx, userIdentity(1))
	require.NoError(t, err)
	assert.Equal(t, out.ID, again.ID)
}

func TestCartUsecase_GetCart_EmptyIdentity(t *testing.T) {
	uc := usecase.NewCartUsecase(&memTx{s: newMemStore()})

	_, err := uc.GetCart(context.Background(), repo.Identity{})
	_, ok := usecase.AsUnauthorizedError(err)
	assert.True(t, ok)
}

func TestCartUsecase_AddItem_GroupsBySupplier(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	supA := s.seedSupplier("Acme", "a@example.com")
	supB := s.seedSupplier("Bolt", "b@example.com")
	p1 := s.seedProduct("bolts")
	p2 := s.seedProduct("nuts")
	o1 := s.seedOffer(p1.ID, supA.ID, "10.00", 100)
	o2 := s.seedOffer(p2.ID, supB.ID, "2.50", 100)

	uc := usecase.NewCartUsecase(&memTx{s: s})
	id := userIdentity(1)

	_, err := uc.AddItem(ctx, id, usecase.AddItemInput{OfferID: o1.ID, Quantity: 2})
	require.NoError(t, err)
	out, err := uc.AddItem(ctx, id, usecase.AddItemInput{OfferID: o2.ID, Quantity: 4})
	require.NoError(t, err)

	require.Len(t, out.Groups, 2)
	assert.Equal(t, "20.00", out.Groups[0].SupplierTotal)
	assert.Equal(t, "Acme", out.Groups[0].SupplierName)
	assert.Equal(t, "10.00", out.Groups[1].SupplierTotal)
	assert.Equal(t, "30.00", out.Subtotal)
	assert.Equal(t, "30.00", out.TotalAmount)

	// subtotal == Σ グループ小計
	require.Len(t, out.Groups[0].Items, 1)
	assert.Equal(t, "bolts", out.Groups[0].Items[0].Name)
}

func TestCartUsecase_AddItem_SameOfferMergesAtSnapshotPrice(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	sup := s.seedSupplier("Acme", "a@example.com")
	p := s.seedProduct("bolts")
	o := s.seedOffer(p.ID, sup.ID, "10.00", 100)

	uc := usecase.NewCartUsecase(&memTx{s: s})
	id := userIdentity(1)

	_, err := uc.AddItem(ctx, id, usecase.AddItemInput{OfferID: o.ID, Quantity: 1})
	require.NoError(t, err)

	// 追加後にOfferの実価格が変わっても、増分は最初のスナップショット価格で計上される
	offer := s.offers[o.ID]
	offer.Price = d("99.00")
	s.offers[o.ID] = offer

	out, err := uc.AddItem(ctx, id, usecase.AddItemInput{OfferID: o.ID, Quantity: 2})
	require.NoError(t, err)

	require.Len(t, out.Groups, 1)
	require.Len(t, out.Groups[0].Items, 1)
	assert.Equal(t, int64(3), out.Groups[0].Items[0].Quantity)
	assert.Equal(t, "30.00", out.Subtotal)
}

func TestCartUsecase_AddItem_InsufficientStock(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	sup := s.seedSupplier("Acme", "a@example.com")
	p := s.seedProduct("bolts")
	o := s.seedOffer(p.ID, sup.ID, "10.00", 3)

	uc := usecase.NewCartUsecase(&memTx{s: s})
	id := userIdentity(1)

	_, err := uc.AddItem(ctx, id, usecase.AddItemInput{OfferID: o.ID, Quantity: 2})
	require.NoError(t, err)

	// 既存2 + 追加2 > 在庫3
	_, err = uc.AddItem(ctx, id, usecase.AddItemInput{OfferID: o.ID, Quantity: 2})
	stockErr, ok := usecase.AsInsufficientStockError(err)
	require.True(t, ok)
	assert.Equal(t, int64(4), stockErr.Requested)
	assert.Equal(t, int64(3), stockErr.Available)
	assert.False(t, stockErr.Fatal)

	// 失敗してもカートは増えていない
	out, err := uc.GetCart(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "20.00", out.Subtotal)
}

func TestCartUsecase_AddItem_OfferNotFound(t *testing.T) {
	uc := usecase.NewCartUsecase(&memTx{s: newMemStore()})

	_, err := uc.AddItem(context.Background(), userIdentity(1), usecase.AddItemInput{OfferID: 42, Quantity: 1})
	_, ok := usecase.AsNotFoundError(err)
	assert.True(t, ok)
}

func TestCartUsecase_UpdateItem_AdjustsBySnapshotPrice(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	sup := s.seedSupplier("Acme", "a@example.com")
	p := s.seedProduct("bolts")
	o := s.seedOffer(p.ID, sup.ID, "10.00", 100)

	uc := usecase.NewCartUsecase(&memTx{s: s})
	id := userIdentity(1)

	out, err := uc.AddItem(ctx, id, usecase.AddItemInput{OfferID: o.ID, Quantity: 5})
	require.NoError(t, err)
	itemID := out.Groups[0].Items[0].ID

	out, err = uc.UpdateItem(ctx, id, itemID, usecase.UpdateItemInput{Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, "20.00", out.Subtotal)
	assert.Equal(t, "20.00", out.Groups[0].SupplierTotal)
}

func TestCartUsecase_UpdateItem_ForeignLineRejected(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	sup := s.seedSupplier("Acme", "a@example.com")
	p := s.seedProduct("bolts")
	o := s.seedOffer(p.ID, sup.ID, "10.00", 100)

	uc := usecase.NewCartUsecase(&memTx{s: s})

	out, err := uc.AddItem(ctx, userIdentity(1), usecase.AddItemInput{OfferID: o.ID, Quantity: 1})
	require.NoError(t, err)
	itemID := out.Groups[0].Items[0].ID

	// 別のアイデンティティのカートの明細は触れない
	_, err = uc.AddItem(ctx, userIdentity(2), usecase.AddItemInput{OfferID: o.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = uc.UpdateItem(ctx, userIdentity(2), itemID, usecase.UpdateItemInput{Quantity: 9})
	vErr, ok := usecase.AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, vErr.Message, "does not belong")
}

func TestCartUsecase_RemoveItem_PrunesEmptyGroupAndResetsShipping(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	sup := s.seedSupplier("Acme", "a@example.com")
	p := s.seedProduct("bolts")
	o := s.seedOffer(p.ID, sup.ID, "10.00", 100)

	uc := usecase.NewCartUsecase(&memTx{s: s})
	id := userIdentity(1)

	out, err := uc.AddItem(ctx, id, usecase.AddItemInput{OfferID: o.ID, Quantity: 2})
	require.NoError(t, err)
	itemID := out.Groups[0].Items[0].ID

	_, err = uc.SetShipping(ctx, id, d("7.50"))
	require.NoError(t, err)

	out, err = uc.RemoveItem(ctx, id, itemID)
	require.NoError(t, err)

	// 明細ゼロのグループは残らない。空カートの送料はリセット。
	assert.Empty(t, out.Groups)
	assert.Equal(t, "0.00", out.Subtotal)
	assert.Equal(t, "0.00", out.ShippingCost)
	assert.Equal(t, "0.00", out.TotalAmount)
	assert.Empty(t, s.cartGroups)
}

func TestCartUsecase_ApplyCoupon_ReducesOnceThenScalesAdditions(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	sup := s.seedSupplier("Acme", "a@example.com")
	p := s.seedProduct("bolts")
	o := s.seedOffer(p.ID, sup.ID, "10.00", 100)
	s.seedCoupon("SAVE10", "10")

	uc := usecase.NewCartUsecase(&memTx{s: s})
	id := userIdentity(1)

	_, err := uc.AddItem(ctx, id, usecase.AddItemInput{OfferID: o.ID, Quantity: 10})
	require.NoError(t, err)

	// 100 → 90
	out, err := uc.ApplyCoupon(ctx, id, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, "90.00", out.Subtotal)
	assert.Equal(t, "SAVE10", out.CouponCode)

	// 適用後の追加 20 は割引率込みの 18 で乗る → 108
	out, err = uc.AddItem(ctx, id, usecase.AddItemInput{OfferID: o.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, "108.00", out.Subtotal)

	// グループ小計は割引前のまま
	assert.Equal(t, "120.00", out.Groups[0].SupplierTotal)
}

func TestCartUsecase_ApplyCoupon_OnlyOnce(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	sup := s.seedSupplier("Acme", "a@example.com")
	p := s.seedProduct("bolts")
	o := s.seedOffer(p.ID, sup.ID, "10.00", 100)
	s.seedCoupon("SAVE10", "10")
	s.seedCoupon("SAVE20", "20")

	uc := usecase.NewCartUsecase(&memTx{s: s})
	id := userIdentity(1)

	_, err := uc.AddItem(ctx, id, usecase.AddItemInput{OfferID: o.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = uc.ApplyCoupon(ctx, id, "SAVE10")
	require.NoError(t, err)

	_, err = uc.ApplyCoupon(ctx, id, "SAVE20")
	vErr, ok := usecase.AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, vErr.Message, "already applied")
}

func TestCartUsecase_ApplyCoupon_UnknownCode(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	sup := s.seedSupplier("Acme", "a@example.com")
	p := s.seedProduct("bolts")
	o := s.seedOffer(p.ID, sup.ID, "10.00", 100)

	uc := usecase.NewCartUsecase(&memTx{s: s})
	id := userIdentity(1)

	_, err := uc.AddItem(ctx, id, usecase.AddItemInput{OfferID: o.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = uc.ApplyCoupon(ctx, id, "NOPE")
	_, ok := usecase.AsNotFoundError(err)
	assert.True(t, ok)
}

func TestCartUsecase_SetShipping_EmptyCartRejected(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	uc := usecase.NewCartUsecase(&memTx{s: s})
	id := userIdentity(1)

	_, err := uc.GetCart(ctx, id)
	require.NoError(t, err)

	_, err = uc.SetShipping(ctx, id, d("5.00"))
	vErr, ok := usecase.AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, vErr.Message, "cart is empty")
}

func TestCartUsecase_SetPayment_CODAddsFlatFee(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	sup := s.seedSupplier("Acme", "a@example.com")
	p := s.seedProduct("bolts")
	o := s.seedOffer(p.ID, sup.ID, "10.00", 100)

	uc := usecase.NewCartUsecase(&memTx{s: s})
	id := userIdentity(1)

	_, err := uc.AddItem(ctx, id, usecase.AddItemInput{OfferID: o.ID, Quantity: 2})
	require.NoError(t, err)

	out, err := uc.SetPayment(ctx, id, "COD")
	require.NoError(t, err)
	assert.Equal(t, "25.00", out.TotalAmount)

	out, err = uc.SetPayment(ctx, id, "CARD")
	require.NoError(t, err)
	assert.Equal(t, "20.00", out.TotalAmount)

	_, err = uc.SetPayment(ctx, id, "BITCOIN")
	_, ok := usecase.AsValidationError(err)
	assert.True(t, ok)
}

func TestCartUsecase_ClaimGuestCart(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	sup := s.seedSupplier("Acme", "a@example.com")
	p := s.seedProduct("bolts")
	o := s.seedOffer(p.ID, sup.ID, "10.00", 100)

	uc := usecase.NewCartUsecase(&memTx{s: s})
	guest := guestIdentity("tok-123")

	_, err := uc.AddItem(ctx, guest, usecase.AddItemInput{OfferID: o.ID, Quantity: 3})
	require.NoError(t, err)

	out, err := uc.ClaimGuestCart(ctx, 7, "tok-123")
	require.NoError(t, err)
	assert.Equal(t, "30.00", out.Subtotal)

	// 引き継ぎ後、ゲストトークンでは辿れない
	_, err = uc.SetShipping(ctx, guest, d("1.00"))
	_, ok := usecase.AsNotFoundError(err)
	assert.True(t, ok)
}

func TestCartUsecase_ClaimGuestCart_UserAlreadyHasCart(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	sup := s.seedSupplier("Acme", "a@example.com")
	p := s.seedProduct("bolts")
	o := s.seedOffer(p.ID, sup.ID, "10.00", 100)

	uc := usecase.NewCartUsecase(&memTx{s: s})

	_, err := uc.AddItem(ctx, guestIdentity("tok-123"), usecase.AddItemInput{OfferID: o.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = uc.GetCart(ctx, userIdentity(7))
	require.NoError(t, err)

	_, err = uc.ClaimGuestCart(ctx, 7, "tok-123")
	vErr, ok := usecase.AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, vErr.Message, "already has a cart")
}

func TestCartUsecase_IssueGuestToken_Unique(t *testing.T) {
	uc := usecase.NewCartUsecase(&memTx{s: newMemStore()})

	a := uc.IssueGuestToken()
	b := uc.IssueGuestToken()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
