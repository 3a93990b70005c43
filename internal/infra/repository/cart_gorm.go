package repository

import (
	"context"
	"errors"
	"time"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

// 持ち主の条件。user_id か guest_token のどちらか一方で引く。
func (r *CartGormRepository) identityScope(q *gorm.DB, id repo.Identity) *gorm.DB {
	if id.IsUser() {
		return q.Where("user_id = ? AND status = ?", id.UserID, model.CartStatusActive)
	}
	return q.Where("guest_token = ? AND status = ?", id.GuestToken, model.CartStatusActive)
}

// ACTIVEカートを取得し、無ければ作成
func (r *CartGormRepository) GetOrCreateActiveByIdentity(ctx context.Context, id repo.Identity) (model.Cart, error) {
	if id.IsEmpty() {
		return model.Cart{}, errors.New("empty identity")
	}

	var cart model.Cart

	//ロック付きで探す→無ければ作る
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		findErr := r.identityScope(
			tx.Clauses(clause.Locking{Strength: "UPDATE"}),
			id,
		).First(&cart).Error

		if findErr == nil {
			return nil
		}
		if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return findErr
		}

		// 無ければ作る。持ち主はどちらか一方だけをセットする。
		newCart := model.Cart{
			Status:       model.CartStatusActive,
			Subtotal:     decimal.Zero,
			ShippingCost: decimal.Zero,
			TotalAmount:  decimal.Zero,
		}
		if id.IsUser() {
			uid := id.UserID
			newCart.UserID = &uid
		} else {
			tok := id.GuestToken
			newCart.GuestToken = &tok
		}

		// SAVEPOINTで切る。部分一意インデックス違反で外側のtxごと
		// アボートさせないため。
		createErr := tx.Transaction(func(tx2 *gorm.DB) error {
			return tx2.Create(&newCart).Error
		})
		if createErr == nil {
			cart = newCart
			return nil
		}
		if !isUniqueViolation(createErr) {
			return createErr
		}

		// 同時作成で負けた側。勝った行を取り直す。
		return r.identityScope(tx, id).First(&cart).Error
	})

	if err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

func (r *CartGormRepository) FindActiveByIdentity(ctx context.Context, id repo.Identity) (model.Cart, error) {
	var cart model.Cart

	// ACTIVEは部分一意インデックスにより高々1行
	err := r.identityScope(r.db.WithContext(ctx), id).
		First(&cart).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Cart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

func (r *CartGormRepository) FindByIDForUpdate(ctx context.Context, cartID int64) (model.Cart, error) {
	var cart model.Cart

	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", cartID).
		First(&cart).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Cart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

func (r *CartGormRepository) Save(ctx context.Context, cart model.Cart) error {
	return r.db.WithContext(ctx).Save(&cart).Error
}

func (r *CartGormRepository) UpdateStatus(ctx context.Context, cartID int64, status model.CartStatus) error {
	res := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ?", cartID).
		Update("status", status)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 明細とグループを全削除
func (r *CartGormRepository) Clear(ctx context.Context, cartID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart model.Cart
		if err := tx.Where("id = ?", cartID).First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repo.ErrNotFound
			}
			return err
		}

		if err := tx.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("cart_id = ?", cartID).Delete(&model.CartSupplierGroup{}).Error; err != nil {
			return err
		}
		return nil
	})
}

// ゲストカートをユーザーへ引き継ぐ
func (r *CartGormRepository) TransferOwnership(ctx context.Context, cartID int64, userID int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]interface{}{
			"user_id":     userID,
			"guest_token": nil,
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 古くて空のACTIVEカートだけを消す。作成中のカート（明細あり・新しい）は対象外。
func (r *CartGormRepository) DeleteStaleEmptyBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", model.CartStatusActive, cutoff).
		Where("NOT EXISTS (SELECT 1 FROM cart_items WHERE cart_items.cart_id = carts.id)").
		Delete(&model.Cart{})

	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
