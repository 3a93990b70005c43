package repository

import (
	"context"
	"errors"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OfferGormRepository struct {
	db *gorm.DB
}

// DI
func NewOfferGormRepository(db *gorm.DB) *OfferGormRepository {
	return &OfferGormRepository{db: db}
}

func (r *OfferGormRepository) Create(ctx context.Context, o model.Offer) (model.Offer, error) {
	// (product_id, supplier_id) の一意制約違反はSAVEPOINTで切って外側のtxを守る
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&o).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return model.Offer{}, repo.ErrDuplicateKey
		}
		return model.Offer{}, err
	}
	return o, nil
}

func (r *OfferGormRepository) FindByID(ctx context.Context, id int64) (model.Offer, error) {
	var o model.Offer
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Offer{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Offer{}, err
	}
	return o, nil
}

func (r *OfferGormRepository) FindByIDForUpdate(ctx context.Context, id int64) (model.Offer, error) {
	var o model.Offer
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Offer{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Offer{}, err
	}
	return o, nil
}

func (r *OfferGormRepository) FindByPair(ctx context.Context, productID int64, supplierID int64) (model.Offer, error) {
	var o model.Offer
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND supplier_id = ?", productID, supplierID).
		First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Offer{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Offer{}, err
	}
	return o, nil
}

func (r *OfferGormRepository) ListByProductID(ctx context.Context, productID int64) ([]model.Offer, error) {
	var offers []model.Offer
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("id asc").
		Find(&offers).Error; err != nil {
		return []model.Offer{}, err
	}
	return offers, nil
}

func (r *OfferGormRepository) UpdatePrice(ctx context.Context, offerID int64, price decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&model.Offer{}).
		Where("id = ?", offerID).
		Update("price", price)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// quantityとstatusを同時更新（status==OUT_OF_STOCK ⟺ quantity==0）
func (r *OfferGormRepository) UpdateQuantity(ctx context.Context, offerID int64, quantity int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Offer{}).
		Where("id = ?", offerID).
		Updates(map[string]interface{}{
			"quantity": quantity,
			"status":   model.StatusFor(quantity),
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 在庫が足りるときだけ減らす。read-then-writeではなく条件付きUPDATE1発。
// 0になったらOUT_OF_STOCKへ倒す。
func (r *OfferGormRepository) DecreaseStockIfEnough(ctx context.Context, offerID int64, qty int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Offer{}).
		Where("id = ? AND quantity >= ?", offerID, qty).
		Updates(map[string]interface{}{
			"quantity": gorm.Expr("quantity - ?", qty),
			"status": gorm.Expr(
				"CASE WHEN quantity - ? <= 0 THEN ? ELSE ? END",
				qty, string(model.OfferStatusOutOfStock), string(model.OfferStatusAvailable),
			),
		})

	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, nil
}

// 在庫戻し（キャンセル）
func (r *OfferGormRepository) IncreaseStock(ctx context.Context, offerID int64, qty int64) error {
	if qty <= 0 {
		return nil
	}
	res := r.db.WithContext(ctx).
		Model(&model.Offer{}).
		Where("id = ?", offerID).
		Updates(map[string]interface{}{
			"quantity": gorm.Expr("quantity + ?", qty),
			"status":   string(model.OfferStatusAvailable),
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OfferGormRepository) DeleteByID(ctx context.Context, offerID int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Offer{}, offerID)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// productの派生値を書き戻す。
// price = AVAILABLEなOfferの最安値、stock = 全Offerの在庫合計。
// 商品が既に消えていたら（商品ごと削除の最中など）何もしない。
func (r *OfferGormRepository) RecomputeProductAggregate(ctx context.Context, productID int64) error {
	return r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", productID).
		Updates(map[string]interface{}{
			"stock": gorm.Expr(
				"(SELECT COALESCE(SUM(quantity), 0) FROM offers WHERE product_id = ?)", productID,
			),
			"price": gorm.Expr(
				"(SELECT COALESCE(MIN(price), 0) FROM offers WHERE product_id = ? AND status = ?)",
				productID, string(model.OfferStatusAvailable),
			),
		}).Error
}
