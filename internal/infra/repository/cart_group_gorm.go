package repository

import (
	"context"
	"errors"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CartGroupGormRepository struct {
	db *gorm.DB
}

func NewCartGroupGormRepository(db *gorm.DB) *CartGroupGormRepository {
	return &CartGroupGormRepository{db: db}
}

func (r *CartGroupGormRepository) ListByCartID(ctx context.Context, cartID int64) ([]model.CartSupplierGroup, error) {
	var groups []model.CartSupplierGroup
	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("id asc").
		Find(&groups).Error; err != nil {
		return []model.CartSupplierGroup{}, err
	}
	return groups, nil
}

func (r *CartGroupGormRepository) FindByCartAndSupplier(ctx context.Context, cartID int64, supplierID int64) (model.CartSupplierGroup, error) {
	var g model.CartSupplierGroup
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND supplier_id = ?", cartID, supplierID).
		First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.CartSupplierGroup{}, repo.ErrNotFound
	}
	if err != nil {
		return model.CartSupplierGroup{}, err
	}
	return g, nil
}

func (r *CartGroupGormRepository) Create(ctx context.Context, g model.CartSupplierGroup) (model.CartSupplierGroup, error) {
	if err := r.db.WithContext(ctx).Create(&g).Error; err != nil {
		return model.CartSupplierGroup{}, err
	}
	return g, nil
}

// supplier_totalへの差分加算
func (r *CartGroupGormRepository) AddToTotal(ctx context.Context, groupID int64, delta decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&model.CartSupplierGroup{}).
		Where("id = ?", groupID).
		Update("supplier_total", gorm.Expr("supplier_total + ?", delta))

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *CartGroupGormRepository) DeleteByID(ctx context.Context, groupID int64) error {
	res := r.db.WithContext(ctx).Delete(&model.CartSupplierGroup{}, groupID)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
