package repository

import (
	"context"
	"errors"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"gorm.io/gorm"
)

// 商品・サプライヤーの読み取り。カタログの編集は外部（管理画面）の仕事。

type ProductGormRepository struct {
	db *gorm.DB
}

func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

func (r *ProductGormRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

type SupplierGormRepository struct {
	db *gorm.DB
}

func NewSupplierGormRepository(db *gorm.DB) *SupplierGormRepository {
	return &SupplierGormRepository{db: db}
}

func (r *SupplierGormRepository) FindByID(ctx context.Context, id int64) (model.Supplier, error) {
	var s model.Supplier
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Supplier{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Supplier{}, err
	}
	return s, nil
}

func (r *SupplierGormRepository) FindByIDs(ctx context.Context, ids []int64) ([]model.Supplier, error) {
	if len(ids) == 0 {
		return []model.Supplier{}, nil
	}
	var suppliers []model.Supplier
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("id asc").
		Find(&suppliers).Error; err != nil {
		return []model.Supplier{}, err
	}
	return suppliers, nil
}
