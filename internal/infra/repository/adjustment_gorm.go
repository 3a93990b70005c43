package repository

import (
	"context"

	"marketplace/internal/domain/model"

	"gorm.io/gorm"
)

type OfferAdjustmentGormRepository struct {
	db *gorm.DB
}

func NewOfferAdjustmentGormRepository(db *gorm.DB) *OfferAdjustmentGormRepository {
	return &OfferAdjustmentGormRepository{db: db}
}

// 調整履歴作成
func (r *OfferAdjustmentGormRepository) Create(ctx context.Context, adj model.OfferAdjustment) error {
	return r.db.WithContext(ctx).Create(&adj).Error
}

func (r *OfferAdjustmentGormRepository) ListByOfferID(ctx context.Context, offerID int64) ([]model.OfferAdjustment, error) {
	var adjs []model.OfferAdjustment
	if err := r.db.WithContext(ctx).
		Where("offer_id = ?", offerID).
		Order("id desc").
		Find(&adjs).Error; err != nil {
		return []model.OfferAdjustment{}, err
	}
	return adjs, nil
}
