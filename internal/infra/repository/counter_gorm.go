package repository

import (
	"context"
	"errors"

	"marketplace/internal/domain/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CounterGormRepository struct {
	db *gorm.DB
}

func NewCounterGormRepository(db *gorm.DB) *CounterGormRepository {
	return &CounterGormRepository{db: db}
}

// 行ロック付きのインクリメント。複数インスタンスが同時に呼んでも採番は重複しない。
func (r *CounterGormRepository) NextValue(ctx context.Context, name string) (int64, error) {
	var c model.Counter

	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("name = ?", name).
		First(&c).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		c = model.Counter{Name: name, Value: 1}
		createErr := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Create(&c).Error
		})
		if createErr == nil {
			return c.Value, nil
		}
		if !isUniqueViolation(createErr) {
			return 0, createErr
		}

		// 初回採番の同時実行で負けた側。勝った行をロックして続きから数える。
		if err := r.db.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("name = ?", name).
			First(&c).Error; err != nil {
			return 0, err
		}
	} else if err != nil {
		return 0, err
	}

	c.Value++
	if err := r.db.WithContext(ctx).
		Model(&model.Counter{}).
		Where("name = ?", name).
		Update("value", c.Value).Error; err != nil {
		return 0, err
	}
	return c.Value, nil
}
