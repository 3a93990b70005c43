package repository

import (
	"context"

	"marketplace/internal/domain/model"

	"gorm.io/gorm"
)

type OrderItemGormRepository struct {
	db *gorm.DB
}

func NewOrderItemGormRepository(db *gorm.DB) *OrderItemGormRepository {
	return &OrderItemGormRepository{db: db}
}

func (r *OrderItemGormRepository) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].OrderID = orderID
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *OrderItemGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	var items []model.OrderItem
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.OrderItem{}, err
	}
	return items, nil
}

type OrderGroupGormRepository struct {
	db *gorm.DB
}

func NewOrderGroupGormRepository(db *gorm.DB) *OrderGroupGormRepository {
	return &OrderGroupGormRepository{db: db}
}

func (r *OrderGroupGormRepository) CreateBulk(ctx context.Context, orderID int64, groups []model.OrderSupplierGroup) error {
	if len(groups) == 0 {
		return nil
	}
	for i := range groups {
		groups[i].OrderID = orderID
	}
	return r.db.WithContext(ctx).Create(&groups).Error
}

func (r *OrderGroupGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderSupplierGroup, error) {
	var groups []model.OrderSupplierGroup
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("supplier_id asc").
		Find(&groups).Error; err != nil {
		return []model.OrderSupplierGroup{}, err
	}
	return groups, nil
}
