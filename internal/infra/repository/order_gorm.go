package repository

import (
	"context"
	"errors"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func (r *OrderGormRepository) Create(ctx context.Context, order model.Order) (int64, error) {
	// idempotency_keyの一意制約違反で外側のtxを巻き添えにしないようSAVEPOINTで切る
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&order).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return 0, repo.ErrDuplicateKey
		}
		return 0, err
	}
	return order.ID, nil
}

// PostgreSQLの一意制約違反（23505）かどうか
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (r *OrderGormRepository) identityScope(q *gorm.DB, id repo.Identity) *gorm.DB {
	if id.IsUser() {
		return q.Where("user_id = ?", id.UserID)
	}
	return q.Where("guest_token = ?", id.GuestToken)
}

func (r *OrderGormRepository) ListByIdentity(ctx context.Context, id repo.Identity, page int, limit int) ([]model.Order, int64, error) {
	var total int64
	if err := r.identityScope(r.db.WithContext(ctx).Model(&model.Order{}), id).
		Count(&total).Error; err != nil {
		return []model.Order{}, 0, err
	}

	var items []model.Order
	offset := (page - 1) * limit
	err := r.identityScope(r.db.WithContext(ctx), id).
		Order("id desc").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return []model.Order{}, 0, err
	}

	return items, total, nil
}

func (r *OrderGormRepository) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	res := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ?", orderID).
		Update("status", status)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderGormRepository) FindByIdempotencyKey(ctx context.Context, id repo.Identity, key string) (model.Order, bool, error) {
	var o model.Order
	err := r.identityScope(r.db.WithContext(ctx), id).
		Where("idempotency_key = ?", key).
		First(&o).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, false, nil
	}
	if err != nil {
		return model.Order{}, false, err
	}
	return o, true, nil
}
