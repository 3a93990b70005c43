package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

type CouponRepository interface {
	FindActiveByCode(ctx context.Context, code string) (model.Coupon, error)
}
