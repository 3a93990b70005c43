package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

type OfferAdjustmentRepository interface {
	// 調整履歴作成
	Create(ctx context.Context, adj model.OfferAdjustment) error
	ListByOfferID(ctx context.Context, offerID int64) ([]model.OfferAdjustment, error)
}
