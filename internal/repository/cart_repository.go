package repository

import (
	"context"
	"time"

	"marketplace/internal/domain/model"
)

// カートの持ち主。UserID か GuestToken のどちらか一方だけが入る。
type Identity struct {
	UserID     int64
	GuestToken string
}

func (id Identity) IsUser() bool  { return id.UserID > 0 }
func (id Identity) IsGuest() bool { return id.UserID <= 0 && id.GuestToken != "" }
func (id Identity) IsEmpty() bool { return id.UserID <= 0 && id.GuestToken == "" }

type CartRepository interface {
	GetOrCreateActiveByIdentity(ctx context.Context, id Identity) (model.Cart, error)
	FindActiveByIdentity(ctx context.Context, id Identity) (model.Cart, error)

	// カート単位の直列化のため、変更系はまず行ロックで取り直す
	FindByIDForUpdate(ctx context.Context, cartID int64) (model.Cart, error)

	// 金額・クーポン・配送/連絡先フィールドの書き戻し
	Save(ctx context.Context, cart model.Cart) error

	UpdateStatus(ctx context.Context, cartID int64, status model.CartStatus) error

	// 明細とグループを全削除（チェックアウト後のクリア）
	Clear(ctx context.Context, cartID int64) error

	// ゲストカートをユーザーへ引き継ぐ（guest_tokenは消す）
	TransferOwnership(ctx context.Context, cartID int64, userID int64) error

	// スイープ用：指定時刻より古い空のACTIVEカートを削除し、件数を返す
	DeleteStaleEmptyBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
