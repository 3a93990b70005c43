package job

import (
	"context"
	"time"

	"marketplace/internal/repository"

	"github.com/labstack/gommon/log"
)

// Sweeper は定期的なハウスキーピングを行う。
// 空のまま放置されたゲストカートの削除と、長期間ログインのない
// ユーザーの無効化を日次で実行する。
type Sweeper struct {
	tx             repository.TransactionManager
	staleCartAge   time.Duration
	dormantUserAge time.Duration
	interval       time.Duration
}

func NewSweeper(tx repository.TransactionManager, staleCartDays, dormantUserDays int) *Sweeper {
	return &Sweeper{
		tx:             tx,
		staleCartAge:   time.Duration(staleCartDays) * 24 * time.Hour,
		dormantUserAge: time.Duration(dormantUserDays) * 24 * time.Hour,
		interval:       24 * time.Hour,
	}
}

// Run は ctx がキャンセルされるまでブロックする。
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	now := time.Now()
	err := s.tx.WithinTx(ctx, func(r repository.TxRepos) error {
		carts, err := r.Carts().DeleteStaleEmptyBefore(ctx, now.Add(-s.staleCartAge))
		if err != nil {
			return err
		}
		users, err := r.Users().DeactivateDormantBefore(ctx, now.Add(-s.dormantUserAge))
		if err != nil {
			return err
		}
		if carts > 0 || users > 0 {
			log.Infof("sweep: removed %d stale carts, deactivated %d dormant users", carts, users)
		}
		return nil
	})
	if err != nil {
		log.Errorf("sweep failed: %v", err)
	}
}
