package notification

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
)

// 配送サービス未接続の環境向け。送るはずだった内容をログに落とすだけ。
// message_id は配送後の問い合わせ突き合わせ用。
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, recipient string, subject string, htmlBody string) error {
	log.Infof("notification: message_id=%s to=%s subject=%q bytes=%d", uuid.NewString(), recipient, subject, len(htmlBody))
	return nil
}
