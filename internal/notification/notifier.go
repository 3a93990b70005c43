package notification

import "context"

// 通知はfire-and-forget。コアは送信失敗を業務エラーにしない（ログのみ）。
// 実際のメール配送は外部サービスの仕事で、ここはその境界。
type Notifier interface {
	Send(ctx context.Context, recipient string, subject string, htmlBody string) error
}
