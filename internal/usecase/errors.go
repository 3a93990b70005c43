package usecase

import (
	"errors"
	"fmt"
)

// エラーはすべて型付きでハンドラへ返す。HTTPステータスへの変換はhandler側のwriteErrorが行う。
// ストレージ層のエラー（gorm.ErrRecordNotFoundなど）はrepository境界で変換済みで、ここまで漏れてこない。

// 入力不備・前提条件違反（400）
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// 持ち主情報（user/guest）が無い（401）
type UnauthorizedError struct{}

func (e *UnauthorizedError) Error() string { return "unauthorized" }

// 参照先が存在しない（404）
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

func NewNotFoundError(resource string) error {
	return &NotFoundError{Resource: resource}
}

// 在庫不足。追加・数量変更時は409でユーザーが直せる。
// チェックアウトの減算時に出た場合はFatal=true（検証パスで弾けているはずの競合の痕跡、500扱い）。
type InsufficientStockError struct {
	OfferID   int64
	Requested int64
	Available int64
	Fatal     bool
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for offer %d: requested %d, available %d", e.OfferID, e.Requested, e.Available)
}

// Offerの重複作成。既存を返すのでハンドラまで届くことは無い。
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// チェックアウト検証で見つかった明細ごとの在庫問題。
// カートは一切変更されないので、呼び出し側が取り直してリトライする。
type StockIssueKind string

const (
	StockIssueMissing    StockIssueKind = "missing"
	StockIssueReduced    StockIssueKind = "reduced"
	StockIssueOutOfStock StockIssueKind = "out_of_stock"
)

type StockIssue struct {
	Kind       StockIssueKind `json:"kind"`
	LineItemID int64          `json:"line_item_id"`
	OfferID    int64          `json:"offer_id"`
	Requested  int64          `json:"requested"`
	Available  int64          `json:"available"`
}

type StockIssuesError struct {
	Issues []StockIssue
}

func (e *StockIssuesError) Error() string {
	return fmt.Sprintf("checkout blocked by %d stock issue(s)", len(e.Issues))
}

func AsValidationError(err error) (*ValidationError, bool) {
	var e *ValidationError
	ok := errors.As(err, &e)
	return e, ok
}

func AsUnauthorizedError(err error) (*UnauthorizedError, bool) {
	var e *UnauthorizedError
	ok := errors.As(err, &e)
	return e, ok
}

func AsNotFoundError(err error) (*NotFoundError, bool) {
	var e *NotFoundError
	ok := errors.As(err, &e)
	return e, ok
}

func AsInsufficientStockError(err error) (*InsufficientStockError, bool) {
	var e *InsufficientStockError
	ok := errors.As(err, &e)
	return e, ok
}

func AsStockIssuesError(err error) (*StockIssuesError, bool) {
	var e *StockIssuesError
	ok := errors.As(err, &e)
	return e, ok
}
