package warehouse

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the core can report to a caller
// コアが呼び出し側へ返しうるすべての失敗を分類
type ErrorKind string

const (
	KindValidation             ErrorKind = "validation"               // 入力不正
	KindNotFound               ErrorKind = "not_found"                // 対象が存在しない
	KindLockedResource         ErrorKind = "locked_resource"          // ロケーションがロック中
	KindCapacityExceeded       ErrorKind = "capacity_exceeded"        // 収容数超過
	KindInsufficientStock      ErrorKind = "insufficient_stock"       // 在庫不足
	KindOverPick               ErrorKind = "over_pick"                // 注文数量超過ピッキング
	KindExceedsReturnable      ErrorKind = "exceeds_returnable"       // 返品可能数量超過
	KindInvalidStateTransition ErrorKind = "invalid_state_transition" // 許可されない状態遷移
	KindInvalidLotCode         ErrorKind = "invalid_lot_code"         // 解析できないロットコード
)

// DomainError is the structured failure every core operation returns.
// It carries the taxonomy kind and a human-readable reason.
// すべてのコア操作が返す構造化エラー。分類と可読な理由を保持する。
type DomainError struct {
	Kind    ErrorKind `json:"kind"`    // エラー分類
	Message string    `json:"message"` // エラーメッセージ
	Context string    `json:"context"` // コンテキスト情報
}

func (e *DomainError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("[%s] %s (%s)", e.Kind, e.Message, e.Context)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Is matches any DomainError of the same kind, so callers can test against
// the sentinel values with errors.Is
// 同じ分類のDomainErrorと一致させ、errors.Isでセンチネルと比較できるようにする
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// Sentinel errors for the common failure kinds
// 代表的な失敗分類のセンチネルエラー

var (
	// ErrInsufficientStock is returned when a negative adjust would drop below zero
	// 在庫をゼロ未満にする調整が要求された場合のエラー
	ErrInsufficientStock = &DomainError{Kind: KindInsufficientStock, Message: "在庫が不足しています"}

	// ErrCapacityExceeded is returned when a positive adjust would exceed location capacity
	// ロケーションの収容数を超える追加が要求された場合のエラー
	ErrCapacityExceeded = &DomainError{Kind: KindCapacityExceeded, Message: "ロケーションの収容数を超えています"}

	// ErrLocationLocked is returned when a locked location rejects a mutation
	// ロック中のロケーションへの変更が拒否された場合のエラー
	ErrLocationLocked = &DomainError{Kind: KindLockedResource, Message: "ロケーションはロックされています"}

	// ErrOverPick is returned when a pick would exceed the ordered quantity
	// 注文数量を超えるピッキングが要求された場合のエラー
	ErrOverPick = &DomainError{Kind: KindOverPick, Message: "ピッキング数量が注文数量を超えています"}

	// ErrExceedsReturnable is returned when a return asks for more than is returnable
	// 返品可能数量を超える返品が要求された場合のエラー
	ErrExceedsReturnable = &DomainError{Kind: KindExceedsReturnable, Message: "返品数量が返品可能数量を超えています"}

	// ErrInvalidLotCode is returned when a lot code cannot be parsed
	// ロットコードを解析できない場合のエラー
	ErrInvalidLotCode = &DomainError{Kind: KindInvalidLotCode, Message: "ロットコードが無効です"}

	// ErrProductNotFound is returned when a product doesn't exist
	// 商品が存在しない場合のエラー
	ErrProductNotFound = &DomainError{Kind: KindNotFound, Message: "商品が見つかりません"}

	// ErrLocationNotFound is returned when a location doesn't exist or is inactive
	// ロケーションが存在しないか非アクティブな場合のエラー
	ErrLocationNotFound = &DomainError{Kind: KindNotFound, Message: "ロケーションが見つかりません"}

	// ErrRecordNotFound is returned when an inventory record doesn't exist
	// 在庫記録が存在しない場合のエラー
	ErrRecordNotFound = &DomainError{Kind: KindNotFound, Message: "在庫記録が見つかりません"}

	// ErrReceiptNotFound is returned when a receipt doesn't exist
	// 入荷が存在しない場合のエラー
	ErrReceiptNotFound = &DomainError{Kind: KindNotFound, Message: "入荷が見つかりません"}

	// ErrContainerNotFound is returned when a container doesn't exist
	// コンテナが存在しない場合のエラー
	ErrContainerNotFound = &DomainError{Kind: KindNotFound, Message: "コンテナが見つかりません"}

	// ErrReceivedLineNotFound is returned when a received line doesn't exist
	// 受領明細が存在しない場合のエラー
	ErrReceivedLineNotFound = &DomainError{Kind: KindNotFound, Message: "受領明細が見つかりません"}

	// ErrOrderNotFound is returned when an order doesn't exist or is out of scope
	// 注文が存在しないか倉庫スコープ外の場合のエラー
	ErrOrderNotFound = &DomainError{Kind: KindNotFound, Message: "注文が見つかりません"}

	// ErrOrderLineNotFound is returned when the order doesn't line up the product
	// 注文に該当商品の明細が存在しない場合のエラー
	ErrOrderLineNotFound = &DomainError{Kind: KindNotFound, Message: "注文明細が見つかりません"}

	// ErrPickNotFound is returned when a pick record doesn't exist
	// ピック記録が存在しない場合のエラー
	ErrPickNotFound = &DomainError{Kind: KindNotFound, Message: "ピック記録が見つかりません"}

	// ErrReturnNotFound is returned when a return doesn't exist
	// 返品が存在しない場合のエラー
	ErrReturnNotFound = &DomainError{Kind: KindNotFound, Message: "返品が見つかりません"}

	// ErrReturnLineNotFound is returned when a return line doesn't exist
	// 返品明細が存在しない場合のエラー
	ErrReturnLineNotFound = &DomainError{Kind: KindNotFound, Message: "返品明細が見つかりません"}

	// ErrTransferNotFound is returned when a transfer order doesn't exist
	// 移動指示が存在しない場合のエラー
	ErrTransferNotFound = &DomainError{Kind: KindNotFound, Message: "移動指示が見つかりません"}
)

// NewValidationError creates a validation failure rejected before store access
// ストアアクセス前に拒否されるバリデーションエラーを作成
func NewValidationError(field, message, value string) *DomainError {
	return &DomainError{
		Kind:    KindValidation,
		Message: fmt.Sprintf("%s: %s", field, message),
		Context: value,
	}
}

// NewInvalidTransitionError creates a state-transition failure
// 状態遷移エラーを作成
func NewInvalidTransitionError(from, action string) *DomainError {
	return &DomainError{
		Kind:    KindInvalidStateTransition,
		Message: "この状態では許可されていない操作です",
		Context: fmt.Sprintf("%s -> %s", from, action),
	}
}

// NewLotCodeError creates an unparseable-lot-code failure
// ロットコード解析エラーを作成
func NewLotCodeError(code, reason string) *DomainError {
	return &DomainError{
		Kind:    KindInvalidLotCode,
		Message: fmt.Sprintf("ロットコードが無効です: %s", reason),
		Context: code,
	}
}

// StorageError represents a storage layer failure. These are the only
// failures not part of the caller-facing taxonomy.
// ストレージ層の失敗を表現。呼び出し側向け分類に含まれない唯一の失敗。
type StorageError struct {
	Operation string `json:"operation"` // 操作名
	Message   string `json:"message"`   // エラーメッセージ
	Cause     error  `json:"cause"`     // 原因エラー
}

func (e *StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ストレージエラー [%s]: %s (原因: %v)", e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("ストレージエラー [%s]: %s", e.Operation, e.Message)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new storage error
// 新しいストレージエラーを作成
func NewStorageError(operation, message string, cause error) *StorageError {
	return &StorageError{
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}
