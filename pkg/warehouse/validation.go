package warehouse

import (
	"fmt"
	"regexp"
)

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateID 識別子の形式をバリデーション
func ValidateID(field, value string) error {
	if value == "" {
		return NewValidationError(field, "識別子が空です", value)
	}
	if len(value) > 255 {
		return NewValidationError(field, "識別子が長すぎます", value)
	}
	// 英数字、ハイフン、アンダースコアのみ許可
	if !idPattern.MatchString(value) {
		return NewValidationError(field, "識別子に無効な文字が含まれています", value)
	}
	return nil
}

// ValidatePositiveQuantity 正の数量をバリデーション
func ValidatePositiveQuantity(quantity int64) error {
	if quantity <= 0 {
		return NewValidationError("quantity", "数量は正の値である必要があります", fmt.Sprintf("%d", quantity))
	}
	if quantity > 999999999 {
		return NewValidationError("quantity", "数量が有効範囲を超えています", fmt.Sprintf("%d", quantity))
	}
	return nil
}

// ValidateDelta ゼロ以外の数量変化をバリデーション
func ValidateDelta(delta int64) error {
	if delta == 0 {
		return NewValidationError("delta", "数量変化はゼロ以外である必要があります", "0")
	}
	if delta < -999999999 || delta > 999999999 {
		return NewValidationError("delta", "数量変化が有効範囲を超えています", fmt.Sprintf("%d", delta))
	}
	return nil
}
