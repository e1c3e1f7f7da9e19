package warehouse

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestParseLotCode はWWYYロットコードの解析テスト
func TestParseLotCode(t *testing.T) {
	tests := []struct {
		code string
		week int
		year int
	}{
		{"1525", 15, 2025},
		{"0123", 1, 2023},
		{"5320", 53, 2020},
		{"4099", 40, 2099},
	}
	for _, tt := range tests {
		week, year, err := ParseLotCode(tt.code)
		assert.NoError(t, err, tt.code)
		assert.Equal(t, tt.week, week, tt.code)
		assert.Equal(t, tt.year, year, tt.code)
	}
}

// TestParseLotCode_Invalid は不正なロットコードの拒否テスト
func TestParseLotCode_Invalid(t *testing.T) {
	invalid := []string{
		"",      // 空
		"123",   // 桁不足
		"12345", // 桁超過
		"5425",  // 週54は存在しない
		"0025",  // 週00は存在しない
		"abcd",  // 数字以外
		"1x25",  // 数字以外
	}
	for _, code := range invalid {
		_, _, err := ParseLotCode(code)
		assert.Error(t, err, code)
		assert.True(t, errors.Is(err, ErrInvalidLotCode), code)
	}
}

// TestManufactureDate はISO週から製造日（月曜日）への解決テスト
func TestManufactureDate(t *testing.T) {
	// 2025年第15週の月曜日は4月7日
	date, err := ManufactureDate("1525")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.April, 7, 0, 0, 0, 0, time.UTC), date)
	assert.Equal(t, time.Monday, date.Weekday())

	// 2023年第1週の月曜日は1月2日
	date, err = ManufactureDate("0123")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2023, time.January, 2, 0, 0, 0, 0, time.UTC), date)
}

// TestManufactureDate_Week53 は第53週を持たない年の拒否テスト
func TestManufactureDate_Week53(t *testing.T) {
	// 2020年は第53週を持つ
	date, err := ManufactureDate("5320")
	assert.NoError(t, err)
	assert.Equal(t, time.Monday, date.Weekday())

	// 2023年は第52週まで
	_, err = ManufactureDate("5323")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidLotCode))
}

// TestExpiryFromLotCode は有効期限導出のテスト
func TestExpiryFromLotCode(t *testing.T) {
	expiry, err := ExpiryFromLotCode("1525", 6)
	assert.NoError(t, err)
	if assert.NotNil(t, expiry) {
		assert.Equal(t, time.Date(2031, time.April, 7, 0, 0, 0, 0, time.UTC), *expiry)
	}

	// 空コードは期限なし
	expiry, err = ExpiryFromLotCode("", 6)
	assert.NoError(t, err)
	assert.Nil(t, expiry)

	// 有効年数ゼロは期限なし
	expiry, err = ExpiryFromLotCode("1525", 0)
	assert.NoError(t, err)
	assert.Nil(t, expiry)

	_, err = ExpiryFromLotCode("9925", 6)
	assert.Error(t, err)
}
