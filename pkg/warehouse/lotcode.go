package warehouse

import (
	"fmt"
	"regexp"
	"time"
)

// Lot codes are supplier-assigned manufacture week/year codes in the
// tire-industry DOT style: WWYY, week 01-53 and two-digit year.
// ロットコードはタイヤ業界のDOT方式による製造週・年コード（WWYY）。

var lotCodePattern = regexp.MustCompile(`^([0-4][0-9]|5[0-3])([0-9]{2})$`)

// ParseLotCode parses a WWYY lot code into its manufacture week and year
// WWYY形式のロットコードを製造週と年に分解
func ParseLotCode(code string) (week, year int, err error) {
	m := lotCodePattern.FindStringSubmatch(code)
	if m == nil {
		return 0, 0, NewLotCodeError(code, "WWYY形式（週01〜53、年2桁）である必要があります")
	}
	week = int(m[1][0]-'0')*10 + int(m[1][1]-'0')
	year = 2000 + int(m[2][0]-'0')*10 + int(m[2][1]-'0')
	if week < 1 {
		return 0, 0, NewLotCodeError(code, "週は01〜53の範囲である必要があります")
	}
	return week, year, nil
}

// ManufactureDate resolves a lot code to the Monday of its ISO manufacture week
// ロットコードをISO製造週の月曜日に解決
func ManufactureDate(code string) (time.Time, error) {
	week, year, err := ParseLotCode(code)
	if err != nil {
		return time.Time{}, err
	}
	// ISO 8601: 1月4日は常に第1週に含まれる
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	weekday := int(jan4.Weekday())
	if weekday == 0 {
		weekday = 7 // 日曜日をISOの7に合わせる
	}
	week1Monday := jan4.AddDate(0, 0, -(weekday - 1))
	manufacture := week1Monday.AddDate(0, 0, (week-1)*7)
	if _, isoWeek := manufacture.ISOWeek(); isoWeek != week {
		// 第53週を持たない年に53が指定された場合
		return time.Time{}, NewLotCodeError(code, fmt.Sprintf("%d年に第%d週は存在しません", year, week))
	}
	return manufacture, nil
}

// ExpiryFromLotCode derives the expiry date from a lot code and the product's
// configured shelf life. An empty code yields no expiry.
// ロットコードと商品の有効年数から有効期限を導出。空コードは期限なし。
func ExpiryFromLotCode(code string, shelfLifeYears int) (*time.Time, error) {
	if code == "" {
		return nil, nil
	}
	manufacture, err := ManufactureDate(code)
	if err != nil {
		return nil, err
	}
	if shelfLifeYears <= 0 {
		return nil, nil
	}
	expiry := manufacture.AddDate(shelfLifeYears, 0, 0)
	return &expiry, nil
}
