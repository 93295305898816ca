// Package money 计算工单的小计/增值税/合计。
//
// 金额全部以“分”（int64）计算与存储，税率以基点（bp）表示，
// 只在展示边界转成两位小数字符串，避免多行累计时的浮点漂移。
package money

import (
	"fmt"
	"strings"
)

// DefaultVATRateBasisPoints 默认增值税率：2400bp = 24%。
const DefaultVATRateBasisPoints int64 = 2400

// Line 一条可计费的服务行。
type Line struct {
	Description    string `json:"description"`
	Quantity       int64  `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// normalize 数量缺省/非法时取 1，单价为负时按 0 计，
// 非法输入不允许以负数或 NaN 的形式进入求和。
func (l Line) normalize() (qty, price int64) {
	qty = l.Quantity
	if qty < 1 {
		qty = 1
	}
	price = l.UnitPriceCents
	if price < 0 {
		price = 0
	}
	return qty, price
}

// Subtotal 小计 = Σ max(quantity,1) × max(unit_price,0)，单位：分。
func Subtotal(lines []Line) int64 {
	var sum int64
	for _, l := range lines {
		qty, price := l.normalize()
		sum += qty * price
	}
	return sum
}

// VAT 按基点税率对小计取税，四舍五入到分。
func VAT(subtotalCents, rateBasisPoints int64) int64 {
	if rateBasisPoints <= 0 {
		rateBasisPoints = DefaultVATRateBasisPoints
	}
	if subtotalCents <= 0 {
		return 0
	}
	return (subtotalCents*rateBasisPoints + 5000) / 10000
}

// Total 合计 = 小计 + 税。
func Total(subtotalCents, vatCents int64) int64 {
	return subtotalCents + vatCents
}

// Amounts 一次算出的三元组。三个派生字段必须始终由同一批行一起重算，
// 不允许单独编辑其中任何一个。
type Amounts struct {
	SubtotalCents int64 `json:"subtotal_cents"`
	VATCents      int64 `json:"vat_cents"`
	TotalCents    int64 `json:"total_cents"`
}

// Compute 由服务行一次性派生 (subtotal, vat, total)。
// 所有工单的生产方（表单、种子数据、导入）都必须经由这里取得金额。
func Compute(lines []Line, rateBasisPoints int64) Amounts {
	subtotal := Subtotal(lines)
	vat := VAT(subtotal, rateBasisPoints)
	return Amounts{
		SubtotalCents: subtotal,
		VATCents:      vat,
		TotalCents:    Total(subtotal, vat),
	}
}

// FormatEuro 展示边界：分 -> "1234.56"。
func FormatEuro(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// ParseEuro 展示边界的逆向："1234.56" -> 分。
// 小数位最多两位，多余的位直接拒绝（金额入口不做静默舍入）。
func ParseEuro(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("amount is empty")
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	var cents int64
	for _, part := range []string{whole, frac} {
		for _, r := range part {
			if r < '0' || r > '9' {
				return 0, fmt.Errorf("invalid amount %q", s)
			}
		}
	}
	var euros int64
	if _, err := fmt.Sscanf(whole, "%d", &euros); err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	var sub int64
	if _, err := fmt.Sscanf(frac, "%d", &sub); err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	cents = euros*100 + sub
	if neg {
		cents = -cents
	}
	return cents, nil
}
