// Package money formats naira amounts for chat messages.
package money

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const Symbol = "₦"

// Format renders an amount with two decimals and thousands separators,
// e.g. ₦12,500.00.
func Format(amount decimal.Decimal) string {
	fixed := amount.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if amount.IsNegative() && !amount.Round(2).IsZero() {
		b.WriteByte('-')
	}
	b.WriteString(Symbol)
	b.WriteString(group(whole))
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// FormatWhole renders a whole-naira limit such as ₦50,000.
func FormatWhole(amount int64) string {
	if amount < 0 {
		return "-" + Symbol + group(strconv.FormatInt(-amount, 10))
	}
	return Symbol + group(strconv.FormatInt(amount, 10))
}

func group(digits string) string {
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Round2 rounds to kobo precision.
func Round2(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}
