package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatTokens renders a token amount to two decimal places, then strips
// trailing zeros and a trailing point: 12.00 -> "12", 12.50 -> "12.5".
func FormatTokens(d decimal.Decimal) string {
	s := d.StringFixed(2)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" || s == "" {
		s = "0"
	}
	return s
}

// FormatTokensSigned is FormatTokens with an explicit leading sign.
func FormatTokensSigned(d decimal.Decimal) string {
	s := FormatTokens(d)
	if !strings.HasPrefix(s, "-") {
		s = "+" + s
	}
	return s
}
