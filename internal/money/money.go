// Package money formats Kenyan shilling amounts and percentages for display.
package money

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency is the ISO code shown in front of every amount.
const Currency = "KES"

var printer = message.NewPrinter(language.English)

// FormatKES renders an amount as whole shillings with thousands separators,
// e.g. "KES 12,500" or "-KES 300".
func FormatKES(amount decimal.Decimal) string {
	whole := amount.Round(0)
	sign := ""
	if whole.IsNegative() {
		sign = "-"
		whole = whole.Neg()
	}
	return sign + Currency + " " + Group(whole.IntPart())
}

// Group inserts thousands separators into n.
func Group(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatPercent renders v with at most two decimals and a trailing "%".
func FormatPercent(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	if s == "-0" {
		s = "0"
	}
	return s + "%"
}
