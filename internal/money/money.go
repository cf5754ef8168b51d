// Package money parses the decimal-comma amounts found in NF-e exports.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Parse reads an amount written with either a decimal comma ("10,50",
// "1.234,56") or a decimal point ("10.50"). The boolean is false when the
// value is not a number; callers decide whether that is worth reporting.
func Parse(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Sum adds every parseable value and counts the ones it had to skip.
// The total is a best-effort partial sum.
func Sum(values []string) (total decimal.Decimal, skipped int) {
	total = decimal.Zero
	for _, v := range values {
		d, ok := Parse(v)
		if !ok {
			skipped++
			continue
		}
		total = total.Add(d)
	}
	return total, skipped
}

// Format renders an amount with two decimal places.
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}
