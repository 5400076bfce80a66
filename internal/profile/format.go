package profile

import (
	"math"
	"strconv"
	"strings"
)

// FormatCZK renders an amount the Czech way: "5 000 000 Kč".
func FormatCZK(amount float64) string {
	return GroupThousands(int64(math.Round(amount))) + " Kč"
}

// GroupThousands inserts a space between thousands groups.
func GroupThousands(n int64) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	digits := strconv.FormatInt(n, 10)
	if len(digits) <= 3 {
		return sign + digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(digits[i : i+3])
	}
	return sign + b.String()
}

// FormatPercent renders a ratio (0.8) as "80 %".
func FormatPercent(ratio float64) string {
	pct := math.Round(ratio*1000) / 10
	if pct == math.Trunc(pct) {
		return strconv.FormatFloat(pct, 'f', 0, 64) + " %"
	}
	return strings.Replace(strconv.FormatFloat(pct, 'f', 1, 64), ".", ",", 1) + " %"
}

// Display renders a field value for the prompt summary.
func (p Profile) Display(f Field) (string, bool) {
	if IsMoney(f) {
		if n, ok := p.Float(f); ok {
			return FormatCZK(n), true
		}
	}
	switch f {
	case FieldAge:
		if n, ok := p.Int(f); ok {
			return strconv.Itoa(n) + " let", true
		}
	case FieldLoanTermYears:
		if n, ok := p.Int(f); ok {
			return strconv.Itoa(n) + " let", true
		}
	case FieldExistingMortgageRate:
		if n, ok := p.Float(f); ok {
			return strings.Replace(strconv.FormatFloat(n, 'f', -1, 64), ".", ",", 1) + " %", true
		}
	case FieldPropertySize:
		if n, ok := p.Float(f); ok {
			return strconv.FormatFloat(n, 'f', -1, 64) + " m²", true
		}
	}
	return p.String(f)
}
