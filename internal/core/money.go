// Package core provides yen parsing and formatting utilities.
//
// Amounts are whole yen stored as int64. The yen has no minor unit, so
// there is no decimal handling anywhere in the ledger.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseAmount converts a user supplied yen amount to int64.
//
// It accepts an optional yen sign ("¥" or "￥") or "円" suffix and ","
// or "_" digit grouping. The result is always positive. Returns
// ErrInvalidAmount for empty, signed, fractional or zero values.
//
// Examples:
//
//	ParseAmount("1500")    -> 1500, nil
//	ParseAmount("¥1,500")  -> 1500, nil
//	ParseAmount("1,500円") -> 1500, nil
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "¥")
	s = strings.TrimPrefix(s, "￥")
	s = strings.TrimSuffix(s, "円")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == ',' || r == '_':
			continue
		case unicode.IsDigit(r) && r < unicode.MaxASCII:
			b.WriteRune(r)
		default:
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil || v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// FormatYen renders an amount as "¥1,234". Negative values, which only
// occur for net balances, render as "-¥1,234".
func FormatYen(amount int64) string {
	neg := amount < 0
	u := uint64(amount)
	if neg {
		u = uint64(-amount)
	}
	digits := strconv.FormatUint(u, 10)

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString("¥")
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
