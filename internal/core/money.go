// Package core provides money parsing and rounding utilities.
//
// Ledger amounts are signed decimals: expenses are negative, income positive.
// All arithmetic is done on decimal.Decimal; conversion to float64 happens only
// when a value leaves the process inside a report payload.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CashbackRate is the flat card cashback applied to a card's total.
var CashbackRate = decimal.NewFromFloat(0.01)

// ParseAmount converts a ledger amount cell to a signed decimal.
//
// It accepts dot (12.34) and comma (12,34) decimal separators, a leading sign,
// and space or no-break-space thousands separators as produced by spreadsheet
// exports ("1 234,50").
//
// Examples:
//
//	ParseAmount("-160,89") -> -160.89, nil
//	ParseAmount("1 000.5") -> 1000.5, nil
//	ParseAmount("abc")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "").Replace(s)
	// Normalize decimal comma to dot; with both present the comma groups thousands
	if strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", "")
	} else {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseOptionalAmount is ParseAmount that reports failure through Valid.
func ParseOptionalAmount(s string) decimal.NullDecimal {
	d, err := ParseAmount(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// RoundToInt rounds half to even and returns the integer part.
func RoundToInt(d decimal.Decimal) int64 {
	return d.RoundBank(0).IntPart()
}

// RoundCents rounds half to even to two decimal places.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(2)
}

// Cashback returns the flat cashback earned on a card total.
func Cashback(total decimal.Decimal) decimal.Decimal {
	return RoundCents(total.Mul(CashbackRate))
}
