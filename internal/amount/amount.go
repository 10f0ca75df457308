// Package amount converts between ADA (display unit) and lovelace (the
// smallest unit stored everywhere else). 1 ADA = 1 000 000 lovelace.
package amount

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const LovelacePerAda = 1_000_000

var (
	lovelacePerAda = decimal.NewFromInt(LovelacePerAda)

	ErrInvalidAmount = errors.New("invalid ada amount")
)

// ParseAda parses an ADA string ("1.5", "0,5") into lovelace, rounding to
// the nearest unit. The result must be > 0.
func ParseAda(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return toLovelace(d)
}

// FromAda converts a decimal ADA value to lovelace: round(ada * 1e6).
func FromAda(ada float64) (int64, error) {
	if math.IsNaN(ada) || math.IsInf(ada, 0) {
		return 0, ErrInvalidAmount
	}
	return toLovelace(decimal.NewFromFloat(ada))
}

// ToAda converts lovelace back to ADA.
func ToAda(lovelace int64) float64 {
	f, _ := decimal.New(lovelace, -6).Float64()
	return f
}

// FormatAda renders lovelace as ADA with the given number of decimals:
// 2 for lists, 6 for confirmation messages and payment URIs.
func FormatAda(lovelace int64, places int32) string {
	return decimal.New(lovelace, -6).StringFixed(places)
}

func toLovelace(ada decimal.Decimal) (int64, error) {
	if ada.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}
	l := ada.Mul(lovelacePerAda).Round(0)
	if l.Sign() <= 0 || !l.BigInt().IsInt64() {
		return 0, ErrInvalidAmount
	}
	return l.IntPart(), nil
}
