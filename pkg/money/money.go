// Package money holds the decimal helpers shared by cart and payment code.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// minorUnitExponents lists currencies whose minor unit is not 1/100.
var minorUnitExponents = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"BHD": 3,
	"KWD": 3,
	"OMR": 3,
}

const defaultExponent int32 = 2

// NormalizeCurrency upper-cases and trims an ISO 4217 code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Exponent returns the number of minor-unit digits for the currency.
func Exponent(currency string) int32 {
	if exp, ok := minorUnitExponents[NormalizeCurrency(currency)]; ok {
		return exp
	}
	return defaultExponent
}

// ToMinorUnits converts a major-unit amount (e.g. 250.00 INR) into minor units (25000 paise).
// Amounts with more precision than the currency supports are rejected rather than rounded.
func ToMinorUnits(amount decimal.Decimal, currency string) (int64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("amount %s is negative", amount.String())
	}
	shifted := amount.Shift(Exponent(currency))
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more precision than %s allows", amount.String(), NormalizeCurrency(currency))
	}
	return shifted.IntPart(), nil
}

// FromMinorUnits converts minor units back into a major-unit decimal.
func FromMinorUnits(minor int64, currency string) decimal.Decimal {
	return decimal.New(minor, -Exponent(currency))
}
