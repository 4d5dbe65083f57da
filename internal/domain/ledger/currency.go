package ledger

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"
)

// Currency is an ISO 4217 code, always upper case.
type Currency string

// ParseCurrency validates code against the ISO 4217 table.
func ParseCurrency(code string) (Currency, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return Currency(unit.String()), nil
}

// MustParseCurrency is for constants and tests.
func MustParseCurrency(code string) Currency {
	c, err := ParseCurrency(code)
	if err != nil {
		panic(err)
	}
	return c
}

// MinorUnits is the number of decimal places of the currency's minor unit
// (2 for USD, GHS and NGN, 0 for JPY).
func (c Currency) MinorUnits() int32 {
	unit, err := currency.ParseISO(string(c))
	if err != nil {
		return 2
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale)
}

func (c Currency) String() string {
	return string(c)
}
