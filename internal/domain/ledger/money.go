package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Money is an amount in the currency's minor unit. Billing amounts are never
// negative; signed intermediate values live in decimal.Decimal.
type Money struct {
	minor    int64
	currency Currency
}

func NewMoney(minor int64, cur Currency) (Money, error) {
	if cur == "" {
		return Money{}, ErrInvalidCurrency
	}
	if minor < 0 {
		return Money{}, fmt.Errorf("%w: %d", ErrNegativeAmount, minor)
	}
	return Money{minor: minor, currency: cur}, nil
}

// MustMoney panics on invalid input; use for literals.
func MustMoney(minor int64, cur Currency) Money {
	m, err := NewMoney(minor, cur)
	if err != nil {
		panic(err)
	}
	return m
}

func Zero(cur Currency) Money {
	return Money{currency: cur}
}

// FromDecimal rounds a major-unit amount half-up to the currency's minor unit.
func FromDecimal(amount decimal.Decimal, cur Currency) (Money, error) {
	scale := cur.MinorUnits()
	minor := amount.Round(scale).Shift(scale)
	return NewMoney(minor.IntPart(), cur)
}

func (m Money) Minor() int64       { return m.minor }
func (m Money) Currency() Currency { return m.currency }
func (m Money) IsZero() bool       { return m.minor == 0 }
func (m Money) IsPositive() bool   { return m.minor > 0 }

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.minor, -m.currency.MinorUnits())
}

func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{minor: m.minor + other.minor, currency: m.currency}, nil
}

// Sub fails rather than going below zero.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return NewMoney(m.minor-other.minor, m.currency)
}

func (m Money) GreaterThan(other Money) bool {
	return m.minor > other.minor
}

// Min returns the smaller of two amounts in the same currency.
func (m Money) Min(other Money) Money {
	if other.minor < m.minor {
		return other
	}
	return m
}

func (m Money) Equals(other Money) bool {
	return m.minor == other.minor && m.currency == other.currency
}

func (m Money) sameCurrency(other Money) error {
	if m.currency != other.currency {
		return fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return nil
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Decimal().StringFixed(m.currency.MinorUnits()), m.currency)
}

// Format renders the amount for customers, e.g. "GH₵ 10.00".
func (m Money) Format() string {
	unit, err := currency.ParseISO(string(m.currency))
	if err != nil {
		return m.String()
	}
	p := message.NewPrinter(language.English)
	return p.Sprint(currency.Symbol(unit.Amount(m.Decimal().InexactFloat64())))
}
