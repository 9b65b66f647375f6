package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCurrency  = errors.New("money: invalid currency code")
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
)

// Scale is the number of fractional digits kept after rounding.
const Scale = 2

var hundred = decimal.NewFromInt(100)

// Money keeps amounts as decimals in the property's currency.
// The engine never formats amounts; presentation is the caller's concern.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// New constructs a Money value validating minimal invariants.
func New(amount decimal.Decimal, currency string) (Money, error) {
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	return Money{Amount: amount, Currency: strings.ToUpper(currency)}, nil
}

// Must creates Money and panics if validation fails; useful in tests and fixtures.
func Must(amount decimal.Decimal, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// FromString parses a decimal literal such as "12.50".
func FromString(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, err
	}
	return New(d, currency)
}

// MustString is the panicking variant of FromString.
func MustString(amount, currency string) Money {
	m, err := FromString(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	return Money{Amount: decimal.Zero, Currency: strings.ToUpper(currency)}
}

// Add adds two money values ensuring currencies match.
func (m Money) Add(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

// Sub subtracts other from the receiver.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}, nil
}

// Neg returns the negated amount preserving currency.
func (m Money) Neg() Money {
	return Money{Amount: m.Amount.Neg(), Currency: m.Currency}
}

// Multiply multiplies the amount by an integer factor.
func (m Money) Multiply(times int64) Money {
	return Money{Amount: m.Amount.Mul(decimal.NewFromInt(times)), Currency: m.Currency}
}

// MulDecimal multiplies the amount by an arbitrary decimal factor.
func (m Money) MulDecimal(factor decimal.Decimal) Money {
	return Money{Amount: m.Amount.Mul(factor), Currency: m.Currency}
}

// Percent returns percent/100 of the amount, unrounded.
func (m Money) Percent(percent decimal.Decimal) Money {
	return Money{Amount: m.Amount.Mul(percent).Div(hundred), Currency: m.Currency}
}

// Round rounds half away from zero to Scale digits.
func (m Money) Round() Money {
	return Money{Amount: m.Amount.Round(Scale), Currency: m.Currency}
}

// RoundUnits rounds half away from zero to whole currency units.
func (m Money) RoundUnits() Money {
	return Money{Amount: m.Amount.Round(0), Currency: m.Currency}
}

// Min returns the smaller of the two values; currencies must match.
func (m Money) Min(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	if other.Amount.LessThan(m.Amount) {
		return other, nil
	}
	return m, nil
}

// NonNegative clamps negative amounts to zero.
func (m Money) NonNegative() Money {
	if m.Amount.IsNegative() {
		return Money{Amount: decimal.Zero, Currency: m.Currency}
	}
	return m
}

// IsZero returns true if the amount equals zero.
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

func (m Money) IsNegative() bool {
	return m.Amount.IsNegative()
}

// GreaterThan compares amounts ignoring currency.
func (m Money) GreaterThan(other Money) bool {
	return m.Amount.GreaterThan(other.Amount)
}

// LessThan compares amounts ignoring currency.
func (m Money) LessThan(other Money) bool {
	return m.Amount.LessThan(other.Amount)
}

// Equal reports whether both amount and currency match.
func (m Money) Equal(other Money) bool {
	return m.Currency == other.Currency && m.Amount.Equal(other.Amount)
}

// String renders a debug representation such as "120.00 EUR".
func (m Money) String() string {
	return m.Amount.StringFixed(Scale) + " " + m.Currency
}

// Sum adds all values; an empty input yields zero in the given currency.
func Sum(currency string, values ...Money) (Money, error) {
	total := Zero(currency)
	for _, v := range values {
		var err error
		total, err = total.Add(v)
		if err != nil {
			return Money{}, err
		}
	}
	return total, nil
}

func (m Money) ensureSameCurrency(other Money) error {
	if m.Currency == "" || other.Currency == "" {
		return ErrInvalidCurrency
	}
	if m.Currency != other.Currency {
		return ErrCurrencyMismatch
	}
	return nil
}
