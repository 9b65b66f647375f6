package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsInvalidCurrency(t *testing.T) {
	_, err := New(decimal.NewFromInt(10), "EURO")
	assert.ErrorIs(t, err, ErrInvalidCurrency)

	m, err := New(decimal.NewFromInt(10), "eur")
	require.NoError(t, err)
	assert.Equal(t, "EUR", m.Currency)
}

func TestAddRequiresSameCurrency(t *testing.T) {
	_, err := MustString("10", "EUR").Add(MustString("5", "USD"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	sum, err := MustString("10.25", "EUR").Add(MustString("5.50", "EUR"))
	require.NoError(t, err)
	assert.True(t, sum.Equal(MustString("15.75", "EUR")))
}

func TestPercentAndRound(t *testing.T) {
	m := MustString("333.33", "EUR").Percent(decimal.NewFromInt(10)).Round()
	assert.Equal(t, "33.33", m.Amount.StringFixed(2))

	half := MustString("0.125", "EUR").Round()
	assert.Equal(t, "0.13", half.Amount.StringFixed(2))
}

func TestMinAndNonNegative(t *testing.T) {
	low, err := MustString("30", "EUR").Min(MustString("20", "EUR"))
	require.NoError(t, err)
	assert.Equal(t, "20", low.Amount.String())

	assert.True(t, MustString("-5", "EUR").NonNegative().IsZero())
}

func TestSum(t *testing.T) {
	total, err := Sum("EUR", MustString("1", "EUR"), MustString("2.5", "EUR"))
	require.NoError(t, err)
	assert.Equal(t, "3.50 EUR", total.String())

	empty, err := Sum("EUR")
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
}
