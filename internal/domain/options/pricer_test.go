package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/money"
)

func eur(v string) money.Money { return money.MustString(v, "EUR") }

func intPtr(v int) *int { return &v }

func TestPricePerPersonPerDay(t *testing.T) {
	opt := BookingOption{ID: "breakfast", Name: "Breakfast", PricingType: PerPerson, PricePerUnit: eur("15"), PricingPeriod: PerDay, IsActive: true}
	line, err := Price(opt, 1, Stay{Adults: 3, Children: 1, Nights: 3})
	require.NoError(t, err)
	assert.True(t, line.Total.Equal(eur("180")))
	assert.True(t, line.UnitPrice.Equal(eur("60")))
}

func TestPricingMatrix(t *testing.T) {
	stay := Stay{Adults: 2, Children: 2, Nights: 5}
	cases := []struct {
		name   string
		ptype  PricingType
		period PricingPeriod
		qty    int
		want   string
	}{
		{"per person per stay", PerPerson, PerStay, 2, "80"},
		{"per group per day", PerGroup, PerDay, 1, "50"},
		{"per group per stay", PerGroup, PerStay, 3, "30"},
		{"fixed per day", Fixed, PerDay, 2, "100"},
		{"fixed per stay", Fixed, PerStay, 1, "10"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opt := BookingOption{ID: "x", Name: "X", PricingType: tc.ptype, PricingPeriod: tc.period, PricePerUnit: eur("10"), IsActive: true}
			line, err := Price(opt, tc.qty, stay)
			require.NoError(t, err)
			assert.Truef(t, line.Total.Equal(eur(tc.want)), "got %s", line.Total)
		})
	}
}

func TestPriceConstraintViolations(t *testing.T) {
	opt := BookingOption{
		ID: "boat", Name: "Boat trip", PricingType: Fixed, PricingPeriod: PerStay, PricePerUnit: eur("200"), IsActive: true,
		MinQuantity: 1, MaxQuantity: intPtr(2), MinGuests: intPtr(2), MaxGuests: intPtr(6), MinNights: intPtr(3),
	}
	cases := []struct {
		name       string
		qty        int
		stay       Stay
		constraint string
	}{
		{"zero quantity", 0, Stay{Adults: 2, Nights: 3}, "min_quantity"},
		{"too many", 3, Stay{Adults: 2, Nights: 3}, "max_quantity"},
		{"too few guests", 1, Stay{Adults: 1, Nights: 3}, "min_guests"},
		{"too many guests", 1, Stay{Adults: 5, Children: 2, Nights: 3}, "max_guests"},
		{"too short", 1, Stay{Adults: 2, Nights: 2}, "min_nights"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Price(opt, tc.qty, tc.stay)
			require.ErrorIs(t, err, ErrOptionConstraintViolated)
			var ce *ConstraintError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.constraint, ce.Constraint)
		})
	}
}

func TestMergeMandatoryAddsMissingOptions(t *testing.T) {
	offered := []BookingOption{
		{ID: "cleaning-kit", IsMandatory: true, IsActive: true, MinQuantity: 1},
		{ID: "linen", IsMandatory: true, IsActive: true, MinQuantity: 2},
		{ID: "old", IsMandatory: true, IsActive: false},
		{ID: "bikes", IsActive: true},
	}
	merged := MergeMandatory(offered, []Selection{{OptionID: "bikes", Quantity: 2}, {OptionID: "linen", Quantity: 3}, {OptionID: "bikes", Quantity: 1}})
	assert.Equal(t, []Selection{
		{OptionID: "bikes", Quantity: 3},
		{OptionID: "linen", Quantity: 3},
		{OptionID: "cleaning-kit", Quantity: 1},
	}, merged)
}

func TestPriceAllRejectsUnknownOption(t *testing.T) {
	offered := []BookingOption{{ID: "a", Name: "A", PricingType: Fixed, PricingPeriod: PerStay, PricePerUnit: eur("5"), IsActive: true}}
	_, _, err := PriceAll(offered, []Selection{{OptionID: "missing", Quantity: 1}}, Stay{Adults: 1, Nights: 1}, "EUR")
	assert.ErrorIs(t, err, ErrOptionNotFound)

	lines, total, err := PriceAll(offered, []Selection{{OptionID: "a", Quantity: 2}}, Stay{Adults: 1, Nights: 1}, "EUR")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.True(t, total.Equal(eur("10")))
}
