package pricing

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/daterange"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/money"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func eur(v string) money.Money { return money.MustString(v, "EUR") }

func intPtr(v int) *int { return &v }

func moneyPtr(v string) *money.Money {
	m := eur(v)
	return &m
}

func testProperty() *property.Property {
	return &property.Property{
		ID:             "villa-1",
		TenantID:       "tenant-1",
		BasePrice:      eur("100"),
		WeekendPremium: eur("20"),
		MinNights:      1,
		Currency:       "EUR",
	}
}

func TestResolveNightFallsBackToProperty(t *testing.T) {
	rate, err := ResolveNight(testProperty(), nil, date(2026, 6, 1))
	require.NoError(t, err)
	assert.True(t, rate.BasePrice.Equal(eur("100")))
	assert.True(t, rate.WeekendPremium.Equal(eur("20")))
	assert.Equal(t, 1, rate.MinNights)
	assert.Empty(t, rate.PeriodID)
}

func TestResolveNightHighestPriorityWins(t *testing.T) {
	created := date(2026, 1, 1)
	periods := []PricingPeriod{
		{ID: "summer", PropertyID: "villa-1", StartDate: date(2026, 6, 1), EndDate: date(2026, 9, 1), Priority: 1, BasePrice: eur("150"), IsActive: true, CreatedAt: created},
		{ID: "festival", PropertyID: "villa-1", StartDate: date(2026, 7, 10), EndDate: date(2026, 7, 20), Priority: 5, BasePrice: eur("300"), MinNights: intPtr(4), IsActive: true, CreatedAt: created},
		{ID: "inactive", PropertyID: "villa-1", StartDate: date(2026, 7, 1), EndDate: date(2026, 8, 1), Priority: 99, BasePrice: eur("999"), IsActive: false, CreatedAt: created},
	}

	rate, err := ResolveNight(testProperty(), periods, date(2026, 7, 12))
	require.NoError(t, err)
	assert.Equal(t, PeriodID("festival"), rate.PeriodID)
	assert.True(t, rate.BasePrice.Equal(eur("300")))
	assert.True(t, rate.WeekendPremium.Equal(eur("20")), "unset premium inherits the property value")
	assert.Equal(t, 4, rate.MinNights)

	rate, err = ResolveNight(testProperty(), periods, date(2026, 7, 20))
	require.NoError(t, err)
	assert.Equal(t, PeriodID("summer"), rate.PeriodID, "end date is exclusive")
}

func TestResolveNightTieBreaksOnLatestCreated(t *testing.T) {
	periods := []PricingPeriod{
		{ID: "older", StartDate: date(2026, 6, 1), EndDate: date(2026, 7, 1), Priority: 2, BasePrice: eur("110"), IsActive: true, CreatedAt: date(2026, 1, 1)},
		{ID: "newer", StartDate: date(2026, 6, 1), EndDate: date(2026, 7, 1), Priority: 2, BasePrice: eur("120"), IsActive: true, CreatedAt: date(2026, 2, 1)},
	}
	rate, err := ResolveNight(testProperty(), periods, date(2026, 6, 10))
	require.NoError(t, err)
	assert.Equal(t, PeriodID("newer"), rate.PeriodID)

	// Order of the input slice must not matter.
	periods[0], periods[1] = periods[1], periods[0]
	rate, err = ResolveNight(testProperty(), periods, date(2026, 6, 10))
	require.NoError(t, err)
	assert.Equal(t, PeriodID("newer"), rate.PeriodID)
}

func TestResolveNightRejectsIndistinguishablePeriods(t *testing.T) {
	created := date(2026, 1, 1)
	periods := []PricingPeriod{
		{ID: "a", StartDate: date(2026, 6, 1), EndDate: date(2026, 7, 1), Priority: 2, BasePrice: eur("110"), IsActive: true, CreatedAt: created},
		{ID: "b", StartDate: date(2026, 6, 1), EndDate: date(2026, 7, 1), Priority: 2, BasePrice: eur("120"), IsActive: true, CreatedAt: created},
	}
	_, err := ResolveNight(testProperty(), periods, date(2026, 6, 10))
	assert.ErrorIs(t, err, ErrPeriodMisconfigured)

	periods = append(periods, PricingPeriod{ID: "c", StartDate: date(2026, 6, 1), EndDate: date(2026, 7, 1), Priority: 3, BasePrice: eur("130"), IsActive: true, CreatedAt: created})
	rate, err := ResolveNight(testProperty(), periods, date(2026, 6, 10))
	require.NoError(t, err)
	assert.Equal(t, PeriodID("c"), rate.PeriodID)
}

func TestChangingPriorityOnlyAffectsCoveredNights(t *testing.T) {
	created := date(2026, 1, 1)
	base := []PricingPeriod{
		{ID: "low", StartDate: date(2026, 6, 1), EndDate: date(2026, 6, 10), Priority: 1, BasePrice: eur("110"), IsActive: true, CreatedAt: created},
		{ID: "high", StartDate: date(2026, 6, 5), EndDate: date(2026, 6, 7), Priority: 0, BasePrice: eur("200"), IsActive: true, CreatedAt: created},
	}
	dr := daterange.MustNew(date(2026, 5, 30), date(2026, 6, 12))
	before, err := ResolveRange(testProperty(), base, dr)
	require.NoError(t, err)

	base[1].Priority = 10
	after, err := ResolveRange(testProperty(), base, dr)
	require.NoError(t, err)

	require.Len(t, after, len(before))
	for i := range before {
		covered := base[1].Covers(before[i].Date)
		if covered {
			assert.Equal(t, PeriodID("high"), after[i].PeriodID)
			continue
		}
		assert.Equal(t, before[i].PeriodID, after[i].PeriodID, "night %s changed", before[i].Date)
	}
}

func TestPriceNightsWeekdaysOnly(t *testing.T) {
	// 2026-03-02 is a Monday.
	dr := daterange.MustNew(date(2026, 3, 2), date(2026, 3, 4))
	rates, err := ResolveRange(testProperty(), nil, dr)
	require.NoError(t, err)
	nightly, subtotal, err := PriceNights(rates, "EUR")
	require.NoError(t, err)
	require.Len(t, nightly, 2)
	assert.True(t, subtotal.Equal(eur("200")))
	assert.False(t, nightly[0].IsWeekend)
}

func TestPriceNightsAddsWeekendPremiumOnFridayAndSaturday(t *testing.T) {
	// Thursday 2026-03-05 to Monday 2026-03-09: Thu, Fri, Sat, Sun nights.
	dr := daterange.MustNew(date(2026, 3, 5), date(2026, 3, 9))
	rates, err := ResolveRange(testProperty(), nil, dr)
	require.NoError(t, err)
	nightly, subtotal, err := PriceNights(rates, "EUR")
	require.NoError(t, err)
	require.Len(t, nightly, 4)
	assert.Equal(t, []bool{false, true, true, false}, []bool{nightly[0].IsWeekend, nightly[1].IsWeekend, nightly[2].IsWeekend, nightly[3].IsWeekend})
	assert.True(t, subtotal.Equal(eur("440")))
}

func TestBreakdownLengthEqualsNights(t *testing.T) {
	periods := []PricingPeriod{{ID: "p", StartDate: date(2026, 3, 10), EndDate: date(2026, 3, 20), Priority: 1, BasePrice: eur("90"), WeekendPremium: moneyPtr("0"), IsActive: true}}
	for n := 1; n <= 30; n++ {
		dr := daterange.MustNew(date(2026, 3, 1), date(2026, 3, 1).AddDate(0, 0, n))
		rates, err := ResolveRange(testProperty(), periods, dr)
		require.NoError(t, err)
		nightly, _, err := PriceNights(rates, "EUR")
		require.NoError(t, err)
		assert.Len(t, nightly, n)
	}
}

func TestAdjustLongStayUsesMostRestrictiveMinimum(t *testing.T) {
	rates := []Rate{
		{Date: date(2026, 7, 1), MinNights: 2},
		{Date: date(2026, 7, 2), MinNights: 5},
		{Date: date(2026, 7, 3), MinNights: 3},
	}
	_, err := AdjustLongStay(rates, eur("300"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStayTooShort))
	var short *StayTooShortError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, 5, short.Required)
	assert.Equal(t, 3, short.Actual)
}

func TestAdjustLongStayPassThroughWithoutRules(t *testing.T) {
	rates := []Rate{{MinNights: 1}, {MinNights: 2}}
	res, err := AdjustLongStay(rates, eur("200"), nil)
	require.NoError(t, err)
	assert.True(t, res.Discount.IsZero())
	assert.Nil(t, res.Rule)
	assert.Equal(t, 2, res.RequiredNights)
}

func TestAdjustLongStayPicksLongestQualifyingRule(t *testing.T) {
	rates := make([]Rate, 10)
	rules := []LongStayRule{
		{MinNights: 7, Percent: decimal.NewFromInt(10)},
		{MinNights: 28, Percent: decimal.NewFromInt(25)},
		{MinNights: 5, Percent: decimal.NewFromInt(5)},
	}
	res, err := AdjustLongStay(rates, eur("1000"), rules)
	require.NoError(t, err)
	require.NotNil(t, res.Rule)
	assert.Equal(t, 7, res.Rule.MinNights)
	assert.True(t, res.Discount.Equal(eur("100")))
}
