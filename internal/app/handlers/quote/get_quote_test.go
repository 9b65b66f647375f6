package quote

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eliezelg/villasaas-sub004/internal/app/uow"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/options"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/payments"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/pricing"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/promo"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	domain "github.com/Eliezelg/villasaas-sub004/internal/domain/quote"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/money"
	"github.com/Eliezelg/villasaas-sub004/internal/infra/storage/memory"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func eur(v string) money.Money { return money.MustString(v, "EUR") }

func newHandler(t *testing.T, withConfig bool) *GetQuoteHandler {
	t.Helper()
	factory := memory.Factory{Store: memory.NewStore()}
	require.NoError(t, factory.Seed(context.Background(), func(ctx context.Context, unit uow.UnitOfWork) error {
		p, err := property.NewProperty(property.CreateParams{
			ID: "p1", TenantID: "t1", Name: "Villa Azur", Currency: "EUR",
			BasePrice: "100", WeekendPremium: "20", CleaningFee: "50", SecurityDeposit: "300", MaxGuests: 6,
		})
		if err != nil {
			return err
		}
		if err := unit.Properties().Save(ctx, p); err != nil {
			return err
		}
		if err := unit.Periods().Save(ctx, &pricing.PricingPeriod{
			ID: "xmas", TenantID: "t1", PropertyID: "p1", Name: "Christmas",
			StartDate: day(2026, 12, 20), EndDate: day(2027, 1, 3), BasePrice: eur("200"), IsActive: true,
		}); err != nil {
			return err
		}
		if err := unit.Promos().Save(ctx, &promo.PromoCode{
			ID: "promo-1", TenantID: "t1", Code: "AUTUMN10", DiscountType: promo.DiscountPercentage, DiscountValue: dec("10"), IsActive: true,
		}); err != nil {
			return err
		}
		for _, opt := range []options.BookingOption{
			{ID: "breakfast", TenantID: "t1", Name: "Breakfast", PricingType: options.PerPerson, PricingPeriod: options.PerDay, PricePerUnit: eur("15"), IsActive: true},
			{ID: "linen", TenantID: "t1", Name: "Linen", PricingType: options.Fixed, PricingPeriod: options.PerStay, PricePerUnit: eur("20"), IsActive: true, IsMandatory: true},
		} {
			if err := unit.Options().Save(ctx, &opt); err != nil {
				return err
			}
		}
		if !withConfig {
			return nil
		}
		return unit.Payments().Save(ctx, &payments.PaymentConfiguration{
			TenantID:             "t1",
			DepositType:          payments.DepositPercentage,
			DepositValue:         dec("30"),
			TouristTaxEnabled:    true,
			TouristTaxType:       payments.TaxPerPersonPerNight,
			TouristTaxPeriod:     payments.TaxPeriodPerNight,
			TouristTaxAdultPrice: dec("2.5"),
			TouristTaxChildPrice: dec("1"),
			ServiceFeeEnabled:    true,
			ServiceFeeType:       payments.ServiceFeePercentage,
			ServiceFeeValue:      dec("3"),
			LongStayRules:        []pricing.LongStayRule{{MinNights: 7, Percent: dec("10")}},
		})
	}))
	return &GetQuoteHandler{UoWFactory: factory, Pricer: Pricer{Now: func() time.Time { return day(2026, 10, 16) }}}
}

func TestGetQuoteFullComposition(t *testing.T) {
	h := newHandler(t, true)
	q, err := h.Handle(context.Background(), GetQuoteQuery{
		TenantID: "t1", PropertyID: "p1", CheckIn: day(2026, 11, 2), CheckOut: day(2026, 11, 9),
		Adults: 2, Children: 1, Infants: 1,
		SelectedOptions: []OptionSelection{{OptionID: "breakfast", Quantity: 1}},
		PromoCode:       "autumn10",
	})
	require.NoError(t, err)

	assert.Equal(t, "740.00", q.AccommodationSubtotal.Amount)
	assert.Equal(t, "74.00", q.LongStayDiscount.Amount)
	assert.Equal(t, "42.00", q.TouristTax.Amount)
	require.Len(t, q.Options, 2)
	assert.Equal(t, "335.00", q.OptionsTotal.Amount)
	assert.Equal(t, "31.53", q.ServiceFee.Amount)
	require.NotNil(t, q.Promo)
	assert.True(t, q.Promo.Valid)
	assert.Equal(t, "112.00", q.PromoDiscount.Amount)
	assert.Equal(t, "1012.53", q.Total.Amount)
	assert.Equal(t, "303.76", q.DepositDue.Amount)
	assert.Equal(t, "708.77", q.BalanceDue.Amount)
	require.NotNil(t, q.Availability)
	assert.True(t, q.Availability.Available)
}

func TestGetQuoteUsesSeasonalPeriodAndDefaultConfiguration(t *testing.T) {
	h := newHandler(t, false)
	q, err := h.Handle(context.Background(), GetQuoteQuery{
		TenantID: "t1", PropertyID: "p1", CheckIn: day(2026, 12, 18), CheckOut: day(2026, 12, 22), Adults: 2,
	})
	require.NoError(t, err)

	require.Len(t, q.Nights, 4)
	assert.True(t, q.Nights[0].IsWeekend)
	assert.Equal(t, "120.00", q.Nights[0].Price.Amount)
	assert.Equal(t, "xmas", q.Nights[2].PeriodID)
	assert.Equal(t, "200.00", q.Nights[2].Price.Amount)
	assert.Equal(t, "640.00", q.AccommodationSubtotal.Amount)
	// 640 nights, 50 cleaning and the mandatory linen.
	assert.Equal(t, "710.00", q.Total.Amount)
	assert.Equal(t, q.Total.Amount, q.DepositDue.Amount)
	assert.Equal(t, "0.00", q.BalanceDue.Amount)
	assert.Equal(t, "0.00", q.TouristTax.Amount)
}

func TestGetQuoteErrors(t *testing.T) {
	h := newHandler(t, false)
	ctx := context.Background()

	_, err := h.Handle(ctx, GetQuoteQuery{TenantID: "t2", PropertyID: "p1", CheckIn: day(2026, 11, 2), CheckOut: day(2026, 11, 4), Adults: 2})
	assert.ErrorIs(t, err, domain.ErrPropertyNotFound)

	_, err = h.Handle(ctx, GetQuoteQuery{TenantID: "t1", PropertyID: "p1", CheckIn: day(2026, 11, 2), CheckOut: day(2026, 11, 4), Adults: 5, Children: 2})
	assert.ErrorIs(t, err, domain.ErrTooManyGuests)
}
