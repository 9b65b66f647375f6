package payments

import (
	"github.com/shopspring/decimal"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/money"
)

type TouristTaxInput struct {
	Adults        int
	Children      int
	Nights        int
	Accommodation money.Money
	PropertyType  string
}

// TierRates supplies a per-person rate for a property type. The tiered policy
// has no table of its own yet; without TierRates it uses the adult price.
type TierRates interface {
	RateFor(propertyType string) (decimal.Decimal, bool)
}

type TouristTaxCalculator struct {
	Tiers TierRates
}

// Calculate returns the occupancy tax for a stay, rounded to cents.
func (c TouristTaxCalculator) Calculate(cfg *PaymentConfiguration, in TouristTaxInput) money.Money {
	currency := in.Accommodation.Currency
	if cfg == nil || !cfg.TouristTaxEnabled || cfg.TouristTaxType == "" {
		return money.Zero(currency)
	}
	adults := decimal.NewFromInt(int64(nonNegative(in.Adults)))
	children := decimal.NewFromInt(int64(nonNegative(in.Children)))

	var amount decimal.Decimal
	switch cfg.TouristTaxType {
	case TaxPerPersonPerNight:
		amount = cfg.TouristTaxAdultPrice.Mul(adults).Add(cfg.TouristTaxChildPrice.Mul(children))
		amount = amount.Mul(nightsMultiplier(cfg, in.Nights))
	case TaxPercentOfAccommodation:
		return in.Accommodation.Percent(cfg.TouristTaxAdultPrice).Round()
	case TaxFixedPerStay:
		amount = cfg.TouristTaxAdultPrice
	case TaxTieredByPropertyType:
		rate := cfg.TouristTaxAdultPrice
		if c.Tiers != nil {
			if tiered, ok := c.Tiers.RateFor(in.PropertyType); ok {
				rate = tiered
			}
		}
		amount = rate.Mul(adults.Add(children)).Mul(nightsMultiplier(cfg, in.Nights))
	default:
		return money.Zero(currency)
	}
	return money.Money{Amount: amount, Currency: currency}.Round()
}

// nightsMultiplier is 1 for per-stay charging, otherwise nights capped by TouristTaxMaxNights.
func nightsMultiplier(cfg *PaymentConfiguration, nights int) decimal.Decimal {
	if cfg.TouristTaxPeriod != TaxPeriodPerNight {
		return decimal.NewFromInt(1)
	}
	n := nonNegative(nights)
	if cfg.TouristTaxMaxNights != nil && n > *cfg.TouristTaxMaxNights {
		n = *cfg.TouristTaxMaxNights
	}
	return decimal.NewFromInt(int64(n))
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
