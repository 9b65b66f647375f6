package pricing

import (
	"time"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/money"
)

type NightlyPrice struct {
	Date      time.Time
	Price     money.Money
	IsWeekend bool
	PeriodID  PeriodID
}

// IsWeekendNight reports whether the night starting on t is a Friday or Saturday night.
func IsWeekendNight(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Friday || wd == time.Saturday
}

// PriceNights turns resolved rates into an ordered nightly breakdown and its sum.
func PriceNights(rates []Rate, currency string) ([]NightlyPrice, money.Money, error) {
	subtotal := money.Zero(currency)
	out := make([]NightlyPrice, 0, len(rates))
	for _, rate := range rates {
		price := rate.BasePrice
		weekend := IsWeekendNight(rate.Date)
		if weekend {
			var err error
			price, err = price.Add(rate.WeekendPremium)
			if err != nil {
				return nil, money.Money{}, err
			}
		}
		var err error
		subtotal, err = subtotal.Add(price)
		if err != nil {
			return nil, money.Money{}, err
		}
		out = append(out, NightlyPrice{Date: rate.Date, Price: price, IsWeekend: weekend, PeriodID: rate.PeriodID})
	}
	return out, subtotal, nil
}
