package pricing

import (
	"fmt"
	"time"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/daterange"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/money"
)

// Rate is the effective pricing for a single night.
type Rate struct {
	Date           time.Time
	BasePrice      money.Money
	WeekendPremium money.Money
	MinNights      int
	PeriodID       PeriodID
}

// ResolveNight picks the winning period for one night, falling back to the
// property's own rates when no active period covers it.
func ResolveNight(p *property.Property, periods []PricingPeriod, night time.Time) (Rate, error) {
	night = daterange.Day(night)
	winner, err := selectPeriod(periods, night)
	if err != nil {
		return Rate{}, err
	}
	rate := Rate{
		Date:           night,
		BasePrice:      p.BasePrice,
		WeekendPremium: p.WeekendPremium,
		MinNights:      p.MinNights,
	}
	if winner == nil {
		return rate, nil
	}
	rate.PeriodID = winner.ID
	rate.BasePrice = winner.BasePrice
	if winner.WeekendPremium != nil {
		rate.WeekendPremium = *winner.WeekendPremium
	}
	if winner.MinNights != nil {
		rate.MinNights = *winner.MinNights
	}
	return rate, nil
}

// ResolveRange yields one rate per night of dr; rates are never blended.
func ResolveRange(p *property.Property, periods []PricingPeriod, dr daterange.DateRange) ([]Rate, error) {
	nights := dr.EachNight()
	rates := make([]Rate, 0, len(nights))
	for _, night := range nights {
		rate, err := ResolveNight(p, periods, night)
		if err != nil {
			return nil, err
		}
		rates = append(rates, rate)
	}
	return rates, nil
}

// selectPeriod applies priority, then most recent CreatedAt. Identical priority
// and creation time leaves no deterministic winner.
func selectPeriod(periods []PricingPeriod, night time.Time) (*PricingPeriod, error) {
	var best *PricingPeriod
	tied := false
	for i := range periods {
		candidate := &periods[i]
		if !candidate.IsActive || !candidate.Covers(night) {
			continue
		}
		if best == nil {
			best = candidate
			tied = false
			continue
		}
		switch {
		case candidate.Priority > best.Priority:
			best, tied = candidate, false
		case candidate.Priority < best.Priority:
		case candidate.CreatedAt.After(best.CreatedAt):
			best, tied = candidate, false
		case candidate.CreatedAt.Equal(best.CreatedAt):
			tied = true
		}
	}
	if tied {
		return nil, fmt.Errorf("%w: night %s, priority %d", ErrPeriodMisconfigured, night.Format(time.DateOnly), best.Priority)
	}
	return best, nil
}
