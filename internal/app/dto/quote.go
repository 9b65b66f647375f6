package dto

import (
	"time"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/promo"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/quote"
)

type NightDTO struct {
	Date      string   `json:"date"`
	Price     MoneyDTO `json:"price"`
	IsWeekend bool     `json:"is_weekend"`
	PeriodID  string   `json:"period_id,omitempty"`
}

type OptionLineDTO struct {
	OptionID  string   `json:"option_id"`
	Name      string   `json:"name"`
	Category  string   `json:"category,omitempty"`
	Quantity  int      `json:"quantity"`
	UnitPrice MoneyDTO `json:"unit_price"`
	Total     MoneyDTO `json:"total"`
	Mandatory bool     `json:"mandatory"`
}

type PromoDTO struct {
	Code     string   `json:"code"`
	Valid    bool     `json:"valid"`
	Reason   string   `json:"reason,omitempty"`
	Discount MoneyDTO `json:"discount"`
	Final    MoneyDTO `json:"final"`
}

type Quote struct {
	PropertyID            string          `json:"property_id"`
	Range                 DateRangeDTO    `json:"range"`
	RequiredMinNights     int             `json:"required_min_nights"`
	Currency              string          `json:"currency"`
	Nights                []NightDTO      `json:"nights"`
	AccommodationSubtotal MoneyDTO        `json:"accommodation_subtotal"`
	LongStayDiscount      MoneyDTO        `json:"long_stay_discount"`
	AccommodationNet      MoneyDTO        `json:"accommodation_net"`
	CleaningFee           MoneyDTO        `json:"cleaning_fee"`
	TouristTax            MoneyDTO        `json:"tourist_tax"`
	Options               []OptionLineDTO `json:"options"`
	OptionsTotal          MoneyDTO        `json:"options_total"`
	ServiceFee            MoneyDTO        `json:"service_fee"`
	Subtotal              MoneyDTO        `json:"subtotal"`
	Promo                 *PromoDTO       `json:"promo,omitempty"`
	PromoDiscount         MoneyDTO        `json:"promo_discount"`
	Total                 MoneyDTO        `json:"total"`
	DepositDue            MoneyDTO        `json:"deposit_due"`
	BalanceDue            MoneyDTO        `json:"balance_due"`
	SecurityDeposit       MoneyDTO        `json:"security_deposit"`
	Availability          *Availability   `json:"availability,omitempty"`
}

func MapQuote(q *quote.Quote) Quote {
	if q == nil {
		return Quote{}
	}
	nights := make([]NightDTO, 0, len(q.NightlyBreakdown))
	for _, n := range q.NightlyBreakdown {
		nights = append(nights, NightDTO{
			Date:      n.Date.Format(time.DateOnly),
			Price:     MapMoney(n.Price),
			IsWeekend: n.IsWeekend,
			PeriodID:  string(n.PeriodID),
		})
	}
	lines := make([]OptionLineDTO, 0, len(q.OptionLines))
	for _, l := range q.OptionLines {
		lines = append(lines, OptionLineDTO{
			OptionID:  string(l.OptionID),
			Name:      l.Name,
			Category:  l.Category,
			Quantity:  l.Quantity,
			UnitPrice: MapMoney(l.UnitPrice),
			Total:     MapMoney(l.Total),
			Mandatory: l.Mandatory,
		})
	}
	out := Quote{
		PropertyID:            string(q.PropertyID),
		Range:                 MapRange(q.Range),
		RequiredMinNights:     q.RequiredMinNights,
		Currency:              q.Currency,
		Nights:                nights,
		AccommodationSubtotal: MapMoney(q.AccommodationSubtotal),
		LongStayDiscount:      MapMoney(q.LongStayDiscount),
		AccommodationNet:      MapMoney(q.AccommodationNet),
		CleaningFee:           MapMoney(q.CleaningFee),
		TouristTax:            MapMoney(q.TouristTax),
		Options:               lines,
		OptionsTotal:          MapMoney(q.OptionsTotal),
		ServiceFee:            MapMoney(q.ServiceFee),
		Subtotal:              MapMoney(q.Subtotal),
		PromoDiscount:         MapMoney(q.PromoDiscount),
		Total:                 MapMoney(q.Total),
		DepositDue:            MapMoney(q.DepositDue),
		BalanceDue:            MapMoney(q.BalanceDue),
		SecurityDeposit:       MapMoney(q.SecurityDeposit),
	}
	if q.Promo != nil {
		res := MapPromoResult(*q.Promo)
		out.Promo = &res
	}
	return out
}

func MapPromoResult(res promo.Result) PromoDTO {
	return PromoDTO{
		Code:     res.Code,
		Valid:    res.Valid,
		Reason:   string(res.Reason),
		Discount: MapMoney(res.Discount),
		Final:    MapMoney(res.Final),
	}
}
