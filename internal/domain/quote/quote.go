package quote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/availability"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/options"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/payments"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/pricing"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/promo"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/daterange"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/money"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

var (
	ErrPropertyNotFound = errors.New("quote: property not found")
	ErrInvalidParty     = errors.New("quote: at least one adult is required")
	ErrTooManyGuests    = errors.New("quote: party exceeds property capacity")
)

type Request struct {
	TenantID        tenant.ID
	PropertyID      property.PropertyID
	CheckIn         time.Time
	CheckOut        time.Time
	Adults          int
	Children        int
	Infants         int
	Pets            int
	SelectedOptions []options.Selection
	PromoCode       string
	UserID          string
}

func (r Request) Range() (daterange.DateRange, error) {
	return daterange.New(r.CheckIn, r.CheckOut)
}

// Inputs is the configuration the assembler prices against. Loading it is the
// caller's job so assembling stays free of side effects.
type Inputs struct {
	Property *property.Property
	Periods  []pricing.PricingPeriod
	Options  []options.BookingOption
	Payment  *payments.PaymentConfiguration
}

type Quote struct {
	PropertyID            property.PropertyID
	Range                 daterange.DateRange
	Nights                int
	RequiredMinNights     int
	Currency              string
	NightlyBreakdown      []pricing.NightlyPrice
	AccommodationSubtotal money.Money
	LongStayDiscount      money.Money
	AccommodationNet      money.Money
	CleaningFee           money.Money
	TouristTax            money.Money
	OptionLines           []options.Line
	OptionsTotal          money.Money
	ServiceFee            money.Money
	Subtotal              money.Money
	Promo                 *promo.Result
	PromoDiscount         money.Money
	Total                 money.Money
	DepositDue            money.Money
	BalanceDue            money.Money
	DepositCapped         bool
	SecurityDeposit       money.Money
}

// PromoChecker validates a code without redeeming it.
type PromoChecker interface {
	Validate(ctx context.Context, req promo.Request) (promo.Result, error)
}

type Assembler struct {
	Tax    payments.TouristTaxCalculator
	Promos PromoChecker
	Now    func() time.Time
}

// Assemble prices a stay. Composition order: nightly accommodation, long-stay
// discount, cleaning fee, tourist tax on the discounted accommodation, options,
// service fee, then the promo code against the subtotal and the deposit on the
// final total.
func (a Assembler) Assemble(ctx context.Context, req Request, in Inputs) (*Quote, error) {
	p := in.Property
	if p == nil || p.TenantID != req.TenantID {
		return nil, ErrPropertyNotFound
	}
	dr, err := req.Range()
	if err != nil {
		return nil, err
	}
	if dr.CheckIn.Before(daterange.Day(a.now())) {
		return nil, availability.ErrPastDateRequested
	}
	if req.Adults < 1 || req.Children < 0 || req.Infants < 0 || req.Pets < 0 {
		return nil, ErrInvalidParty
	}
	if p.MaxGuests > 0 && req.Adults+req.Children > p.MaxGuests {
		return nil, fmt.Errorf("%w: %d guests, capacity %d", ErrTooManyGuests, req.Adults+req.Children, p.MaxGuests)
	}
	currency := p.Currency

	rates, err := pricing.ResolveRange(p, activeForProperty(in.Periods, p.ID), dr)
	if err != nil {
		return nil, err
	}
	nightly, accommodation, err := pricing.PriceNights(rates, currency)
	if err != nil {
		return nil, err
	}
	var rules []pricing.LongStayRule
	if in.Payment != nil {
		rules = in.Payment.LongStayRules
	}
	longStay, err := pricing.AdjustLongStay(rates, accommodation, rules)
	if err != nil {
		return nil, err
	}
	accommodationNet, err := accommodation.Sub(longStay.Discount)
	if err != nil {
		return nil, err
	}

	tax := a.Tax.Calculate(in.Payment, payments.TouristTaxInput{
		Adults:        req.Adults,
		Children:      req.Children,
		Nights:        dr.Nights(),
		Accommodation: accommodationNet,
		PropertyType:  p.PropertyType,
	})

	offered := make([]options.BookingOption, 0, len(in.Options))
	for _, opt := range in.Options {
		if opt.TenantID == req.TenantID && opt.AppliesTo(p.ID) {
			offered = append(offered, opt)
		}
	}
	selections := options.MergeMandatory(offered, req.SelectedOptions)
	lines, optionsTotal, err := options.PriceAll(offered, selections, options.Stay{Adults: req.Adults, Children: req.Children, Nights: dr.Nights()}, currency)
	if err != nil {
		return nil, err
	}

	cleaning := p.CleaningFee
	if cleaning.Currency == "" {
		cleaning = money.Zero(currency)
	}
	feeBase, err := money.Sum(currency, accommodationNet, cleaning, optionsTotal)
	if err != nil {
		return nil, err
	}
	serviceFee := payments.ServiceFee(in.Payment, feeBase)

	subtotal, err := money.Sum(currency, accommodationNet, cleaning, tax, optionsTotal, serviceFee)
	if err != nil {
		return nil, err
	}

	q := &Quote{
		PropertyID:            p.ID,
		Range:                 dr,
		Nights:                dr.Nights(),
		RequiredMinNights:     longStay.RequiredNights,
		Currency:              currency,
		NightlyBreakdown:      nightly,
		AccommodationSubtotal: accommodation,
		LongStayDiscount:      longStay.Discount,
		AccommodationNet:      accommodationNet,
		CleaningFee:           cleaning,
		TouristTax:            tax,
		OptionLines:           lines,
		OptionsTotal:          optionsTotal,
		ServiceFee:            serviceFee,
		Subtotal:              subtotal,
		PromoDiscount:         money.Zero(currency),
		Total:                 subtotal,
		SecurityDeposit:       p.SecurityDeposit,
	}

	if code := strings.TrimSpace(req.PromoCode); code != "" && a.Promos != nil {
		res, err := a.Promos.Validate(ctx, promo.Request{
			TenantID:   req.TenantID,
			Code:       code,
			PropertyID: p.ID,
			Total:      subtotal,
			Nights:     dr.Nights(),
			UserID:     req.UserID,
		})
		if err != nil {
			return nil, err
		}
		q.Promo = &res
		if res.Valid {
			q.PromoDiscount = res.Discount
			q.Total = res.Final
		}
	}

	deposit := payments.Deposit(in.Payment, q.Total)
	q.DepositDue = deposit.Due
	q.BalanceDue = deposit.Balance
	q.DepositCapped = deposit.Capped
	return q, nil
}

func (a Assembler) now() time.Time {
	if a.Now != nil {
		return a.Now().UTC()
	}
	return time.Now().UTC()
}

func activeForProperty(periods []pricing.PricingPeriod, id property.PropertyID) []pricing.PricingPeriod {
	out := make([]pricing.PricingPeriod, 0, len(periods))
	for _, period := range periods {
		if period.PropertyID == id {
			out = append(out, period)
		}
	}
	return out
}
