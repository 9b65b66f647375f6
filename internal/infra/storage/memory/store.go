package memory

import (
	"sync"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/availability"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/booking"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/calendarsync"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/options"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/payments"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/pricing"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/promo"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/events"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

// Store keeps every aggregate in process memory. Repositories hand out copies
// so a caller mutating an aggregate never changes stored state before Save.
type Store struct {
	mu sync.RWMutex

	properties    map[property.PropertyID]*property.Property
	periods       map[pricing.PeriodID]pricing.PricingPeriod
	options       map[options.OptionID]options.BookingOption
	promos        map[promo.PromoID]*promo.PromoCode
	payments      map[tenant.ID]*payments.PaymentConfiguration
	bookings      map[booking.BookingID]*booking.Booking
	blocks        map[availability.BlockID]*availability.BlockedPeriod
	subscriptions map[calendarsync.SubscriptionID]*calendarsync.Subscription

	outbox []*outboxEntry
}

func NewStore() *Store {
	return &Store{
		properties:    make(map[property.PropertyID]*property.Property),
		periods:       make(map[pricing.PeriodID]pricing.PricingPeriod),
		options:       make(map[options.OptionID]options.BookingOption),
		promos:        make(map[promo.PromoID]*promo.PromoCode),
		payments:      make(map[tenant.ID]*payments.PaymentConfiguration),
		bookings:      make(map[booking.BookingID]*booking.Booking),
		blocks:        make(map[availability.BlockID]*availability.BlockedPeriod),
		subscriptions: make(map[calendarsync.SubscriptionID]*calendarsync.Subscription),
	}
}

func cloneProperty(p *property.Property) *property.Property {
	c := *p
	if p.Features.Flags != nil {
		c.Features.Flags = make(map[property.Feature]bool, len(p.Features.Flags))
		for k, v := range p.Features.Flags {
			c.Features.Flags[k] = v
		}
	}
	return &c
}

func clonePromo(p *promo.PromoCode) *promo.PromoCode {
	c := *p
	c.PropertyIDs = append([]property.PropertyID(nil), p.PropertyIDs...)
	return &c
}

func clonePayments(cfg *payments.PaymentConfiguration) *payments.PaymentConfiguration {
	c := *cfg
	c.LongStayRules = append([]pricing.LongStayRule(nil), cfg.LongStayRules...)
	return &c
}

func cloneBooking(b *booking.Booking) *booking.Booking {
	c := *b
	c.EventRecorder = events.EventRecorder{}
	return &c
}

func cloneBlock(b *availability.BlockedPeriod) *availability.BlockedPeriod {
	c := *b
	c.EventRecorder = events.EventRecorder{}
	return &c
}

func cloneSubscription(s *calendarsync.Subscription) *calendarsync.Subscription {
	c := *s
	return &c
}

func cloneOption(o options.BookingOption) options.BookingOption {
	o.PropertyIDs = append([]property.PropertyID(nil), o.PropertyIDs...)
	return o
}
