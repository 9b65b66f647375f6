package memory

import (
	"context"
	"sort"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/availability"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/booking"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/calendarsync"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/options"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/payments"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/pricing"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/promo"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/daterange"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

type propertyRepo struct{ u *Unit }

func (r propertyRepo) ByID(ctx context.Context, tenantID tenant.ID, id property.PropertyID) (*property.Property, error) {
	var out *property.Property
	err := r.u.read(func(s *Store) error {
		p, ok := s.properties[id]
		if !ok || p.TenantID != tenantID {
			return property.ErrPropertyNotFound
		}
		out = cloneProperty(p)
		return nil
	})
	return out, err
}

func (r propertyRepo) Save(ctx context.Context, p *property.Property) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return r.u.write(func(s *Store) (func(), error) {
		prev, existed := s.properties[p.ID]
		if existed && prev.TenantID != p.TenantID {
			return nil, property.ErrPropertyNotFound
		}
		s.properties[p.ID] = cloneProperty(p)
		return func() {
			if existed {
				s.properties[p.ID] = prev
			} else {
				delete(s.properties, p.ID)
			}
		}, nil
	})
}

type periodRepo struct{ u *Unit }

func (r periodRepo) ForProperty(ctx context.Context, tenantID tenant.ID, propertyID property.PropertyID, dr daterange.DateRange) ([]pricing.PricingPeriod, error) {
	var out []pricing.PricingPeriod
	err := r.u.read(func(s *Store) error {
		for _, p := range s.periods {
			if p.TenantID != tenantID || p.PropertyID != propertyID {
				continue
			}
			span := daterange.DateRange{CheckIn: daterange.Day(p.StartDate), CheckOut: daterange.Day(p.EndDate)}
			if span.Overlaps(dr) {
				out = append(out, p)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r periodRepo) Save(ctx context.Context, period *pricing.PricingPeriod) error {
	if err := period.Validate(); err != nil {
		return err
	}
	return r.u.write(func(s *Store) (func(), error) {
		prev, existed := s.periods[period.ID]
		s.periods[period.ID] = *period
		return func() {
			if existed {
				s.periods[period.ID] = prev
			} else {
				delete(s.periods, period.ID)
			}
		}, nil
	})
}

type optionRepo struct{ u *Unit }

func (r optionRepo) ForProperty(ctx context.Context, tenantID tenant.ID, propertyID property.PropertyID) ([]options.BookingOption, error) {
	var out []options.BookingOption
	err := r.u.read(func(s *Store) error {
		for _, o := range s.options {
			if o.TenantID == tenantID && o.AppliesTo(propertyID) {
				out = append(out, cloneOption(o))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r optionRepo) Save(ctx context.Context, opt *options.BookingOption) error {
	if err := opt.Validate(); err != nil {
		return err
	}
	return r.u.write(func(s *Store) (func(), error) {
		prev, existed := s.options[opt.ID]
		s.options[opt.ID] = cloneOption(*opt)
		return func() {
			if existed {
				s.options[opt.ID] = prev
			} else {
				delete(s.options, opt.ID)
			}
		}, nil
	})
}

type promoRepo struct{ u *Unit }

func (r promoRepo) ByCode(ctx context.Context, tenantID tenant.ID, code string) (*promo.PromoCode, error) {
	code = promo.NormalizeCode(code)
	var out *promo.PromoCode
	err := r.u.read(func(s *Store) error {
		for _, p := range s.promos {
			if p.TenantID == tenantID && promo.NormalizeCode(p.Code) == code {
				out = clonePromo(p)
				return nil
			}
		}
		return promo.ErrPromoNotFound
	})
	return out, err
}

func (r promoRepo) ByID(ctx context.Context, tenantID tenant.ID, id promo.PromoID) (*promo.PromoCode, error) {
	var out *promo.PromoCode
	err := r.u.read(func(s *Store) error {
		p, ok := s.promos[id]
		if !ok || p.TenantID != tenantID {
			return promo.ErrPromoNotFound
		}
		out = clonePromo(p)
		return nil
	})
	return out, err
}

func (r promoRepo) Save(ctx context.Context, code *promo.PromoCode) error {
	if err := code.Validate(); err != nil {
		return err
	}
	return r.u.write(func(s *Store) (func(), error) {
		prev, existed := s.promos[code.ID]
		stored := clonePromo(code)
		stored.Code = promo.NormalizeCode(code.Code)
		s.promos[code.ID] = stored
		return func() {
			if existed {
				s.promos[code.ID] = prev
			} else {
				delete(s.promos, code.ID)
			}
		}, nil
	})
}

// IncrementUses checks and bumps the counter under the store lock, which makes
// the conditional update atomic across units.
func (r promoRepo) IncrementUses(ctx context.Context, tenantID tenant.ID, id promo.PromoID) error {
	return r.u.write(func(s *Store) (func(), error) {
		p, ok := s.promos[id]
		if !ok || p.TenantID != tenantID {
			return nil, promo.ErrPromoNotFound
		}
		if p.MaxUses != nil && p.CurrentUses >= *p.MaxUses {
			return nil, promo.ErrRedemptionRaceLost
		}
		p.CurrentUses++
		return func() {
			if cur, ok := s.promos[id]; ok {
				cur.CurrentUses--
			}
		}, nil
	})
}

type paymentRepo struct{ u *Unit }

func (r paymentRepo) ForTenant(ctx context.Context, tenantID tenant.ID) (*payments.PaymentConfiguration, error) {
	var out *payments.PaymentConfiguration
	err := r.u.read(func(s *Store) error {
		cfg, ok := s.payments[tenantID]
		if !ok {
			return payments.ErrConfigurationNotFound
		}
		out = clonePayments(cfg)
		return nil
	})
	return out, err
}

func (r paymentRepo) Save(ctx context.Context, cfg *payments.PaymentConfiguration) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return r.u.write(func(s *Store) (func(), error) {
		prev, existed := s.payments[cfg.TenantID]
		s.payments[cfg.TenantID] = clonePayments(cfg)
		return func() {
			if existed {
				s.payments[cfg.TenantID] = prev
			} else {
				delete(s.payments, cfg.TenantID)
			}
		}, nil
	})
}

type bookingRepo struct{ u *Unit }

func (r bookingRepo) ByID(ctx context.Context, tenantID tenant.ID, id booking.BookingID) (*booking.Booking, error) {
	var out *booking.Booking
	err := r.u.read(func(s *Store) error {
		b, ok := s.bookings[id]
		if !ok || b.TenantID != tenantID {
			return booking.ErrBookingNotFound
		}
		out = cloneBooking(b)
		return nil
	})
	return out, err
}

// Save enforces optimistic concurrency: the caller's Version must match the
// stored one, and a new booking must not reuse an id.
func (r bookingRepo) Save(ctx context.Context, b *booking.Booking) error {
	return r.u.write(func(s *Store) (func(), error) {
		prev, existed := s.bookings[b.ID]
		switch {
		case existed && (prev.TenantID != b.TenantID || prev.Version != b.Version):
			return nil, booking.ErrConcurrentUpdate
		case !existed && b.Version != 0:
			return nil, booking.ErrConcurrentUpdate
		}
		b.Version++
		s.bookings[b.ID] = cloneBooking(b)
		return func() {
			b.Version--
			if existed {
				s.bookings[b.ID] = prev
			} else {
				delete(s.bookings, b.ID)
			}
		}, nil
	})
}

func (r bookingRepo) Overlapping(ctx context.Context, tenantID tenant.ID, propertyID property.PropertyID, dr daterange.DateRange) ([]*booking.Booking, error) {
	var out []*booking.Booking
	err := r.u.read(func(s *Store) error {
		for _, b := range s.bookings {
			if b.TenantID == tenantID && b.PropertyID == propertyID && b.OccupiesCalendar() && b.Range.Overlaps(dr) {
				out = append(out, cloneBooking(b))
			}
		}
		return nil
	})
	sortBookings(out)
	return out, err
}

func (r bookingRepo) ListByProperty(ctx context.Context, tenantID tenant.ID, propertyID property.PropertyID) ([]*booking.Booking, error) {
	var out []*booking.Booking
	err := r.u.read(func(s *Store) error {
		for _, b := range s.bookings {
			if b.TenantID == tenantID && b.PropertyID == propertyID {
				out = append(out, cloneBooking(b))
			}
		}
		return nil
	})
	sortBookings(out)
	return out, err
}

func (r bookingRepo) CountByUserAndPromo(ctx context.Context, tenantID tenant.ID, userID string, id promo.PromoID) (int, error) {
	count := 0
	err := r.u.read(func(s *Store) error {
		for _, b := range s.bookings {
			if b.TenantID == tenantID && b.GuestID == userID && b.PromoCodeID == id && b.Status != booking.StatusCancelled {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (r bookingRepo) CountRedemptions(ctx context.Context, tenantID tenant.ID, userID string, id promo.PromoID, exclude booking.BookingID) (int, error) {
	count := 0
	err := r.u.read(func(s *Store) error {
		for _, b := range s.bookings {
			if b.TenantID == tenantID && b.GuestID == userID && b.PromoCodeID == id && b.ID != exclude && b.Redeemed() {
				count++
			}
		}
		return nil
	})
	return count, err
}

func sortBookings(list []*booking.Booking) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Range.CheckIn.Equal(list[j].Range.CheckIn) {
			return list[i].ID < list[j].ID
		}
		return list[i].Range.CheckIn.Before(list[j].Range.CheckIn)
	})
}

type blockRepo struct{ u *Unit }

func (r blockRepo) ByID(ctx context.Context, tenantID tenant.ID, id availability.BlockID) (*availability.BlockedPeriod, error) {
	var out *availability.BlockedPeriod
	err := r.u.read(func(s *Store) error {
		b, ok := s.blocks[id]
		if !ok || b.TenantID != tenantID {
			return availability.ErrBlockNotFound
		}
		out = cloneBlock(b)
		return nil
	})
	return out, err
}

func (r blockRepo) ListOverlapping(ctx context.Context, tenantID tenant.ID, propertyID property.PropertyID, dr daterange.DateRange) ([]*availability.BlockedPeriod, error) {
	return r.filter(func(b *availability.BlockedPeriod) bool {
		return b.TenantID == tenantID && b.PropertyID == propertyID && b.Range.Overlaps(dr)
	})
}

func (r blockRepo) ByFeed(ctx context.Context, tenantID tenant.ID, propertyID property.PropertyID, feedURL string) ([]*availability.BlockedPeriod, error) {
	return r.filter(func(b *availability.BlockedPeriod) bool {
		return b.TenantID == tenantID && b.PropertyID == propertyID && b.Imported() && b.FeedURL == feedURL
	})
}

func (r blockRepo) filter(keep func(*availability.BlockedPeriod) bool) ([]*availability.BlockedPeriod, error) {
	var out []*availability.BlockedPeriod
	err := r.u.read(func(s *Store) error {
		for _, b := range s.blocks {
			if keep(b) {
				out = append(out, cloneBlock(b))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Range.CheckIn.Equal(out[j].Range.CheckIn) {
			return out[i].ID < out[j].ID
		}
		return out[i].Range.CheckIn.Before(out[j].Range.CheckIn)
	})
	return out, err
}

func (r blockRepo) Save(ctx context.Context, block *availability.BlockedPeriod) error {
	return r.u.write(func(s *Store) (func(), error) {
		prev, existed := s.blocks[block.ID]
		if existed && prev.TenantID != block.TenantID {
			return nil, availability.ErrBlockNotFound
		}
		s.blocks[block.ID] = cloneBlock(block)
		return func() {
			if existed {
				s.blocks[block.ID] = prev
			} else {
				delete(s.blocks, block.ID)
			}
		}, nil
	})
}

func (r blockRepo) Delete(ctx context.Context, tenantID tenant.ID, id availability.BlockID) error {
	return r.u.write(func(s *Store) (func(), error) {
		prev, ok := s.blocks[id]
		if !ok || prev.TenantID != tenantID {
			return nil, availability.ErrBlockNotFound
		}
		delete(s.blocks, id)
		return func() { s.blocks[id] = prev }, nil
	})
}

type subscriptionRepo struct{ u *Unit }

func (r subscriptionRepo) ByID(ctx context.Context, tenantID tenant.ID, id calendarsync.SubscriptionID) (*calendarsync.Subscription, error) {
	var out *calendarsync.Subscription
	err := r.u.read(func(s *Store) error {
		sub, ok := s.subscriptions[id]
		if !ok || sub.TenantID != tenantID {
			return calendarsync.ErrSubscriptionNotFound
		}
		out = cloneSubscription(sub)
		return nil
	})
	return out, err
}

func (r subscriptionRepo) ListByProperty(ctx context.Context, tenantID tenant.ID, propertyID property.PropertyID) ([]*calendarsync.Subscription, error) {
	return r.filter(func(sub *calendarsync.Subscription) bool {
		return sub.TenantID == tenantID && sub.PropertyID == propertyID
	})
}

func (r subscriptionRepo) ListEnabled(ctx context.Context) ([]*calendarsync.Subscription, error) {
	return r.filter(func(sub *calendarsync.Subscription) bool { return sub.Enabled })
}

func (r subscriptionRepo) filter(keep func(*calendarsync.Subscription) bool) ([]*calendarsync.Subscription, error) {
	var out []*calendarsync.Subscription
	err := r.u.read(func(s *Store) error {
		for _, sub := range s.subscriptions {
			if keep(sub) {
				out = append(out, cloneSubscription(sub))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r subscriptionRepo) Save(ctx context.Context, sub *calendarsync.Subscription) error {
	return r.u.write(func(s *Store) (func(), error) {
		prev, existed := s.subscriptions[sub.ID]
		if existed && prev.TenantID != sub.TenantID {
			return nil, calendarsync.ErrSubscriptionNotFound
		}
		s.subscriptions[sub.ID] = cloneSubscription(sub)
		return func() {
			if existed {
				s.subscriptions[sub.ID] = prev
			} else {
				delete(s.subscriptions, sub.ID)
			}
		}, nil
	})
}

func (r subscriptionRepo) Delete(ctx context.Context, tenantID tenant.ID, id calendarsync.SubscriptionID) error {
	return r.u.write(func(s *Store) (func(), error) {
		prev, ok := s.subscriptions[id]
		if !ok || prev.TenantID != tenantID {
			return nil, calendarsync.ErrSubscriptionNotFound
		}
		delete(s.subscriptions, id)
		return func() { s.subscriptions[id] = prev }, nil
	})
}
