package booking

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	quotehandlers "github.com/Eliezelg/villasaas-sub004/internal/app/handlers/quote"
	"github.com/Eliezelg/villasaas-sub004/internal/app/uow"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/availability"
	domainbooking "github.com/Eliezelg/villasaas-sub004/internal/domain/booking"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/promo"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/daterange"
	"github.com/Eliezelg/villasaas-sub004/internal/infra/storage/memory"
)

var now = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

func day(m time.Month, d int) time.Time { return time.Date(2026, m, d, 0, 0, 0, 0, time.UTC) }

type fixture struct {
	factory memory.Factory
	box     *memory.Outbox
	deps    Deps
	request *RequestBookingHandler
	confirm *ConfirmBookingHandler
	cancel  *CancelBookingHandler
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.NewStore()
	factory := memory.Factory{Store: store}
	maxUses := 1
	require.NoError(t, factory.Seed(context.Background(), func(ctx context.Context, unit uow.UnitOfWork) error {
		p, err := property.NewProperty(property.CreateParams{
			ID: "p1", TenantID: "t1", Name: "Villa Azur", Currency: "EUR",
			BasePrice: "100", WeekendPremium: "20", CleaningFee: "50", MinNights: 2, MaxGuests: 6,
			Cancellation: property.CancellationPolicy{PolicyID: "moderate", PreCheckInPenaltyPercent: 50, PostCheckInPenaltyPercent: 100},
		})
		if err != nil {
			return err
		}
		if err := unit.Properties().Save(ctx, p); err != nil {
			return err
		}
		return unit.Promos().Save(ctx, &promo.PromoCode{
			ID: "promo-1", TenantID: "t1", Code: "SUMMER10", MaxUses: &maxUses,
			DiscountType: promo.DiscountPercentage, DiscountValue: decimal.NewFromInt(10), IsActive: true,
		})
	}))
	seq := 0
	deps := Deps{
		UoWFactory: factory,
		Outbox:     memory.NewOutbox(store),
		Now:        func() time.Time { return now },
		IDs: func() string {
			seq++
			return fmt.Sprintf("booking-%02d", seq)
		},
	}
	return fixture{
		factory: factory,
		box:     deps.Outbox.(*memory.Outbox),
		deps:    deps,
		request: &RequestBookingHandler{Deps: deps, Pricer: quotehandlers.Pricer{Now: deps.Now}},
		confirm: &ConfirmBookingHandler{Deps: deps},
		cancel:  &CancelBookingHandler{Deps: deps},
	}
}

func stay(in, out time.Time) RequestBookingCommand {
	return RequestBookingCommand{TenantID: "t1", PropertyID: "p1", CheckIn: in, CheckOut: out, Adults: 2, GuestID: "u1"}
}

func eventNames(box *memory.Outbox) []string {
	var names []string
	for _, rec := range box.Records() {
		names = append(names, rec.Name)
	}
	return names
}

func (f fixture) stored(t *testing.T, id string) *domainbooking.Booking {
	t.Helper()
	unit, err := f.factory.Begin(context.Background(), uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	b, err := unit.Bookings().ByID(context.Background(), "t1", domainbooking.BookingID(id))
	require.NoError(t, err)
	return b
}

func TestRequestAndConfirmRedeemsPromo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cmd := stay(day(11, 2), day(11, 5))
	cmd.PromoCode = "summer10"
	requested, err := f.request.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", requested.Status)
	assert.Equal(t, "BK-BOOKING0", requested.Reference)
	assert.Equal(t, "promo-1", requested.PromoCode)
	assert.Equal(t, "315.00", requested.Price.Total.Amount)
	assert.Equal(t, "35.00", requested.Price.Discount.Amount)

	confirmed, err := f.confirm.Handle(ctx, ConfirmBookingCommand{TenantID: "t1", PropertyID: "p1", BookingID: "booking-01", PaymentRef: "pay_123"})
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", confirmed.Status)
	assert.Equal(t, "pay_123", confirmed.PaymentRef)

	unit, _ := f.factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	code, err := unit.Promos().ByID(ctx, "t1", "promo-1")
	require.NoError(t, err)
	assert.Equal(t, 1, code.CurrentUses)
	assert.Equal(t, []string{"booking.requested", "promo.redeemed", "booking.confirmed"}, eventNames(f.box))
}

func TestConfirmFailsWhenPromoIsExhaustedMeanwhile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := stay(day(11, 2), day(11, 5))
	first.PromoCode = "SUMMER10"
	second := stay(day(11, 9), day(11, 12))
	second.PromoCode = "SUMMER10"
	_, err := f.request.Handle(ctx, first)
	require.NoError(t, err)
	_, err = f.request.Handle(ctx, second)
	require.NoError(t, err)

	_, err = f.confirm.Handle(ctx, ConfirmBookingCommand{TenantID: "t1", PropertyID: "p1", BookingID: "booking-01", PaymentRef: "pay_1"})
	require.NoError(t, err)
	_, err = f.confirm.Handle(ctx, ConfirmBookingCommand{TenantID: "t1", PropertyID: "p1", BookingID: "booking-02", PaymentRef: "pay_2"})
	require.ErrorIs(t, err, promo.ErrRedemptionRaceLost)

	assert.Equal(t, domainbooking.StatusPending, f.stored(t, "booking-02").Status)
	unit, _ := f.factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	code, err := unit.Promos().ByID(ctx, "t1", "promo-1")
	require.NoError(t, err)
	assert.Equal(t, 1, code.CurrentUses)
}

func TestRequestRejectsOverlapButAllowsTouchingStays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.request.Handle(ctx, stay(day(11, 2), day(11, 5)))
	require.NoError(t, err)

	_, err = f.request.Handle(ctx, stay(day(11, 4), day(11, 7)))
	require.ErrorIs(t, err, availability.ErrAvailabilityConflict)
	var conflict *availability.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Len(t, conflict.Conflicts, 1)
	assert.Equal(t, "booking-01", conflict.Conflicts[0].ID)

	touching, err := f.request.Handle(ctx, stay(day(11, 5), day(11, 7)))
	require.NoError(t, err)
	assert.Equal(t, "PENDING", touching.Status)
}

func TestRequestRejectsPastCheckIn(t *testing.T) {
	f := newFixture(t)
	_, err := f.request.Handle(context.Background(), stay(day(10, 10), day(10, 13)))
	assert.ErrorIs(t, err, availability.ErrPastDateRequested)
	assert.Empty(t, f.box.Records())
}

func TestCancelFreesTheNights(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.request.Handle(ctx, stay(day(11, 2), day(11, 5)))
	require.NoError(t, err)
	_, err = f.confirm.Handle(ctx, ConfirmBookingCommand{TenantID: "t1", PropertyID: "p1", BookingID: "booking-01", PaymentRef: "pay_1"})
	require.NoError(t, err)

	res, err := f.cancel.Handle(ctx, CancelBookingCommand{TenantID: "t1", PropertyID: "p1", BookingID: "booking-01", Reason: "change of plans"})
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", res.Booking.Status)
	assert.Equal(t, "175.00", res.Refund.Amount)
	assert.Equal(t, "175.00", res.Penalty.Amount)

	again, err := f.request.Handle(ctx, stay(day(11, 2), day(11, 5)))
	require.NoError(t, err)
	assert.Equal(t, "booking-02", again.ID)
}

func TestConfirmRequiresPaymentReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.request.Handle(ctx, stay(day(11, 2), day(11, 5)))
	require.NoError(t, err)

	_, err = f.confirm.Handle(ctx, ConfirmBookingCommand{TenantID: "t1", PropertyID: "p1", BookingID: "booking-01", PaymentRef: "  "})
	require.ErrorIs(t, err, domainbooking.ErrPaymentRefRequired)
	stored := f.stored(t, "booking-01")
	assert.Equal(t, domainbooking.StatusPending, stored.Status)
	assert.Equal(t, int64(1), stored.Version)
}

func TestLifecycleRejectsForeignProperty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.request.Handle(ctx, stay(day(11, 2), day(11, 5)))
	require.NoError(t, err)

	_, err = f.confirm.Handle(ctx, ConfirmBookingCommand{TenantID: "t1", PropertyID: "p2", BookingID: "booking-01", PaymentRef: "pay"})
	assert.ErrorIs(t, err, domainbooking.ErrBookingNotFound)
	_, err = f.confirm.Handle(ctx, ConfirmBookingCommand{TenantID: "t2", PropertyID: "p1", BookingID: "booking-01", PaymentRef: "pay"})
	assert.ErrorIs(t, err, domainbooking.ErrBookingNotFound)
}

func TestCompleteAndNoShowNeedTheStayToHaveStarted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.request.Handle(ctx, stay(day(11, 2), day(11, 5)))
	require.NoError(t, err)
	_, err = f.confirm.Handle(ctx, ConfirmBookingCommand{TenantID: "t1", PropertyID: "p1", BookingID: "booking-01", PaymentRef: "pay"})
	require.NoError(t, err)

	early := &CompleteBookingHandler{Deps: f.deps}
	_, err = early.Handle(ctx, CompleteBookingCommand{TenantID: "t1", PropertyID: "p1", BookingID: "booking-01"})
	assert.ErrorIs(t, err, domainbooking.ErrCheckOutNotReached)

	later := f.deps
	later.Now = func() time.Time { return day(11, 3) }
	noShow := &MarkNoShowHandler{Deps: later}
	res, err := noShow.Handle(ctx, MarkNoShowCommand{TenantID: "t1", PropertyID: "p1", BookingID: "booking-01"})
	require.NoError(t, err)
	assert.Equal(t, "NO_SHOW", res.Status)
}

func TestRequestFreezesTheListingCancellationTerms(t *testing.T) {
	f := newFixture(t)
	_, err := f.request.Handle(context.Background(), stay(day(11, 2), day(11, 5)))
	require.NoError(t, err)

	assert.Equal(t, domainbooking.CancellationPolicySnapshot{
		PolicyID:                  "moderate",
		PreCheckInPenaltyPercent:  50,
		PostCheckInPenaltyPercent: 100,
	}, f.stored(t, "booking-01").Policy)
}

func (f fixture) seedBlock(t *testing.T, id availability.BlockID, source availability.Source, in, out time.Time) {
	t.Helper()
	require.NoError(t, f.factory.Seed(context.Background(), func(ctx context.Context, unit uow.UnitOfWork) error {
		params := availability.BlockParams{
			ID: id, TenantID: "t1", PropertyID: "p1", Range: daterange.MustNew(in, out),
			Source: source, Now: now,
		}
		if source == availability.SourceICalImport {
			params.ExternalUID = "uid-" + string(id)
			params.FeedURL = "https://channel.example.com/feed.ics"
		}
		block, err := availability.NewBlockedPeriod(params)
		if err != nil {
			return err
		}
		return unit.Blocks().Save(ctx, block)
	}))
}

func TestRequestConvertsAnImportedBlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedBlock(t, "imported", availability.SourceICalImport, day(11, 1), day(11, 6))

	_, err := f.request.Handle(ctx, stay(day(11, 2), day(11, 5)))
	require.ErrorIs(t, err, availability.ErrAvailabilityConflict)

	cmd := stay(day(11, 2), day(11, 5))
	cmd.FromBlockID = "imported"
	res, err := f.request.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", res.Status)
	assert.Equal(t, "uid-imported", f.stored(t, res.ID).ExternalUID)

	unit, _ := f.factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	_, err = unit.Blocks().ByID(ctx, "t1", "imported")
	assert.ErrorIs(t, err, availability.ErrBlockNotFound)
	assert.Contains(t, eventNames(f.box), "calendar.released")
}

func TestRequestRefusesToConvertOtherBlocks(t *testing.T) {
	f := newFixture(t)
	f.seedBlock(t, "manual", availability.SourceManual, day(11, 2), day(11, 5))
	f.seedBlock(t, "short", availability.SourceICalImport, day(11, 10), day(11, 12))

	cases := []struct {
		name  string
		block availability.BlockID
		in    time.Time
		out   time.Time
		want  error
	}{
		{"manual block", "manual", day(11, 2), day(11, 5), availability.ErrBlockNotConvertible},
		{"stay outside block", "short", day(11, 10), day(11, 13), availability.ErrBlockNotConvertible},
		{"unknown block", "missing", day(11, 20), day(11, 22), availability.ErrBlockNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd := stay(tc.in, tc.out)
			cmd.FromBlockID = tc.block
			_, err := f.request.Handle(context.Background(), cmd)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Empty(t, f.box.Records())
}

func TestConfirmEnforcesThePerUserLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	perUser := 1
	require.NoError(t, f.factory.Seed(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		if err := unit.Promos().Save(ctx, &promo.PromoCode{
			ID: "promo-once", TenantID: "t1", Code: "ONCE", MaxUsesPerUser: &perUser,
			DiscountType: promo.DiscountFixed, DiscountValue: decimal.NewFromInt(20), IsActive: true,
		}); err != nil {
			return err
		}
		for i, in := range []time.Time{day(11, 2), day(11, 9)} {
			b, err := domainbooking.NewBooking(domainbooking.CreateParams{
				ID: domainbooking.BookingID(fmt.Sprintf("pending-%d", i+1)), TenantID: "t1", PropertyID: "p1",
				Range: daterange.MustNew(in, in.AddDate(0, 0, 3)), Guests: domainbooking.Guests{Adults: 2},
				GuestID: "u1", PromoCodeID: "promo-once", CreatedAt: now,
			})
			if err != nil {
				return err
			}
			if err := unit.Bookings().Save(ctx, b); err != nil {
				return err
			}
		}
		return nil
	}))

	_, err := f.confirm.Handle(ctx, ConfirmBookingCommand{TenantID: "t1", PropertyID: "p1", BookingID: "pending-1", PaymentRef: "pay_1"})
	require.NoError(t, err)
	_, err = f.confirm.Handle(ctx, ConfirmBookingCommand{TenantID: "t1", PropertyID: "p1", BookingID: "pending-2", PaymentRef: "pay_2"})
	require.ErrorIs(t, err, promo.ErrPerUserLimit)
	assert.Equal(t, domainbooking.StatusPending, f.stored(t, "pending-2").Status)
}
