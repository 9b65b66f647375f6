package availability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eliezelg/villasaas-sub004/internal/app/uow"
	domain "github.com/Eliezelg/villasaas-sub004/internal/domain/availability"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/booking"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/daterange"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/money"
	"github.com/Eliezelg/villasaas-sub004/internal/infra/storage/memory"
)

var now = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

func day(m time.Month, d int) time.Time { return time.Date(2026, m, d, 0, 0, 0, 0, time.UTC) }

func seed(t *testing.T) (memory.Factory, *memory.Outbox) {
	t.Helper()
	store := memory.NewStore()
	factory := memory.Factory{Store: store}
	require.NoError(t, factory.Seed(context.Background(), func(ctx context.Context, unit uow.UnitOfWork) error {
		p, err := property.NewProperty(property.CreateParams{ID: "p1", TenantID: "t1", Name: "Villa", Currency: "EUR", BasePrice: "100"})
		if err != nil {
			return err
		}
		if err := unit.Properties().Save(ctx, p); err != nil {
			return err
		}
		b, err := booking.NewBooking(booking.CreateParams{
			ID: "bk-1", TenantID: "t1", PropertyID: "p1",
			Range:  daterange.MustNew(day(11, 2), day(11, 5)),
			Guests: booking.Guests{Adults: 2},
			Price:  booking.PriceSnapshot{Total: money.MustString("300", "EUR")},
		})
		if err != nil {
			return err
		}
		if err := unit.Bookings().Save(ctx, b); err != nil {
			return err
		}
		cancelled, err := booking.NewBooking(booking.CreateParams{
			ID: "bk-2", TenantID: "t1", PropertyID: "p1",
			Range:  daterange.MustNew(day(11, 20), day(11, 22)),
			Guests: booking.Guests{Adults: 1},
			Price:  booking.PriceSnapshot{Total: money.MustString("200", "EUR")},
		})
		if err != nil {
			return err
		}
		if _, _, err := cancelled.Cancel("guest request", now); err != nil {
			return err
		}
		return unit.Bookings().Save(ctx, cancelled)
	}))
	return factory, memory.NewOutbox(store)
}

func TestCheckAvailability(t *testing.T) {
	factory, _ := seed(t)
	h := &CheckAvailabilityHandler{UoWFactory: factory, Now: func() time.Time { return now }}
	ctx := context.Background()

	cases := []struct {
		name      string
		in, out   time.Time
		exclude   string
		available bool
		conflicts int
	}{
		{"overlapping booking", day(11, 4), day(11, 6), "", false, 1},
		{"touching checkout", day(11, 5), day(11, 7), "", true, 0},
		{"touching checkin", day(10, 30), day(11, 2), "", true, 0},
		{"cancelled booking frees nights", day(11, 20), day(11, 22), "", true, 0},
		{"excluded booking", day(11, 2), day(11, 5), "bk-1", true, 0},
		{"past check-in", day(10, 10), day(10, 12), "", false, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := h.Handle(ctx, CheckAvailabilityQuery{TenantID: "t1", PropertyID: "p1", CheckIn: tc.in, CheckOut: tc.out, ExcludeBookingID: tc.exclude})
			require.NoError(t, err)
			assert.Equal(t, tc.available, res.Available)
			assert.Len(t, res.Conflicts, tc.conflicts)
		})
	}

	_, err := h.Handle(ctx, CheckAvailabilityQuery{TenantID: "t2", PropertyID: "p1", CheckIn: day(11, 2), CheckOut: day(11, 3)})
	assert.ErrorIs(t, err, property.ErrPropertyNotFound)
	_, err = h.Handle(ctx, CheckAvailabilityQuery{TenantID: "t1", PropertyID: "p1", CheckIn: day(11, 3), CheckOut: day(11, 3)})
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)
}

func TestBlocksConflictWithBookingsButNotWithEachOther(t *testing.T) {
	factory, box := seed(t)
	ctx := context.Background()
	create := &CreateBlockHandler{UoWFactory: factory, Outbox: box, Now: func() time.Time { return now }, IDs: func() string { return "blk-1" }}

	_, err := create.Handle(ctx, CreateBlockCommand{TenantID: "t1", PropertyID: "p1", CheckIn: day(11, 4), CheckOut: day(11, 8)})
	require.ErrorIs(t, err, domain.ErrAvailabilityConflict)

	block, err := create.Handle(ctx, CreateBlockCommand{TenantID: "t1", PropertyID: "p1", CheckIn: day(11, 5), CheckOut: day(11, 8), Reason: "painting"})
	require.NoError(t, err)
	assert.Equal(t, "blk-1", block.ID)
	assert.Equal(t, string(domain.SourceManual), block.Source)

	check := &CheckAvailabilityHandler{UoWFactory: factory, Now: func() time.Time { return now }}
	res, err := check.Handle(ctx, CheckAvailabilityQuery{TenantID: "t1", PropertyID: "p1", CheckIn: day(11, 6), CheckOut: day(11, 7)})
	require.NoError(t, err)
	assert.False(t, res.Available)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, string(domain.ConflictBlock), res.Conflicts[0].Kind)

	cal := &GetCalendarHandler{UoWFactory: factory}
	view, err := cal.Handle(ctx, GetCalendarQuery{TenantID: "t1", PropertyID: "p1", From: day(11, 1), To: day(12, 1)})
	require.NoError(t, err)
	require.Len(t, view.Occupied, 2)
	assert.Equal(t, "bk-1", view.Occupied[0].ID)
	assert.Equal(t, "blk-1", view.Occupied[1].ID)

	del := &DeleteBlockHandler{UoWFactory: factory, Outbox: box, Now: func() time.Time { return now }}
	_, err = del.Handle(ctx, DeleteBlockCommand{TenantID: "t1", PropertyID: "p2", BlockID: "blk-1"})
	assert.ErrorIs(t, err, domain.ErrBlockNotFound)
	_, err = del.Handle(ctx, DeleteBlockCommand{TenantID: "t1", PropertyID: "p1", BlockID: "blk-1"})
	require.NoError(t, err)

	var names []string
	for _, rec := range box.Records() {
		names = append(names, rec.Name)
	}
	assert.Equal(t, []string{"calendar.blocked", "calendar.released"}, names)
}

func TestImportedBlocksCannotBeDeletedByHand(t *testing.T) {
	factory, box := seed(t)
	ctx := context.Background()
	require.NoError(t, factory.Seed(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		b, err := domain.NewBlockedPeriod(domain.BlockParams{
			ID: "ext-1", TenantID: "t1", PropertyID: "p1",
			Range:  daterange.MustNew(day(12, 1), day(12, 4)),
			Source: domain.SourceICalImport, ExternalUID: "uid-1", FeedURL: "https://example.com/a.ics", Now: now,
		})
		if err != nil {
			return err
		}
		return unit.Blocks().Save(ctx, b)
	}))
	del := &DeleteBlockHandler{UoWFactory: factory, Outbox: box}
	_, err := del.Handle(ctx, DeleteBlockCommand{TenantID: "t1", PropertyID: "p1", BlockID: "ext-1"})
	assert.ErrorIs(t, err, domain.ErrImportedBlock)
}
