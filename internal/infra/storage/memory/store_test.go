package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "github.com/Eliezelg/villasaas-sub004/internal/app/outbox"
	"github.com/Eliezelg/villasaas-sub004/internal/app/uow"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/booking"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/promo"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/daterange"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/money"
)

func newBooking(t *testing.T, id string) *booking.Booking {
	t.Helper()
	b, err := booking.NewBooking(booking.CreateParams{
		ID:         booking.BookingID(id),
		TenantID:   "t1",
		PropertyID: "p1",
		Range:      daterange.MustNew(time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC), time.Date(2026, 11, 5, 0, 0, 0, 0, time.UTC)),
		Guests:     booking.Guests{Adults: 2},
		Price:      booking.PriceSnapshot{Total: money.MustString("300", "EUR")},
		CreatedAt:  time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return b
}

func TestRollbackRestoresPreviousState(t *testing.T) {
	ctx := context.Background()
	f := Factory{Store: NewStore()}
	require.NoError(t, f.Seed(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Bookings().Save(ctx, newBooking(t, "b1"))
	}))

	unit, err := f.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	b, err := unit.Bookings().ByID(ctx, "t1", "b1")
	require.NoError(t, err)
	require.NoError(t, b.Confirm("pay_1", time.Now()))
	require.NoError(t, unit.Bookings().Save(ctx, b))
	require.NoError(t, unit.Bookings().Save(ctx, newBooking(t, "b2")))

	seen, err := unit.Bookings().ByID(ctx, "t1", "b1")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, seen.Status)
	require.NoError(t, unit.Rollback(ctx))

	check, _ := f.Begin(ctx, uow.TxOptions{ReadOnly: true})
	stored, err := check.Bookings().ByID(ctx, "t1", "b1")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPending, stored.Status)
	assert.Equal(t, int64(1), stored.Version)
	_, err = check.Bookings().ByID(ctx, "t1", "b2")
	assert.ErrorIs(t, err, booking.ErrBookingNotFound)
}

func TestBookingSaveDetectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	f := Factory{Store: NewStore()}
	require.NoError(t, f.Seed(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Bookings().Save(ctx, newBooking(t, "b1"))
	}))

	unit, _ := f.Begin(ctx, uow.TxOptions{})
	first, _ := unit.Bookings().ByID(ctx, "t1", "b1")
	second, _ := unit.Bookings().ByID(ctx, "t1", "b1")
	require.NoError(t, unit.Bookings().Save(ctx, first))
	assert.ErrorIs(t, unit.Bookings().Save(ctx, second), booking.ErrConcurrentUpdate)
	assert.ErrorIs(t, unit.Bookings().Save(ctx, newBooking(t, "b1")), booking.ErrConcurrentUpdate)
}

func TestIncrementUsesIsConditionalUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	f := Factory{Store: NewStore()}
	maxUses := 5
	require.NoError(t, f.Seed(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Promos().Save(ctx, &promo.PromoCode{
			ID: "promo-1", TenantID: "t1", Code: "spring", MaxUses: &maxUses,
			DiscountType: promo.DiscountFixed, DiscountValue: decimal.NewFromInt(10), IsActive: true,
		})
	}))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		won  int
		lost int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unit, _ := f.Begin(ctx, uow.TxOptions{})
			err := unit.Promos().IncrementUses(ctx, "t1", "promo-1")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				won++
				_ = unit.Commit(ctx)
				return
			}
			assert.ErrorIs(t, err, promo.ErrRedemptionRaceLost)
			lost++
			_ = unit.Rollback(ctx)
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, won)
	assert.Equal(t, 15, lost)

	unit, _ := f.Begin(ctx, uow.TxOptions{ReadOnly: true})
	code, err := unit.Promos().ByCode(ctx, "t1", " SPRING ")
	require.NoError(t, err)
	assert.Equal(t, 5, code.CurrentUses)
}

func TestOutboxRecordsBecomeVisibleOnCommit(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	f := Factory{Store: store}
	box := NewOutbox(store)

	unit, execCtx, err := uow.Start(ctx, f, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, box.Add(execCtx, appoutbox.EventRecord{ID: "e1", Name: "booking.confirmed", Payload: []byte(`{}`)}))
	pending, err := box.Claim(ctx, "w1")
	require.NoError(t, err)
	assert.Nil(t, pending)

	require.NoError(t, unit.Commit(execCtx))
	pending, err = box.Claim(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, "e1", pending.ID)
	require.NoError(t, box.MarkSent(ctx, pending.ID))

	rolled, rolledCtx, _ := uow.Start(ctx, f, uow.TxOptions{})
	require.NoError(t, box.Add(rolledCtx, appoutbox.EventRecord{ID: "e2", Name: "booking.cancelled"}))
	require.NoError(t, rolled.Rollback(rolledCtx))
	assert.Len(t, box.Records(), 1)
}

func TestLockerSerializesHolders(t *testing.T) {
	l := NewLocker()
	ctx := context.Background()
	release, err := l.Acquire(ctx, "k")
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(short, "k")
	require.Error(t, err)

	other, err := l.Acquire(ctx, "other")
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	require.NoError(t, release(ctx))
	again, err := l.Acquire(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}
