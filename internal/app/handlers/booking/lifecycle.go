package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/Eliezelg/villasaas-sub004/internal/app/commands"
	"github.com/Eliezelg/villasaas-sub004/internal/app/dto"
	availabilityhandlers "github.com/Eliezelg/villasaas-sub004/internal/app/handlers/availability"
	"github.com/Eliezelg/villasaas-sub004/internal/app/middleware"
	"github.com/Eliezelg/villasaas-sub004/internal/app/outbox"
	"github.com/Eliezelg/villasaas-sub004/internal/app/policies"
	"github.com/Eliezelg/villasaas-sub004/internal/app/uow"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/availability"
	domainbooking "github.com/Eliezelg/villasaas-sub004/internal/domain/booking"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/promo"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/events"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/money"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

const (
	confirmBookingKey  = "booking.confirm"
	cancelBookingKey   = "booking.cancel"
	completeBookingKey = "booking.complete"
	markNoShowKey      = "booking.no_show"
)

type ConfirmBookingCommand struct {
	TenantID        tenant.ID               `validate:"required"`
	PropertyID      property.PropertyID     `validate:"required"`
	BookingID       domainbooking.BookingID `validate:"required"`
	PaymentRef      string                  `validate:"max=128"`
	IdempotencyKeyV string
}

func (c ConfirmBookingCommand) Key() string { return confirmBookingKey }

func (c ConfirmBookingCommand) TenantScope() tenant.ID { return c.TenantID }

func (c ConfirmBookingCommand) LockKey() string {
	return policies.PropertyLockKey(string(c.TenantID), string(c.PropertyID))
}

func (c ConfirmBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c ConfirmBookingCommand) ResultPrototype() any { return &dto.Booking{} }

type ConfirmBookingHandler struct {
	Deps
}

// Handle confirms a paid booking. The nights are re-checked against every other
// occupant and the promo code, if any, is redeemed in the same unit of work;
// losing the redemption race fails the confirmation.
func (h *ConfirmBookingHandler) Handle(ctx context.Context, cmd ConfirmBookingCommand) (*dto.Booking, error) {
	b, err := h.transition(ctx, cmd.TenantID, cmd.PropertyID, cmd.BookingID, func(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking, now time.Time) error {
		occ, err := availabilityhandlers.Occupancies(ctx, unit, b.TenantID, b.PropertyID, b.Range)
		if err != nil {
			return err
		}
		res := availability.Evaluate(availability.Query{Range: b.Range, ExcludeBookingID: string(b.ID)}, occ, now)
		if err := res.Err(); err != nil {
			return err
		}
		if err := b.Confirm(cmd.PaymentRef, now); err != nil {
			return err
		}
		if b.PromoCodeID == "" {
			return nil
		}
		if err := checkUserLimit(ctx, unit, b); err != nil {
			return err
		}
		if err := unit.Promos().IncrementUses(ctx, b.TenantID, b.PromoCodeID); err != nil {
			return fmt.Errorf("booking %s: redeem promo %s: %w", b.ID, b.PromoCodeID, err)
		}
		redeemed := promo.PromoRedeemed{Meta: events.NewMeta(string(b.TenantID), now), PromoID: b.PromoCodeID, BookingID: string(b.ID), UserID: b.GuestID}
		return outbox.Stage(ctx, h.Outbox, h.Encoder, redeemed)
	})
	if err != nil {
		return nil, err
	}
	out := dto.MapBooking(b)
	return &out, nil
}

// checkUserLimit refuses a redemption that would take the guest past the code's
// per-user limit. Pending bookings of the same guest are not counted; only
// earlier confirmations are.
func checkUserLimit(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking) error {
	if b.GuestID == "" {
		return nil
	}
	code, err := unit.Promos().ByID(ctx, b.TenantID, b.PromoCodeID)
	if err != nil {
		return fmt.Errorf("booking %s: load promo %s: %w", b.ID, b.PromoCodeID, err)
	}
	if code.MaxUsesPerUser == nil {
		return nil
	}
	uses, err := unit.Bookings().CountRedemptions(ctx, b.TenantID, b.GuestID, b.PromoCodeID, b.ID)
	if err != nil {
		return err
	}
	if !code.WithinUserLimit(b.GuestID, uses) {
		return fmt.Errorf("booking %s: redeem promo %s: %w", b.ID, b.PromoCodeID, promo.ErrPerUserLimit)
	}
	return nil
}

type CancelBookingCommand struct {
	TenantID        tenant.ID               `validate:"required"`
	PropertyID      property.PropertyID     `validate:"required"`
	BookingID       domainbooking.BookingID `validate:"required"`
	Reason          string                  `validate:"max=500"`
	IdempotencyKeyV string
}

func (c CancelBookingCommand) Key() string { return cancelBookingKey }

func (c CancelBookingCommand) TenantScope() tenant.ID { return c.TenantID }

func (c CancelBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CancelBookingCommand) ResultPrototype() any { return &dto.CancellationResult{} }

type CancelBookingHandler struct {
	Deps
}

// Handle cancels the booking and frees its nights. A redeemed promo use is
// not given back.
func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*dto.CancellationResult, error) {
	var refund, penalty money.Money
	b, err := h.transition(ctx, cmd.TenantID, cmd.PropertyID, cmd.BookingID, func(_ context.Context, _ uow.UnitOfWork, b *domainbooking.Booking, now time.Time) error {
		var err error
		refund, penalty, err = b.Cancel(cmd.Reason, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &dto.CancellationResult{
		Booking: dto.MapBooking(b),
		Refund:  dto.MapMoney(refund),
		Penalty: dto.MapMoney(penalty),
	}, nil
}

type CompleteBookingCommand struct {
	TenantID   tenant.ID               `validate:"required"`
	PropertyID property.PropertyID     `validate:"required"`
	BookingID  domainbooking.BookingID `validate:"required"`
}

func (c CompleteBookingCommand) Key() string { return completeBookingKey }

func (c CompleteBookingCommand) TenantScope() tenant.ID { return c.TenantID }

type CompleteBookingHandler struct {
	Deps
}

func (h *CompleteBookingHandler) Handle(ctx context.Context, cmd CompleteBookingCommand) (*dto.Booking, error) {
	b, err := h.transition(ctx, cmd.TenantID, cmd.PropertyID, cmd.BookingID, func(_ context.Context, _ uow.UnitOfWork, b *domainbooking.Booking, now time.Time) error {
		return b.Complete(now)
	})
	if err != nil {
		return nil, err
	}
	out := dto.MapBooking(b)
	return &out, nil
}

type MarkNoShowCommand struct {
	TenantID   tenant.ID               `validate:"required"`
	PropertyID property.PropertyID     `validate:"required"`
	BookingID  domainbooking.BookingID `validate:"required"`
}

func (c MarkNoShowCommand) Key() string { return markNoShowKey }

func (c MarkNoShowCommand) TenantScope() tenant.ID { return c.TenantID }

type MarkNoShowHandler struct {
	Deps
}

// Handle records that the guest never arrived. The nights become free again.
func (h *MarkNoShowHandler) Handle(ctx context.Context, cmd MarkNoShowCommand) (*dto.Booking, error) {
	b, err := h.transition(ctx, cmd.TenantID, cmd.PropertyID, cmd.BookingID, func(_ context.Context, _ uow.UnitOfWork, b *domainbooking.Booking, now time.Time) error {
		return b.MarkNoShow(now)
	})
	if err != nil {
		return nil, err
	}
	out := dto.MapBooking(b)
	return &out, nil
}

var _ commands.Handler[ConfirmBookingCommand, *dto.Booking] = (*ConfirmBookingHandler)(nil)
var _ commands.Handler[CancelBookingCommand, *dto.CancellationResult] = (*CancelBookingHandler)(nil)
var _ commands.Handler[CompleteBookingCommand, *dto.Booking] = (*CompleteBookingHandler)(nil)
var _ commands.Handler[MarkNoShowCommand, *dto.Booking] = (*MarkNoShowHandler)(nil)
var _ middleware.LockedCommand = ConfirmBookingCommand{}
var _ middleware.IdempotentCommand = CancelBookingCommand{}
