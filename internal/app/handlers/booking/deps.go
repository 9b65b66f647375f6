package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Eliezelg/villasaas-sub004/internal/app/outbox"
	"github.com/Eliezelg/villasaas-sub004/internal/app/uow"
	domainbooking "github.com/Eliezelg/villasaas-sub004/internal/domain/booking"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

// Deps is shared by the booking lifecycle handlers.
type Deps struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	IDs        func() string
	Now        func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

func (d Deps) newID() string {
	if d.IDs != nil {
		return d.IDs()
	}
	return uuid.NewString()
}

// load returns the booking only when it belongs to the given property.
func load(ctx context.Context, unit uow.UnitOfWork, tenantID tenant.ID, propertyID property.PropertyID, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	b, err := unit.Bookings().ByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if propertyID != "" && b.PropertyID != propertyID {
		return nil, domainbooking.ErrBookingNotFound
	}
	return b, nil
}

// transition applies fn to a stored booking and persists the result with its events.
func (d Deps) transition(ctx context.Context, tenantID tenant.ID, propertyID property.PropertyID, id domainbooking.BookingID, fn func(context.Context, uow.UnitOfWork, *domainbooking.Booking, time.Time) error) (*domainbooking.Booking, error) {
	scope, ctx, err := uow.Join(ctx, d.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer scope.Close(ctx)

	b, err := load(ctx, scope.Unit, tenantID, propertyID, id)
	if err != nil {
		return nil, err
	}
	if err := fn(ctx, scope.Unit, b, d.now()); err != nil {
		return nil, err
	}
	if err := scope.Unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}
	if err := outbox.Drain(ctx, d.Outbox, d.Encoder, b); err != nil {
		return nil, err
	}
	if err := scope.Commit(ctx); err != nil {
		return nil, err
	}
	return b, nil
}
