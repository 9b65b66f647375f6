package uow

import (
	"context"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/availability"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/booking"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/calendarsync"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/options"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/payments"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/pricing"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/promo"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
)

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Properties() property.Repository
	Periods() pricing.PeriodRepository
	Options() options.Repository
	Promos() promo.Repository
	Payments() payments.Repository
	Bookings() booking.Repository
	Blocks() availability.Repository
	Subscriptions() calendarsync.SubscriptionRepository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}
