package booking

import (
	"context"

	"github.com/Eliezelg/villasaas-sub004/internal/app/dto"
	"github.com/Eliezelg/villasaas-sub004/internal/app/queries"
	"github.com/Eliezelg/villasaas-sub004/internal/app/uow"
	domainbooking "github.com/Eliezelg/villasaas-sub004/internal/domain/booking"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

const getBookingKey = "booking.get"

type GetBookingQuery struct {
	TenantID   tenant.ID               `validate:"required"`
	PropertyID property.PropertyID     `validate:"required"`
	BookingID  domainbooking.BookingID `validate:"required"`
}

func (q GetBookingQuery) Key() string { return getBookingKey }

func (q GetBookingQuery) TenantScope() tenant.ID { return q.TenantID }

type GetBookingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (dto.Booking, error) {
	scope, ctx, err := uow.Join(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.Booking{}, err
	}
	defer scope.Close(ctx)

	b, err := load(ctx, scope.Unit, q.TenantID, q.PropertyID, q.BookingID)
	if err != nil {
		return dto.Booking{}, err
	}
	return dto.MapBooking(b), nil
}

var _ queries.Handler[GetBookingQuery, dto.Booking] = (*GetBookingHandler)(nil)
