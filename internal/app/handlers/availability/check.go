package availability

import (
	"context"
	"time"

	"github.com/Eliezelg/villasaas-sub004/internal/app/dto"
	"github.com/Eliezelg/villasaas-sub004/internal/app/queries"
	"github.com/Eliezelg/villasaas-sub004/internal/app/uow"
	domain "github.com/Eliezelg/villasaas-sub004/internal/domain/availability"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/daterange"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

const (
	checkAvailabilityKey = "availability.check"
	getCalendarKey       = "availability.calendar"
)

type CheckAvailabilityQuery struct {
	TenantID         tenant.ID           `validate:"required"`
	PropertyID       property.PropertyID `validate:"required"`
	CheckIn          time.Time           `validate:"required"`
	CheckOut         time.Time           `validate:"required"`
	ExcludeBookingID string
}

func (q CheckAvailabilityQuery) Key() string { return checkAvailabilityKey }

func (q CheckAvailabilityQuery) TenantScope() tenant.ID { return q.TenantID }

type CheckAvailabilityHandler struct {
	UoWFactory uow.UoWFactory
	Now        func() time.Time
}

func (h *CheckAvailabilityHandler) Handle(ctx context.Context, q CheckAvailabilityQuery) (dto.Availability, error) {
	dr, err := daterange.New(q.CheckIn, q.CheckOut)
	if err != nil {
		return dto.Availability{}, err
	}
	scope, ctx, err := uow.Join(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.Availability{}, err
	}
	defer scope.Close(ctx)

	if _, err := scope.Unit.Properties().ByID(ctx, q.TenantID, q.PropertyID); err != nil {
		return dto.Availability{}, err
	}
	occ, err := Occupancies(ctx, scope.Unit, q.TenantID, q.PropertyID, dr)
	if err != nil {
		return dto.Availability{}, err
	}
	res := domain.Evaluate(domain.Query{Range: dr, ExcludeBookingID: q.ExcludeBookingID}, occ, clock(h.Now))
	return dto.MapAvailability(res), nil
}

type GetCalendarQuery struct {
	TenantID   tenant.ID           `validate:"required"`
	PropertyID property.PropertyID `validate:"required"`
	From       time.Time           `validate:"required"`
	To         time.Time           `validate:"required"`
}

func (q GetCalendarQuery) Key() string { return getCalendarKey }

func (q GetCalendarQuery) TenantScope() tenant.ID { return q.TenantID }

type GetCalendarHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetCalendarHandler) Handle(ctx context.Context, q GetCalendarQuery) (dto.Calendar, error) {
	window, err := daterange.New(q.From, q.To)
	if err != nil {
		return dto.Calendar{}, err
	}
	scope, ctx, err := uow.Join(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.Calendar{}, err
	}
	defer scope.Close(ctx)

	if _, err := scope.Unit.Properties().ByID(ctx, q.TenantID, q.PropertyID); err != nil {
		return dto.Calendar{}, err
	}
	occ, err := Occupancies(ctx, scope.Unit, q.TenantID, q.PropertyID, window)
	if err != nil {
		return dto.Calendar{}, err
	}
	// Evaluate sorts the overlaps; the window itself may start in the past.
	res := domain.Evaluate(domain.Query{Range: window}, occ, time.Time{})
	occupied := make([]dto.ConflictDTO, 0, len(res.Conflicts))
	for _, c := range res.Conflicts {
		occupied = append(occupied, dto.MapOccupancy(c))
	}
	return dto.Calendar{
		PropertyID: string(q.PropertyID),
		From:       window.CheckIn.Format(time.DateOnly),
		To:         window.CheckOut.Format(time.DateOnly),
		Occupied:   occupied,
	}, nil
}

var _ queries.Handler[CheckAvailabilityQuery, dto.Availability] = (*CheckAvailabilityHandler)(nil)
var _ queries.Handler[GetCalendarQuery, dto.Calendar] = (*GetCalendarHandler)(nil)
