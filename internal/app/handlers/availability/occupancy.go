package availability

import (
	"context"
	"time"

	"github.com/Eliezelg/villasaas-sub004/internal/app/uow"
	domain "github.com/Eliezelg/villasaas-sub004/internal/domain/availability"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/daterange"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

// Occupancies loads the bookings and blocked periods holding nights of the
// property inside dr.
func Occupancies(ctx context.Context, unit uow.UnitOfWork, tenantID tenant.ID, propertyID property.PropertyID, dr daterange.DateRange) ([]domain.Occupancy, error) {
	occ, err := BookingOccupancies(ctx, unit, tenantID, propertyID, dr)
	if err != nil {
		return nil, err
	}
	blocks, err := unit.Blocks().ListOverlapping(ctx, tenantID, propertyID, dr)
	if err != nil {
		return nil, err
	}
	for _, b := range blocks {
		occ = append(occ, domain.BlockOccupancy(b))
	}
	return occ, nil
}

func BookingOccupancies(ctx context.Context, unit uow.UnitOfWork, tenantID tenant.ID, propertyID property.PropertyID, dr daterange.DateRange) ([]domain.Occupancy, error) {
	bookings, err := unit.Bookings().Overlapping(ctx, tenantID, propertyID, dr)
	if err != nil {
		return nil, err
	}
	occ := make([]domain.Occupancy, 0, len(bookings))
	for _, b := range bookings {
		if b.OccupiesCalendar() {
			occ = append(occ, b.Occupancy())
		}
	}
	return occ, nil
}

func clock(now func() time.Time) time.Time {
	if now != nil {
		return now().UTC()
	}
	return time.Now().UTC()
}
