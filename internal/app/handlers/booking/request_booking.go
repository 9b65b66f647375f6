package booking

import (
	"context"
	"strings"
	"time"

	"github.com/Eliezelg/villasaas-sub004/internal/app/commands"
	"github.com/Eliezelg/villasaas-sub004/internal/app/dto"
	availabilityhandlers "github.com/Eliezelg/villasaas-sub004/internal/app/handlers/availability"
	quotehandlers "github.com/Eliezelg/villasaas-sub004/internal/app/handlers/quote"
	"github.com/Eliezelg/villasaas-sub004/internal/app/middleware"
	"github.com/Eliezelg/villasaas-sub004/internal/app/outbox"
	"github.com/Eliezelg/villasaas-sub004/internal/app/policies"
	"github.com/Eliezelg/villasaas-sub004/internal/app/uow"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/availability"
	domainbooking "github.com/Eliezelg/villasaas-sub004/internal/domain/booking"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/quote"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/daterange"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/money"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

const requestBookingKey = "booking.request"

type RequestBookingCommand struct {
	TenantID        tenant.ID                       `validate:"required"`
	PropertyID      property.PropertyID             `validate:"required"`
	CheckIn         time.Time                       `validate:"required"`
	CheckOut        time.Time                       `validate:"required"`
	Adults          int                             `validate:"min=1"`
	Children        int                             `validate:"min=0"`
	Infants         int                             `validate:"min=0"`
	Pets            int                             `validate:"min=0"`
	SelectedOptions []quotehandlers.OptionSelection `validate:"dive"`
	PromoCode       string                          `validate:"max=64"`
	GuestID         string
	// FromBlockID names an imported block whose reservation this booking
	// takes over. The block is replaced by the booking.
	FromBlockID     availability.BlockID
	IdempotencyKeyV string
}

func (c RequestBookingCommand) Key() string { return requestBookingKey }

func (c RequestBookingCommand) TenantScope() tenant.ID { return c.TenantID }

func (c RequestBookingCommand) LockKey() string {
	return policies.PropertyLockKey(string(c.TenantID), string(c.PropertyID))
}

func (c RequestBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c RequestBookingCommand) ResultPrototype() any { return &dto.Booking{} }

func (c RequestBookingCommand) quoteRequest() quote.Request {
	return quotehandlers.GetQuoteQuery{
		TenantID:        c.TenantID,
		PropertyID:      c.PropertyID,
		CheckIn:         c.CheckIn,
		CheckOut:        c.CheckOut,
		Adults:          c.Adults,
		Children:        c.Children,
		Infants:         c.Infants,
		Pets:            c.Pets,
		SelectedOptions: c.SelectedOptions,
		PromoCode:       c.PromoCode,
		UserID:          c.GuestID,
	}.Request()
}

type RequestBookingHandler struct {
	Deps
	Pricer quotehandlers.Pricer
}

// Handle prices the stay and holds the nights with a PENDING booking. The
// quoted amounts and the listing's cancellation terms are frozen on the
// booking; an invalid promo code is simply not applied.
func (h *RequestBookingHandler) Handle(ctx context.Context, cmd RequestBookingCommand) (*dto.Booking, error) {
	scope, ctx, err := uow.Join(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer scope.Close(ctx)
	unit := scope.Unit

	priced, err := h.Pricer.Price(ctx, unit, cmd.quoteRequest())
	if err != nil {
		return nil, err
	}
	listing, err := unit.Properties().ByID(ctx, cmd.TenantID, cmd.PropertyID)
	if err != nil {
		return nil, err
	}
	now := h.now()
	source, err := h.sourceBlock(ctx, unit, cmd, priced.Range, now)
	if err != nil {
		return nil, err
	}
	query := availability.Query{Range: priced.Range}
	if source != nil {
		query.ExcludeBlockID = string(source.ID)
	}
	occ, err := availabilityhandlers.Occupancies(ctx, unit, cmd.TenantID, cmd.PropertyID, priced.Range)
	if err != nil {
		return nil, err
	}
	if err := availability.Evaluate(query, occ, now).Err(); err != nil {
		return nil, err
	}

	snapshot, err := Snapshot(priced)
	if err != nil {
		return nil, err
	}
	id := h.newID()
	params := domainbooking.CreateParams{
		ID:         domainbooking.BookingID(id),
		TenantID:   cmd.TenantID,
		PropertyID: cmd.PropertyID,
		Reference:  reference(id),
		Range:      priced.Range,
		Guests: domainbooking.Guests{
			Adults:   cmd.Adults,
			Children: cmd.Children,
			Infants:  cmd.Infants,
			Pets:     cmd.Pets,
		},
		GuestID:   cmd.GuestID,
		Price:     snapshot,
		Policy:    domainbooking.SnapshotPolicy(listing.Cancellation, priced.Range.CheckIn),
		CreatedAt: now,
	}
	if priced.Promo != nil && priced.Promo.Valid {
		params.PromoCodeID = priced.Promo.PromoID
	}
	if source != nil {
		params.ExternalUID = source.ExternalUID
	}
	b, err := domainbooking.NewBooking(params)
	if err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}
	if err := outbox.Drain(ctx, h.Outbox, h.Encoder, b); err != nil {
		return nil, err
	}
	if source != nil {
		if err := unit.Blocks().Delete(ctx, cmd.TenantID, source.ID); err != nil {
			return nil, err
		}
		if err := outbox.Drain(ctx, h.Outbox, h.Encoder, source); err != nil {
			return nil, err
		}
	}
	if err := scope.Commit(ctx); err != nil {
		return nil, err
	}
	out := dto.MapBooking(b)
	return &out, nil
}

// sourceBlock loads the imported block a conversion takes over. It must belong
// to the property and cover the whole stay.
func (h *RequestBookingHandler) sourceBlock(ctx context.Context, unit uow.UnitOfWork, cmd RequestBookingCommand, stay daterange.DateRange, now time.Time) (*availability.BlockedPeriod, error) {
	if cmd.FromBlockID == "" {
		return nil, nil
	}
	block, err := unit.Blocks().ByID(ctx, cmd.TenantID, cmd.FromBlockID)
	if err != nil {
		return nil, err
	}
	if block.PropertyID != cmd.PropertyID {
		return nil, availability.ErrBlockNotFound
	}
	if err := block.ConvertTo(stay, now); err != nil {
		return nil, err
	}
	return block, nil
}

// Snapshot freezes a quote onto a booking. Discount is the long-stay and promo
// reductions together.
func Snapshot(q *quote.Quote) (domainbooking.PriceSnapshot, error) {
	discount, err := money.Sum(q.Currency, q.LongStayDiscount, q.PromoDiscount)
	if err != nil {
		return domainbooking.PriceSnapshot{}, err
	}
	return domainbooking.PriceSnapshot{
		Accommodation: q.AccommodationSubtotal,
		Discount:      discount,
		TouristTax:    q.TouristTax,
		Options:       q.OptionsTotal,
		ServiceFee:    q.ServiceFee,
		CleaningFee:   q.CleaningFee,
		Total:         q.Total,
		DepositDue:    q.DepositDue,
		BalanceDue:    q.BalanceDue,
	}, nil
}

func reference(id string) string {
	ref := strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(ref) > 8 {
		ref = ref[:8]
	}
	return "BK-" + ref
}

var _ commands.Handler[RequestBookingCommand, *dto.Booking] = (*RequestBookingHandler)(nil)
var _ middleware.IdempotentCommand = RequestBookingCommand{}
var _ middleware.LockedCommand = RequestBookingCommand{}
