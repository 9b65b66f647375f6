package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/availability"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/promo"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/daterange"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/events"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/money"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

var (
	ErrInvalidGuests      = errors.New("booking: at least one adult is required")
	ErrInvalidState       = errors.New("booking: invalid state transition")
	ErrPaymentRefRequired = errors.New("booking: payment reference required before confirmation")
	ErrBookingNotFound    = errors.New("booking: not found")
	ErrConcurrentUpdate   = errors.New("booking: concurrent update")
	ErrCompletedImmutable = errors.New("booking: completed bookings are immutable")
	ErrCheckOutNotReached = errors.New("booking: stay has not ended yet")
	ErrCheckInNotReached  = errors.New("booking: stay has not started yet")
)

type BookingID string

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
	StatusNoShow    Status = "NO_SHOW"
)

type Guests struct {
	Adults   int
	Children int
	Infants  int
	Pets     int
}

// Billable is the headcount used for per-person charges.
func (g Guests) Billable() int {
	return g.Adults + g.Children
}

func (g Guests) Validate() error {
	if g.Adults < 1 || g.Children < 0 || g.Infants < 0 || g.Pets < 0 {
		return ErrInvalidGuests
	}
	return nil
}

// PriceSnapshot freezes the quote amounts the guest agreed to.
type PriceSnapshot struct {
	Accommodation money.Money
	Discount      money.Money
	TouristTax    money.Money
	Options       money.Money
	ServiceFee    money.Money
	CleaningFee   money.Money
	Total         money.Money
	DepositDue    money.Money
	BalanceDue    money.Money
}

type Booking struct {
	ID          BookingID
	TenantID    tenant.ID
	PropertyID  property.PropertyID
	Reference   string
	Range       daterange.DateRange
	Status      Status
	Guests      Guests
	GuestID     string
	PromoCodeID promo.PromoID
	Price       PriceSnapshot
	PaymentRef  string
	ExternalUID string
	Policy      CancellationPolicySnapshot
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Version     int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, tenantID tenant.ID, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	// Overlapping returns bookings that occupy the calendar and overlap dr.
	Overlapping(ctx context.Context, tenantID tenant.ID, propertyID property.PropertyID, dr daterange.DateRange) ([]*Booking, error)
	ListByProperty(ctx context.Context, tenantID tenant.ID, propertyID property.PropertyID) ([]*Booking, error)
	// CountRedemptions counts the user's bookings, other than exclude, that
	// have redeemed the promo code.
	CountRedemptions(ctx context.Context, tenantID tenant.ID, userID string, id promo.PromoID, exclude BookingID) (int, error)
	promo.UsageCounter
}

type CreateParams struct {
	ID          BookingID
	TenantID    tenant.ID
	PropertyID  property.PropertyID
	Reference   string
	Range       daterange.DateRange
	Guests      Guests
	GuestID     string
	PromoCodeID promo.PromoID
	Price       PriceSnapshot
	ExternalUID string
	Policy      CancellationPolicySnapshot
	CreatedAt   time.Time
}

func NewBooking(params CreateParams) (*Booking, error) {
	if err := params.TenantID.Validate(); err != nil {
		return nil, err
	}
	if params.PropertyID == "" {
		return nil, errors.New("booking: property id required")
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	if err := params.Guests.Validate(); err != nil {
		return nil, err
	}
	if params.Price.Total.IsNegative() {
		return nil, errors.New("booking: total cannot be negative")
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:          params.ID,
		TenantID:    params.TenantID,
		PropertyID:  params.PropertyID,
		Reference:   strings.TrimSpace(params.Reference),
		Range:       params.Range,
		Status:      StatusPending,
		Guests:      params.Guests,
		GuestID:     params.GuestID,
		PromoCodeID: params.PromoCodeID,
		Price:       params.Price,
		ExternalUID: params.ExternalUID,
		Policy:      params.Policy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	b.Record(BookingRequested{Meta: events.NewMeta(string(b.TenantID), now), BookingID: b.ID, PropertyID: b.PropertyID, GuestID: b.GuestID, Range: b.Range, Total: b.Price.Total})
	return b, nil
}

// Redeemed reports whether the booking's promo code has been charged, which
// happens on confirmation.
func (b *Booking) Redeemed() bool {
	if b.PromoCodeID == "" {
		return false
	}
	switch b.Status {
	case StatusConfirmed, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

// OccupiesCalendar reports whether the booking holds its nights.
func (b *Booking) OccupiesCalendar() bool {
	switch b.Status {
	case StatusPending, StatusConfirmed, StatusCompleted:
		return true
	default:
		return false
	}
}

func (b *Booking) Occupancy() availability.Occupancy {
	return availability.Occupancy{Kind: availability.ConflictBooking, ID: string(b.ID), Range: b.Range, Source: string(b.Status)}
}

// Confirm marks the booking paid. paymentRef identifies the successful payment.
func (b *Booking) Confirm(paymentRef string, now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidState
	}
	if b.Price.Total.GreaterThan(money.Zero(b.Price.Total.Currency)) && strings.TrimSpace(paymentRef) == "" {
		return ErrPaymentRefRequired
	}
	b.PaymentRef = strings.TrimSpace(paymentRef)
	b.Status = StatusConfirmed
	b.UpdatedAt = now.UTC()
	b.Record(BookingConfirmed{Meta: b.eventMeta(), BookingID: b.ID, PropertyID: b.PropertyID, Range: b.Range, Total: b.Price.Total, PromoCodeID: b.PromoCodeID})
	return nil
}

// Cancel releases the nights and returns the refund and penalty under the policy.
func (b *Booking) Cancel(reason string, now time.Time) (money.Money, money.Money, error) {
	switch b.Status {
	case StatusPending, StatusConfirmed:
	case StatusCompleted:
		return money.Money{}, money.Money{}, ErrCompletedImmutable
	default:
		return money.Money{}, money.Money{}, ErrInvalidState
	}
	paid := b.Price.Total
	if b.Status == StatusPending {
		paid = money.Zero(b.Price.Total.Currency)
	}
	refund, penalty, err := b.Policy.CalculateRefund(paid, now, b.Range.CheckIn)
	if err != nil {
		return money.Money{}, money.Money{}, err
	}
	b.Status = StatusCancelled
	b.UpdatedAt = now.UTC()
	b.Record(BookingCancelled{Meta: b.eventMeta(), BookingID: b.ID, PropertyID: b.PropertyID, Range: b.Range, Refund: refund, Penalty: penalty, Reason: reason})
	return refund, penalty, nil
}

func (b *Booking) Complete(now time.Time) error {
	if b.Status != StatusConfirmed {
		return ErrInvalidState
	}
	if daterange.Day(now).Before(b.Range.CheckOut) {
		return ErrCheckOutNotReached
	}
	b.Status = StatusCompleted
	b.UpdatedAt = now.UTC()
	b.Record(BookingCompleted{Meta: b.eventMeta(), BookingID: b.ID})
	return nil
}

func (b *Booking) MarkNoShow(now time.Time) error {
	if b.Status != StatusConfirmed {
		return ErrInvalidState
	}
	if daterange.Day(now).Before(b.Range.CheckIn) {
		return ErrCheckInNotReached
	}
	b.Status = StatusNoShow
	b.UpdatedAt = now.UTC()
	b.Record(NoShowRecorded{Meta: b.eventMeta(), BookingID: b.ID, PropertyID: b.PropertyID, Range: b.Range})
	return nil
}

func (b *Booking) eventMeta() events.Meta {
	return events.NewMeta(string(b.TenantID), b.UpdatedAt)
}
