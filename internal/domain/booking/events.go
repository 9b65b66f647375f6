package booking

import (
	"github.com/Eliezelg/villasaas-sub004/internal/domain/promo"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/property"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/daterange"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/events"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/money"
)

type BookingRequested struct {
	events.Meta
	BookingID  BookingID
	PropertyID property.PropertyID
	GuestID    string
	Range      daterange.DateRange
	Total      money.Money
}

func (e BookingRequested) EventName() string   { return "booking.requested" }
func (e BookingRequested) AggregateID() string { return string(e.BookingID) }

type BookingConfirmed struct {
	events.Meta
	BookingID   BookingID
	PropertyID  property.PropertyID
	Range       daterange.DateRange
	Total       money.Money
	PromoCodeID promo.PromoID
}

func (e BookingConfirmed) EventName() string   { return "booking.confirmed" }
func (e BookingConfirmed) AggregateID() string { return string(e.BookingID) }

type BookingCancelled struct {
	events.Meta
	BookingID  BookingID
	PropertyID property.PropertyID
	Range      daterange.DateRange
	Refund     money.Money
	Penalty    money.Money
	Reason     string
}

func (e BookingCancelled) EventName() string   { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string { return string(e.BookingID) }

type BookingCompleted struct {
	events.Meta
	BookingID BookingID
}

func (e BookingCompleted) EventName() string   { return "booking.completed" }
func (e BookingCompleted) AggregateID() string { return string(e.BookingID) }

type NoShowRecorded struct {
	events.Meta
	BookingID  BookingID
	PropertyID property.PropertyID
	Range      daterange.DateRange
}

func (e NoShowRecorded) EventName() string   { return "booking.no_show" }
func (e NoShowRecorded) AggregateID() string { return string(e.BookingID) }
