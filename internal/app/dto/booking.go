package dto

import (
	"time"

	domainbooking "github.com/Eliezelg/villasaas-sub004/internal/domain/booking"
)

type GuestsDTO struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Infants  int `json:"infants"`
	Pets     int `json:"pets"`
}

type PriceSnapshotDTO struct {
	Accommodation MoneyDTO `json:"accommodation"`
	Discount      MoneyDTO `json:"discount"`
	TouristTax    MoneyDTO `json:"tourist_tax"`
	Options       MoneyDTO `json:"options"`
	ServiceFee    MoneyDTO `json:"service_fee"`
	CleaningFee   MoneyDTO `json:"cleaning_fee"`
	Total         MoneyDTO `json:"total"`
	DepositDue    MoneyDTO `json:"deposit_due"`
	BalanceDue    MoneyDTO `json:"balance_due"`
}

type Booking struct {
	ID         string           `json:"id"`
	PropertyID string           `json:"property_id"`
	Reference  string           `json:"reference,omitempty"`
	Range      DateRangeDTO     `json:"range"`
	Status     string           `json:"status"`
	Guests     GuestsDTO        `json:"guests"`
	GuestID    string           `json:"guest_id,omitempty"`
	PromoCode  string           `json:"promo_code_id,omitempty"`
	Price      PriceSnapshotDTO `json:"price"`
	PaymentRef string           `json:"payment_ref,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func MapBooking(b *domainbooking.Booking) Booking {
	return Booking{
		ID:         string(b.ID),
		PropertyID: string(b.PropertyID),
		Reference:  b.Reference,
		Range:      MapRange(b.Range),
		Status:     string(b.Status),
		Guests: GuestsDTO{
			Adults:   b.Guests.Adults,
			Children: b.Guests.Children,
			Infants:  b.Guests.Infants,
			Pets:     b.Guests.Pets,
		},
		GuestID:   b.GuestID,
		PromoCode: string(b.PromoCodeID),
		Price: PriceSnapshotDTO{
			Accommodation: MapMoney(b.Price.Accommodation),
			Discount:      MapMoney(b.Price.Discount),
			TouristTax:    MapMoney(b.Price.TouristTax),
			Options:       MapMoney(b.Price.Options),
			ServiceFee:    MapMoney(b.Price.ServiceFee),
			CleaningFee:   MapMoney(b.Price.CleaningFee),
			Total:         MapMoney(b.Price.Total),
			DepositDue:    MapMoney(b.Price.DepositDue),
			BalanceDue:    MapMoney(b.Price.BalanceDue),
		},
		PaymentRef: b.PaymentRef,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

type CancellationResult struct {
	Booking Booking  `json:"booking"`
	Refund  MoneyDTO `json:"refund"`
	Penalty MoneyDTO `json:"penalty"`
}
