package promo

import "github.com/Eliezelg/villasaas-sub004/internal/domain/shared/events"

// PromoRedeemed is recorded when a confirmed booking consumes one use of a code.
type PromoRedeemed struct {
	events.Meta
	PromoID   PromoID
	BookingID string
	UserID    string
}

func (e PromoRedeemed) EventName() string   { return "promo.redeemed" }
func (e PromoRedeemed) AggregateID() string { return string(e.PromoID) }
