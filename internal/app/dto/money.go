package dto

import (
	"time"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/daterange"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/money"
)

// MoneyDTO carries the amount as a fixed two-digit decimal string.
type MoneyDTO struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type DateRangeDTO struct {
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
	Nights   int    `json:"nights"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{
		Amount:   value.Amount.StringFixed(money.Scale),
		Currency: value.Currency,
	}
}

func MapRange(dr daterange.DateRange) DateRangeDTO {
	return DateRangeDTO{
		CheckIn:  dr.CheckIn.Format(time.DateOnly),
		CheckOut: dr.CheckOut.Format(time.DateOnly),
		Nights:   dr.Nights(),
	}
}
