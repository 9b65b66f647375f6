package ginserver

import (
	"fmt"
	"strings"
	"time"

	quotehandlers "github.com/Eliezelg/villasaas-sub004/internal/app/handlers/quote"
)

// Dates on the wire are calendar days, YYYY-MM-DD.
func parseDay(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%s is required", field)
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a YYYY-MM-DD date", field)
	}
	return t, nil
}

func parseStay(checkIn, checkOut string) (time.Time, time.Time, error) {
	in, err := parseDay("check_in", checkIn)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	out, err := parseDay("check_out", checkOut)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return in, out, nil
}

// stayRequest is shared by quotes and booking requests. GET quotes bind it
// from the query string, so selected options only travel in JSON bodies.
type stayRequest struct {
	CheckIn   string                          `json:"check_in" form:"check_in"`
	CheckOut  string                          `json:"check_out" form:"check_out"`
	Adults    int                             `json:"adults" form:"adults"`
	Children  int                             `json:"children" form:"children"`
	Infants   int                             `json:"infants" form:"infants"`
	Pets      int                             `json:"pets" form:"pets"`
	Options   []quotehandlers.OptionSelection `json:"options" form:"-"`
	PromoCode string                          `json:"promo_code" form:"promo_code"`
}
